// Package auth resolves bearer tokens to user identities against the
// Supabase auth provider.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is the authenticated caller's identity.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthError is the uniform unauthorized kind. The outward message never
// explains why verification failed; the cause stays in logs.
type AuthError struct {
	Cause error
}

func (e *AuthError) Error() string { return "invalid authentication token" }

func (e *AuthError) Unwrap() error { return e.Cause }

// Verifier resolves a bearer token to a user identity. Verification runs on
// every protected request; nothing is cached here.
type Verifier interface {
	Authenticate(ctx context.Context, token string) (*User, error)
}

// Config for the Supabase verifier.
type Config struct {
	URL            string // project base URL, e.g. https://xyz.supabase.co
	ServiceRoleKey string
	JWTSecret      string
	Timeout        time.Duration
}

// Supabase verifies the HS256 access token locally, then resolves the user
// through the auth admin API.
type Supabase struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewSupabase(cfg Config, logger *slog.Logger) *Supabase {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Supabase{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (s *Supabase) Authenticate(ctx context.Context, token string) (*User, error) {
	userID, err := s.verifyToken(token)
	if err != nil {
		s.logger.Warn("auth.token_rejected", "error", err)
		return nil, &AuthError{Cause: err}
	}

	u, err := s.lookupUser(ctx, userID)
	if err != nil {
		s.logger.Warn("auth.user_lookup_failed", "user_id", userID, "error", err)
		return nil, &AuthError{Cause: err}
	}
	return u, nil
}

// verifyToken checks the Supabase access token signature and audience and
// returns the subject claim.
func (s *Supabase) verifyToken(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithAudience("authenticated"), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}

type adminUserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// lookupUser resolves the user record through the admin API with the
// service-role key.
func (s *Supabase) lookupUser(ctx context.Context, userID string) (*User, error) {
	url := strings.TrimRight(s.cfg.URL, "/") + "/auth/v1/admin/users/" + userID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", s.cfg.ServiceRoleKey)
	req.Header.Set("Authorization", "Bearer "+s.cfg.ServiceRoleKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return nil, fmt.Errorf("auth provider status %d: %s", resp.StatusCode, string(raw))
	}

	var au adminUserResponse
	if err := json.NewDecoder(resp.Body).Decode(&au); err != nil {
		return nil, fmt.Errorf("decode auth provider response: %w", err)
	}
	if au.ID == "" {
		return nil, fmt.Errorf("no matching user")
	}

	createdAt, err := parseCreatedAt(au.CreatedAt)
	if err != nil {
		s.logger.Debug("auth.created_at_unparseable", "value", au.CreatedAt, "error", err)
		createdAt = time.Now().UTC()
	}

	return &User{ID: au.ID, Email: au.Email, CreatedAt: createdAt}, nil
}

func parseCreatedAt(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
