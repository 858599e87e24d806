// Package extract turns a report PDF into a validated record of the target
// schema, masking the vision model's unreliability behind a bounded retry
// loop.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/marinesafe/safety-advisor/internal/llm"
	"github.com/marinesafe/safety-advisor/internal/raster"
	"github.com/marinesafe/safety-advisor/internal/schema"
)

// MaxAttempts is the fixed attempt ceiling per document. It is a policy
// constant, not adaptive: the same input may succeed on a different attempt
// across runs because the model is non-deterministic.
const MaxAttempts = 3

// Engine orchestrates rasterizer, vision client, and schema registry.
type Engine struct {
	raster raster.Rasterizer
	vision llm.VisionClient
	logger *slog.Logger
}

func NewEngine(r raster.Rasterizer, v llm.VisionClient, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{raster: r, vision: v, logger: logger}
}

// ExhaustedError means no attempt produced schema-valid output.
// LastErr carries the final parse/validation failure for diagnostics.
type ExhaustedError struct {
	Schema   string
	Attempts int
	LastErr  error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("extract %s: no schema-valid output after %d attempts: %v", e.Schema, e.Attempts, e.LastErr)
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// attemptState models the retry loop explicitly so the ceiling and exit
// conditions stay independently testable.
type attemptState int

const (
	stateAttempting attemptState = iota
	stateRetrying
	stateSucceeded
	stateExhausted
)

// Extract converts the PDF at pdfPath into a validated record of desc's
// shape. Rasterization failures are terminal (retrying a corrupt document
// cannot help); parse and validation failures are retried up to MaxAttempts
// with the full image set re-sent each time. The first success returns
// immediately.
func Extract[T any](ctx context.Context, e *Engine, desc schema.Descriptor[T], pdfPath string) (T, error) {
	var zero T
	rid := uuid.New().String()
	start := time.Now()

	res, cleanup, err := e.raster.Rasterize(ctx, pdfPath)
	if err != nil {
		return zero, err
	}
	defer cleanup()

	if res.HasText {
		// Informational only: text-bearing PDFs still go through the
		// vision path.
		e.logger.Info("extract.text_layer_present", "req_id", rid, "schema", desc.Name, "path", pdfPath)
	}

	compiled, err := compileSchema(desc.JSONSchema())
	if err != nil {
		return zero, fmt.Errorf("%s schema: %w", desc.Name, err)
	}
	prompt := desc.Prompt()

	var (
		rec     T
		lastErr error
		attempt int
	)
	state := stateAttempting
	for {
		switch state {
		case stateAttempting:
			attempt++
			e.logger.Info("extract.attempt.start",
				"req_id", rid, "schema", desc.Name, "attempt", attempt, "pages", len(res.Pages))
			out, err := runAttempt(ctx, e, desc, compiled, prompt, res.Pages)
			if err != nil {
				e.logger.Warn("extract.attempt.failed",
					"req_id", rid, "schema", desc.Name, "attempt", attempt, "error", err)
				lastErr = err
				state = stateRetrying
				continue
			}
			rec = out
			state = stateSucceeded

		case stateRetrying:
			if attempt >= MaxAttempts {
				state = stateExhausted
				continue
			}
			// No backoff: attempts are strictly sequential and immediate.
			state = stateAttempting

		case stateSucceeded:
			e.logger.Info("extract.ok",
				"req_id", rid, "schema", desc.Name, "attempts", attempt,
				"elapsed_ms", time.Since(start).Milliseconds())
			return rec, nil

		case stateExhausted:
			e.logger.Error("extract.exhausted",
				"req_id", rid, "schema", desc.Name, "attempts", attempt, "last_error", lastErr,
				"elapsed_ms", time.Since(start).Milliseconds())
			return zero, &ExhaustedError{Schema: desc.Name, Attempts: attempt, LastErr: lastErr}
		}
	}
}

// runAttempt performs one complete model round trip:
// complete -> strip fences -> parse -> sanitize -> validate -> totalize -> decode.
// Every failure in here is retryable.
func runAttempt[T any](ctx context.Context, e *Engine, desc schema.Descriptor[T], compiled *jsonschema.Schema, prompt string, pages []string) (T, error) {
	var zero T

	raw, err := e.vision.Complete(ctx, prompt, pages)
	if err != nil {
		return zero, fmt.Errorf("model call: %w", err)
	}

	cleaned := llm.StripCodeFences(raw)
	var obj map[string]any
	if err := json.Unmarshal([]byte(cleaned), &obj); err != nil {
		return zero, fmt.Errorf("parse model output: %w", err)
	}

	obj, notes := desc.Sanitize(obj)
	if len(notes) > 0 {
		e.logger.Debug("extract.sanitized", "schema", desc.Name, "changes", notes)
	}

	if err := compiled.Validate(obj); err != nil {
		return zero, fmt.Errorf("schema validation: %w", err)
	}

	rec, err := desc.Decode(desc.ApplyDefaults(obj))
	if err != nil {
		return zero, err
	}
	return rec, nil
}
