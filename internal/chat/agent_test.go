package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/marinesafe/safety-advisor/internal/repository"
	"github.com/marinesafe/safety-advisor/internal/schema"
)

type fakeRepo struct {
	recs []*repository.StoredIncident
	err  error
}

func (f *fakeRepo) Insert(context.Context, schema.Incident) (*repository.StoredIncident, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeRepo) GetAll(context.Context) ([]*repository.StoredIncident, error) {
	return f.recs, f.err
}

func (f *fakeRepo) GetByID(context.Context, string) (*repository.StoredIncident, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeRepo) GetSimilar(context.Context) ([]*repository.StoredIncident, error) {
	return f.recs, f.err
}

type fakeModel struct {
	answer  string
	err     error
	prompts []string
}

func (f *fakeModel) Complete(_ context.Context, prompt string, _ []string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

func storedIncident(id, vessel string) *repository.StoredIncident {
	return &repository.StoredIncident{
		ID:        id,
		Incident:  schema.Incident{VesselName: vessel, TypeOfEvent: "Dropped Object"},
		CreatedAt: time.Date(2024, 3, 18, 10, 0, 0, 0, time.UTC),
	}
}

func TestAskEmptyCorpus(t *testing.T) {
	model := &fakeModel{}
	a := NewAgent(&fakeRepo{}, model, nil)

	env := a.Ask(context.Background(), "How many dropped objects?", nil)

	if !env.Success {
		t.Error("empty corpus is a successful no-data answer, not a failure")
	}
	if env.Answer != noDataMessage {
		t.Errorf("answer = %q", env.Answer)
	}
	if len(model.prompts) != 0 {
		t.Error("no model call expected for an empty corpus")
	}
}

func TestAskRepositoryFailure(t *testing.T) {
	a := NewAgent(&fakeRepo{err: errors.New("connection refused")}, &fakeModel{}, nil)

	env := a.Ask(context.Background(), "How many incidents?", nil)

	if env.Success {
		t.Error("expected failure envelope")
	}
	if env.Answer != fallbackMessage {
		t.Errorf("answer = %q", env.Answer)
	}
}

func TestAskModelFailure(t *testing.T) {
	repo := &fakeRepo{recs: []*repository.StoredIncident{storedIncident("a", "MV Orion")}}
	a := NewAgent(repo, &fakeModel{err: errors.New("rate limited")}, nil)

	env := a.Ask(context.Background(), "How many incidents?", nil)

	if env.Success || env.Answer != fallbackMessage {
		t.Errorf("expected fallback envelope, got %+v", env)
	}
}

func TestAskPromptCarriesDataAndQuestion(t *testing.T) {
	repo := &fakeRepo{recs: []*repository.StoredIncident{
		storedIncident("a", "MV Orion"),
		storedIncident("b", "MV Cassiopeia"),
	}}
	model := &fakeModel{answer: "Two incidents, both dropped objects."}
	a := NewAgent(repo, model, nil)

	env := a.Ask(context.Background(), "What happened across the fleet?", nil)

	if !env.Success || env.Answer != "Two incidents, both dropped objects." {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if len(model.prompts) != 1 {
		t.Fatalf("expected one model call, got %d", len(model.prompts))
	}

	prompt := model.prompts[0]
	for _, want := range []string{"MV Orion", "MV Cassiopeia", "Dropped Object", "What happened across the fleet?", "vessel_name"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestAskHistoryWindow(t *testing.T) {
	repo := &fakeRepo{recs: []*repository.StoredIncident{storedIncident("a", "MV Orion")}}
	model := &fakeModel{answer: "ok"}
	a := NewAgent(repo, model, nil)

	history := make([]Turn, 0, historyWindow+4)
	for i := 0; i < historyWindow+4; i++ {
		history = append(history, Turn{Role: "user", Content: "turn-" + string(rune('a'+i))})
	}

	a.Ask(context.Background(), "And now?", history)

	prompt := model.prompts[0]
	// Oldest turns fall outside the window.
	for i := 0; i < 4; i++ {
		if strings.Contains(prompt, history[i].Content) {
			t.Errorf("prompt should not contain evicted turn %q", history[i].Content)
		}
	}
	for i := 4; i < len(history); i++ {
		if !strings.Contains(prompt, history[i].Content) {
			t.Errorf("prompt missing retained turn %q", history[i].Content)
		}
	}
}

func TestAskBlankModelAnswerIsFallback(t *testing.T) {
	repo := &fakeRepo{recs: []*repository.StoredIncident{storedIncident("a", "MV Orion")}}
	a := NewAgent(repo, &fakeModel{answer: "   \n"}, nil)

	env := a.Ask(context.Background(), "Anything?", nil)
	if env.Success || env.Answer != fallbackMessage {
		t.Errorf("expected fallback envelope, got %+v", env)
	}
}
