// Package chat answers free-form analytic questions over the incident
// corpus by handing a tabular view of the data to the chat model.
package chat

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/marinesafe/safety-advisor/internal/llm"
	"github.com/marinesafe/safety-advisor/internal/repository"
	"github.com/marinesafe/safety-advisor/internal/schema"
)

// historyWindow is the number of prior chat turns carried into each query.
const historyWindow = 6

const (
	noDataMessage   = "No incident data is available yet. Upload and save incident reports to start asking questions."
	fallbackMessage = "Sorry, I couldn't analyze the incident data just now. Please try again."
)

// Turn is one prior exchange entry, oldest first.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Envelope is the chat endpoint's structured response. The agent's failure
// modes are unpredictable, so raw errors never leave this package: a failed
// query becomes a user-safe fallback envelope.
type Envelope struct {
	Success bool   `json:"success"`
	Answer  string `json:"answer"`
}

// Agent delegates question answering over the incident table to the model.
type Agent struct {
	incidents repository.IncidentRepository
	model     llm.VisionClient
	logger    *slog.Logger
}

func NewAgent(incidents repository.IncidentRepository, model llm.VisionClient, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{incidents: incidents, model: model, logger: logger}
}

// Ask loads the full incident corpus, flattens it into a CSV table, and
// asks the model the question in the context of the last historyWindow
// turns. Always returns an envelope, never an error.
func (a *Agent) Ask(ctx context.Context, question string, history []Turn) Envelope {
	recs, err := a.incidents.GetAll(ctx)
	if err != nil {
		a.logger.Error("chat.load_incidents_failed", "error", err)
		return Envelope{Success: false, Answer: fallbackMessage}
	}
	if len(recs) == 0 {
		return Envelope{Success: true, Answer: noDataMessage}
	}

	table, err := tabulate(recs)
	if err != nil {
		a.logger.Error("chat.tabulate_failed", "error", err)
		return Envelope{Success: false, Answer: fallbackMessage}
	}

	answer, err := a.model.Complete(ctx, buildPrompt(table, question, history), nil)
	if err != nil || strings.TrimSpace(answer) == "" {
		a.logger.Error("chat.model_failed", "error", err)
		return Envelope{Success: false, Answer: fallbackMessage}
	}

	return Envelope{Success: true, Answer: strings.TrimSpace(answer)}
}

// tabulate flattens stored incidents into CSV, one row per incident,
// columns in schema order.
func tabulate(recs []*repository.StoredIncident) (string, error) {
	headers := []string{"id"}
	for _, f := range schema.IncidentDescriptor.Fields {
		headers = append(headers, f.Name)
	}
	headers = append(headers, "created_at")

	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write(headers); err != nil {
		return "", err
	}
	for _, rec := range recs {
		raw, err := json.Marshal(rec)
		if err != nil {
			return "", err
		}
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return "", err
		}
		row := make([]string, 0, len(headers))
		for _, h := range headers {
			row = append(row, cell(m[h]))
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	return b.String(), w.Error()
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", t), "0"), ".")
	default:
		return fmt.Sprint(t)
	}
}

func buildPrompt(table, question string, history []Turn) string {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	var b strings.Builder
	b.WriteString("You are a marine safety analyst. Answer the question using only the incident data below.\n")
	b.WriteString("Be concise and factual. If the data cannot answer the question, say so.\n\n")
	b.WriteString("Incident data (CSV):\n")
	b.WriteString(table)
	if len(history) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, t := range history {
			b.WriteString(t.Role)
			b.WriteString(": ")
			b.WriteString(t.Content)
			b.WriteString("\n")
		}
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	return b.String()
}
