package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/dcastillocr/anota/pkg/anota/domain"
)

const extractTimeout = 30 * time.Second

// Gemini extracts entries with the Gemini API, forcing a JSON response that
// matches the extraction schema.
type Gemini struct {
	client *genai.Client
	model  string
	loc    *time.Location
	logger *slog.Logger
}

var _ Extractor = (*Gemini)(nil)

// NewGemini creates the Gemini-backed extractor. loc is the session
// timezone; scheduled moments in the model output are interpreted there.
func NewGemini(ctx context.Context, apiKey, model string, loc *time.Location, logger *slog.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{
		client: client,
		model:  model,
		loc:    loc,
		logger: logger.With("component", "extractor"),
	}, nil
}

// rawExtraction is the JSON shape the model is asked to produce.
type rawExtraction struct {
	Found       bool   `json:"found"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
	ScheduledAt string `json:"scheduled_at"`
	Priority    string `json:"priority"`
	Recurrence  string `json:"recurrence"`
}

var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"found":        {Type: genai.TypeBoolean},
		"kind":         {Type: genai.TypeString, Enum: []string{"task", "event", "reminder", "expense", "note"}},
		"description":  {Type: genai.TypeString},
		"scheduled_at": {Type: genai.TypeString},
		"priority":     {Type: genai.TypeString, Enum: []string{"high", "medium", "low"}},
		"recurrence":   {Type: genai.TypeString, Enum: []string{"none", "daily", "weekly", "monthly", "yearly"}},
	},
	Required: []string{"found"},
}

const systemPrompt = `Eres el extractor de un asistente personal por WhatsApp.
Recibes un mensaje libre del usuario y devuelves JSON con la entrada
estructurada que contiene: tarea, evento, recordatorio, gasto o nota.

Reglas:
- found=false si el mensaje no contiene nada que guardar.
- description: lo que hay que recordar, sin la parte temporal ("llamar al
  doctor", no "llamar al doctor mañana a las 9").
- scheduled_at: momento en formato "2006-01-02 15:04" en la zona horaria del
  usuario, o vacío si el mensaje no menciona cuándo.
- recurrence: "daily" para "cada día", "weekly" para "cada semana", etc.;
  "none" si no se repite.
- priority: "high" solo si el usuario marca urgencia; por defecto "medium".`

// Extract asks the model for a structured entry. Returns nil when the model
// found nothing extractable.
func (g *Gemini) Extract(ctx context.Context, user *domain.User, text string) (*Extraction, error) {
	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	now := time.Now().In(g.loc)
	instruction := fmt.Sprintf("%s\n\nUsuario: %s\nZona horaria: %s\nAhora es: %s (%s)",
		systemPrompt, user.Name, g.loc.String(),
		now.Format("2006-01-02 15:04"), now.Weekday())

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(instruction, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			ResponseSchema:    responseSchema,
		})
	if err != nil {
		return nil, fmt.Errorf("gemini extract: %w", err)
	}

	raw := strings.TrimSpace(resp.Text())
	if raw == "" {
		return nil, fmt.Errorf("gemini extract: empty response")
	}
	return ParseExtraction(raw, g.loc)
}

// ParseExtraction decodes the model's JSON into an Extraction, validating
// every field. Scheduled moments are naïve local times in loc.
func ParseExtraction(raw string, loc *time.Location) (*Extraction, error) {
	var r rawExtraction
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("parse extraction %q: %w", raw, err)
	}
	if !r.Found {
		return nil, nil
	}

	kind := domain.Kind(r.Kind)
	if !kind.Valid() {
		return nil, fmt.Errorf("extraction has unknown kind %q", r.Kind)
	}
	if strings.TrimSpace(r.Description) == "" {
		return nil, fmt.Errorf("extraction has empty description")
	}

	x := &Extraction{
		Kind:        kind,
		Description: strings.TrimSpace(r.Description),
		Priority:    domain.Priority(r.Priority),
		Recurrence:  domain.Recurrence(r.Recurrence),
	}
	if x.Priority == "" {
		x.Priority = domain.PriorityMedium
	}
	if x.Recurrence == "" {
		x.Recurrence = domain.RecurrenceNone
	}
	if r.ScheduledAt != "" {
		t, err := time.ParseInLocation("2006-01-02 15:04", r.ScheduledAt, loc)
		if err != nil {
			return nil, fmt.Errorf("extraction has bad scheduled_at %q: %w", r.ScheduledAt, err)
		}
		x.ScheduledAt = &t
	}
	return x, nil
}
