package ingress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dcastillocr/anota/pkg/anota/channels"
	"github.com/dcastillocr/anota/pkg/anota/classifier"
	"github.com/dcastillocr/anota/pkg/anota/commands"
	"github.com/dcastillocr/anota/pkg/anota/digest"
	"github.com/dcastillocr/anota/pkg/anota/domain"
	"github.com/dcastillocr/anota/pkg/anota/extractor"
	"github.com/dcastillocr/anota/pkg/anota/reminder"
	"github.com/dcastillocr/anota/pkg/anota/scheduler"
	"github.com/dcastillocr/anota/pkg/anota/store"
)

// Replies for the failure paths of the pipeline. Internal detail stays in
// logs; the user always gets plain language.
const (
	replyExtractorDown = "Ups, no logré procesar eso ahora mismo. Intentá de nuevo en un momento. 🙏"
	replyNothingFound  = "No entendí qué querés guardar. Probá con algo como: \"recuérdame pagar el recibo el viernes a las 3\"."
	replyMomentPast    = "Ese momento ya pasó, así que no programé el recordatorio. Decime una nueva hora y lo agendo. 🕐"
)

// Processor runs the intake pipeline for one inbound event: resolve the
// user, classify, then answer locally, route a command, or extract and
// persist. No error escapes Process; every failure is logged and, where it
// matters to the user, answered in plain language.
type Processor struct {
	store     store.Store
	transport channels.Transport
	extractor extractor.Extractor
	reminders *reminder.Service
	digests   *digest.Service
	router    *commands.Router
	loc       *time.Location
	logger    *slog.Logger
}

// NewProcessor wires the pipeline.
func NewProcessor(
	st store.Store,
	tr channels.Transport,
	ex extractor.Extractor,
	rem *reminder.Service,
	dg *digest.Service,
	router *commands.Router,
	loc *time.Location,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		store:     st,
		transport: tr,
		extractor: ex,
		reminders: rem,
		digests:   dg,
		router:    router,
		loc:       loc,
		logger:    logger.With("component", "processor"),
	}
}

// Process handles one deduplicated inbound event.
func (p *Processor) Process(ctx context.Context, ev Event) {
	if ev.Kind != EventText && ev.Kind != EventInteractive {
		return
	}

	user, err := p.store.GetOrCreateUser(ctx, ev.From)
	if err != nil {
		p.logger.Error("could not resolve user", "from", ev.From, "error", err)
		return
	}
	if ev.SenderName != "" && user.Name == "" {
		if err := p.store.SetUserName(ctx, user.ID, ev.SenderName); err != nil {
			p.logger.Warn("could not record sender name", "user_id", user.ID, "error", err)
		} else {
			user.Name = ev.SenderName
		}
	}

	if ev.Kind == EventInteractive {
		if err := p.router.HandleButton(ctx, user, ev.ButtonID); err != nil {
			p.logger.Error("button handling failed", "button_id", ev.ButtonID, "error", err)
		}
		return
	}

	decision := classifier.Classify(ev.Body)
	switch decision.Kind {
	case classifier.Handled:
		reply := classifier.Reply(decision.Variant, ev.Body)
		if err := p.transport.SendText(ctx, user.Phone, reply); err != nil {
			p.logger.Error("canned reply failed", "variant", decision.Variant, "error", err)
		}
	case classifier.Command:
		if err := p.router.Execute(ctx, user, decision.Name, decision.Args); err != nil {
			p.logger.Error("command failed", "command", decision.Name, "error", err)
		}
	case classifier.Extract:
		p.extract(ctx, user, ev.Body)
	}
}

// extract is the only pipeline branch that allocates external work.
func (p *Processor) extract(ctx context.Context, user *domain.User, text string) {
	x, err := p.extractor.Extract(ctx, user, text)
	if err != nil {
		p.logger.Error("extraction failed", "user_id", user.ID, "error", err)
		p.reply(ctx, user, replyExtractorDown)
		return
	}
	if x == nil {
		p.reply(ctx, user, replyNothingFound)
		return
	}

	entry := x.Entry(user.ID)

	// A one-shot reminder at a moment already past would persist as a
	// pending entry that can never fire; tell the user instead.
	if entry.Kind == domain.KindReminder &&
		entry.Recurrence == domain.RecurrenceNone &&
		entry.ScheduledAt != nil && !entry.ScheduledAt.After(time.Now()) {
		p.reply(ctx, user, replyMomentPast)
		return
	}

	if err := p.store.InsertEntry(ctx, entry); err != nil {
		p.logger.Error("could not persist entry", "user_id", user.ID, "error", err)
		p.reply(ctx, user, replyExtractorDown)
		return
	}

	if entry.Kind == domain.KindReminder && entry.ScheduledAt != nil {
		if _, err := p.reminders.Schedule(ctx, entry, user); err != nil {
			if errors.Is(err, scheduler.ErrPastTime) {
				p.reply(ctx, user, replyMomentPast)
			} else {
				p.logger.Error("could not schedule reminder", "entry_id", entry.ID, "error", err)
				p.reply(ctx, user, replyExtractorDown)
			}
			return
		}
	}

	// Fresh activity shifts the user's optimal morning time; re-arm their
	// digest trigger with the new sample included.
	if err := p.digests.ScheduleForUser(ctx, user); err != nil {
		p.logger.Warn("could not refresh digest trigger", "user_id", user.ID, "error", err)
	}

	p.confirm(ctx, user, entry)
}

// confirm acknowledges a persisted entry. Tasks get complete/delete buttons;
// everything else gets a text confirmation.
func (p *Processor) confirm(ctx context.Context, user *domain.User, entry *domain.Entry) {
	switch entry.Kind {
	case domain.KindTask:
		body := fmt.Sprintf("%s Apunté la tarea: %s", entry.Priority.Glyph(), entry.Description)
		buttons := []channels.Button{
			{ID: channels.CompleteTaskPrefix + entry.ID, Title: "✅ Completar"},
			{ID: channels.DeleteTaskPrefix + entry.ID, Title: "🗑 Eliminar"},
			{ID: channels.InfoTaskPrefix + entry.ID, Title: "ℹ️ Detalles"},
		}
		if err := p.transport.SendInteractive(ctx, user.Phone, body, buttons); err != nil {
			p.logger.Error("task confirmation failed", "entry_id", entry.ID, "error", err)
		}
	case domain.KindReminder:
		if entry.ScheduledAt == nil {
			p.reply(ctx, user, fmt.Sprintf("📝 Guardado: %s", entry.Description))
			return
		}
		when := entry.ScheduledAt.In(p.loc).Format("Mon 2 Jan, 3:04 PM")
		body := fmt.Sprintf("⏰ Listo, te lo recuerdo el %s.", when)
		if word := entry.Recurrence.Word(); word != "" {
			body = fmt.Sprintf("⏰ Listo, te lo recuerdo %s a las %s.",
				word, entry.ScheduledAt.In(p.loc).Format("3:04 PM"))
		}
		p.reply(ctx, user, body)
	case domain.KindExpense:
		p.reply(ctx, user, fmt.Sprintf("💸 Anoté el gasto: %s", entry.Description))
	case domain.KindEvent:
		p.reply(ctx, user, fmt.Sprintf("📅 Agendé: %s", entry.Description))
	default:
		p.reply(ctx, user, fmt.Sprintf("📝 Guardado: %s", entry.Description))
	}
}

func (p *Processor) reply(ctx context.Context, user *domain.User, body string) {
	if err := p.transport.SendText(ctx, user.Phone, body); err != nil {
		p.logger.Error("reply failed", "user_id", user.ID, "error", err)
	}
}
