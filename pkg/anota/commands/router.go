// Package commands dispatches slash-style and bare-word commands against
// the store: day views, the 7-day agenda, substring completion, help, and
// stats. Button replies from interactive messages route here too, keyed by
// their id prefix.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dcastillocr/anota/pkg/anota/channels"
	"github.com/dcastillocr/anota/pkg/anota/digest"
	"github.com/dcastillocr/anota/pkg/anota/domain"
	"github.com/dcastillocr/anota/pkg/anota/store"
)

// Router executes commands on behalf of one user and replies through the
// transport.
type Router struct {
	store     store.Store
	transport channels.Transport
	digest    *digest.Service
	loc       *time.Location
	logger    *slog.Logger
}

// New creates the command router.
func New(st store.Store, tr channels.Transport, dg *digest.Service, loc *time.Location, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		store:     st,
		transport: tr,
		digest:    dg,
		loc:       loc,
		logger:    logger.With("component", "commands"),
	}
}

// Execute runs one named command. Unknown names get the help text.
func (r *Router) Execute(ctx context.Context, user *domain.User, name, args string) error {
	switch name {
	case "today":
		return r.dayView(ctx, user, time.Now().In(r.loc), "📅 *Hoy*")
	case "tomorrow":
		return r.dayView(ctx, user, time.Now().In(r.loc).AddDate(0, 0, 1), "📅 *Mañana*")
	case "agenda":
		return r.agenda(ctx, user)
	case "complete":
		return r.complete(ctx, user, args)
	case "stats":
		return r.stats(ctx, user)
	case "help":
		return r.help(ctx, user)
	default:
		r.logger.Debug("unknown command, showing help", "command", name)
		return r.help(ctx, user)
	}
}

func (r *Router) dayView(ctx context.Context, user *domain.User, day time.Time, header string) error {
	entries, err := r.digest.EntriesForDay(ctx, user.ID, day)
	if err != nil {
		return fmt.Errorf("list day entries: %w", err)
	}
	body := header + "\n\n" + digest.ComposeDay(entries, r.loc)
	return r.transport.SendText(ctx, user.Phone, body)
}

// agenda renders the 7-day forward view, one block per day with entries,
// annotated with (HOY) and (MAÑANA) and a per-day count.
func (r *Router) agenda(ctx context.Context, user *domain.User) error {
	now := time.Now().In(r.loc)
	var b strings.Builder
	b.WriteString("🗓 *Agenda de los próximos 7 días*\n")

	shown := 0
	for offset := 0; offset < 7; offset++ {
		day := now.AddDate(0, 0, offset)
		entries, err := r.digest.EntriesForDay(ctx, user.ID, day)
		if err != nil {
			return fmt.Errorf("list agenda day: %w", err)
		}
		if len(entries) == 0 {
			continue
		}
		shown++

		annotation := ""
		switch offset {
		case 0:
			annotation = " (HOY)"
		case 1:
			annotation = " (MAÑANA)"
		}
		fmt.Fprintf(&b, "\n*%s%s* – %d\n", spanishDate(day), annotation, len(entries))
		for _, e := range entries {
			when := ""
			if e.ScheduledAt != nil {
				when = e.ScheduledAt.In(r.loc).Format("3:04 PM") + " "
			}
			fmt.Fprintf(&b, "  • %s%s\n", when, e.Description)
		}
	}
	if shown == 0 {
		b.WriteString("\nNada programado esta semana. 🎉")
	}
	return r.transport.SendText(ctx, user.Phone, strings.TrimRight(b.String(), "\n"))
}

// complete finds the user's pending tasks whose description contains the
// needle, case-insensitively. One match completes; zero or several ask the
// user instead of guessing.
func (r *Router) complete(ctx context.Context, user *domain.User, needle string) error {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return r.transport.SendText(ctx, user.Phone,
			"Decime qué completar, por ejemplo: /completar doctor")
	}

	pending, err := r.store.ListEntries(ctx, user.ID, store.Filter{
		Status: domain.StatusPending,
		Kind:   domain.KindTask,
	})
	if err != nil {
		return fmt.Errorf("list pending tasks: %w", err)
	}

	var matches []*domain.Entry
	lower := strings.ToLower(needle)
	for _, e := range pending {
		if strings.Contains(strings.ToLower(e.Description), lower) {
			matches = append(matches, e)
		}
	}

	switch len(matches) {
	case 0:
		return r.transport.SendText(ctx, user.Phone,
			fmt.Sprintf("No encontré ninguna tarea pendiente con %q.", needle))
	case 1:
		return r.completeEntry(ctx, user, matches[0])
	default:
		var b strings.Builder
		fmt.Fprintf(&b, "Encontré %d tareas con %q. ¿Cuál completo?\n", len(matches), needle)
		for _, e := range matches {
			fmt.Fprintf(&b, "  • %s\n", e.Description)
		}
		b.WriteString("Escribí /completar con más detalle.")
		return r.transport.SendText(ctx, user.Phone, b.String())
	}
}

// completeEntry marks one entry completed and confirms. Re-completing is a
// no-op with an "already completed" reply; the store keeps the original
// completion time either way.
func (r *Router) completeEntry(ctx context.Context, user *domain.User, entry *domain.Entry) error {
	if entry.Status == domain.StatusCompleted {
		return r.transport.SendText(ctx, user.Phone,
			fmt.Sprintf("%q ya estaba completada. ✅", entry.Description))
	}
	now := time.Now().UTC()
	completed := domain.StatusCompleted
	if err := r.store.UpdateEntry(ctx, entry.ID, store.Patch{Status: &completed, CompletedAt: &now}); err != nil {
		return fmt.Errorf("complete entry: %w", err)
	}
	return r.transport.SendText(ctx, user.Phone,
		fmt.Sprintf("✅ Listo, completé %q.", entry.Description))
}

func (r *Router) stats(ctx context.Context, user *domain.User) error {
	entries, err := r.store.ListEntries(ctx, user.ID, store.Filter{})
	if err != nil {
		return fmt.Errorf("list entries for stats: %w", err)
	}

	byStatus := map[domain.Status]int{}
	byKind := map[domain.Kind]int{}
	for _, e := range entries {
		byStatus[e.Status]++
		byKind[e.Kind]++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 *Tus números*\n\nTotal: %d\n", len(entries))
	fmt.Fprintf(&b, "Pendientes: %d · Completadas: %d · Canceladas: %d\n",
		byStatus[domain.StatusPending], byStatus[domain.StatusCompleted], byStatus[domain.StatusCancelled])
	fmt.Fprintf(&b, "\nTareas: %d · Eventos: %d · Recordatorios: %d · Gastos: %d · Notas: %d",
		byKind[domain.KindTask], byKind[domain.KindEvent], byKind[domain.KindReminder],
		byKind[domain.KindExpense], byKind[domain.KindNote])
	return r.transport.SendText(ctx, user.Phone, b.String())
}

func (r *Router) help(ctx context.Context, user *domain.User) error {
	body := strings.Join([]string{
		"🤖 *Comandos*",
		"",
		"/hoy – lo pendiente de hoy",
		"/mañana – lo pendiente de mañana",
		"/agenda – los próximos 7 días",
		"/completar <texto> – marcar una tarea como hecha",
		"/stats – tus números",
		"/help – esta ayuda",
		"",
		"También podés escribirme en lenguaje natural: \"recuérdame llamar al doctor mañana a las 9\".",
	}, "\n")
	return r.transport.SendText(ctx, user.Phone, body)
}

// HandleButton routes an interactive reply by its id prefix.
func (r *Router) HandleButton(ctx context.Context, user *domain.User, buttonID string) error {
	switch {
	case strings.HasPrefix(buttonID, channels.CompleteTaskPrefix):
		return r.completeByID(ctx, user, strings.TrimPrefix(buttonID, channels.CompleteTaskPrefix))
	case strings.HasPrefix(buttonID, channels.DeleteTaskPrefix):
		return r.cancelByID(ctx, user, strings.TrimPrefix(buttonID, channels.DeleteTaskPrefix))
	case strings.HasPrefix(buttonID, channels.InfoTaskPrefix):
		return r.infoByID(ctx, user, strings.TrimPrefix(buttonID, channels.InfoTaskPrefix))
	case buttonID == channels.ActionShowAllTasks:
		return r.dayView(ctx, user, time.Now().In(r.loc), "📅 *Hoy*")
	default:
		r.logger.Warn("unknown button id", "button_id", buttonID)
		return r.help(ctx, user)
	}
}

func (r *Router) entryOwnedBy(ctx context.Context, user *domain.User, entryID string) (*domain.Entry, error) {
	entry, err := r.store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.UserID != user.ID {
		return nil, store.ErrNotFound
	}
	return entry, nil
}

func (r *Router) completeByID(ctx context.Context, user *domain.User, entryID string) error {
	entry, err := r.entryOwnedBy(ctx, user, entryID)
	if err != nil {
		return r.transport.SendText(ctx, user.Phone, "Esa tarea ya no existe.")
	}
	return r.completeEntry(ctx, user, entry)
}

func (r *Router) cancelByID(ctx context.Context, user *domain.User, entryID string) error {
	entry, err := r.entryOwnedBy(ctx, user, entryID)
	if err != nil {
		return r.transport.SendText(ctx, user.Phone, "Esa tarea ya no existe.")
	}
	cancelled := domain.StatusCancelled
	if err := r.store.UpdateEntry(ctx, entry.ID, store.Patch{Status: &cancelled}); err != nil {
		return fmt.Errorf("cancel entry: %w", err)
	}
	return r.transport.SendText(ctx, user.Phone,
		fmt.Sprintf("🗑 Eliminé %q.", entry.Description))
}

func (r *Router) infoByID(ctx context.Context, user *domain.User, entryID string) error {
	entry, err := r.entryOwnedBy(ctx, user, entryID)
	if err != nil {
		return r.transport.SendText(ctx, user.Phone, "Esa tarea ya no existe.")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", entry.Priority.Glyph(), entry.Description)
	if entry.ScheduledAt != nil {
		fmt.Fprintf(&b, "🕐 %s\n", spanishDate(entry.ScheduledAt.In(r.loc))+
			entry.ScheduledAt.In(r.loc).Format(", 3:04 PM"))
	}
	if word := entry.Recurrence.Word(); word != "" {
		fmt.Fprintf(&b, "🔁 Se repite %s\n", word)
	}
	fmt.Fprintf(&b, "Estado: %s", string(entry.Status))
	return r.transport.SendText(ctx, user.Phone, b.String())
}

var spanishWeekdays = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}

var spanishMonths = [...]string{"", "enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"}

// spanishDate renders "jueves 5 de marzo".
func spanishDate(t time.Time) string {
	return fmt.Sprintf("%s %d de %s",
		spanishWeekdays[t.Weekday()], t.Day(), spanishMonths[t.Month()])
}
