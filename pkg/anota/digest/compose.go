package digest

import (
	"fmt"
	"strings"
	"time"

	"github.com/dcastillocr/anota/pkg/anota/domain"
)

// maxRepresentatives is how many entries a bucket shows before folding the
// rest into an "y N más" line.
const maxRepresentatives = 3

// bucketOrder fixes the digest layout: events first, then tasks, then
// reminders. Expenses and notes never appear in a day view.
var bucketOrder = []domain.Kind{domain.KindEvent, domain.KindTask, domain.KindReminder}

var bucketHeaders = map[domain.Kind]string{
	domain.KindEvent:    "📅 %d evento(s)",
	domain.KindTask:     "✅ %d tarea(s)",
	domain.KindReminder: "⏰ %d recordatorio(s)",
}

// ComposeMorning builds the morning digest: a personalized greeting followed
// by the day view of the given entries.
func ComposeMorning(user *domain.User, entries []*domain.Entry, loc *time.Location) string {
	var b strings.Builder
	name := user.Name
	if name == "" {
		name = "por aquí"
	}
	fmt.Fprintf(&b, "☀️ ¡Buenos días, %s!\n\n", name)
	b.WriteString(ComposeDay(entries, loc))
	return b.String()
}

// ComposeDay renders one calendar day of pending entries, partitioned into
// event/task/reminder buckets. An empty day gets the free-day variant.
func ComposeDay(entries []*domain.Entry, loc *time.Location) string {
	buckets := make(map[domain.Kind][]*domain.Entry)
	for _, e := range entries {
		switch e.Kind {
		case domain.KindEvent, domain.KindTask, domain.KindReminder:
			buckets[e.Kind] = append(buckets[e.Kind], e)
		}
	}

	empty := true
	for _, kind := range bucketOrder {
		if len(buckets[kind]) > 0 {
			empty = false
		}
	}
	if empty {
		return "Hoy tenés el día libre. 🎉"
	}

	var b strings.Builder
	first := true
	for _, kind := range bucketOrder {
		group := buckets[kind]
		if len(group) == 0 {
			continue
		}
		if !first {
			b.WriteString("\n")
		}
		first = false

		fmt.Fprintf(&b, bucketHeaders[kind], len(group))
		b.WriteString("\n")
		for i, e := range group {
			if i == maxRepresentatives {
				fmt.Fprintf(&b, "… y %d más\n", len(group)-maxRepresentatives)
				break
			}
			b.WriteString(representative(e, kind, loc))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// representative renders one entry line: events carry their time of day,
// tasks their priority glyph.
func representative(e *domain.Entry, kind domain.Kind, loc *time.Location) string {
	switch kind {
	case domain.KindEvent:
		when := ""
		if e.ScheduledAt != nil {
			when = e.ScheduledAt.In(loc).Format("3:04 PM") + " – "
		}
		return "  • " + when + e.Description
	case domain.KindTask:
		return "  • " + e.Priority.Glyph() + " " + e.Description
	default:
		return "  • " + e.Description
	}
}
