// Package classifier decides how an inbound text is handled before any
// expensive work happens. It is a pure rule pipeline: the first matching
// rule wins, and only the final fallthrough may reach the extractor or the
// store. Greetings, acknowledgements, bare emoji, and two-character noise
// never leave this package.
package classifier

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CommandPrefix marks an explicit command, e.g. "/completar doctor".
const CommandPrefix = "/"

// DecisionKind is the routing outcome for one inbound text.
type DecisionKind int

const (
	// Handled means the message is answered locally with a canned reply.
	Handled DecisionKind = iota

	// Command routes to the command router.
	Command

	// Extract forwards the text to the language-model extractor. This is
	// the only decision that may allocate external work.
	Extract
)

// Variant selects the canned reply family for Handled decisions.
type Variant string

const (
	VariantGreeting Variant = "greeting"
	VariantThanks   Variant = "thanks"
	VariantEmoji    Variant = "emoji"
	VariantClarify  Variant = "clarify"
)

// Decision is the classifier output.
type Decision struct {
	Kind    DecisionKind
	Variant Variant

	// Name and Args are set for Command decisions. Args is the remainder
	// of the text after the command token, trimmed.
	Name string
	Args string
}

// greetings are matched against the folded full text. Spanish forms first,
// then English; multi-word forms are included because users type them as
// complete messages.
var greetings = map[string]bool{
	"hola":          true,
	"holi":          true,
	"buenas":        true,
	"buen dia":      true,
	"buenos dias":   true,
	"buenas tardes": true,
	"buenas noches": true,
	"que tal":       true,
	"saludos":       true,
	"hello":         true,
	"hi":            true,
	"hey":           true,
	"good morning":  true,
}

// acknowledgements are pure thanks/closure tokens that need no action.
var acknowledgements = map[string]bool{
	"gracias":         true,
	"muchas gracias":  true,
	"mil gracias":     true,
	"gracias!":        true,
	"thanks":          true,
	"thank you":       true,
	"thx":             true,
	"listo":           true,
	"perfecto":        true,
	"genial":          true,
	"buenisimo":       true,
	"de acuerdo":      true,
	"entendido":       true,
}

// ambiguous are short answers that carry no extractable intent on their own.
var ambiguous = map[string]bool{
	"ok":   true,
	"okay": true,
	"si":   true,
	"yes":  true,
	"no":   true,
	"dale": true,
}

// bareCommands maps unprefixed command words to canonical command names.
var bareCommands = map[string]string{
	"help":         "help",
	"ayuda":        "help",
	"today":        "today",
	"hoy":          "today",
	"tomorrow":     "tomorrow",
	"manana":       "tomorrow",
	"agenda":       "agenda",
	"stats":        "stats",
	"estadisticas": "stats",
	"complete":     "complete",
	"completar":    "complete",
}

// Classify routes a raw inbound text. It is total: every input maps to a
// decision and nothing here can fail.
//
// Rule order is part of the contract. Greetings must be checked before the
// short-text ambiguity rule so that "hi" is a greeting, not noise, and the
// bare command words come after the cheap rejections so "ok" never reaches
// the router.
func Classify(text string) Decision {
	trimmed := strings.TrimSpace(text)

	// 1. Explicit command prefix.
	if strings.HasPrefix(trimmed, CommandPrefix) && len(trimmed) > len(CommandPrefix) {
		rest := strings.TrimPrefix(trimmed, CommandPrefix)
		name, args, _ := strings.Cut(rest, " ")
		canonical := fold(name)
		if mapped, ok := bareCommands[canonical]; ok {
			canonical = mapped
		}
		return Decision{Kind: Command, Name: canonical, Args: strings.TrimSpace(args)}
	}

	folded := fold(trimmed)

	// 2. Bare greetings.
	if greetings[folded] {
		return Decision{Kind: Handled, Variant: VariantGreeting}
	}

	// 3. Acknowledgements and thanks.
	if acknowledgements[folded] {
		return Decision{Kind: Handled, Variant: VariantThanks}
	}

	// 4. Emoji-only messages.
	if isEmojiOnly(trimmed) {
		return Decision{Kind: Handled, Variant: VariantEmoji}
	}

	// 5. Too short or enumerated ambiguity.
	if len([]rune(folded)) <= 2 || ambiguous[folded] {
		return Decision{Kind: Handled, Variant: VariantClarify}
	}

	// 6. Command words without the prefix.
	if name, ok := bareCommands[folded]; ok {
		return Decision{Kind: Command, Name: name}
	}

	// 7. Everything else is worth extracting.
	return Decision{Kind: Extract}
}

// foldTransform lowercases indirectly via strings.ToLower; the transform
// chain only strips diacritics so "mañana" and "manana" compare equal.
var foldTransform = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// fold normalizes text for set membership: lowercase, accents stripped,
// inner whitespace collapsed.
func fold(s string) string {
	out, _, err := transform.String(foldTransform, strings.ToLower(s))
	if err != nil {
		out = strings.ToLower(s)
	}
	return strings.Join(strings.Fields(out), " ")
}

// isEmojiOnly reports whether the text, ignoring whitespace, consists solely
// of emoji, symbol, and emoji-modifier codepoints. Empty input is not
// emoji-only.
func isEmojiOnly(s string) bool {
	seen := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		if !isEmojiRune(r) {
			return false
		}
		seen = true
	}
	return seen
}

func isEmojiRune(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF: // emoji blocks incl. supplemental
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r >= 0x1F1E6 && r <= 0x1F1FF: // regional indicators (flags)
		return true
	case r == 0x200D, r == 0xFE0E, r == 0xFE0F, r == 0x20E3: // ZWJ, variation selectors, keycap
		return true
	case unicode.In(r, unicode.So, unicode.Sk):
		return true
	}
	return false
}
