package classifier

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		kind    DecisionKind
		variant Variant
		command string
		args    string
	}{
		{"greeting spanish", "hola", Handled, VariantGreeting, "", ""},
		{"greeting accented", "Qué tal", Handled, VariantGreeting, "", ""},
		{"greeting multiword", "buenos días", Handled, VariantGreeting, "", ""},
		{"greeting english short", "hi", Handled, VariantGreeting, "", ""},
		{"thanks", "Gracias", Handled, VariantThanks, "", ""},
		{"thanks multiword", "muchas gracias", Handled, VariantThanks, "", ""},
		{"emoji single", "👍", Handled, VariantEmoji, "", ""},
		{"emoji several", "🎉🎉 🙏", Handled, VariantEmoji, "", ""},
		{"emoji flag", "🇨🇷", Handled, VariantEmoji, "", ""},
		{"ambiguous ok", "ok", Handled, VariantClarify, "", ""},
		{"ambiguous si accented", "sí", Handled, VariantClarify, "", ""},
		{"ambiguous yes", "yes", Handled, VariantClarify, "", ""},
		{"too short", "a", Handled, VariantClarify, "", ""},
		{"prefixed command", "/completar doctor", Command, "", "complete", "doctor"},
		{"prefixed help", "/help", Command, "", "help", ""},
		{"bare today", "hoy", Command, "", "today", ""},
		{"bare tomorrow accented", "mañana", Command, "", "tomorrow", ""},
		{"bare agenda", "Agenda", Command, "", "agenda", ""},
		{"bare stats", "stats", Command, "", "stats", ""},
		{"extract task", "recuérdame llamar al doctor mañana a las 9", Extract, "", "", ""},
		{"extract expense", "gasté 5000 colones en el súper", Extract, "", "", ""},
		{"mixed emoji and text extracts", "comprar pan 🍞", Extract, "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Classify(tt.text)
			if d.Kind != tt.kind {
				t.Fatalf("Classify(%q).Kind = %v, want %v", tt.text, d.Kind, tt.kind)
			}
			if d.Variant != tt.variant {
				t.Errorf("Classify(%q).Variant = %q, want %q", tt.text, d.Variant, tt.variant)
			}
			if d.Name != tt.command {
				t.Errorf("Classify(%q).Name = %q, want %q", tt.text, d.Name, tt.command)
			}
			if d.Args != tt.args {
				t.Errorf("Classify(%q).Args = %q, want %q", tt.text, d.Args, tt.args)
			}
		})
	}
}

// Greeting words must win over the short-text rule; "hola" would otherwise
// never be reachable as a greeting if length ran first.
func TestGreetingBeatsAmbiguity(t *testing.T) {
	d := Classify("hi")
	if d.Kind != Handled || d.Variant != VariantGreeting {
		t.Fatalf("got %+v, want handled greeting", d)
	}
}

func TestHandledNeverExtracts(t *testing.T) {
	inputs := []string{"hola", "gracias", "👍", "ok", "no", "/help", "hoy"}
	for _, in := range inputs {
		if d := Classify(in); d.Kind == Extract {
			t.Errorf("Classify(%q) reached the extractor", in)
		}
	}
}

func TestFold(t *testing.T) {
	tests := map[string]string{
		"Mañana":        "manana",
		"  Qué   Tal  ": "que tal",
		"GRACIAS":       "gracias",
	}
	for in, want := range tests {
		if got := fold(in); got != want {
			t.Errorf("fold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReplyIsStable(t *testing.T) {
	a := Reply(VariantGreeting, "hola")
	b := Reply(VariantGreeting, "hola")
	if a != b {
		t.Errorf("Reply not deterministic: %q vs %q", a, b)
	}
	if a == "" {
		t.Error("Reply returned empty text")
	}
}
