package classifier

import "hash/fnv"

// Canned reply variants per family. Several phrasings per family so the
// assistant does not sound like a parrot; the pick is deterministic per
// input so duplicate deliveries produce identical replies.
var replies = map[Variant][]string{
	VariantGreeting: {
		"¡Hola! ¿En qué te ayudo hoy?",
		"¡Hola! Contame, ¿qué necesitás apuntar?",
		"¡Buenas! Decime qué querés recordar y yo me encargo.",
	},
	VariantThanks: {
		"¡Con gusto! 😊",
		"¡Para eso estoy!",
		"De nada, aquí sigo si necesitás algo más.",
	},
	VariantEmoji: {
		"😊 Si querés apuntar algo, escribímelo con palabras.",
		"👍 Cuando quieras, contame qué anotar.",
	},
	VariantClarify: {
		"No logré entenderte. ¿Me lo contás con un poco más de detalle?",
		"¿Podés decirme un poco más? Por ejemplo: \"recuérdame llamar al doctor mañana a las 9\".",
	},
}

// Reply returns the canned answer for a Handled decision. The seed (usually
// the raw text) keeps the choice stable across retries.
func Reply(v Variant, seed string) string {
	options := replies[v]
	if len(options) == 0 {
		options = replies[VariantClarify]
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	return options[int(h.Sum32())%len(options)]
}
