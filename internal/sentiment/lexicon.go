package sentiment

import "strings"

// lexicon implements the Tier-3 keyword classifier: an Italian trigger-word
// table per emotion, tallied and normalized into a deterministic scalar.
// Grounded on the teacher's trigger-table pattern in
// internal/services/triggers/service.go, generalized from numeric threshold
// triggers to emotion-label triggers.
var lexicon = map[string][]string{
	"joy":      {"felice", "contento", "ottimo", "fantastico", "grazie", "perfetto", "soddisfatto"},
	"anger":    {"arrabbiato", "inaccettabile", "vergogna", "furioso", "basta", "scandalo", "incompetenti"},
	"fear":     {"preoccupato", "rischio", "paura", "insicuro", "dubbio", "ansia"},
	"sadness":  {"deluso", "triste", "peccato", "male", "sfortuna", "rammarico"},
	"surprise": {"incredibile", "sorpreso", "inaspettato", "wow", "davvero"},
}

var legalThreatTokens = []string{"avvocato", "denuncia", "legale", "tribunale", "querela"}

var managerRequestPhrases = []string{
	"voglio parlare con il responsabile",
	"parlare con il manager",
	"voglio il tuo superiore",
	"passami il responsabile",
}

// keywordAnalyze tallies lexicon hits in transcript and returns normalized
// emotion intensities plus a deterministic sentiment scalar.
func keywordAnalyze(transcript string) (emotions map[string]float64, scalar float64) {
	lower := strings.ToLower(transcript)
	emotions = make(map[string]float64, len(lexicon))

	total := 0
	for emotion, words := range lexicon {
		count := 0
		for _, w := range words {
			count += strings.Count(lower, w)
		}
		emotions[emotion] = float64(count)
		total += count
	}

	if total == 0 {
		return emotions, 0
	}
	for emotion := range emotions {
		emotions[emotion] /= float64(total)
	}

	positive := emotions["joy"] + emotions["surprise"]
	negative := emotions["anger"] + emotions["fear"] + emotions["sadness"]
	scalar = clamp(positive-negative, -1, 1)
	return emotions, scalar
}

func containsLegalThreat(transcript string) bool {
	lower := strings.ToLower(transcript)
	for _, tok := range legalThreatTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

func containsManagerRequest(transcript string) bool {
	lower := strings.ToLower(transcript)
	for _, phrase := range managerRequestPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func dominantEmotion(emotions map[string]float64) string {
	best := ""
	bestVal := -1.0
	// Deterministic iteration over a fixed label order rather than Go's
	// randomized map order, so ties always resolve the same way.
	for _, label := range []string{"joy", "anger", "fear", "sadness", "surprise"} {
		v, ok := emotions[label]
		if ok && v > bestVal {
			bestVal = v
			best = label
		}
	}
	return best
}
