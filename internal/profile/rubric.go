// Package profile implements the ProfileStore (C4): a deterministic
// trigger-word rubric that assigns one of four psychological profile types
// per lead, plus cosine-similarity lookups over converted leads. Grounded on
// the teacher's trigger/threshold tables (internal/services/triggers), here
// scoring dimensions instead of firing alerts.
package profile

import (
	"strings"

	"github.com/nexfreight/broker/internal/domain"
)

// dimension trigger words. Counts accumulate per dimension; the dimension
// with the highest count selects the profile type, ties broken in the fixed
// order velocity > analyst > social > security.
var dimensionTriggers = map[domain.ProfileType][]string{
	domain.ProfileVelocity: {"subito", "veloce", "urgente", "adesso", "rapido", "oggi stesso"},
	domain.ProfileAnalyst:  {"dati", "report", "confronto", "analisi", "numeri", "percentuale", "dettagli"},
	domain.ProfileSocial:   {"recensioni", "altri clienti", "consigliato", "esperienza", "feedback"},
	domain.ProfileSecurity: {"garanzia", "sicuro", "rischio", "assicurazione", "affidabile", "certificato"},
}

// profileOrder is the fixed tie-break order.
var profileOrder = []domain.ProfileType{
	domain.ProfileVelocity,
	domain.ProfileAnalyst,
	domain.ProfileSocial,
	domain.ProfileSecurity,
}

// Signals are the raw inputs the rubric scores: transcript text gathered
// across a lead's interactions plus any explicit behavioral counters.
type Signals struct {
	Transcripts        []string
	ResponseLatencySec float64 // lower => higher decision_speed
	PriceMentions      int
}

// score tallies trigger-word hits per dimension across all transcripts.
func score(signals Signals) map[domain.ProfileType]int {
	counts := make(map[domain.ProfileType]int, len(dimensionTriggers))
	joined := strings.ToLower(strings.Join(signals.Transcripts, " \n "))
	for profileType, words := range dimensionTriggers {
		n := 0
		for _, w := range words {
			n += strings.Count(joined, w)
		}
		counts[profileType] = n
	}
	return counts
}

// classify picks the highest-scoring dimension, tie-broken by profileOrder.
func classify(counts map[domain.ProfileType]int) domain.ProfileType {
	best := profileOrder[0]
	bestScore := -1
	for _, pt := range profileOrder {
		if counts[pt] > bestScore {
			bestScore = counts[pt]
			best = pt
		}
	}
	return best
}

// dimensionScores derives the 1..10 integer scores stored on PsychProfile.
func dimensionScores(signals Signals, counts map[domain.ProfileType]int) (decisionSpeed, riskTolerance, priceSensitivity int) {
	decisionSpeed = scaleInverse(signals.ResponseLatencySec, 0, 120)
	riskTolerance = 10 - scaleLinear(counts[domain.ProfileSecurity], 0, 5)
	priceSensitivity = scaleLinear(signals.PriceMentions+counts[domain.ProfileAnalyst], 0, 8)
	return
}

// scaleLinear maps [lo,hi] -> [1,10], clamped.
func scaleLinear(v, lo, hi int) int {
	if hi <= lo {
		return 1
	}
	scaled := 1 + (v-lo)*9/(hi-lo)
	if scaled < 1 {
		return 1
	}
	if scaled > 10 {
		return 10
	}
	return scaled
}

// scaleInverse maps a latency in [lo,hi] seconds to a 1..10 "speed" score
// where lower latency yields a higher score.
func scaleInverse(v, lo, hi float64) int {
	if hi <= lo {
		return 5
	}
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	frac := (v - lo) / (hi - lo)
	scaled := 10 - int(frac*9)
	if scaled < 1 {
		scaled = 1
	}
	if scaled > 10 {
		scaled = 10
	}
	return scaled
}
