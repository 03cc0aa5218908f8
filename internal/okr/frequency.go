package okr

import "strings"

// Frequency is how often a key result is measured.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnually  Frequency = "annually"
	FrequencyOnce      Frequency = "once"
)

// Frequencies is the closed set of accepted values.
var Frequencies = []Frequency{
	FrequencyDaily,
	FrequencyWeekly,
	FrequencyMonthly,
	FrequencyQuarterly,
	FrequencyAnnually,
	FrequencyOnce,
}

// FrequencySynonyms maps oracle spellings onto the closed set.
// Review this table whenever the generation prompt's output contract changes.
var FrequencySynonyms = map[string]Frequency{
	"day":           FrequencyDaily,
	"every day":     FrequencyDaily,
	"per day":       FrequencyDaily,
	"everyday":      FrequencyDaily,
	"week":          FrequencyWeekly,
	"every week":    FrequencyWeekly,
	"per week":      FrequencyWeekly,
	"month":         FrequencyMonthly,
	"every month":   FrequencyMonthly,
	"per month":     FrequencyMonthly,
	"quarter":       FrequencyQuarterly,
	"every quarter": FrequencyQuarterly,
	"per quarter":   FrequencyQuarterly,
	"annual":        FrequencyAnnually,
	"yearly":        FrequencyAnnually,
	"year":          FrequencyAnnually,
	"every year":    FrequencyAnnually,
	"per year":      FrequencyAnnually,
	"one-time":      FrequencyOnce,
	"one time":      FrequencyOnce,
	"onetime":       FrequencyOnce,
	"single":        FrequencyOnce,
}

// Valid reports whether f is one of the canonical frequencies. Empty is valid.
func (f Frequency) Valid() bool {
	if f == "" {
		return true
	}
	for _, c := range Frequencies {
		if f == c {
			return true
		}
	}
	return false
}

// NormalizeFrequency maps raw onto the closed set. ok is false for unmapped values.
func NormalizeFrequency(raw string) (Frequency, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.Join(strings.Fields(strings.ReplaceAll(key, "_", " ")), " ")
	if key == "" {
		return "", true
	}
	if f := Frequency(key); f.Valid() {
		return f, true
	}
	if f, ok := FrequencySynonyms[key]; ok {
		return f, true
	}
	return Frequency(raw), false
}
