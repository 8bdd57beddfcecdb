package rank

import "time"

// DecayFunc maps a document's age to a score multiplier.
type DecayFunc func(age time.Duration) float64

// StepDecay is the default decay schedule. Fresh news gets a boost, the
// first week is roughly neutral, and anything older than a month is halved.
func StepDecay(age time.Duration) float64 {
	switch {
	case age < 12*time.Hour:
		return 1.5
	case age < 24*time.Hour:
		return 1.3
	case age < 3*24*time.Hour:
		return 1.1
	case age < 7*24*time.Hour:
		return 1.0
	case age < 30*24*time.Hour:
		return 0.8
	default:
		return 0.5
	}
}
