package valueobjects

import "time"

// ImpactSource describes the regulatory impact under analysis.
// There is at most one per graph instance; setting it again overwrites
// the previous value, no history is kept.
type ImpactSource struct {
	Description string    `json:"description"`
	Convention  string    `json:"convention,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewImpactSource creates an impact source stamped with the current time
func NewImpactSource(description, convention string) *ImpactSource {
	return &ImpactSource{
		Description: description,
		Convention:  convention,
		Timestamp:   time.Now(),
	}
}
