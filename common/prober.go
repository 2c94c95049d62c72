package common

// Prober issues exactly one probe against a concrete URL and classifies
// the result. Transport failures resolve to an outcome, never an error.
type Prober interface {
	Name() string
	Probe(url string) ProbeOutcome
}
