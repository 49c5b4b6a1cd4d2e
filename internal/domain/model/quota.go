package model

// Quota describes the free-postcard allowance of an account as reported by
// the backend. When Available is false, Next holds the date the allowance
// resets (the backend omits it otherwise).
type Quota struct {
	Quota         int    `json:"quota"`
	End           string `json:"end"`
	RetentionDays int    `json:"retentionDays"`
	Available     bool   `json:"available"`
	Next          string `json:"next,omitempty"`
}
