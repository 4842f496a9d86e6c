package entity

// Holiday is one normalized daily event from whichever source responded.
type Holiday struct {
	Name        string `json:"name"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"`
}
