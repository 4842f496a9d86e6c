package entity

// Operator is an authenticated dashboard API caller.
type Operator struct {
	Name  string `json:"name"`
	Token string `json:"-"`
}
