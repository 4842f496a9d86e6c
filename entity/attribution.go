package entity

// Attribution is the outcome of matching a new member against the snapshot
// diff. The zero value means the inviter is unknown.
type Attribution struct {
	Code        string `json:"code,omitempty"`
	InviterID   string `json:"inviter_id,omitempty"`
	InviterName string `json:"inviter_name,omitempty"`
	Uses        int    `json:"uses,omitempty"`
	Delta       int    `json:"delta,omitempty"`
}

func (a Attribution) Attributed() bool {
	return a.Code != ""
}

// Anonymous reports an attributed join whose invite carries no inviter
// identity; the platform omits it for widget invites. Distinct from an
// unattributed join.
func (a Attribution) Anonymous() bool {
	return a.Code != "" && a.InviterID == ""
}
