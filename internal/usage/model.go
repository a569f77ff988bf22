package usage

import "time"

// Usage represents a user's AI consumption in the current period.
type Usage struct {
	Plan        string    `json:"plan"`
	Limit       int       `json:"limit"`
	Used        int       `json:"used"`
	PeriodStart time.Time `json:"periodStart"`
	ResetsAt    time.Time `json:"resetsAt"`
}

// Remaining is the number of units left in the period.
func (u Usage) Remaining() int {
	if u.Used >= u.Limit {
		return 0
	}
	return u.Limit - u.Used
}

// Quota is the limit and period length that apply to a user.
type Quota struct {
	Plan   string
	Limit  int
	Period time.Duration
}

// DefaultQuota applies when no quota source is configured.
var DefaultQuota = Quota{Plan: "starter", Limit: 10, Period: 7 * 24 * time.Hour}
