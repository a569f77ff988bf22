package subscriptions

import (
	"math"
	"time"
)

// Plan is the billing plan of a subscription.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// Status is the lifecycle state of a subscription.
type Status string

const (
	StatusTrial   Status = "trial"
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
)

// Feature names a gated capability.
type Feature string

const (
	FeatureAI               Feature = "ai"
	FeatureAnalyses         Feature = "analyses"
	FeaturePremiumTemplates Feature = "premium_templates"
	FeatureExport           Feature = "export"
)

// Subscription is a user's trial or paid subscription.
type Subscription struct {
	UserID            string
	Plan              Plan
	Status            Status
	TrialEndsAt       *time.Time
	CurrentPeriodEnd  *time.Time
	CancelAtPeriodEnd bool
	ExternalID        string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Effective returns the status as of now. A trial or paid period that has
// run out is expired even if the stored row still says otherwise.
func (s Subscription) Effective(now time.Time) Status {
	switch s.Status {
	case StatusTrial:
		if s.TrialEndsAt == nil || !now.Before(*s.TrialEndsAt) {
			return StatusExpired
		}
	case StatusActive:
		if s.CurrentPeriodEnd == nil || !now.Before(*s.CurrentPeriodEnd) {
			return StatusExpired
		}
	}
	return s.Status
}

// EndsAt is the end of the current trial or paid period, if any.
func (s Subscription) EndsAt() *time.Time {
	switch s.Status {
	case StatusTrial:
		return s.TrialEndsAt
	case StatusActive:
		return s.CurrentPeriodEnd
	}
	return nil
}

// DaysLeft rounds the remaining time of the current period up to whole days.
func (s Subscription) DaysLeft(now time.Time) int {
	end := s.EndsAt()
	if end == nil || s.Effective(now) == StatusExpired {
		return 0
	}
	return int(math.Ceil(end.Sub(now).Hours() / 24))
}

// Entitlements lists what a subscription status unlocks.
type Entitlements struct {
	AI               bool          `json:"ai"`
	Analyses         bool          `json:"analyses"`
	PremiumTemplates bool          `json:"premiumTemplates"`
	Exports          []string      `json:"exports"`
	AIQuota          int           `json:"aiQuota"`
	QuotaPeriod      time.Duration `json:"-"`
	QuotaPeriodDays  int           `json:"quotaPeriodDays"`
}

const (
	trialQuota  = 10
	activeQuota = 200
	week        = 7 * 24 * time.Hour
	month       = 30 * 24 * time.Hour
)

// EntitlementsFor returns the entitlements of a subscription status.
func EntitlementsFor(status Status) Entitlements {
	switch status {
	case StatusTrial:
		return Entitlements{
			AI: true, Analyses: true, PremiumTemplates: true,
			Exports:     []string{"html", "md", "txt"},
			AIQuota:     trialQuota,
			QuotaPeriod: week, QuotaPeriodDays: 7,
		}
	case StatusActive:
		return Entitlements{
			AI: true, Analyses: true, PremiumTemplates: true,
			Exports:     []string{"html", "md", "txt"},
			AIQuota:     activeQuota,
			QuotaPeriod: month, QuotaPeriodDays: 30,
		}
	default:
		return Entitlements{Exports: []string{"html", "txt"}, QuotaPeriod: week, QuotaPeriodDays: 7}
	}
}

// Allows reports whether the entitlements include feature.
func (e Entitlements) Allows(f Feature) bool {
	switch f {
	case FeatureAI:
		return e.AI
	case FeatureAnalyses:
		return e.Analyses
	case FeaturePremiumTemplates:
		return e.PremiumTemplates
	case FeatureExport:
		return e.AllowsExport("md")
	}
	return false
}

// AllowsExport reports whether format may be exported.
func (e Entitlements) AllowsExport(format string) bool {
	for _, f := range e.Exports {
		if f == format {
			return true
		}
	}
	return false
}
