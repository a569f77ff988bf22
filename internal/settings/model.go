package settings

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("settings not found")
	ErrInvalidInput = errors.New("invalid settings")
)

// Visibility controls who can open a shared résumé link.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityLink    Visibility = "link"
)

// Settings are a user's preferences and privacy choices.
type Settings struct {
	UserID             string     `json:"-"`
	Locale             string     `json:"locale"`
	DefaultTemplateID  string     `json:"defaultTemplateId"`
	EmailNotifications bool       `json:"emailNotifications"`
	MarketingEmails    bool       `json:"marketingEmails"`
	AnalyticsOptIn     bool       `json:"analyticsOptIn"`
	ProfileVisibility  Visibility `json:"profileVisibility"`
	DataRetentionDays  int        `json:"dataRetentionDays"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// Defaults returns the settings a user has before saving any.
func Defaults(userID string) Settings {
	return Settings{
		UserID:             userID,
		Locale:             "en",
		EmailNotifications: true,
		ProfileVisibility:  VisibilityPrivate,
	}
}

// retentionChoices are the allowed DataRetentionDays values. Zero keeps data
// until the account is deleted.
var retentionChoices = map[int]bool{0: true, 30: true, 90: true, 365: true}
