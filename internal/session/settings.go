package session

import (
	"fmt"
	"slices"
)

type Notifications struct {
	Emergency    bool `json:"emergency"`
	CaseUpdates  bool `json:"case_updates"`
	SystemAlerts bool `json:"system_alerts"`
	EmailDigest  bool `json:"email_digest"`
}

// Settings are the responder's display and notification preferences.
type Settings struct {
	Theme         string        `json:"theme"`
	Notifications Notifications `json:"notifications"`
	Language      string        `json:"language"`
	AutoSave      bool          `json:"auto_save"`
	OfflineMode   bool          `json:"offline_mode"`
}

var (
	Themes    = []string{"light", "dark", "system"}
	Languages = []string{"english", "spanish", "french", "german"}
)

func DefaultSettings() Settings {
	return Settings{
		Theme: "light",
		Notifications: Notifications{
			Emergency:    true,
			CaseUpdates:  true,
			SystemAlerts: false,
			EmailDigest:  true,
		},
		Language:    "english",
		AutoSave:    true,
		OfflineMode: true,
	}
}

// NotificationsPatch and SettingsPatch carry only the fields to change.
type NotificationsPatch struct {
	Emergency    *bool `json:"emergency,omitempty"`
	CaseUpdates  *bool `json:"case_updates,omitempty"`
	SystemAlerts *bool `json:"system_alerts,omitempty"`
	EmailDigest  *bool `json:"email_digest,omitempty"`
}

type SettingsPatch struct {
	Theme         *string             `json:"theme,omitempty"`
	Notifications *NotificationsPatch `json:"notifications,omitempty"`
	Language      *string             `json:"language,omitempty"`
	AutoSave      *bool               `json:"auto_save,omitempty"`
	OfflineMode   *bool               `json:"offline_mode,omitempty"`
}

func (p SettingsPatch) validate() error {
	if p.Theme != nil && !slices.Contains(Themes, *p.Theme) {
		return fmt.Errorf("unsupported theme %q", *p.Theme)
	}
	if p.Language != nil && !slices.Contains(Languages, *p.Language) {
		return fmt.Errorf("unsupported language %q", *p.Language)
	}
	return nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// apply returns s with p merged in. p must be valid.
func (p SettingsPatch) apply(s Settings) Settings {
	setIf(&s.Theme, p.Theme)
	setIf(&s.Language, p.Language)
	setIf(&s.AutoSave, p.AutoSave)
	setIf(&s.OfflineMode, p.OfflineMode)
	if n := p.Notifications; n != nil {
		setIf(&s.Notifications.Emergency, n.Emergency)
		setIf(&s.Notifications.CaseUpdates, n.CaseUpdates)
		setIf(&s.Notifications.SystemAlerts, n.SystemAlerts)
		setIf(&s.Notifications.EmailDigest, n.EmailDigest)
	}
	return s
}
