package domain

// SettingSubmissionsOpen is the app_settings key gating new submissions
const SettingSubmissionsOpen = "submissions_open"

// AppSetting is one row of app_settings
type AppSetting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// BoolValue interprets the stored text; only "true" is true
func (s AppSetting) BoolValue() bool {
	return s.Value == "true"
}

// FormatBool renders a flag the way app_settings stores it
func FormatBool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// SettingsResponse is returned by GET /api/settings
type SettingsResponse struct {
	SubmissionsOpen bool `json:"submissions_open"`
}

// SubmissionsOpenRequest is the admin toggle body
type SubmissionsOpenRequest struct {
	Open *bool `json:"open"`
}
