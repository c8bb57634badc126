package domain

// SettingsID is the fixed key for the singleton settings record.
const SettingsID = "app"

// Default polling knobs, overridable via settings.
const (
	DefaultPollingMs = 2500
	MaxPollingMs     = 30000
)

// Settings is the singleton user preferences record.
type Settings struct {
	ID           string
	Theme        string
	PollingMs    int
	AutoDownload bool
	ShowAdvanced bool
}

// DefaultSettings returns the record written on first boot.
func DefaultSettings() *Settings {
	return &Settings{
		ID:           SettingsID,
		Theme:        "dark",
		PollingMs:    DefaultPollingMs,
		AutoDownload: false,
		ShowAdvanced: false,
	}
}
