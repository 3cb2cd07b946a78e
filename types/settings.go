package types

// Documented defaults for persisted settings. Used whenever the settings
// file is absent or unreadable.
const (
	// DefaultSinkPort is the default ingestion sink port.
	DefaultSinkPort = 3333
	// DefaultSinkHost is the default ingestion sink host.
	DefaultSinkHost = "localhost"
)

// Settings is the persisted user configuration for the relay.
// The JSON field names are the on-disk format and must not change.
type Settings struct {
	// Port is the ingestion sink port.
	Port int `json:"port"`
	// Host is the ingestion sink host.
	Host string `json:"host"`
	// FilterInScope restricts resource capture to in-scope hosts.
	FilterInScope bool `json:"filterInScope"`
	// Enabled toggles capture entirely.
	Enabled bool `json:"enabled"`
}

// DefaultSettings returns the documented default settings.
func DefaultSettings() Settings {
	return Settings{
		Port:          DefaultSinkPort,
		Host:          DefaultSinkHost,
		FilterInScope: true,
		Enabled:       true,
	}
}
