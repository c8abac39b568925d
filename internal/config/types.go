package config

type Config struct {
	Transport TransportConfig `json:"transport"`
	Logging   LoggingConfig   `json:"logging"`
	Monitor   MonitorConfig   `json:"monitor"`
	Notify    *NotifyConfig   `json:"notify,omitempty"`
	Storage   StorageConfig   `json:"storage"`
}

type TransportConfig struct {
	Token        string  `json:"token"`
	OwnerUserIDs []int64 `json:"owner_user_ids"`
	// GroupLog is the chat group that receives forwarded log lines (empty
	// disables forwarding).
	GroupLog string `json:"group_log,omitempty"`
	// PollTimeout / Heartbeat are Go duration strings (e.g. "10s", "30s").
	PollTimeout string `json:"poll_timeout,omitempty"`
	Heartbeat   string `json:"heartbeat,omitempty"`
}

type LoggingConfig struct {
	Level   string       `json:"level"`
	Console bool         `json:"console"`
	File    LoggingFile  `json:"file"`
	Group   LoggingGroup `json:"group"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingGroup struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// MonitorConfig controls the notice monitor.
//
// Enabled is the master feature switch: when false no group receives
// notifications regardless of its local opt-in flag.
type MonitorConfig struct {
	Enabled bool `json:"enabled"`

	// ToggleCommand is the literal group message text that flips a group's
	// opt-in flag. Default "/notices".
	ToggleCommand string `json:"toggle_command,omitempty"`

	// EveryMinutes gates poll cycles to minutes that are an exact multiple
	// of this value. Default 5.
	EveryMinutes int `json:"every_minutes,omitempty"`

	// FetchTimeout is a Go duration string. Default "15s".
	FetchTimeout string `json:"fetch_timeout,omitempty"`

	// Schedule is an optional cron spec (e.g. "*/5 * * * *") used to
	// self-trigger polls when the host transport emits no meta ticks.
	Schedule string `json:"schedule,omitempty"`
	Timezone string `json:"timezone,omitempty"`

	Sources []SourceConfig `json:"sources"`
}

// SourceConfig describes one monitored listing page. Selector fields
// default to the common notice-board layout when empty.
type SourceConfig struct {
	Label   string `json:"label"`
	URL     string `json:"url"`
	BaseURL string `json:"base_url"`

	ItemSelector    string `json:"item_selector,omitempty"`
	TitleSelector   string `json:"title_selector,omitempty"`
	SummarySelector string `json:"summary_selector,omitempty"`
}

// NotifyConfig tunes the outbound fan-out pipeline. All durations are Go
// duration strings. Omitting the section keeps the defaults.
type NotifyConfig struct {
	Workers       int    `json:"workers,omitempty"`
	QueueSize     int    `json:"queue_size,omitempty"`
	RatePerSec    int    `json:"rate_per_sec,omitempty"`
	RetryMax      int    `json:"retry_max,omitempty"`
	RetryBase     string `json:"retry_base,omitempty"`
	RetryMaxDelay string `json:"retry_max_delay,omitempty"`
}

// StorageConfig selects the persistence driver for monitor state.
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}
