package config

type Config struct {
	Server   ServerConfig   `json:"server"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	Inbound  InboundConfig  `json:"inbound,omitempty"`
	Notifier NotifierConfig `json:"notifier,omitempty"`
	Tray     TrayConfig     `json:"tray,omitempty"`

	// Telegram enables the optional mirror sink. Omit to disable.
	Telegram *TelegramConfig `json:"telegram,omitempty"`

	Maintenance MaintenanceConfig `json:"maintenance,omitempty"`
}

// ServerConfig controls the UI bridge HTTP listener.
//
// The bridge carries no auth of its own; keep it on loopback.
type ServerConfig struct {
	Address string `json:"address"`
	// ReadTimeout is a Go duration string (e.g. "15s").
	ReadTimeout string `json:"read_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./notibridge_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// InboundConfig controls webhook intake.
type InboundConfig struct {
	// RedeliveryWindow drops repeated deliveries of the same provider
	// message id within this window. Go duration string; "0s" disables.
	RedeliveryWindow string `json:"redelivery_window,omitempty"`
}

// NotifierConfig controls the async delivery pipeline.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type NotifierConfig struct {
	Workers       int    `json:"workers,omitempty"`
	QueueSize     int    `json:"queue_size,omitempty"`
	RatePerSec    int    `json:"rate_per_sec,omitempty"`
	RetryMax      int    `json:"retry_max,omitempty"`
	RetryBase     string `json:"retry_base,omitempty"`
	RetryMaxDelay string `json:"retry_max_delay,omitempty"`
	SendTimeout   string `json:"send_timeout,omitempty"`
}

// TrayConfig controls the desktop notification renderer.
type TrayConfig struct {
	AppName string `json:"app_name,omitempty"`
	Icon    string `json:"icon,omitempty"`
	// TimeoutMS is the popup duration hint; -1 lets the desktop decide.
	TimeoutMS int `json:"timeout_ms,omitempty"`
}

// TelegramConfig configures the optional mirror sink (do not log the token).
type TelegramConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`
}

// MaintenanceConfig controls the periodic housekeeping job
// (storage compaction + history stats). Tombstones are never pruned.
type MaintenanceConfig struct {
	Enabled bool `json:"enabled"`
	// Schedule is a cron spec (e.g. "0 */6 * * *"). Empty means hourly.
	Schedule string `json:"schedule,omitempty"`
}
