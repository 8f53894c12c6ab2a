package config

import (
	"reflect"
	"strings"

	logx "notibridge/pkg/logx"
)

// SummarizeChange returns a compact list of changed sections plus safe
// structured attrs for logging (never includes secrets like tokens).
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 12)

	if oldCfg.Server != newCfg.Server {
		changed = append(changed, "server")
		attrs = append(attrs, logx.String("server.address", newCfg.Server.Address))
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		attrs = append(attrs, logx.String("storage.driver", newCfg.Storage.Driver))
	}

	if oldCfg.Inbound != newCfg.Inbound {
		changed = append(changed, "inbound")
	}

	if oldCfg.Notifier != newCfg.Notifier {
		changed = append(changed, "notifier")
		attrs = append(attrs,
			logx.Int("notifier.workers", newCfg.Notifier.Workers),
			logx.Int("notifier.rate_per_sec", newCfg.Notifier.RatePerSec),
		)
	}

	if oldCfg.Tray != newCfg.Tray {
		changed = append(changed, "tray")
	}

	// Telegram (never log token)
	oldTg, newTg := oldCfg.Telegram, newCfg.Telegram
	if !reflect.DeepEqual(oldTg, newTg) {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.enabled", newTg != nil && strings.TrimSpace(newTg.Token) != ""),
		)
	}

	if oldCfg.Maintenance != newCfg.Maintenance {
		changed = append(changed, "maintenance")
		attrs = append(attrs,
			logx.Bool("maintenance.enabled", newCfg.Maintenance.Enabled),
			logx.String("maintenance.schedule", newCfg.Maintenance.Schedule),
		)
	}

	return changed, attrs
}
