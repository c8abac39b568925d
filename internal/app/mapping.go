package app

import (
	"fmt"
	"strings"
	"time"

	telegram "noticebot/internal/adapters/telegram"
	"noticebot/internal/config"
	"noticebot/internal/monitor"
	"noticebot/internal/notify"
	"noticebot/internal/storage"
	logx "noticebot/pkg/logx"
)

func mapAdapterConfig(cfg *config.Config) (telegram.Config, error) {
	pollTimeout, err := config.ParseDurationField("transport.poll_timeout", cfg.Transport.PollTimeout, 10*time.Second)
	if err != nil {
		return telegram.Config{}, err
	}
	heartbeat, err := config.ParseDurationField("transport.heartbeat", cfg.Transport.Heartbeat, 20*time.Second)
	if err != nil {
		return telegram.Config{}, err
	}
	return telegram.Config{
		Token:       cfg.Transport.Token,
		PollTimeout: pollTimeout,
		Heartbeat:   heartbeat,
	}, nil
}

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Group: logx.GroupConfig{
			Enabled:    cfg.Logging.Group.Enabled,
			MinLevel:   cfg.Logging.Group.MinLevel,
			RatePerSec: cfg.Logging.Group.RatePerSec,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	path := cfg.Storage.Path
	if strings.TrimSpace(path) == "" {
		path = "./data"
	}
	return storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        path,
		BusyTimeout: busy,
	}, nil
}

func mapNotifyConfig(cfg *config.Config) (notify.Config, error) {
	out := notify.Config{}
	n := cfg.Notify
	if n == nil {
		return out, nil
	}
	retryBase, err := config.ParseDurationField("notify.retry_base", n.RetryBase, 0)
	if err != nil {
		return out, err
	}
	retryMaxDelay, err := config.ParseDurationField("notify.retry_max_delay", n.RetryMaxDelay, 0)
	if err != nil {
		return out, err
	}
	return notify.Config{
		Workers:       n.Workers,
		QueueSize:     n.QueueSize,
		RatePerSec:    n.RatePerSec,
		RetryMax:      n.RetryMax,
		RetryBase:     retryBase,
		RetryMaxDelay: retryMaxDelay,
	}, nil
}

func mapMonitorConfig(cfg *config.Config) monitor.Config {
	sources := make([]monitor.Source, 0, len(cfg.Monitor.Sources))
	for _, s := range cfg.Monitor.Sources {
		sources = append(sources, monitor.Source{
			Label:           s.Label,
			URL:             s.URL,
			BaseURL:         s.BaseURL,
			ItemSelector:    s.ItemSelector,
			TitleSelector:   s.TitleSelector,
			SummarySelector: s.SummarySelector,
		})
	}
	return monitor.Config{
		ToggleCommand: cfg.Monitor.ToggleCommand,
		EveryMinutes:  cfg.Monitor.EveryMinutes,
		Sources:       sources,
	}
}

// validateConfig rejects a config snapshot before it is committed, so a
// bad hot reload keeps the previous known-good config running.
func validateConfig(cfg *config.Config) error {
	if strings.TrimSpace(cfg.Transport.Token) == "" {
		return fmt.Errorf("transport.token must not be empty")
	}
	if cfg.Monitor.EveryMinutes < 0 {
		return fmt.Errorf("monitor.every_minutes must be >= 0")
	}
	if _, err := config.ParseDurationField("monitor.fetch_timeout", cfg.Monitor.FetchTimeout, 15*time.Second); err != nil {
		return err
	}
	if _, err := mapAdapterConfig(cfg); err != nil {
		return err
	}
	if _, err := mapNotifyConfig(cfg); err != nil {
		return err
	}
	if _, err := mapStorageConfig(cfg); err != nil {
		return err
	}
	if tz := strings.TrimSpace(cfg.Monitor.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("monitor.timezone: invalid %q: %w", tz, err)
		}
	}
	seen := map[string]bool{}
	for i, s := range cfg.Monitor.Sources {
		if strings.TrimSpace(s.Label) == "" {
			return fmt.Errorf("monitor.sources[%d].label must not be empty", i)
		}
		if seen[s.Label] {
			return fmt.Errorf("monitor.sources[%d].label %q duplicated", i, s.Label)
		}
		seen[s.Label] = true
		if strings.TrimSpace(s.URL) == "" {
			return fmt.Errorf("monitor.sources[%d].url must not be empty", i)
		}
	}
	return nil
}
