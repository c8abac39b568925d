package app

import (
	"testing"

	"noticebot/internal/config"
)

func validBase() *config.Config {
	return &config.Config{
		Transport: config.TransportConfig{Token: "t"},
		Monitor: config.MonitorConfig{
			Enabled: true,
			Sources: []config.SourceConfig{
				{Label: "notice", URL: "https://example.edu/tz.htm", BaseURL: "https://example.edu/"},
			},
		},
		Storage: config.StorageConfig{Driver: "file", Path: "./data"},
	}
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	if err := validateConfig(validBase()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty token", func(c *config.Config) { c.Transport.Token = " " }},
		{"negative interval", func(c *config.Config) { c.Monitor.EveryMinutes = -1 }},
		{"bad fetch timeout", func(c *config.Config) { c.Monitor.FetchTimeout = "soon" }},
		{"bad timezone", func(c *config.Config) { c.Monitor.Timezone = "Mars/Olympus" }},
		{"source without label", func(c *config.Config) { c.Monitor.Sources[0].Label = "" }},
		{"source without url", func(c *config.Config) { c.Monitor.Sources[0].URL = "" }},
		{"duplicate labels", func(c *config.Config) {
			c.Monitor.Sources = append(c.Monitor.Sources, c.Monitor.Sources[0])
		}},
		{"bad notify retry base", func(c *config.Config) {
			c.Notify = &config.NotifyConfig{RetryBase: "often"}
		}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validBase()
			tc.mutate(cfg)
			if err := validateConfig(cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestMapMonitorConfigCarriesSelectors(t *testing.T) {
	t.Parallel()

	cfg := validBase()
	cfg.Monitor.Sources[0].ItemSelector = "ul.other li"
	mc := mapMonitorConfig(cfg)
	if len(mc.Sources) != 1 || mc.Sources[0].ItemSelector != "ul.other li" {
		t.Fatalf("selector lost in mapping: %+v", mc.Sources)
	}
	if mc.ToggleCommand != "" {
		t.Fatalf("unset toggle command should map through empty, got %q", mc.ToggleCommand)
	}
}
