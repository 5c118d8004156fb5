package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"renderhook/internal/events"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWebhook(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWebhook() error {
	raw := strings.TrimSpace(c.Webhook.URL)
	if raw == "" {
		return fmt.Errorf("webhook.url is required. Set %s or edit the config file (create with 'renderhook config init')", webhookURLEnv)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("webhook.url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("webhook.url must use http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("webhook.url must include a host")
	}
	paths := c.EventPaths()
	for _, kind := range events.All() {
		if strings.TrimSpace(paths[kind]) == "" {
			return fmt.Errorf("webhook.render_%s_path must be set", kind)
		}
	}
	if c.Webhook.RequestTimeout <= 0 {
		return errors.New("webhook.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateRender() error {
	if strings.TrimSpace(c.Render.Binary) == "" {
		return errors.New("render.binary must be set")
	}
	if c.Render.FrameStart > c.Render.FrameEnd {
		return fmt.Errorf("render.frame_start (%d) must not exceed render.frame_end (%d)", c.Render.FrameStart, c.Render.FrameEnd)
	}
	if c.Render.Timeout < 0 {
		return errors.New("render.timeout must be >= 0")
	}
	return nil
}

func (c *Config) validateHistory() error {
	if c.History.Enabled && strings.TrimSpace(c.History.Path) == "" {
		return errors.New("history.path must be set when history.enabled is true")
	}
	if c.History.RetentionDays < 0 {
		return errors.New("history.retention_days must be >= 0")
	}
	return nil
}
