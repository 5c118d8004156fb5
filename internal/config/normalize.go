package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeWebhook()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeRender()
	c.normalizeLogging()
	return nil
}

// Event paths are deliberately left untouched.
func (c *Config) normalizeWebhook() {
	c.Webhook.URL = strings.TrimSpace(c.Webhook.URL)
	if c.Webhook.URL == "" {
		if value, ok := os.LookupEnv(webhookURLEnv); ok {
			c.Webhook.URL = strings.TrimSpace(value)
		}
	}
	if c.Webhook.URL == "" {
		c.Webhook.URL = defaultWebhookURL
	}
	c.Webhook.UserAgent = strings.TrimSpace(c.Webhook.UserAgent)
	if c.Webhook.UserAgent == "" {
		c.Webhook.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, defaultLogDirName)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeHistory() error {
	var err error
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = filepath.Join(c.Paths.StateDir, defaultHistoryFileName)
	}
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	if c.History.RetentionDays < 0 {
		c.History.RetentionDays = 0
	}
	return nil
}

func (c *Config) normalizeRender() {
	c.Render.Binary = strings.TrimSpace(c.Render.Binary)
	if c.Render.Binary == "" {
		c.Render.Binary = defaultRenderBinary
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
