package config

const (
	defaultWebhookURL           = "https://server.local/webhook"
	defaultRenderStartPath      = "/render_start"
	defaultRenderProgressPath   = "/render_progress"
	defaultRenderCompletePath   = "/render_complete"
	defaultRenderCancelPath     = "/render_cancel"
	defaultRenderErrorPath      = "/render_error"
	defaultRequestTimeout       = 10
	defaultUserAgent            = "renderhook/0.1.0"
	defaultStateDir             = "~/.local/share/renderhook"
	defaultLogDirName           = "logs"
	defaultHistoryFileName      = "history.db"
	defaultHistoryRetentionDays = 30
	defaultRenderBinary         = "blender"
	defaultRenderFrameStart     = 1
	defaultRenderFrameEnd       = 250
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	webhookURLEnv               = "RENDERHOOK_WEBHOOK_URL"
	defaultConfigPathValue      = "~/.config/renderhook/config.toml"
	projectConfigFileName       = "renderhook.toml"
)

// Default returns a Config populated with repository defaults.
//
// Webhook.URL is left empty so Load can apply the environment fallback before
// the built-in default endpoint.
func Default() Config {
	return Config{
		Webhook: Webhook{
			RenderStartPath:    defaultRenderStartPath,
			RenderProgressPath: defaultRenderProgressPath,
			RenderCompletePath: defaultRenderCompletePath,
			RenderCancelPath:   defaultRenderCancelPath,
			RenderErrorPath:    defaultRenderErrorPath,
			RequestTimeout:     defaultRequestTimeout,
			UserAgent:          defaultUserAgent,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		History: History{
			RetentionDays: defaultHistoryRetentionDays,
		},
		Render: Render{
			Binary:     defaultRenderBinary,
			FrameStart: defaultRenderFrameStart,
			FrameEnd:   defaultRenderFrameEnd,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
