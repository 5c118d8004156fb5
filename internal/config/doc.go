// Package config loads, normalizes, and validates renderhook configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the RENDERHOOK_WEBHOOK_URL
// environment fallback. The Config type centralizes the webhook endpoint, the
// per-event paths, the optional delivery history, and the renderer settings
// used by `renderhook run`.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
