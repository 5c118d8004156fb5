package webhook

import (
	"errors"
	"fmt"
	"strings"

	"renderhook/internal/config"
	"renderhook/internal/events"
)

// Targets maps every event kind to the URL it is delivered to. The base URL
// and the per-event path are concatenated verbatim.
type Targets struct {
	base  string
	paths map[events.Kind]string
}

// NewTargets builds an explicit kind->path table. Every event kind must have a
// non-empty path.
func NewTargets(base string, paths map[events.Kind]string) (Targets, error) {
	if strings.TrimSpace(base) == "" {
		return Targets{}, errors.New("webhook base url required")
	}
	table := make(map[events.Kind]string, len(paths))
	for _, kind := range events.All() {
		path, ok := paths[kind]
		if !ok || strings.TrimSpace(path) == "" {
			return Targets{}, fmt.Errorf("webhook path for %s event required", kind)
		}
		table[kind] = path
	}
	return Targets{base: base, paths: table}, nil
}

// TargetsFromConfig builds Targets from the [webhook] section.
func TargetsFromConfig(cfg *config.Config) (Targets, error) {
	if cfg == nil {
		return Targets{}, errors.New("config required")
	}
	return NewTargets(cfg.Webhook.URL, cfg.EventPaths())
}

// Base returns the configured base URL.
func (t Targets) Base() string {
	return t.base
}

// Resolve returns the base URL and path configured for kind. An unknown kind
// is a programming error and panics.
func (t Targets) Resolve(kind events.Kind) (string, string) {
	path, ok := t.paths[kind]
	if !ok {
		panic(fmt.Sprintf("webhook: no target for event %s", kind))
	}
	return t.base, path
}

// URL returns the full target URL for kind.
func (t Targets) URL(kind events.Kind) string {
	base, path := t.Resolve(kind)
	return base + path
}
