package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"renderhook/internal/config"
	"renderhook/internal/history"
	"renderhook/internal/logging"
	"renderhook/internal/render"
	"renderhook/internal/webhook"
)

type commandContext struct {
	configFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// openDispatcher builds a dispatcher reading state from source. The journal
// is attached when enabled; a journal that cannot be opened is logged and
// skipped. The returned cleanup waits for async deliveries and closes the
// journal.
func (c *commandContext) openDispatcher(ctx context.Context, source render.StateSource, recorder *lastDeliveryRecorder) (*webhook.Dispatcher, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg)
		if err != nil {
			logging.WarnWithContext(logger, "delivery journal unavailable", "history_open",
				logging.Error(err),
				logging.String("path", cfg.History.Path),
				logging.String(logging.FieldImpact, "deliveries are not journaled"),
			)
		} else if removed, err := store.PruneRetention(ctx, cfg.History.RetentionDays, time.Now()); err != nil {
			logger.Warn("history retention failed", logging.Error(err))
		} else if removed > 0 {
			logger.Debug("history pruned", logging.Int("removed", int(removed)))
		}
	}

	if recorder == nil {
		recorder = &lastDeliveryRecorder{}
	}
	if store != nil {
		recorder.next = store
	}

	dispatcher, err := webhook.NewFromConfig(cfg, source,
		webhook.WithLogger(logger),
		webhook.WithRecorder(recorder),
	)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, nil, err
	}

	cleanup := func() {
		dispatcher.Wait()
		if store != nil {
			if err := store.Close(); err != nil {
				logger.Warn("close history journal", logging.Error(err))
			}
		}
	}
	return dispatcher, cleanup, nil
}

// lastDeliveryRecorder remembers the most recent attempt for CLI output and
// forwards every attempt to the journal when one is attached.
type lastDeliveryRecorder struct {
	mu    sync.Mutex
	last  webhook.Delivery
	count int
	next  webhook.Recorder
}

func (r *lastDeliveryRecorder) Record(ctx context.Context, delivery webhook.Delivery) error {
	r.mu.Lock()
	r.last = delivery
	r.count++
	r.mu.Unlock()
	if r.next == nil {
		return nil
	}
	return r.next.Record(ctx, delivery)
}

func (r *lastDeliveryRecorder) snapshot() (webhook.Delivery, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.count
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
