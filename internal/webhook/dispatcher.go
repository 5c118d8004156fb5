package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"renderhook/internal/config"
	"renderhook/internal/events"
	"renderhook/internal/logging"
	"renderhook/internal/render"
	"renderhook/internal/runctx"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "renderhook/0.1.0"
	maxResponseBody  = 2048

	// HeaderEvent carries the event wire name on every request.
	HeaderEvent = "X-Renderhook-Event"
	// HeaderDelivery carries the delivery id on every request.
	HeaderDelivery = "X-Renderhook-Delivery"
)

// Recorder journals delivery attempts.
type Recorder interface {
	Record(ctx context.Context, delivery Delivery) error
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient replaces the HTTP client used for deliveries.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) {
		if client != nil {
			d.client = client
		}
	}
}

// WithTimeout bounds each delivery. Non-positive values keep the default.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logging.NewComponentLogger(logger, "webhook")
	}
}

// WithRecorder journals every attempt.
func WithRecorder(recorder Recorder) Option {
	return func(d *Dispatcher) {
		d.recorder = recorder
	}
}

// WithAsync sends requests from a background goroutine. The URL and payload
// are still resolved when Notify is called.
func WithAsync(async bool) Option {
	return func(d *Dispatcher) {
		d.async = async
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(d *Dispatcher) {
		if ua := strings.TrimSpace(userAgent); ua != "" {
			d.userAgent = ua
		}
	}
}

// Dispatcher turns render lifecycle events into webhook calls.
type Dispatcher struct {
	targets   Targets
	source    render.StateSource
	client    *http.Client
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
	recorder  Recorder
	async     bool
	newID     func() string
	inflight  sync.WaitGroup
}

var _ render.Notifier = (*Dispatcher)(nil)

// NewDispatcher builds a dispatcher that reads render state from source at
// every call.
func NewDispatcher(targets Targets, source render.StateSource, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		targets:   targets,
		source:    source,
		client:    &http.Client{},
		timeout:   defaultTimeout,
		userAgent: defaultUserAgent,
		logger:    logging.NewComponentLogger(nil, "webhook"),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewFromConfig builds a dispatcher from the [webhook] section. Explicit
// options are applied after the configured ones.
func NewFromConfig(cfg *config.Config, source render.StateSource, opts ...Option) (*Dispatcher, error) {
	targets, err := TargetsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	base := []Option{
		WithTimeout(time.Duration(cfg.Webhook.RequestTimeout) * time.Second),
		WithAsync(cfg.Webhook.Async),
		WithUserAgent(cfg.Webhook.UserAgent),
	}
	return NewDispatcher(targets, source, append(base, opts...)...), nil
}

// Targets returns the resolved target table.
func (d *Dispatcher) Targets() Targets {
	return d.targets
}

// Notify delivers one event. It never returns an error or panics: every
// failure is classified, logged and dropped. The caller's cancellation does
// not abort the request; only the delivery timeout does.
func (d *Dispatcher) Notify(ctx context.Context, kind events.Kind, extra map[string]any) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	id := d.newID()
	ctx = runctx.WithDeliveryID(context.WithoutCancel(ctx), id)
	logger := logging.WithContext(ctx, d.logger).With(logging.String(logging.FieldEvent, kind.String()))
	started := time.Now()

	msg, err := d.prepare(kind, extra)
	if err != nil {
		d.finish(ctx, logger, id, kind, msg.url, Outcome{Kind: OutcomeInternal, Err: err}, started)
		return
	}

	if !d.async {
		d.finish(ctx, logger, id, kind, msg.url, d.deliver(ctx, id, msg), started)
		return
	}
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		d.finish(ctx, logger, id, kind, msg.url, d.deliver(ctx, id, msg), started)
	}()
}

// Wait blocks until every asynchronous delivery has finished.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.inflight.Wait()
}

type message struct {
	kind events.Kind
	url  string
	body []byte
}

func (d *Dispatcher) prepare(kind events.Kind, extra map[string]any) (msg message, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("build notification: %v", r)
		}
	}()
	msg.kind = kind
	msg.url = d.targets.URL(kind)
	if d.source == nil {
		return msg, errors.New("render state source unavailable")
	}
	payload := BuildPayload(kind, render.Capture(d.source), extra)
	msg.body, err = json.Marshal(payload)
	if err != nil {
		return msg, fmt.Errorf("encode payload: %w", err)
	}
	return msg, nil
}

func (d *Dispatcher) deliver(ctx context.Context, id string, msg message) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Outcome{Kind: OutcomeInternal, Err: fmt.Errorf("send notification: %v", r)}
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, msg.url, bytes.NewReader(msg.body))
	if err != nil {
		return Outcome{Kind: OutcomeInternal, Err: fmt.Errorf("build webhook request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set(HeaderEvent, msg.kind.String())
	req.Header.Set(HeaderDelivery, id)

	resp, err := d.client.Do(req)
	if err != nil {
		return Outcome{Kind: OutcomeTransport, Err: fmt.Errorf("send webhook: %w", err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return Outcome{Kind: OutcomeStatus, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return Outcome{Kind: OutcomeSuccess, StatusCode: resp.StatusCode}
}

func (d *Dispatcher) finish(ctx context.Context, logger *slog.Logger, id string, kind events.Kind, url string, outcome Outcome, started time.Time) {
	elapsed := time.Since(started)
	attrs := []logging.Attr{
		logging.String(logging.FieldOutcome, string(outcome.Kind)),
		logging.String("url", url),
		logging.Duration("duration", elapsed),
	}
	switch outcome.Kind {
	case OutcomeSuccess:
		logger.Info("notification delivered", logging.Args(append(attrs, logging.Int(logging.FieldStatusCode, outcome.StatusCode))...)...)
	case OutcomeStatus:
		logging.WarnWithContext(logger, "webhook rejected notification", "webhook_status",
			append(attrs,
				logging.Int(logging.FieldStatusCode, outcome.StatusCode),
				logging.String("response_body", outcome.Body),
				logging.String(logging.FieldErrorHint, "check the webhook endpoint accepts PUT with a JSON body"),
			)...,
		)
	case OutcomeTransport:
		logging.WarnWithContext(logger, "webhook request failed", "webhook_transport",
			append(attrs,
				logging.Error(outcome.Err),
				logging.String(logging.FieldErrorHint, "check webhook.url and that the endpoint is reachable"),
			)...,
		)
	default:
		logging.ErrorWithContext(logger, "notification could not be built", "webhook_internal",
			append(attrs, logging.Error(outcome.Err))...,
		)
	}

	if d.recorder == nil {
		return
	}
	delivery := Delivery{
		ID:        id,
		Event:     kind,
		URL:       url,
		Outcome:   outcome,
		StartedAt: started,
		Duration:  elapsed,
	}
	if err := d.recorder.Record(ctx, delivery); err != nil {
		logging.WarnWithContext(logger, "failed to journal delivery", "history_record",
			logging.Error(err),
			logging.String(logging.FieldImpact, "delivery history is incomplete"),
		)
	}
}
