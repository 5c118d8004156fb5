package webhook_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"renderhook/internal/events"
	"renderhook/internal/render"
	"renderhook/internal/webhook"
)

type capturedRequest struct {
	method      string
	path        string
	contentType string
	userAgent   string
	event       string
	delivery    string
	body        map[string]any
}

type captureServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []capturedRequest
}

func newCaptureServer(t *testing.T, status int, responseBody string) *captureServer {
	t.Helper()
	cs := &captureServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		var body map[string]any
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Errorf("decode body %q: %v", raw, err)
		}
		cs.mu.Lock()
		cs.requests = append(cs.requests, capturedRequest{
			method:      r.Method,
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			userAgent:   r.Header.Get("User-Agent"),
			event:       r.Header.Get(webhook.HeaderEvent),
			delivery:    r.Header.Get(webhook.HeaderDelivery),
			body:        body,
		})
		cs.mu.Unlock()
		w.WriteHeader(status)
		_, _ = io.WriteString(w, responseBody)
	}))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *captureServer) only(t *testing.T) capturedRequest {
	t.Helper()
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if len(cs.requests) != 1 {
		t.Fatalf("expected exactly one request, got %d", len(cs.requests))
	}
	return cs.requests[0]
}

type memoryRecorder struct {
	mu         sync.Mutex
	deliveries []webhook.Delivery
}

func (m *memoryRecorder) Record(_ context.Context, d webhook.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = append(m.deliveries, d)
	return nil
}

func (m *memoryRecorder) last(t *testing.T) webhook.Delivery {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.deliveries) == 0 {
		t.Fatal("no delivery recorded")
	}
	return m.deliveries[len(m.deliveries)-1]
}

func defaultPaths() map[events.Kind]string {
	return map[events.Kind]string{
		events.Start:    "/render_start",
		events.Progress: "/render_progress",
		events.Complete: "/render_complete",
		events.Cancel:   "/render_cancel",
		events.Error:    "/render_error",
	}
}

func newDispatcher(t *testing.T, base string, source render.StateSource, opts ...webhook.Option) *webhook.Dispatcher {
	t.Helper()
	targets, err := webhook.NewTargets(base, defaultPaths())
	if err != nil {
		t.Fatalf("NewTargets: %v", err)
	}
	return webhook.NewDispatcher(targets, source, opts...)
}

func TestNotifySingleFrameStart(t *testing.T) {
	server := newCaptureServer(t, http.StatusOK, "")
	source := render.Static{Project: "/projects/shots/intro.blend", First: 1, Current: 1, Last: 1}
	d := newDispatcher(t, server.URL+"/webhook", source)

	d.Notify(context.Background(), events.Start, nil)

	req := server.only(t)
	if req.method != http.MethodPut {
		t.Fatalf("expected PUT, got %s", req.method)
	}
	if req.path != "/webhook/render_start" {
		t.Fatalf("unexpected path %q", req.path)
	}
	if req.contentType != "application/json" {
		t.Fatalf("unexpected content type %q", req.contentType)
	}
	if len(req.body) != 2 || req.body["project_name"] != "intro.blend" || req.body["frame_count"] != float64(1) {
		t.Fatalf("unexpected payload %v", req.body)
	}
}

func TestNotifyProgressIncludesPercentAndFrames(t *testing.T) {
	server := newCaptureServer(t, http.StatusOK, "")
	source := render.Static{Project: "intro.blend", First: 1, Current: 50, Last: 100}
	d := newDispatcher(t, server.URL, source)

	d.Notify(context.Background(), events.Progress, nil)

	req := server.only(t)
	if req.path != "/render_progress" {
		t.Fatalf("unexpected path %q", req.path)
	}
	if req.body["frame_count"] != float64(100) {
		t.Fatalf("unexpected frame_count %v", req.body["frame_count"])
	}
	progress, ok := req.body["progress"].(map[string]any)
	if !ok {
		t.Fatalf("missing progress block: %v", req.body)
	}
	if progress["percent"] != float64(49) {
		t.Fatalf("expected percent 49, got %v", progress["percent"])
	}
	frames, ok := progress["frames"].(map[string]any)
	if !ok {
		t.Fatalf("missing frames block: %v", progress)
	}
	want := map[string]float64{"index_first": 1, "index_last": 100, "index_current": 50}
	for key, value := range want {
		if frames[key] != value {
			t.Fatalf("frames[%s] = %v, want %v", key, frames[key], value)
		}
	}
}

func TestNotifySingleFrameProgressReportsComplete(t *testing.T) {
	server := newCaptureServer(t, http.StatusOK, "")
	d := newDispatcher(t, server.URL, render.Static{Project: "still.blend", First: 7, Current: 7, Last: 7})

	d.Notify(context.Background(), events.Progress, nil)

	progress := server.only(t).body["progress"].(map[string]any)
	if progress["percent"] != float64(100) {
		t.Fatalf("expected percent 100, got %v", progress["percent"])
	}
}

func TestNotifyNonProgressEventsOmitProgress(t *testing.T) {
	for _, kind := range []events.Kind{events.Start, events.Complete, events.Cancel, events.Error} {
		t.Run(kind.String(), func(t *testing.T) {
			server := newCaptureServer(t, http.StatusOK, "")
			d := newDispatcher(t, server.URL, render.Static{Project: "a.blend", First: 1, Current: 20, Last: 40})

			d.Notify(context.Background(), kind, map[string]any{"note": "x"})

			req := server.only(t)
			if _, ok := req.body["progress"]; ok {
				t.Fatalf("unexpected progress block for %s: %v", kind, req.body)
			}
			if len(req.body) != 3 {
				t.Fatalf("unexpected payload keys: %v", req.body)
			}
			if req.path != "/render_"+kind.String() {
				t.Fatalf("unexpected path %q", req.path)
			}
			if req.event != kind.String() {
				t.Fatalf("unexpected event header %q", req.event)
			}
		})
	}
}

func TestNotifyExtraOverridesComputedFields(t *testing.T) {
	server := newCaptureServer(t, http.StatusOK, "")
	d := newDispatcher(t, server.URL, render.Static{Project: "a.blend", First: 1, Current: 2, Last: 3})

	d.Notify(context.Background(), events.Progress, map[string]any{
		"project_name": "override",
		"progress":     "replaced",
	})

	req := server.only(t)
	if req.body["project_name"] != "override" {
		t.Fatalf("expected extra project_name to win, got %v", req.body["project_name"])
	}
	if req.body["progress"] != "replaced" {
		t.Fatalf("expected extra progress to win, got %v", req.body["progress"])
	}
}

func TestCancelWithMessageIsDeliveredAsError(t *testing.T) {
	server := newCaptureServer(t, http.StatusOK, "")
	d := newDispatcher(t, server.URL, render.Static{Project: "a.blend", First: 1, Current: 5, Last: 10})
	hooks := render.NewHooks(d)

	hooks.OnRenderCancelOrError(context.Background(), "Out of memory")

	req := server.only(t)
	if req.path != "/render_error" {
		t.Fatalf("expected error target, got %q", req.path)
	}
	if req.body["error_message"] != "Out of memory" {
		t.Fatalf("unexpected payload %v", req.body)
	}
}

func TestNotifyNonSuccessStatusIsLoggedNotRetried(t *testing.T) {
	server := newCaptureServer(t, http.StatusServiceUnavailable, "maintenance window")
	var logs bytes.Buffer
	recorder := &memoryRecorder{}
	d := newDispatcher(t, server.URL, render.Static{Project: "a.blend", First: 1, Current: 1, Last: 2},
		webhook.WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))),
		webhook.WithRecorder(recorder),
	)

	d.Notify(context.Background(), events.Complete, nil)

	server.only(t)
	delivery := recorder.last(t)
	if delivery.Outcome.Kind != webhook.OutcomeStatus || delivery.Outcome.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("unexpected outcome %+v", delivery.Outcome)
	}
	if delivery.Outcome.Body != "maintenance window" {
		t.Fatalf("unexpected response body %q", delivery.Outcome.Body)
	}
	out := logs.String()
	if !strings.Contains(out, `"level":"WARN"`) || !strings.Contains(out, `"status_code":503`) {
		t.Fatalf("expected warning with status code, got %s", out)
	}
	if !strings.Contains(out, "maintenance window") {
		t.Fatalf("expected response body in log, got %s", out)
	}
}

func TestNotifyCreatedIsNotSuccess(t *testing.T) {
	server := newCaptureServer(t, http.StatusCreated, "")
	recorder := &memoryRecorder{}
	d := newDispatcher(t, server.URL, render.Static{Project: "a.blend", First: 1, Current: 1, Last: 1}, webhook.WithRecorder(recorder))

	d.Notify(context.Background(), events.Start, nil)

	if outcome := recorder.last(t).Outcome; outcome.Success() || outcome.Kind != webhook.OutcomeStatus {
		t.Fatalf("expected 201 to be a status failure, got %+v", outcome)
	}
}

func TestNotifySuccessRecordsDelivery(t *testing.T) {
	server := newCaptureServer(t, http.StatusOK, "")
	recorder := &memoryRecorder{}
	d := newDispatcher(t, server.URL, render.Static{Project: "a.blend", First: 1, Current: 1, Last: 1},
		webhook.WithRecorder(recorder),
		webhook.WithUserAgent("renderhook-test/1.0"),
	)

	d.Notify(context.Background(), events.Start, nil)

	req := server.only(t)
	delivery := recorder.last(t)
	if !delivery.Outcome.Success() || delivery.Outcome.Message() != "ok" {
		t.Fatalf("unexpected outcome %+v", delivery.Outcome)
	}
	if _, err := uuid.Parse(req.delivery); err != nil {
		t.Fatalf("delivery header is not a uuid: %q", req.delivery)
	}
	if delivery.ID != req.delivery {
		t.Fatalf("journal id %q does not match header %q", delivery.ID, req.delivery)
	}
	if delivery.Event != events.Start || delivery.URL != server.URL+"/render_start" {
		t.Fatalf("unexpected delivery %+v", delivery)
	}
	if req.userAgent != "renderhook-test/1.0" {
		t.Fatalf("unexpected user agent %q", req.userAgent)
	}
}

func TestNotifyTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	recorder := &memoryRecorder{}
	d := newDispatcher(t, base, render.Static{Project: "a.blend", First: 1, Current: 1, Last: 1}, webhook.WithRecorder(recorder))

	d.Notify(context.Background(), events.Start, nil)

	outcome := recorder.last(t).Outcome
	if outcome.Kind != webhook.OutcomeTransport || outcome.Err == nil {
		t.Fatalf("expected transport outcome, got %+v", outcome)
	}
}

func TestNotifyTimeoutBoundsTheCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	recorder := &memoryRecorder{}
	d := newDispatcher(t, server.URL, render.Static{Project: "a.blend", First: 1, Current: 1, Last: 1},
		webhook.WithTimeout(50*time.Millisecond),
		webhook.WithRecorder(recorder),
	)

	start := time.Now()
	d.Notify(context.Background(), events.Start, nil)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("notify was not bounded by the timeout: %s", elapsed)
	}
	if outcome := recorder.last(t).Outcome; outcome.Kind != webhook.OutcomeTransport {
		t.Fatalf("expected transport outcome on timeout, got %+v", outcome)
	}
}

func TestNotifyIgnoresCallerCancellation(t *testing.T) {
	server := newCaptureServer(t, http.StatusOK, "")
	d := newDispatcher(t, server.URL, render.Static{Project: "a.blend", First: 1, Current: 1, Last: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d.Notify(ctx, events.Cancel, nil)

	if req := server.only(t); req.path != "/render_cancel" {
		t.Fatalf("unexpected path %q", req.path)
	}
}

func TestNotifyInternalFailures(t *testing.T) {
	server := newCaptureServer(t, http.StatusOK, "")

	tests := []struct {
		name   string
		source render.StateSource
		extra  map[string]any
		expect string
	}{
		{name: "missing source", source: nil, expect: "render state source unavailable"},
		{name: "unencodable extra", source: render.Static{Project: "a.blend", First: 1, Current: 1, Last: 1}, extra: map[string]any{"bad": make(chan int)}, expect: "encode payload"},
		{name: "panicking source", source: panicSource{}, expect: "build notification"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := &memoryRecorder{}
			d := newDispatcher(t, server.URL, tc.source, webhook.WithRecorder(recorder))

			d.Notify(context.Background(), events.Error, tc.extra)

			outcome := recorder.last(t).Outcome
			if outcome.Kind != webhook.OutcomeInternal {
				t.Fatalf("expected internal outcome, got %+v", outcome)
			}
			if !strings.Contains(outcome.Message(), tc.expect) {
				t.Fatalf("expected message containing %q, got %q", tc.expect, outcome.Message())
			}
		})
	}

	server.mu.Lock()
	defer server.mu.Unlock()
	if len(server.requests) != 0 {
		t.Fatalf("internal failures must not reach the endpoint, got %d requests", len(server.requests))
	}
}

type panicSource struct{}

func (panicSource) FrameRange() (int, int, int) { panic("host state unavailable") }

func (panicSource) ProjectFileName() string { return "a.blend" }

func TestAsyncNotifyResolvesStateAtCallTime(t *testing.T) {
	release := make(chan struct{})
	var (
		mu     sync.Mutex
		bodies []map[string]any
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tracker := render.NewTracker("a.blend", 1, 11)
	d := newDispatcher(t, server.URL, tracker, webhook.WithAsync(true))

	tracker.SetCurrent(6)
	d.Notify(context.Background(), events.Progress, nil)
	tracker.SetCurrent(11)
	close(release)
	d.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 1 {
		t.Fatalf("expected one delivery, got %d", len(bodies))
	}
	progress := bodies[0]["progress"].(map[string]any)
	if progress["percent"] != float64(50) {
		t.Fatalf("expected percent captured at call time (50), got %v", progress["percent"])
	}
}
