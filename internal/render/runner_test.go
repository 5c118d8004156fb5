package render_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"renderhook/internal/events"
	"renderhook/internal/render"
)

type scriptedExecutor struct {
	lines   []string
	err     error
	block   bool
	binary  string
	args    []string
	onStart func()
}

func (s *scriptedExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	s.binary = binary
	s.args = args
	if s.onStart != nil {
		s.onStart()
	}
	for _, line := range s.lines {
		onLine(line)
	}
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.err
}

type frameObservingNotifier struct {
	recordingNotifier
	tracker *render.Tracker
	frames  []int
}

func (f *frameObservingNotifier) Notify(ctx context.Context, kind events.Kind, extra map[string]any) {
	if kind == events.Progress {
		_, current, _ := f.tracker.FrameRange()
		f.frames = append(f.frames, current)
	}
	if err := ctx.Err(); err != nil {
		panic("notification context must not be cancelled: " + err.Error())
	}
	f.recordingNotifier.Notify(ctx, kind, extra)
}

func newRunner(t *testing.T, exec render.Executor, opts ...render.Option) (*render.Runner, *frameObservingNotifier) {
	t.Helper()
	tracker := render.NewTracker("/renders/intro.blend", 1, 3)
	notifier := &frameObservingNotifier{tracker: tracker}
	opts = append([]render.Option{render.WithExecutor(exec)}, opts...)
	runner, err := render.NewRunner("blender", 0, render.NewHooks(notifier), tracker, opts...)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return runner, notifier
}

func TestRunnerReportsProgressAndCompletion(t *testing.T) {
	exec := &scriptedExecutor{lines: []string{
		"Blender 4.1.0",
		"Fra:1 Mem:12.00M (Peak 14.00M) | Time:00:00.10 | Rendering 1 / 64 samples",
		"Saved: '/tmp/out/0001.png'",
		"Fra:2 Mem:12.00M (Peak 14.00M) | Time:00:00.20 | Rendering 1 / 64 samples",
		"Saved: '/tmp/out/0002.png'",
		"Fra:3 Mem:12.00M | Sample 64/64",
		"Saved: '/tmp/out/0003.png'",
		"Blender quit",
	}}
	runner, notifier := newRunner(t, exec)

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	want := []events.Kind{events.Start, events.Progress, events.Progress, events.Progress, events.Complete}
	got := notifier.kinds()
	if len(got) != len(want) {
		t.Fatalf("unexpected notifications: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("notification %d = %v, want %v", i, got[i], want[i])
		}
	}
	if len(notifier.frames) != 3 || notifier.frames[0] != 1 || notifier.frames[2] != 3 {
		t.Fatalf("unexpected progress frames: %v", notifier.frames)
	}
	if exec.binary != "blender" {
		t.Fatalf("unexpected binary: %q", exec.binary)
	}
	if strings.Join(exec.args, " ") != "-b /renders/intro.blend -s 1 -e 3 -a" {
		t.Fatalf("unexpected args: %v", exec.args)
	}
}

func TestRunnerReportsRendererError(t *testing.T) {
	exec := &scriptedExecutor{
		lines: []string{"Fra:1 Mem:9.00M", "Error: Out of memory in CUDA queue"},
		err:   errors.New("exit status 1"),
	}
	runner, notifier := newRunner(t, exec)

	err := runner.Run(context.Background())
	if err == nil {
		t.Fatal("expected render error")
	}
	last := notifier.calls[len(notifier.calls)-1]
	if last.kind != events.Error {
		t.Fatalf("expected error notification, got %v", last.kind)
	}
	if last.extra[render.ErrorMessageKey] != "Out of memory in CUDA queue" {
		t.Fatalf("unexpected error message: %v", last.extra)
	}
}

func TestRunnerFallsBackToExitErrorMessage(t *testing.T) {
	exec := &scriptedExecutor{err: errors.New("exit status 139")}
	runner, notifier := newRunner(t, exec)

	if err := runner.Run(context.Background()); err == nil {
		t.Fatal("expected render error")
	}
	last := notifier.calls[len(notifier.calls)-1]
	if last.kind != events.Error || last.extra[render.ErrorMessageKey] != "exit status 139" {
		t.Fatalf("unexpected final notification: %+v", last)
	}
}

func TestRunnerReportsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exec := &scriptedExecutor{block: true, onStart: cancel}
	runner, notifier := newRunner(t, exec)

	err := runner.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	kinds := notifier.kinds()
	if len(kinds) != 2 || kinds[0] != events.Start || kinds[1] != events.Cancel {
		t.Fatalf("unexpected notifications: %v", kinds)
	}
}

func TestRunnerTimeoutReportsError(t *testing.T) {
	tracker := render.NewTracker("intro.blend", 1, 1)
	notifier := &frameObservingNotifier{tracker: tracker}
	runner, err := render.NewRunner("blender", 1, render.NewHooks(notifier), tracker,
		render.WithExecutor(&scriptedExecutor{block: true}))
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	start := time.Now()
	if err := runner.Run(context.Background()); err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("timeout did not bound the render")
	}
	last := notifier.calls[len(notifier.calls)-1]
	if last.kind != events.Error {
		t.Fatalf("expected error notification, got %v", last.kind)
	}
}

func TestRunnerExplicitCommand(t *testing.T) {
	exec := &scriptedExecutor{}
	runner, _ := newRunner(t, exec, render.WithCommand([]string{"/opt/blender/blender", "-b", "x.blend", "-f", "1"}))

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if exec.binary != "/opt/blender/blender" || strings.Join(exec.args, " ") != "-b x.blend -f 1" {
		t.Fatalf("unexpected command: %s %v", exec.binary, exec.args)
	}
}

func TestRunnerRefusesConcurrentRunOfSameProject(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "locks", "intro.blend.lock")
	held := flock.New(lockPath)
	runner, notifier := newRunner(t, &scriptedExecutor{}, render.WithLock(lockPath))

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("first run should acquire lock: %v", err)
	}

	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("expected lock to be released after run: ok=%v err=%v", ok, err)
	}
	defer held.Unlock() //nolint:errcheck

	before := len(notifier.kinds())
	if err := runner.Run(context.Background()); !errors.Is(err, render.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if len(notifier.kinds()) != before {
		t.Fatal("locked run must not send notifications")
	}
}

func TestNewRunnerValidatesInputs(t *testing.T) {
	tracker := render.NewTracker("intro.blend", 1, 1)
	if _, err := render.NewRunner("blender", 0, nil, tracker); err == nil {
		t.Fatal("expected error without hooks")
	}
	if _, err := render.NewRunner("  ", 0, render.NewHooks(nil), tracker); err == nil {
		t.Fatal("expected error without binary")
	}
}

func TestRunnerSurvivesOverlongOutputLines(t *testing.T) {
	script := "head -c 2097152 /dev/zero | tr '\\000' x; echo; " +
		"head -c 204800 /dev/zero | tr '\\000' y; echo; " +
		"echo 'Fra:1 Mem:9.00M'; echo 'Saved: /tmp/out/0001.png'"
	runner, notifier := newRunner(t, nil, render.WithCommand([]string{"/bin/sh", "-c", script}))

	done := make(chan error, 1)
	go func() { done <- runner.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(30 * time.Second):
		t.Fatal("Run blocked on renderer output")
	}

	want := []events.Kind{events.Start, events.Progress, events.Complete}
	got := notifier.kinds()
	if len(got) != len(want) {
		t.Fatalf("unexpected notifications: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("notification %d = %v, want %v", i, got[i], want[i])
		}
	}
}
