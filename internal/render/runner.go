package render

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"renderhook/internal/logging"
)

// ErrAlreadyRunning is returned when another runner holds the project lock.
var ErrAlreadyRunning = errors.New("another render of this project is already running")

var (
	framePattern = regexp.MustCompile(`^Fra:\s*(-?\d+)\b`)
	savedPattern = regexp.MustCompile(`^\s*Saved:\s`)
	errorPattern = regexp.MustCompile(`^\s*(?:Error|ERROR):\s*(.+)$`)
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// Option configures the runner.
type Option func(*Runner)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithCommand replaces the default renderer arguments with an explicit argv.
// The first element is the binary.
func WithCommand(argv []string) Option {
	return func(r *Runner) {
		if len(argv) > 0 {
			r.binary = argv[0]
			r.args = append([]string(nil), argv[1:]...)
			r.explicit = true
		}
	}
}

// WithLock makes Run hold an exclusive file lock for its duration.
func WithLock(path string) Option {
	return func(r *Runner) {
		if strings.TrimSpace(path) != "" {
			r.lockPath = path
		}
	}
}

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logging.NewComponentLogger(logger, "runner")
	}
}

// Runner launches a renderer process for the tracked project and converts its
// output into lifecycle hooks.
type Runner struct {
	binary   string
	args     []string
	explicit bool
	timeout  time.Duration
	lockPath string
	exec     Executor
	hooks    *Hooks
	tracker  *Tracker
	logger   *slog.Logger
	sampler  *logging.ProgressSampler
}

// NewRunner constructs a runner for the renderer binary. A zero timeout
// disables the render deadline.
func NewRunner(binary string, timeoutSeconds int, hooks *Hooks, tracker *Tracker, opts ...Option) (*Runner, error) {
	if hooks == nil || tracker == nil {
		return nil, errors.New("runner requires hooks and tracker")
	}
	r := &Runner{
		binary:  strings.TrimSpace(binary),
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    commandExecutor{},
		hooks:   hooks,
		tracker: tracker,
		logger:  logging.NewComponentLogger(nil, "runner"),
		sampler: logging.NewProgressSampler(10),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.binary == "" {
		return nil, errors.New("renderer binary required")
	}
	return r, nil
}

// Args returns the renderer argv (without the binary).
func (r *Runner) Args() []string {
	if r.explicit {
		return append([]string(nil), r.args...)
	}
	first, _, last := r.tracker.FrameRange()
	return []string{
		"-b", r.tracker.ProjectFileName(),
		"-s", strconv.Itoa(first),
		"-e", strconv.Itoa(last),
		"-a",
	}
}

// Run renders the project, firing Start before launch, Progress for every
// saved frame, and exactly one of Complete, Cancel, or Error at the end.
// The returned error describes the render failure, never a notification one.
func (r *Runner) Run(ctx context.Context) error {
	if r.lockPath != "" {
		release, err := r.acquireLock()
		if err != nil {
			return err
		}
		defer release()
	}

	// Notifications must outlive a cancelled render so Cancel can be delivered.
	notifyCtx := context.WithoutCancel(ctx)

	renderCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		renderCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.sampler.Reset()
	project := r.tracker.ProjectFileName()
	args := r.Args()
	r.logger.Info("render starting",
		logging.String("binary", r.binary),
		logging.String("args", strings.Join(args, " ")),
	)
	r.hooks.OnRenderStart(notifyCtx)

	var lastError string
	runErr := r.exec.Run(renderCtx, r.binary, args, func(line string) {
		if msg, ok := r.handleLine(notifyCtx, project, line); ok {
			lastError = msg
		}
	})

	switch {
	case ctx.Err() != nil:
		r.logger.Info("render cancelled")
		r.hooks.OnRenderCancelOrError(notifyCtx, "")
		return ctx.Err()
	case runErr != nil && errors.Is(renderCtx.Err(), context.DeadlineExceeded):
		msg := fmt.Sprintf("render timed out after %s", r.timeout)
		r.logger.Error("render timed out", logging.Duration("timeout", r.timeout))
		r.hooks.OnRenderCancelOrError(notifyCtx, msg)
		return errors.New(msg)
	case runErr != nil:
		msg := lastError
		if msg == "" {
			msg = runErr.Error()
		}
		r.logger.Error("render failed", logging.Error(runErr), logging.String("error_message", msg))
		r.hooks.OnRenderCancelOrError(notifyCtx, msg)
		return fmt.Errorf("render %s: %w", project, runErr)
	default:
		r.logger.Info("render complete")
		r.hooks.OnRenderComplete(notifyCtx)
		return nil
	}
}

// handleLine updates the tracker from one line of renderer output. It returns
// the error text when the line reports a renderer error.
func (r *Runner) handleLine(ctx context.Context, project, line string) (string, bool) {
	if m := framePattern.FindStringSubmatch(line); m != nil {
		if frame, err := strconv.Atoi(m[1]); err == nil {
			r.tracker.SetCurrent(frame)
		}
		return "", false
	}
	if savedPattern.MatchString(line) {
		percent := Capture(r.tracker).Percent()
		_, current, _ := r.tracker.FrameRange()
		if r.sampler.ShouldLog(percent, project) {
			r.logger.Info("frame saved", logging.Int("frame", current), logging.Int("percent", percent))
		} else {
			r.logger.Debug("frame saved", logging.Int("frame", current), logging.Int("percent", percent))
		}
		r.hooks.OnRenderProgress(ctx)
		return "", false
	}
	if m := errorPattern.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}

func (r *Runner) acquireLock() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(r.lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(r.lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyRunning
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release render lock", logging.Error(err), logging.String("lock", r.lockPath))
		}
	}, nil
}

// maxLineLength caps how much of one output line is kept; the rest of an
// over-long line is discarded.
const maxLineLength = 1024 * 1024

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		scanErr error
		once    sync.Once
	)
	forward := func(line string) {
		mu.Lock()
		defer mu.Unlock()
		if onLine != nil {
			onLine(line)
		}
	}
	scan := func(reader io.Reader) {
		defer wg.Done()
		if err := readLines(reader, maxLineLength, forward); err != nil {
			once.Do(func() { scanErr = err })
			// Keep the pipe drained so the child never blocks on a full buffer.
			_, _ = io.Copy(io.Discard, reader)
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return err
	}
	if scanErr != nil {
		return fmt.Errorf("read output: %w", scanErr)
	}
	return nil
}

// readLines calls onLine for every newline-terminated line in reader, with the
// trailing line terminator removed. Lines longer than limit are truncated.
func readLines(reader io.Reader, limit int, onLine func(string)) error {
	br := bufio.NewReaderSize(reader, 64*1024)
	var line []byte
	for {
		chunk, err := br.ReadSlice('\n')
		if room := limit - len(line); room > 0 {
			line = append(line, chunk[:min(len(chunk), room)]...)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if err == nil || len(line) > 0 {
			onLine(strings.TrimRight(string(line), "\r\n"))
		}
		if err != nil {
			return nil
		}
		line = line[:0]
	}
}
