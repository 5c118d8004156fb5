package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"renderhook/internal/config"
	"renderhook/internal/deps"
)

const dialTimeout = 5 * time.Second

// CheckWebhook verifies that the webhook host accepts TCP connections.
// No HTTP request is made so the endpoint never sees a spurious event.
func CheckWebhook(ctx context.Context, baseURL string) Result {
	const name = "Webhook endpoint"

	base := strings.TrimSpace(baseURL)
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Host == "" {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: invalid url)", base)}
	}
	port := parsed.Port()
	if port == "" {
		port = "80"
		if parsed.Scheme == "https" {
			port = "443"
		}
	}
	addr := net.JoinHostPort(parsed.Hostname(), port)

	checkCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(checkCtx, "tcp", addr)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s)", addr, summarizeDialError(err))}
	}
	_ = conn.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", addr)}
}

// CheckRenderer verifies that the configured renderer binary is on PATH and
// reports its version.
func CheckRenderer(ctx context.Context, cfg *config.Config) Result {
	const name = "Renderer"

	statuses := deps.CheckBinaries(ctx, []deps.Requirement{{
		Name:        name,
		Command:     cfg.Render.Binary,
		Description: "Launched by renderhook run",
		VersionArgs: []string{"--version"},
	}})
	status := statuses[0]
	if !status.Available {
		return Result{Name: name, Detail: status.Detail}
	}
	detail := status.Path
	if status.Version != "" {
		detail = fmt.Sprintf("%s (%s)", status.Path, status.Version)
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func summarizeDialError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "connection timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "connection timed out"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "host not found"
	}
	return err.Error()
}
