// Package clipboard wraps the system clipboard behind a small capability
// interface and bounds every access with a timeout.
package clipboard

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mcncl/jsonform/internal/errors"
)

// DefaultTimeout bounds a clipboard read or write.
const DefaultTimeout = 5 * time.Second

// Clipboard reads and writes plain text.
type Clipboard interface {
	ReadText(ctx context.Context) (string, error)
	WriteText(ctx context.Context, text string) error
}

// Memory is an in-process clipboard.
type Memory struct {
	mu   sync.Mutex
	text string
}

// ReadText implements Clipboard.
func (m *Memory) ReadText(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, ctx.Err()
}

// WriteText implements Clipboard.
func (m *Memory) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	return nil
}

// Command talks to the clipboard through external programs such as
// pbcopy/pbpaste, wl-copy/wl-paste or xclip.
type Command struct {
	Read  []string
	Write []string
}

// DefaultCommand picks clipboard programs for the current platform.
func DefaultCommand() *Command {
	switch runtime.GOOS {
	case "darwin":
		return &Command{Read: []string{"pbpaste"}, Write: []string{"pbcopy"}}
	case "windows":
		return &Command{
			Read:  []string{"powershell", "-NoProfile", "-Command", "Get-Clipboard"},
			Write: []string{"clip"},
		}
	default:
		if os.Getenv("WAYLAND_DISPLAY") != "" {
			return &Command{Read: []string{"wl-paste", "--no-newline"}, Write: []string{"wl-copy"}}
		}
		return &Command{
			Read:  []string{"xclip", "-selection", "clipboard", "-o"},
			Write: []string{"xclip", "-selection", "clipboard", "-i"},
		}
	}
}

// ReadText implements Clipboard.
func (c *Command) ReadText(ctx context.Context) (string, error) {
	if len(c.Read) == 0 {
		return "", fmt.Errorf("no clipboard read command configured")
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Read[0], c.Read[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w: %s", c.Read[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// WriteText implements Clipboard.
func (c *Command) WriteText(ctx context.Context, text string) error {
	if len(c.Write) == 0 {
		return fmt.Errorf("no clipboard write command configured")
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Write[0], c.Write[1:]...)
	cmd.Stdin = strings.NewReader(text)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", c.Write[0], err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Service performs clipboard access with a timeout and logs every failure.
type Service struct {
	cb      Clipboard
	timeout time.Duration
	log     *zap.Logger
}

// NewService creates a Service. A non-positive timeout uses DefaultTimeout.
func NewService(cb Clipboard, timeout time.Duration, log *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{cb: cb, timeout: timeout, log: log.Named("clipboard")}
}

type result struct {
	text string
	err  error
}

// run executes op but gives up once the timeout passes, even if op ignores ctx.
func (s *Service) run(ctx context.Context, op func(context.Context) (string, error)) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		text, err := op(ctx)
		done <- result{text, err}
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return "", errors.ErrClipboardTimeout
		}
		return "", ctx.Err()
	}
}

// Copy writes text to the clipboard.
func (s *Service) Copy(ctx context.Context, text string) error {
	_, err := s.run(ctx, func(ctx context.Context) (string, error) {
		return "", s.cb.WriteText(ctx, text)
	})
	if err != nil {
		s.log.Error("failed to copy text", zap.Error(err))
		return errors.NewClipboardError("failed to copy text", err)
	}
	s.log.Debug("copied text", zap.Int("bytes", len(text)))
	return nil
}

// Paste reads text from the clipboard.
func (s *Service) Paste(ctx context.Context) (string, error) {
	text, err := s.run(ctx, s.cb.ReadText)
	if err != nil {
		s.log.Error("failed to paste text", zap.Error(err))
		return "", errors.NewClipboardError("failed to paste text", err)
	}
	return text, nil
}
