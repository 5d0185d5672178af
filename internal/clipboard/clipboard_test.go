package clipboard

import (
	"context"
	stderrors "errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mcncl/jsonform/internal/errors"
)

type stuck struct{ release chan struct{} }

func (s stuck) ReadText(context.Context) (string, error) {
	<-s.release
	return "late", nil
}

func (s stuck) WriteText(context.Context, string) error {
	<-s.release
	return nil
}

type broken struct{}

func (broken) ReadText(context.Context) (string, error) { return "", stderrors.New("no display") }
func (broken) WriteText(context.Context, string) error  { return stderrors.New("no display") }

func TestService_MemoryRoundTrip(t *testing.T) {
	svc := NewService(&Memory{}, 0, nil)

	require.NoError(t, svc.Copy(context.Background(), `{"a": 1}`))
	text, err := svc.Paste(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, text)
}

func TestService_Timeout(t *testing.T) {
	cb := stuck{release: make(chan struct{})}
	defer close(cb.release)

	core, logs := observer.New(zap.ErrorLevel)
	svc := NewService(cb, 20*time.Millisecond, zap.New(core))

	_, err := svc.Paste(context.Background())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrClipboardTimeout))

	err = svc.Copy(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrClipboardTimeout))

	assert.Equal(t, 2, logs.Len())
}

func TestService_FailureIsLoggedAndTyped(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	svc := NewService(broken{}, time.Second, zap.New(core))

	_, err := svc.Paste(context.Background())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, &errors.AppError{Type: errors.ErrorTypeClipboard}))

	entries := logs.FilterMessage("failed to paste text").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "clipboard", entries[0].LoggerName)
}

func TestService_CancelledContext(t *testing.T) {
	svc := NewService(&Memory{}, time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.Copy(ctx, "x")
	require.Error(t, err)
	assert.False(t, stderrors.Is(err, errors.ErrClipboardTimeout))
}

func TestCommand_Unconfigured(t *testing.T) {
	c := &Command{}
	_, err := c.ReadText(context.Background())
	assert.Error(t, err)
	assert.Error(t, c.WriteText(context.Background(), "x"))
}

func TestCommand_RunsPrograms(t *testing.T) {
	if _, err := execLookPath("cat"); err != nil {
		t.Skip("cat not available")
	}
	c := &Command{Read: []string{"echo", "-n", "hello"}, Write: []string{"cat"}}

	text, err := c.ReadText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.NoError(t, c.WriteText(context.Background(), "x"))

	missing := &Command{Read: []string{"definitely-not-a-clipboard-tool"}}
	_, err = missing.ReadText(context.Background())
	assert.Error(t, err)
}

func TestDefaultCommand(t *testing.T) {
	c := DefaultCommand()
	assert.NotEmpty(t, c.Read)
	assert.NotEmpty(t, c.Write)
}

var execLookPath = exec.LookPath
