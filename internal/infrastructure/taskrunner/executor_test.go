package taskrunner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestOSExecutor_Run(t *testing.T) {
	requireShell(t)
	ctx := context.Background()

	var stdout, stderr bytes.Buffer
	e := NewOSExecutor(&stdout, &stderr, zaptest.NewLogger(t))

	t.Run("streams output", func(t *testing.T) {
		err := e.Run(ctx, NewCommand("sh", "-c", "echo out; echo err >&2"))
		require.NoError(t, err)
		assert.Equal(t, "out\n", stdout.String())
		assert.Equal(t, "err\n", stderr.String())
	})

	t.Run("non-zero exit", func(t *testing.T) {
		err := e.Run(ctx, NewCommand("sh", "-c", "exit 3"))
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 3, exitErr.Code)
		assert.Equal(t, 3, ExitCode(err))
	})

	t.Run("environment and directory", func(t *testing.T) {
		stdout.Reset()
		dir := t.TempDir()
		cmd := NewCommand("sh", "-c", `printf '%s %s' "$SHOP_TEST" "$(pwd)"`)
		cmd.Dir = dir
		cmd.Env = []string{"SHOP_TEST=yes"}
		require.NoError(t, e.Run(ctx, cmd))
		assert.Contains(t, stdout.String(), "yes ")
	})

	t.Run("missing program", func(t *testing.T) {
		err := e.Run(ctx, NewCommand("definitely-not-a-real-program-xyz"))
		require.Error(t, err)
		var exitErr *ExitError
		assert.False(t, errors.As(err, &exitErr))
	})

	t.Run("empty command", func(t *testing.T) {
		require.Error(t, e.Run(ctx, Command{}))
	})
}

func TestOSExecutor_Run_Cancelled(t *testing.T) {
	requireShell(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	e := NewOSExecutor(nil, nil, nil)
	err := e.Run(ctx, NewCommand("sh", "-c", "sleep 5"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
