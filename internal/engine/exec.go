package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/nqrduck/quacksim/internal/logging"
	"github.com/rs/zerolog"
)

const (
	stderrTailBytes  = 2048
	processWaitDelay = time.Second
)

// ExecEngine runs a local simulator process per request. The request JSON is
// written to the process's stdin and the result JSON is read from stdout.
type ExecEngine struct {
	command string
	args    []string
	timeout time.Duration
	env     []string
	logger  zerolog.Logger
}

// ExecOption configures an ExecEngine.
type ExecOption func(*ExecEngine)

// WithTimeout bounds a single simulation; zero disables the bound.
func WithTimeout(timeout time.Duration) ExecOption {
	return func(e *ExecEngine) {
		e.timeout = timeout
	}
}

// WithEnv appends environment variables for the engine process.
func WithEnv(env ...string) ExecOption {
	return func(e *ExecEngine) {
		e.env = append(e.env, env...)
	}
}

// NewExecEngine creates an engine that runs command with args.
func NewExecEngine(command string, args []string, opts ...ExecOption) (*ExecEngine, error) {
	if strings.TrimSpace(command) == "" {
		return nil, ErrNoCommand
	}
	e := &ExecEngine{
		command: command,
		args:    append([]string(nil), args...),
		logger:  logging.Component("engine-exec"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Simulate implements Engine.
func (e *ExecEngine) Simulate(ctx context.Context, req *Request) (*Result, error) {
	payload, err := EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, e.command, e.args...)
	cmd.Env = append(os.Environ(), e.env...)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.WaitDelay = processWaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	e.logger.Debug().
		Str("command", e.command).
		Int("samples", req.Pulse.Len()).
		Msg("starting engine process")

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("engine process: %w", ctxErr)
		}
		exitErr := new(exec.ExitError)
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("engine exited with code %d: %s", exitErr.ExitCode(), tail(stderr.Bytes()))
		}
		return nil, fmt.Errorf("run engine: %w", err)
	}

	res, err := DecodeResult(stdout.Bytes())
	if err != nil {
		return nil, err
	}

	e.logger.Debug().
		Dur("elapsed", time.Since(started)).
		Int("points", len(res.Signal)).
		Int("averages", res.Averages).
		Msg("engine process finished")
	return res, nil
}

func tail(data []byte) string {
	data = bytes.TrimSpace(data)
	if len(data) > stderrTailBytes {
		data = data[len(data)-stderrTailBytes:]
	}
	if len(data) == 0 {
		return "no stderr output"
	}
	return string(data)
}
