package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultMaxOutput = 8 << 20
	maxStderr        = 64 << 10
	waitDelay        = 2 * time.Second
)

// Invoker runs one worker command and returns its single JSON result.
type Invoker interface {
	Invoke(ctx context.Context, command string, args ...string) (json.RawMessage, error)
}

type Options struct {
	// Path is the worker executable or script.
	Path string
	// Interpreter, when set, is run with Path as its first argument.
	// It may carry flags, e.g. "python3 -u".
	Interpreter string
	Timeout     time.Duration
	// MaxOutput caps captured stdout; larger results are malformed.
	MaxOutput int
}

// Process starts a fresh worker process per call.
type Process struct {
	opts   Options
	logger *zap.Logger
}

var _ Invoker = (*Process)(nil)

func NewProcess(opts Options, logger *zap.Logger) *Process {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxOutput <= 0 {
		opts.MaxOutput = defaultMaxOutput
	}
	return &Process{opts: opts, logger: logger}
}

func (p *Process) argv(command string, args []string) (string, []string) {
	argv := strings.Fields(p.opts.Interpreter)
	argv = append(argv, p.opts.Path, command)
	argv = append(argv, args...)
	return argv[0], argv[1:]
}

func (p *Process) Invoke(ctx context.Context, command string, args ...string) (json.RawMessage, error) {
	runCtx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	name, argv := p.argv(command, args)
	cmd := exec.CommandContext(runCtx, name, argv...)
	cmd.WaitDelay = waitDelay
	configureProcess(cmd)

	stdout := &cappedBuffer{limit: p.opts.MaxOutput}
	stderr := &cappedBuffer{limit: maxStderr}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, p.fail(&Error{Kind: KindSpawn, Command: command, Err: err}, start)
	}

	waitErr := cmd.Wait()
	if waitErr != nil {
		switch {
		case errors.Is(ctx.Err(), context.Canceled):
			return nil, p.fail(&Error{Kind: KindCanceled, Command: command, Stderr: stderr.String(), Err: ctx.Err()}, start)
		case runCtx.Err() != nil:
			return nil, p.fail(&Error{Kind: KindTimeout, Command: command, Stderr: stderr.String(), Err: runCtx.Err()}, start)
		}

		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return nil, p.fail(&Error{
				Kind:     KindNonZeroExit,
				Command:  command,
				ExitCode: exitErr.ExitCode(),
				Stderr:   stderr.String(),
			}, start)
		}
		return nil, p.fail(&Error{Kind: KindSpawn, Command: command, Stderr: stderr.String(), Err: waitErr}, start)
	}

	if stdout.overflow {
		err := fmt.Errorf("stdout exceeded %d bytes", p.opts.MaxOutput)
		return nil, p.fail(&Error{Kind: KindMalformedOutput, Command: command, Stderr: stderr.String(), Err: err}, start)
	}
	raw, err := decodeSingle(stdout.Bytes())
	if err != nil {
		return nil, p.fail(&Error{Kind: KindMalformedOutput, Command: command, Stderr: stderr.String(), Err: err}, start)
	}

	p.logger.Debug("worker finished",
		zap.String("command", command),
		zap.Duration("duration", time.Since(start)),
		zap.Int("stdout_bytes", stdout.Len()),
	)
	return raw, nil
}

func (p *Process) fail(werr *Error, start time.Time) error {
	p.logger.Warn("worker failed",
		zap.String("command", werr.Command),
		zap.String("kind", string(werr.Kind)),
		zap.Int("exit_code", werr.ExitCode),
		zap.String("stderr", werr.Stderr),
		zap.Duration("duration", time.Since(start)),
		zap.Error(werr.Err),
	)
	return werr
}

var errTrailingData = errors.New("stdout holds more than one JSON value")

// decodeSingle accepts stdout only when it is exactly one JSON value,
// optionally surrounded by whitespace.
func decodeSingle(out []byte) (json.RawMessage, error) {
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, errors.New("stdout is empty")
	}
	dec := json.NewDecoder(bytes.NewReader(out))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("stdout is not JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}
	return raw, nil
}

// cappedBuffer keeps the first limit bytes and silently drains the rest so
// the child never blocks on a full pipe. It deliberately has no ReadFrom,
// so exec's copy goroutine goes through Write.
type cappedBuffer struct {
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	room := b.limit - b.buf.Len()
	if len(p) > room {
		if room > 0 {
			b.buf.Write(p[:room])
		}
		b.overflow = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) Bytes() []byte  { return b.buf.Bytes() }
func (b *cappedBuffer) String() string { return b.buf.String() }
func (b *cappedBuffer) Len() int       { return b.buf.Len() }
