package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// DefaultTimeout bounds every external command unless the runner overrides it.
const DefaultTimeout = 10 * time.Second

// ErrTimeout is returned when a command does not finish within its timeout.
var ErrTimeout = errors.New("command timed out")

// Result is the captured outcome of a finished command. A non-zero exit code
// is not an error: callers decide what it means.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes an external command with a bounded runtime.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	Timeout time.Duration
	// Decoder converts console output to UTF-8. Nil leaves output untouched.
	Decoder *encoding.Decoder
}

// NewExecRunner creates a runner with the given timeout. encodingName is an
// IANA charset name such as "IBM866"; empty means output is already UTF-8.
func NewExecRunner(timeout time.Duration, encodingName string) (*ExecRunner, error) {
	r := &ExecRunner{Timeout: timeout}
	if encodingName == "" {
		return r, nil
	}
	dec, err := NewDecoder(encodingName)
	if err != nil {
		return nil, err
	}
	r.Decoder = dec
	return r, nil
}

// NewDecoder looks up a decoder for an IANA charset name.
func NewDecoder(name string) (*encoding.Decoder, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("output encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("output encoding %q is not supported", name)
	}
	return enc.NewDecoder(), nil
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Children that inherit the pipes must not keep Wait blocked forever.
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return Result{}, fmt.Errorf("%s: %w after %s", name, ErrTimeout, timeout)
		}
		return Result{}, fmt.Errorf("%s: %w", name, ctxErr)
	}

	var res Result
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return Result{}, fmt.Errorf("run %s: %w", name, err)
		}
		res.ExitCode = exitErr.ExitCode()
	}

	res.Stdout = r.decode(stdout.Bytes())
	res.Stderr = r.decode(stderr.Bytes())
	return res, nil
}

func (r *ExecRunner) decode(b []byte) string {
	if r.Decoder == nil {
		return string(b)
	}
	out, err := r.Decoder.Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}
