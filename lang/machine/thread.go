// Package machine implements the stack-based virtual machine that executes
// a resolved *compiler.Program (§4.E): an operand stack, a call stack of
// return addresses, a fixed-size global vector, and a stack of per-call
// locals frames.
package machine

import (
	"context"
	"io"
	"os"

	"github.com/caarlos0/env/v6"
)

// Thread carries one interpreter run's configuration and I/O, mirroring
// the teacher's own Thread: a value the caller configures once and passes
// to Run, never mutated concurrently by more than one run.
type Thread struct {
	// Name optionally names the thread, for diagnostics.
	Name string

	// Stdout and Stdin back the print/input syscalls (§4.E) and the
	// read/write syscalls on fds 0 and 1; Stderr backs write on fd 2. Nil
	// fields default to the process's own streams.
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	// Limits bounds a run; see Limits' fields. Run uses it as given: the
	// zero value means no limit, and LimitsFromEnv builds one from the
	// environment.
	Limits Limits

	ctx context.Context
}

// Limits bounds the resources one Run call may consume. Every field is
// optional (<= 0 means unlimited); the NOX_VM_* variables read by
// LimitsFromEnv let an operator cap a run without recompiling, the same config-from-env role
// github.com/caarlos0/env/v6 plays for the x64 backend's external-tool
// lookup (see lang/x64 and internal/maincmd).
type Limits struct {
	// MaxSteps is the maximum number of fetch-decode-execute cycles before
	// the run is aborted with an error. 0 means unlimited.
	MaxSteps int64 `env:"NOX_VM_MAX_STEPS" envDefault:"0"`
	// MaxCallDepth is the maximum live call-stack depth. 0 means
	// unlimited.
	MaxCallDepth int `env:"NOX_VM_MAX_CALL_DEPTH" envDefault:"0"`
	// MaxOperandStack bounds the operand stack's depth, guarding against a
	// malformed program that never stops pushing. 0 means unlimited.
	MaxOperandStack int `env:"NOX_VM_MAX_OPERAND_STACK" envDefault:"0"`
}

// LimitsFromEnv reads Limits overrides from the process environment,
// falling back to the zero (unlimited) value for any unset variable.
func LimitsFromEnv() (Limits, error) {
	var l Limits
	if err := env.Parse(&l); err != nil {
		return Limits{}, err
	}
	return l, nil
}

func (th *Thread) stdout() io.Writer {
	if th.Stdout != nil {
		return th.Stdout
	}
	return os.Stdout
}

func (th *Thread) stdin() io.Reader {
	if th.Stdin != nil {
		return th.Stdin
	}
	return os.Stdin
}

func (th *Thread) stderr() io.Writer {
	if th.Stderr != nil {
		return th.Stderr
	}
	return os.Stderr
}

// WithContext attaches ctx to th; Run checks ctx.Err() between
// instructions so a caller can cancel a long-running or infinite-looping
// program.
func (th *Thread) WithContext(ctx context.Context) {
	th.ctx = ctx
}

func (th *Thread) context() context.Context {
	if th.ctx != nil {
		return th.ctx
	}
	return context.Background()
}
