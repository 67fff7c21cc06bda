package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
	"github.com/noxlang/nox/lang/machine"
)

// Run executes the G + C + A + E pipeline: parse, lower, build and run the
// file at args[0], streaming stdin/stdout to the process's own. The VM's
// exit code is recorded on c and becomes the process exit code (see
// Cmd.Main).
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	prog, err := buildFile(args[0])
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	limits, err := machine.LimitsFromEnv()
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	th := &machine.Thread{
		Stdout: stdio.Stdout,
		Stderr: stdio.Stderr,
		Stdin:  stdio.Stdin,
		Limits: limits,
	}
	th.WithContext(ctx)

	code, err := machine.Run(th, prog)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	c.runExitCode = int(code)
	return nil
}
