// Package maincmd implements the nox CLI: argument parsing and dispatch to
// the toolchain's pipeline stages, over github.com/mna/mainer's reflection
// dispatch (one exported method per subcommand), the same shape as the
// teacher's own internal/maincmd.
package maincmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/mna/mainer"
)

const binName = "nox"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <command> <path>
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <command> <path>
       %[1]s -h|--help
       %[1]s -v|--version

Ahead-of-time compiler and VM for the nox programming language.

The <command> can be one of:
       parse      Parse <path> and print the AST.
       lower      Parse and lower <path>, print the unresolved
                  instruction stream (the §4.D text form).
       build      Parse, lower and build <path>, writing the resolved
                  program image. Binary by default; with --text, the
                  §4.D text form instead.
       asm        Assemble a hand-written or disassembled §4.D text
                  file into a resolved program image.
       disasm     Disassemble a binary program image back to text.
       run        Parse, lower, build and execute <path>, streaming
                  stdin/stdout and returning the program's exit code.
       x64        Parse, lower, build and emit a NASM listing for
                  <path>. With --link, additionally invoke nasm and cc
                  if both are found on PATH.

Valid flag options are:
       -h --help      Show this help and exit.
       -v --version   Print version and exit.
       -o --output    Output file path (default: stdout; for 'x64',
                      <path>.asm).
       --text         For 'build', write the §4.D text form.
       --link         For 'x64', assemble and link the listing.
`, binName)
)

// Cmd is the nox root command, dispatched to one of its exported methods
// (one per subcommand) by method-name reflection.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	Output string `flag:"o,output"`
	Text   bool   `flag:"text"`
	Link   bool   `flag:"link"`

	args        []string
	cmdFn       func(context.Context, mainer.Stdio, []string) error
	runExitCode int
}

func (c *Cmd) SetArgs(args []string)          { c.args = args }
func (c *Cmd) SetFlags(flags map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) == 0 {
		return errors.New("no command specified")
	}

	cmdName := c.args[0]
	commands := buildCmds(c)
	c.cmdFn = commands[cmdName]
	if c.cmdFn == nil {
		return fmt.Errorf("unknown command: %s", cmdName)
	}
	if len(c.args[1:]) != 1 {
		return fmt.Errorf("%s: exactly one file path must be provided", cmdName)
	}
	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{EnvVars: false, EnvPrefix: binName + "_"}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.cmdFn(ctx, stdio, c.args[1:]); err != nil {
		return mainer.Failure
	}
	if c.args[0] == "run" {
		// the VM's own exit code becomes the process exit code, not just a
		// success/failure indicator.
		return mainer.ExitCode(c.runExitCode)
	}
	return mainer.Success
}

// buildCmds reflects over v's exported methods and returns those matching
// the (context.Context, mainer.Stdio, []string) error shape, keyed by
// lower-cased method name.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type
		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}
		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}

// output returns the writer c.Output names, or stdio.Stdout if unset.
func (c *Cmd) output(stdio mainer.Stdio) (w io.Writer, closeFn func(), err error) {
	if c.Output == "" {
		return stdio.Stdout, func() {}, nil
	}
	f, err := os.Create(c.Output)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
