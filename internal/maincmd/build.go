package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
	"github.com/noxlang/nox/lang/compiler"
)

// buildFile runs the G + C + A pipeline stage (parse, lower, build) over
// the file at path.
func buildFile(path string) (*compiler.Program, error) {
	prog, err := parseFile(path)
	if err != nil {
		return nil, err
	}
	insns, err := compiler.Lower(prog)
	if err != nil {
		return nil, err
	}
	return compiler.Build(insns)
}

func (c *Cmd) Build(ctx context.Context, stdio mainer.Stdio, args []string) error {
	prog, err := buildFile(args[0])
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	w, closeFn, err := c.output(stdio)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	defer closeFn()

	if c.Text {
		_, err = w.Write(compiler.Render(prog.Source))
		return err
	}

	data, err := prog.MarshalBinary()
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	_, err = w.Write(data)
	return err
}
