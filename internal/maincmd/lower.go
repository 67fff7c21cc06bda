package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
	"github.com/noxlang/nox/lang/compiler"
)

func (c *Cmd) Lower(ctx context.Context, stdio mainer.Stdio, args []string) error {
	prog, err := parseFile(args[0])
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	insns, err := compiler.Lower(prog)
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

	_, err = w.Write(compiler.Render(insns))
	return err
}
