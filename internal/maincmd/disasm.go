package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/noxlang/nox/lang/compiler"
)

// Disasm parses a binary program image and renders it as §4.D text.
func (c *Cmd) Disasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	img, err := compiler.UnmarshalBinary(data)
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

	_, err = w.Write(compiler.RenderResolved(img))
	return err
}
