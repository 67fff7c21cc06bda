package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/noxlang/nox/lang/compiler"
)

// Asm assembles a hand-written or disassembled §4.D text file into a
// resolved program image, the same A stage build uses, skipping G and C.
func (c *Cmd) Asm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	insns, err := compiler.Parse(src)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	prog, err := compiler.Build(insns)
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
