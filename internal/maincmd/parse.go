package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/noxlang/nox/lang/ast"
	"github.com/noxlang/nox/lang/parser"
)

func (c *Cmd) Parse(ctx context.Context, stdio mainer.Stdio, args []string) error {
	prog, err := parseFile(args[0])
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

	return (&ast.Printer{Output: w}).Print(prog)
}

func parseFile(path string) (*ast.Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parser.Parse(src)
}
