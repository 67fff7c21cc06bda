package maincmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/mna/mainer"
	"github.com/noxlang/nox/lang/x64"
)

// X64 runs the G + C + A + F pipeline: parse, lower, build and emit a NASM
// listing for the file at args[0]. With --link, additionally shells out to
// an assembler/linker found on PATH.
func (c *Cmd) X64(ctx context.Context, stdio mainer.Stdio, args []string) error {
	prog, err := buildFile(args[0])
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	listing, err := x64.Compile(prog)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	outPath := c.Output
	if outPath == "" {
		outPath = args[0] + ".asm"
	}
	if err := os.WriteFile(outPath, []byte(listing), 0o644); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	fmt.Fprintln(stdio.Stdout, outPath)

	if !c.Link {
		return nil
	}
	return linkListing(ctx, stdio, outPath)
}

// linkListing assembles and links outPath's NASM listing into a native
// binary with nasm -f elf64 followed by cc (names overridable through
// x64.Options), as this CLI's own convenience, not part of the specified
// ABI. The Windows toolchain (link) is not used. If either tool is missing
// from PATH, it prints a note and leaves only the listing.
func linkListing(ctx context.Context, stdio mainer.Stdio, asmPath string) error {
	opts, err := x64.OptionsFromEnv()
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	nasm, err := exec.LookPath(opts.Nasm)
	if err != nil {
		fmt.Fprintf(stdio.Stdout, "note: %q not found on PATH, listing only: %s\n", opts.Nasm, asmPath)
		return nil
	}
	cc, err := exec.LookPath(opts.CC)
	if err != nil {
		fmt.Fprintf(stdio.Stdout, "note: %q not found on PATH, listing only: %s\n", opts.CC, asmPath)
		return nil
	}

	objPath := asmPath + ".o"
	nasmCmd := exec.CommandContext(ctx, nasm, "-f", "elf64", asmPath, "-o", objPath)
	nasmCmd.Stdout, nasmCmd.Stderr = stdio.Stdout, stdio.Stderr
	if err := nasmCmd.Run(); err != nil {
		return err
	}

	exePath := asmPath + ".out"
	ccCmd := exec.CommandContext(ctx, cc, objPath, "-o", exePath)
	ccCmd.Stdout, ccCmd.Stderr = stdio.Stdout, stdio.Stderr
	if err := ccCmd.Run(); err != nil {
		return err
	}

	fmt.Fprintln(stdio.Stdout, exePath)
	return nil
}
