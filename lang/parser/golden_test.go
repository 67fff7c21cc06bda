package parser_test

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/noxlang/nox/internal/filetest"
	"github.com/noxlang/nox/lang/ast"
	"github.com/noxlang/nox/lang/parser"
)

var testUpdateParserTests = flag.Bool("test.update-parser-tests", false, "If set, replace expected parser golden results with actual results.")

// TestParserGolden parses every .nox fixture in testdata/in and compares the
// printed AST (and any parse errors) against the golden files in
// testdata/out, in the same style as the teacher's own filetest-driven
// parser tests.
func TestParserGolden(t *testing.T) {
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, fi := range filetest.SourceFiles(t, srcDir, ".nox") {
		fi := fi
		t.Run(fi.Name(), func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join(srcDir, fi.Name()))
			if err != nil {
				t.Fatal(err)
			}

			prog, perr := parser.Parse(src)

			var buf bytes.Buffer
			if err := (&ast.Printer{Output: &buf}).Print(prog); err != nil {
				t.Fatal(err)
			}

			var errBuf string
			if perr != nil {
				errBuf = perr.Error() + "\n"
			}

			filetest.DiffOutput(t, fi, buf.String(), resultDir, testUpdateParserTests)
			filetest.DiffErrors(t, fi, errBuf, resultDir, testUpdateParserTests)
		})
	}
}
