// internal/repl/repl.go
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"goif/internal/ast"
	"goif/internal/lexer"
	"goif/internal/loader"
	"goif/internal/parser"
	"goif/internal/vm"
)

// Start runs an interactive GOIF session. With preloadPath empty, it seeds a
// REPL-mode Program (MAIN empty, STD loaded); with preloadPath set, that
// file is loaded and run to completion first (spec.md §6 "-i interactive
// REPL; optional file preload"), so its labels, LOADed aliases, and any
// variables it leaves behind are available to lines typed at the prompt
// afterward. Each line is then evaluated against a persistent Evaluator,
// and the session ends when RETURN is typed with an empty call stack.
func Start(preloadPath, installDir string, debug, unsafeJump bool, in io.Reader, out, errOut io.Writer) error {
	prog, err := loader.Load(preloadPath, installDir)
	if err != nil {
		return err
	}

	interactive := isatty.IsTerminal(os.Stdin.Fd())
	if interactive {
		fmt.Fprintln(out, "GOIF REPL | type 'exit' to quit")
	}

	scanner := bufio.NewScanner(in)
	e := vm.New(prog, in, out, errOut)
	e.Debug = debug
	e.UnsafeJump = unsafeJump

	if preloadPath != "" {
		if rerr := e.Run(nil); rerr != nil {
			fmt.Fprintln(errOut, rerr.Error())
		}
	}

	for {
		if interactive {
			fmt.Fprint(out, ">>> ")
		}
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "exit" {
			break
		}

		norm := lexer.NormalizeLine(line)
		if norm == "" {
			continue
		}

		if decl, ok := lexer.MatchLoad(norm); ok {
			// norm is uppercased; the path keeps its case as typed.
			decl.Path = strings.Fields(strings.SplitN(line, "%", 2)[0])[1]
			if lerr := prog.LoadAlias(decl.Path, decl.Alias); lerr != nil {
				fmt.Fprintln(errOut, lerr.Error())
			}
			continue
		}

		stmt, perr := parser.ParseStatement(norm)
		if perr != nil {
			fmt.Fprintf(errOut, "parse error: %v\n", perr)
			continue
		}

		_, isReturn := stmt.(*ast.ReturnStmt)
		endsSession := isReturn && len(e.Stack) == 0

		if rerr := e.EvalLine(stmt); rerr != nil {
			fmt.Fprintln(errOut, rerr.Error())
			continue
		}
		if endsSession {
			return nil
		}
	}
	return nil
}
