// cmd/goif/main.go
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"

	goiferrors "goif/internal/errors"
	"goif/internal/loader"
	"goif/internal/repl"
	"goif/internal/vm"
)

const VERSION = "0.1.0"

func main() {
	args := os.Args[1:]

	var debug, unsafeJump, interactive bool
	var stdDir string
	var positional []string

	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--version" || a == "-v":
			fmt.Printf("goif %s\n", VERSION)
			os.Exit(0)
		case a == "--help" || a == "-h":
			showUsage()
			os.Exit(0)
		case a == "--std-dir":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "goif: --std-dir requires a directory argument")
				os.Exit(1)
			}
			stdDir = args[i]
		case isFlagCombo(a):
			// spec.md §6's combined short-flag forms: `-d`, `-j`, `-i`, and
			// any combination of the three in one token (`-ij`, `-idj`, ...).
			for _, r := range a[1:] {
				switch r {
				case 'd':
					debug = true
				case 'i':
					interactive = true
				case 'j':
					unsafeJump = true
				}
			}
		default:
			positional = append(positional, a)
		}
	}

	if stdDir == "" {
		exe, err := os.Executable()
		if err == nil {
			stdDir = filepath.Dir(exe)
		} else {
			stdDir = "."
		}
	}

	// `goif -i[dj]`: interactive REPL, with an optional file preloaded
	// before the first prompt (spec.md §6 "-i interactive REPL; optional
	// file preload").
	if interactive {
		var preload string
		if len(positional) > 0 {
			preload = positional[0]
		}
		if err := repl.Start(preload, stdDir, debug, unsafeJump, os.Stdin, os.Stdout, os.Stderr); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		os.Exit(0)
	}

	if len(positional) == 0 {
		if err := repl.Start("", stdDir, debug, unsafeJump, os.Stdin, os.Stdout, os.Stderr); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		os.Exit(0)
	}

	path := positional[0]
	progArgs := positional[1:]

	if debug {
		fmt.Fprintf(os.Stderr, "goif: starting run of '%s' at %s\n", path,
			strftime.Format("%Y-%m-%d %H:%M:%S", time.Now()))
	}

	prog, err := loader.Load(path, stdDir)
	if err != nil {
		reportFatal(err)
	}
	if debug {
		fmt.Fprintln(os.Stderr, prog.Summary())
	}

	e := vm.New(prog, os.Stdin, os.Stdout, os.Stderr)
	e.Debug = debug
	e.UnsafeJump = unsafeJump

	if err := e.Run(progArgs); err != nil {
		reportFatal(err)
	}
}

// isFlagCombo reports whether a is one of the short-flag tokens spec.md §6
// allows: a leading '-' followed by one or more of 'd', 'i', 'j', each
// appearing in any order and combination ("-d", "-ij", "-idj", ...).
func isFlagCombo(a string) bool {
	if len(a) < 2 || a[0] != '-' || a[1] == '-' {
		return false
	}
	return strings.Trim(a[1:], "dij") == ""
}

// reportFatal prints a fatal run error the way its concrete type demands —
// a GOIFError's "Error: <msg> (line N, file 'F')" followed by its
// github.com/pkg/errors cause (every GOIFError built by internal/errors
// carries one: the wrapped I/O error for Wrap, the message itself
// otherwise), or an Uncaught
// exception's "Uncaught exception '<NAME>' ... from JUMP ..." chain — and
// exits non-zero.
func reportFatal(err error) {
	switch e := err.(type) {
	case *goiferrors.GOIFError:
		fmt.Fprintln(os.Stderr, e.Unwind())
		if cause := e.Cause(); cause != nil {
			fmt.Fprintf(os.Stderr, "caused by: %+v\n", cause)
		}
	case *goiferrors.Uncaught:
		fmt.Fprintln(os.Stderr, e.Error())
	default:
		fmt.Fprintln(os.Stderr, "Error: "+err.Error())
	}
	os.Exit(1)
}

func showUsage() {
	fmt.Println(`goif - the GOIF interpreter

Usage:
  goif [-dij] <file.goif> [args...]
  goif -i[dj] [file.goif]        start an interactive REPL, optionally
                                  preloading a file first

Flags:
  -d                 trace every statement and store to stderr
  -j                 disable the 255-frame call stack limit
  -i                 start an interactive REPL (may combine with -d/-j,
                     e.g. -id, -ij, -idj)
  --std-dir <dir>    directory std.goif is loaded from (default: alongside
                     the binary)
  -v, --version      print the version and exit
  -h, --help         print this message and exit`)
}
