package main

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

// TestMain lets testscript re-exec this binary as the "goif" command inside
// each script, rather than shelling out to a separately built binary.
func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"goif": run,
	}))
}

// run calls main and reports exit status 0 when main returns; main itself
// calls os.Exit with a non-zero status on failure.
func run() int {
	main()
	return 0
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
	})
}
