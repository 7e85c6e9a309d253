package loader

import (
	"os"
	"path/filepath"
	"testing"

	"goif/internal/ast"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func assertLoadSuccess(t *testing.T, rootPath, installDir, description string) *Program {
	t.Helper()
	prog, err := Load(rootPath, installDir)
	if err != nil {
		t.Errorf("%s: Load failed: %v", description, err)
		return nil
	}
	return prog
}

func assertLoadError(t *testing.T, rootPath, installDir, description string) {
	t.Helper()
	if _, err := Load(rootPath, installDir); err == nil {
		t.Errorf("%s: expected Load to fail but it succeeded", description)
	}
}

func TestSingleFileNoExplicitMain(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "main.goif", `1 INTO X
X INTO STDOUT`)
	prog := assertLoadSuccess(t, root, dir, "single file, implicit MAIN")
	if prog == nil {
		return
	}
	main := prog.Files[RootFid]
	if main.Labels["MAIN"] != 1 {
		t.Errorf("expected implicit MAIN at line 1, got %d", main.Labels["MAIN"])
	}
	if len(main.Lines) != 2 {
		t.Errorf("expected 2 statements, got %d", len(main.Lines))
	}
}

func TestEmptyProgramMainIsZero(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "empty.goif", "")
	prog := assertLoadSuccess(t, root, dir, "empty program")
	if prog == nil {
		return
	}
	if prog.Files[RootFid].Labels["MAIN"] != 0 {
		t.Errorf("expected MAIN=0 for an empty program, got %d", prog.Files[RootFid].Labels["MAIN"])
	}
}

func TestDuplicateLabelIsCompileError(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "dup.goif", `LOOP:
1 INTO X
LOOP:
X INTO STDOUT`)
	assertLoadError(t, root, dir, "duplicate label")
}

func TestUndefinedLabelReferenceIsCompileError(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "badref.goif", `GO NOWHERE`)
	assertLoadError(t, root, dir, "undefined label target")
}

func TestCrossFileLoadAndAlias(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lib.goif", `GREET:
"HI" INTO STDOUT
RETURN ()`)
	root := writeFile(t, dir, "root.goif", `LOAD lib.goif L
JUMP L:GREET ()`)
	prog := assertLoadSuccess(t, root, dir, "cross-file LOAD")
	if prog == nil {
		return
	}
	mainFile := prog.Files[RootFid]
	libFid, ok := mainFile.AliasTable["L"]
	if !ok {
		t.Fatalf("expected alias L to be registered")
	}
	libFile, ok := prog.Files[libFid]
	if !ok {
		t.Fatalf("expected fid %d to be compiled", libFid)
	}
	if _, ok := libFile.Labels["GREET"]; !ok {
		t.Errorf("expected lib.goif to have a GREET label")
	}
}

func TestUnknownAliasIsCompileError(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "badalias.goif", `JUMP FOO:BAR ()`)
	assertLoadError(t, root, dir, "reference to an undeclared alias")
}

func TestReplSeedLoadsStdOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "std.goif", `HELPER:
RETURN ()`)
	prog := assertLoadSuccess(t, "", dir, "REPL seed")
	if prog == nil {
		return
	}
	if _, ok := prog.Files[RootFid]; !ok {
		t.Errorf("expected an empty synthetic MAIN file")
	}
	if _, ok := prog.Files[StdFid]; !ok {
		t.Errorf("expected std.goif to be loaded")
	}
}

func TestMissingStdGoifIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "solo.goif", `"X" INTO STDOUT`)
	prog := assertLoadSuccess(t, root, dir, "no std.goif present")
	if prog == nil {
		return
	}
	if _, ok := prog.Files[StdFid]; !ok {
		t.Errorf("expected a synthetic empty std file even when std.goif is absent")
	}
}

func TestLineRefShapesValidated(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "refs.goif", `GO ^3
GO ~+1
X INTO STDOUT`)
	prog := assertLoadSuccess(t, root, dir, "absolute and relative refs")
	if prog == nil {
		return
	}
	stmt, ok := prog.Files[RootFid].Lines[1].(*ast.GoStmt)
	if !ok {
		t.Fatalf("expected line 1 to be a GoStmt, got %T", prog.Files[RootFid].Lines[1])
	}
	if stmt.Target.Kind != ast.RefAbsolute || stmt.Target.N != 3 {
		t.Errorf("expected absolute target ^3, got %#v", stmt.Target)
	}
}
