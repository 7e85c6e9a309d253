// Package loader implements the GOIF multi-file compiler: it turns a root
// source path (or an empty REPL seed) into a set of File entries keyed by
// a dense file id, with every statement parsed and every LineRef validated
// ahead of execution.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"goif/internal/ast"
	goiferrors "goif/internal/errors"
	"goif/internal/lexer"
	"goif/internal/parser"
)

// RootFid and StdFid are the two reserved file ids spec.md §3 calls out.
const (
	RootFid = 1
	StdFid  = 2
)

// StdAlias and MainAlias are the two aliases every file's alias table
// always carries, regardless of what it LOADs itself.
const (
	MainAlias = "MAIN"
	StdAlias  = "STD"
)

// File is one compiled source file: its statements indexed by line number,
// its labels, and the aliases it can address other files by.
type File struct {
	Fid         int
	Path        string
	DisplayName string
	Lines       map[int]ast.Stmt
	Labels      map[string]int
	AliasTable  map[string]int
	MaxLine     int
}

// Program is the result of a successful Load: every compiled file, keyed
// by fid, plus the shared string table every sigil in every file's AST
// resolves against.
type Program struct {
	Files       map[int]*File
	Strings     *lexer.StringTable
	LineCount   int
	stdGoifPath string

	rootDir    string
	installDir string
	pathToFid  map[string]int
	nextFid    int
}

type pendingFile struct {
	fid  int
	path string
}

// Load reads rootPath (empty for REPL mode: a synthetic empty MAIN file),
// transitively compiles every LOADed file, and runs the compile-time
// validation pass over every resolved LineRef. installDir is where
// std.goif lives alongside the goif binary.
func Load(rootPath, installDir string) (*Program, error) {
	table := lexer.NewStringTable()
	rootDir := "."
	if rootPath != "" {
		rootDir = filepath.Dir(rootPath)
	}
	prog := &Program{
		Files:       map[int]*File{},
		Strings:     table,
		stdGoifPath: filepath.Join(installDir, "std.goif"),
		rootDir:     rootDir,
		installDir:  installDir,
		pathToFid:   map[string]int{},
		nextFid:     StdFid + 1,
	}

	pathToFid := prog.pathToFid
	if rootPath != "" {
		pathToFid[rootPath] = RootFid
	}
	pathToFid[prog.stdGoifPath] = StdFid

	worklist := []pendingFile{{fid: RootFid, path: rootPath}}
	if rootPath == "" {
		// REPL seed: MAIN is empty, std is still loaded so STD: calls work.
		worklist = []pendingFile{{fid: StdFid, path: prog.stdGoifPath}}
		root := &File{Fid: RootFid, Path: "", DisplayName: "MAIN",
			Lines: map[int]ast.Stmt{}, Labels: map[string]int{"MAIN": 0},
			AliasTable: map[string]int{MainAlias: RootFid, StdAlias: StdFid}}
		prog.Files[RootFid] = root
	} else {
		worklist = append(worklist, pendingFile{fid: StdFid, path: prog.stdGoifPath})
	}

	for len(worklist) > 0 {
		cur := worklist[0]
		worklist = worklist[1:]
		if _, done := prog.Files[cur.fid]; done {
			continue
		}
		raw, err := os.ReadFile(cur.path)
		if err != nil {
			if cur.fid == StdFid {
				// std.goif is optional: programs that never reference
				// STD: targets don't need it to exist.
				prog.Files[StdFid] = emptyFile(StdFid, cur.path)
				continue
			}
			return nil, goiferrors.Wrap(err, cur.path, 0, "could not read source file")
		}

		file, newWork, err := compileFile(cur.fid, cur.path, string(raw), rootDir, installDir, table, pathToFid, &prog.nextFid)
		if err != nil {
			return nil, err
		}
		prog.Files[cur.fid] = file
		worklist = append(worklist, newWork...)
		prog.LineCount += len(file.Lines)
	}

	if err := validate(prog); err != nil {
		return nil, err
	}
	return prog, nil
}

func emptyFile(fid int, path string) *File {
	return &File{Fid: fid, Path: path, DisplayName: displayName(path, fid),
		Lines: map[int]ast.Stmt{}, Labels: map[string]int{"MAIN": 0},
		AliasTable: map[string]int{MainAlias: RootFid, StdAlias: StdFid}}
}

func displayName(path string, fid int) string {
	if fid == RootFid && path == "" {
		return "MAIN"
	}
	return path
}

// compileFile runs the loader algorithm from spec.md §4.3 steps 2–5 over
// one file's source text: string-preservation, LOAD-extraction, then
// per-line label/statement classification. It returns the compiled File
// plus any newly discovered LOAD targets to enqueue.
func compileFile(fid int, path, raw, rootDir, installDir string, table *lexer.StringTable, pathToFid map[string]int, nextFid *int) (*File, []pendingFile, error) {
	code := lexer.PreserveStrings(raw, table)

	file := &File{
		Fid:         fid,
		Path:        path,
		DisplayName: displayName(path, fid),
		Lines:       map[int]ast.Stmt{},
		Labels:      map[string]int{},
		AliasTable:  map[string]int{MainAlias: RootFid, StdAlias: StdFid},
	}

	var newWork []pendingFile
	rawLines := strings.Split(code, "\n")
	for i, raw := range rawLines {
		ln := i + 1
		norm := lexer.NormalizeLine(raw)
		if norm == "" {
			continue
		}
		if decl, ok := lexer.MatchLoad(norm); ok {
			// norm is uppercased; the path keeps its case from the source.
			decl.Path = strings.Fields(strings.SplitN(raw, "%", 2)[0])[1]
			target := resolveLoadPath(decl.Path, rootDir, installDir)
			loadFid, seen := pathToFid[target]
			if !seen {
				loadFid = *nextFid
				*nextFid++
				pathToFid[target] = loadFid
				newWork = append(newWork, pendingFile{fid: loadFid, path: target})
			}
			file.AliasTable[decl.Alias] = loadFid
			continue
		}
		if label, isLabel, validShape := lexer.MatchLabel(norm); isLabel {
			if !validShape {
				return nil, nil, goiferrors.NewCompileError(file.DisplayName, ln, "invalid label name: '%s'", label)
			}
			if _, dup := file.Labels[label]; dup {
				return nil, nil, goiferrors.NewCompileError(file.DisplayName, ln, "label '%s' appeared at least twice", label)
			}
			file.Labels[label] = ln
			continue
		}
		stmt, err := parser.ParseStatement(norm)
		if err != nil {
			return nil, nil, goiferrors.NewCompileError(file.DisplayName, ln, "invalid statement: %v", err)
		}
		file.Lines[ln] = stmt
		if ln > file.MaxLine {
			file.MaxLine = ln
		}
	}

	// spec.md §9 "MAIN default": a file with no explicit MAIN: label
	// implicitly starts at line 1 — 0 only for a genuinely empty program.
	if _, ok := file.Labels["MAIN"]; !ok {
		if file.MaxLine == 0 {
			file.Labels["MAIN"] = 0
		} else {
			file.Labels["MAIN"] = 1
		}
	}
	return file, newWork, nil
}

// resolveLoadPath resolves a LOAD target relative to the root source's
// directory, except std.goif which always resolves against installDir
// (spec.md §6 "Source file format").
func resolveLoadPath(path, rootDir, installDir string) string {
	if filepath.Base(path) == "std.goif" && !strings.Contains(path, "/") {
		return filepath.Join(installDir, "std.goif")
	}
	if strings.Contains(path, "/") {
		return path
	}
	return filepath.Join(rootDir, path)
}

// validate runs the compile-time LineRef resolution pass (spec.md §4.3
// step 6): every stored statement's LineRef operands are checked
// structurally, without evaluating any expression.
func validate(prog *Program) error {
	for _, file := range prog.Files {
		for ln, stmt := range file.Lines {
			for _, ref := range lineRefsOf(stmt) {
				if err := validateRef(prog, file, ln, ref); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func validateRef(prog *Program, file *File, ln int, ref ast.LineRef) error {
	target := file
	if ref.Alias != "" {
		fid, ok := file.AliasTable[ref.Alias]
		if !ok {
			return goiferrors.NewCompileError(file.DisplayName, ln, "unknown file alias '%s'", ref.Alias)
		}
		target = prog.Files[fid]
	}
	if ref.Kind == ast.RefRelative && ref.Alias != "" {
		// Design Notes §9 open question, resolved: cross-file relative
		// references are ambiguous, so they are rejected at compile time.
		return goiferrors.NewCompileError(file.DisplayName, ln, "relative line reference '~%d' cannot cross a file alias ('%s:')", ref.N, ref.Alias)
	}
	if ref.Kind != ast.RefLabel {
		return nil // ^N and ~±N accepted unconditionally at compile time
	}
	if _, ok := target.Labels[ref.Label]; !ok {
		return goiferrors.NewCompileError(file.DisplayName, ln, "undefined label '%s' in file '%s'", ref.Label, target.DisplayName)
	}
	return nil
}

// LoadAlias compiles path (if not already known) and attaches it to the
// root file's alias table under alias — the REPL's special-cased `LOAD
// <path> <ALIAS>` handling described in spec.md §6.
func (p *Program) LoadAlias(path, alias string) error {
	target := resolveLoadPath(path, p.rootDir, p.installDir)
	fid, known := p.pathToFid[target]
	if !known {
		raw, err := os.ReadFile(target)
		if err != nil {
			return goiferrors.Wrap(err, target, 0, "could not read source file")
		}
		fid = p.nextFid
		p.nextFid++
		p.pathToFid[target] = fid
		file, newWork, err := compileFile(fid, target, string(raw), p.rootDir, p.installDir, p.Strings, p.pathToFid, &p.nextFid)
		if err != nil {
			return err
		}
		p.Files[fid] = file
		p.LineCount += len(file.Lines)
		for _, w := range newWork {
			if err := p.loadPending(w); err != nil {
				return err
			}
		}
	}
	p.Files[RootFid].AliasTable[alias] = fid
	return validate(p)
}

func (p *Program) loadPending(pf pendingFile) error {
	if _, done := p.Files[pf.fid]; done {
		return nil
	}
	raw, err := os.ReadFile(pf.path)
	if err != nil {
		return goiferrors.Wrap(err, pf.path, 0, "could not read source file")
	}
	file, newWork, err := compileFile(pf.fid, pf.path, string(raw), p.rootDir, p.installDir, p.Strings, p.pathToFid, &p.nextFid)
	if err != nil {
		return err
	}
	p.Files[pf.fid] = file
	p.LineCount += len(file.Lines)
	for _, w := range newWork {
		if err := p.loadPending(w); err != nil {
			return err
		}
	}
	return nil
}

// lineRefsOf extracts every LineRef embedded in one statement.
func lineRefsOf(stmt ast.Stmt) []ast.LineRef {
	switch s := stmt.(type) {
	case *ast.GoStmt:
		return []ast.LineRef{s.Target}
	case *ast.GoIfStmt:
		return []ast.LineRef{s.Target}
	case *ast.JumpStmt:
		refs := []ast.LineRef{s.Target}
		for _, h := range s.Handlers {
			refs = append(refs, h.Target)
		}
		return refs
	default:
		return nil
	}
}

// Summary renders a humanized compile diagnostic, e.g. after a successful
// Load, of the shape DOMAIN STACK names go-humanize for.
func (p *Program) Summary() string {
	return fmt.Sprintf("loaded %s lines across %s files",
		humanize.Comma(int64(p.LineCount)), humanize.Comma(int64(len(p.Files))))
}
