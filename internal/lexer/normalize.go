package lexer

import (
	"regexp"
	"strings"
)

// wsRe collapses any run of whitespace down to a single space.
var wsRe = regexp.MustCompile(`\s+`)

// NormalizeLine strips a `%` comment, trims, collapses internal whitespace,
// and uppercases — except string-sigil digits are case-insensitive already,
// so uppercasing never touches preserved string contents (spec.md §4.2:
// "Lines are case-insensitive and normalized to upper case except for
// string contents, which are preserved through the sigil mechanism").
func NormalizeLine(line string) string {
	if idx := strings.IndexByte(line, '%'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	line = wsRe.ReplaceAllString(line, " ")
	return strings.ToUpper(line)
}

// loadRe matches a LOAD declaration once a line has been normalized:
// `LOAD <path> <ALIAS>`.
var loadRe = regexp.MustCompile(`^LOAD (\S+) (\S+)$`)

// LoadDecl is one parsed `LOAD <path> <ALIAS>` declaration.
type LoadDecl struct {
	Path  string
	Alias string
}

// MatchLoad recognizes a normalized line as a LOAD declaration.
func MatchLoad(line string) (LoadDecl, bool) {
	m := loadRe.FindStringSubmatch(line)
	if m == nil {
		return LoadDecl{}, false
	}
	return LoadDecl{Path: m[1], Alias: m[2]}, true
}

// labelRe matches the label-shape grammar: [A-Z0-9_.]+ (already uppercased).
var labelRe = regexp.MustCompile(`^[A-Z0-9_.]+$`)

// MatchLabel recognizes a normalized line ending in ':' as a label
// declaration and validates its shape.
func MatchLabel(line string) (label string, ok bool, validShape bool) {
	if !strings.HasSuffix(line, ":") {
		return "", false, false
	}
	label = line[:len(line)-1]
	return label, true, labelRe.MatchString(label)
}
