package expkeys

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Stage names reported in ParseError.Stage.
const (
	stageEncoding    = "encoding"
	stageComments    = "comments"
	stageAssignment  = "assignment"
	stageValues      = "values"
	stageApostrophes = "apostrophes"
	stageDecode      = "decode"
)

// placeholder stands in for apostrophes inside double-quoted strings until
// the final decode. Documents may not contain it.
const placeholder = '\uE000'

// line is one physical line of a document with its 1-indexed source line.
type line struct {
	num  int
	text string
}

func stageError(stage string, ln line, col int, format string, args ...any) *ParseError {
	return &ParseError{
		Stage:   stage,
		Message: fmt.Sprintf(format, args...),
		Line:    ln.num,
		Column:  col,
	}
}

// mapSegments rebuilds s, replacing each segment with fn's result.
func mapSegments(s string, fn func(seg Segment, i int) string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i, seg := range lexLine(s, false) {
		b.WriteString(fn(seg, i))
	}
	return b.String()
}

func splitLines(src string) []line {
	src = strings.TrimPrefix(src, "\uFEFF")
	parts := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
	out := make([]line, len(parts))
	for i, p := range parts {
		out[i] = line{num: i + 1, text: p}
	}
	return out
}

// --- Stage 1: comments ---

// stripComments removes everything from the first unquoted % to the end of
// each line. A string still open at the end of a line is an error unless it
// opens in text that clipTerminators discards.
func stripComments(lines []line) ([]line, error) {
	out := make([]line, 0, len(lines))
	for _, ln := range lines {
		segs := lexLine(ln.text, true)
		if seg, open := openString(segs); open {
			cut := clipOffset(ln.text)
			if cut < 0 || cut > seg.Col-1 {
				return nil, stageError(stageComments, ln, seg.Col, "unterminated string starting with %c", seg.Text[0])
			}
			segs = lexLine(ln.text[:cut], true)
		}
		var b strings.Builder
		for _, seg := range segs {
			if seg.Kind != SegComment {
				b.WriteString(seg.Text)
			}
		}
		out = append(out, line{num: ln.num, text: b.String()})
	}
	return out, nil
}

// --- Stage 2: blank lines ---

// collapseBlankLines drops empty and whitespace-only lines and trims
// trailing whitespace from the rest.
func collapseBlankLines(lines []line) []line {
	out := make([]line, 0, len(lines))
	for _, ln := range lines {
		text := strings.TrimRight(ln.text, " \t\r\f\v")
		if strings.TrimSpace(text) == "" {
			continue
		}
		out = append(out, line{num: ln.num, text: text})
	}
	return out
}

// --- Stage 3: terminators ---

// clipTerminators discards each line's content after its first unquoted
// semicolon. A further ExpKeys statement on the same line is kept as its own
// line.
func clipTerminators(lines []line) []line {
	out := make([]line, 0, len(lines))
	for _, ln := range lines {
		text := ln.text
		for {
			i := indexUnquoted(text, ';')
			if i < 0 {
				out = appendNonBlank(out, line{num: ln.num, text: text})
				break
			}
			out = appendNonBlank(out, line{num: ln.num, text: strings.TrimRight(text[:i], " \t")})
			rest := strings.TrimSpace(text[i+1:])
			if !strings.HasPrefix(rest, StatementPrefix) {
				break
			}
			text = rest
		}
	}
	return out
}

// clipOffset returns the offset just past the semicolon after which
// clipTerminators discards the rest of s, or -1 if nothing is discarded.
func clipOffset(s string) int {
	base := 0
	for {
		i := indexUnquoted(s[base:], ';')
		if i < 0 {
			return -1
		}
		base += i + 1
		if !strings.HasPrefix(strings.TrimSpace(s[base:]), StatementPrefix) {
			return base
		}
	}
}

func appendNonBlank(out []line, ln line) []line {
	if strings.TrimSpace(ln.text) == "" {
		return out
	}
	return append(out, ln)
}

// --- Stage 4: prefix and assignment ---

var (
	assignmentRE = regexp.MustCompile(`^\s*ExpKeys\.([A-Za-z_]\w*(?:\.[A-Za-z_]\w*)*)\s*=(\s*)(.*)$`)
	prefixRE     = regexp.MustCompile(`^\s*ExpKeys\.`)
)

// rewriteAssignments turns `ExpKeys.key = value` into `"key": value`.
func rewriteAssignments(lines []line) ([]line, error) {
	out := make([]line, 0, len(lines))
	for _, ln := range lines {
		m := assignmentRE.FindStringSubmatch(ln.text)
		if m == nil {
			switch {
			case !prefixRE.MatchString(ln.text):
				return nil, stageError(stageAssignment, ln, 0, "expected %s<key> = <value>", StatementPrefix)
			case indexUnquoted(ln.text, '=') < 0:
				return nil, stageError(stageAssignment, ln, 0, "missing '=' in assignment")
			default:
				return nil, stageError(stageAssignment, ln, 0, "invalid key name")
			}
		}
		value := strings.TrimSpace(m[3])
		if value == "" {
			return nil, stageError(stageAssignment, ln, 0, "missing value for key %q", m[1])
		}
		out = append(out, line{num: ln.num, text: `"` + m[1] + `":` + m[2] + value})
	}
	return out, nil
}

// --- Stage 5: unary plus ---

var unaryPlusRE = regexp.MustCompile(`(^|[\s,:\[{(])\+\s*(\d)`)

// stripUnaryPlus removes a unary + in front of digits outside strings.
func stripUnaryPlus(lines []line) []line {
	out := make([]line, len(lines))
	for i, ln := range lines {
		text := mapSegments(ln.text, func(seg Segment, n int) string {
			if seg.Kind != SegBare {
				return seg.Text
			}
			if n > 0 {
				// A closing quote precedes this run, so a leading + is binary.
				return unaryPlusRE.ReplaceAllString("\x00"+seg.Text, "${1}${2}")[1:]
			}
			return unaryPlusRE.ReplaceAllString(seg.Text, "${1}${2}")
		})
		out[i] = line{num: ln.num, text: text}
	}
	return out
}

// --- Stage 6: colon spacing and bare values ---

var keyColonRE = regexp.MustCompile(`^("[^"]*"):\s*`)

// normalizeColonSpacing leaves exactly one space after the key's colon.
func normalizeColonSpacing(lines []line) []line {
	out := make([]line, len(lines))
	for i, ln := range lines {
		out[i] = line{num: ln.num, text: keyColonRE.ReplaceAllString(ln.text, "${1}: ")}
	}
	return out
}

// quoteBareWords turns unquoted values that are not plain decimal literals
// into JSON strings and separates list elements with commas.
func quoteBareWords(lines []line) ([]line, error) {
	out := make([]line, len(lines))
	for i, ln := range lines {
		loc := keyColonRE.FindStringIndex(ln.text)
		if loc == nil {
			return nil, stageError(stageValues, ln, 0, "expected key before value")
		}
		value, err := normalizeValue(ln.text[loc[1]:])
		if err != nil {
			return nil, stageError(stageValues, ln, 0, "%v", err)
		}
		out[i] = line{num: ln.num, text: ln.text[:loc[1]] + value}
	}
	return out, nil
}

func normalizeValue(v string) (string, error) {
	if strings.HasPrefix(v, "{") || strings.HasPrefix(v, "[") {
		return normalizeList(v)
	}
	segs := lexLine(v, false)
	if len(segs) != 1 || segs[0].Kind != SegBare {
		return v, nil
	}
	if isNumericLiteral(v) {
		return v, nil
	}
	return quoteJSON(v), nil
}

type atomKind int

const (
	atomElement atomKind = iota
	atomOpen
	atomClose
	atomComma
)

type atom struct {
	kind atomKind
	text string
}

// normalizeList rewrites a MATLAB cell or matrix literal so that elements
// are separated by ", " and bare elements are quoted or numeric.
func normalizeList(v string) (string, error) {
	var atoms []atom
	depth := 0
	for _, seg := range lexLine(v, false) {
		if seg.Kind != SegBare {
			atoms = append(atoms, atom{kind: atomElement, text: seg.Text})
			continue
		}
		s := seg.Text
		for i := 0; i < len(s); {
			switch ch := s[i]; {
			case ch == ' ' || ch == '\t':
				i++
			case ch == '{' || ch == '[':
				depth++
				atoms = append(atoms, atom{kind: atomOpen, text: string(ch)})
				i++
			case ch == '}' || ch == ']':
				depth--
				if depth < 0 {
					return "", fmt.Errorf("unbalanced %q in list", ch)
				}
				atoms = append(atoms, atom{kind: atomClose, text: string(ch)})
				i++
			case ch == ',':
				atoms = append(atoms, atom{kind: atomComma, text: ","})
				i++
			default:
				j := i
				for j < len(s) && !strings.ContainsRune(" \t{}[],", rune(s[j])) {
					j++
				}
				word := s[i:j]
				if !isNumericLiteral(word) {
					word = quoteJSON(word)
				}
				atoms = append(atoms, atom{kind: atomElement, text: word})
				i = j
			}
		}
	}
	if depth != 0 {
		return "", fmt.Errorf("unbalanced brackets in list")
	}

	var b strings.Builder
	var prev *atom
	for i := range atoms {
		a := &atoms[i]
		if prev != nil && (prev.kind == atomElement || prev.kind == atomClose) &&
			(a.kind == atomElement || a.kind == atomOpen) {
			b.WriteString(", ")
		}
		if a.kind == atomComma {
			b.WriteString(", ")
		} else {
			b.WriteString(a.text)
		}
		prev = a
	}
	return b.String(), nil
}

// --- Stage 7: apostrophes ---

// neutralizeApostrophes swaps apostrophes inside double-quoted strings for
// the placeholder. They are restored when values are decoded.
func neutralizeApostrophes(lines []line) ([]line, error) {
	out := make([]line, len(lines))
	for i, ln := range lines {
		if strings.ContainsRune(ln.text, placeholder) {
			return nil, stageError(stageApostrophes, ln, 0, "reserved character %U in document", placeholder)
		}
		text := mapSegments(ln.text, func(seg Segment, _ int) string {
			if seg.Kind != SegDoubleQuoted {
				return seg.Text
			}
			return strings.ReplaceAll(seg.Text, "'", string(placeholder))
		})
		out[i] = line{num: ln.num, text: text}
	}
	return out, nil
}

func restoreApostrophes(s string) string {
	return strings.ReplaceAll(s, string(placeholder), "'")
}

// --- Stage 8: assembly ---

// assembly is the single JSON object built from all statements. starts and
// lines map each statement's byte offset back to its source line.
type assembly struct {
	text   string
	starts []int
	lines  []int
}

var bracketReplacer = strings.NewReplacer("{", "[", "}", "]")

// assemble converts single-quoted strings to JSON strings, cell braces to
// brackets, joins statements with ", " and wraps them in one object.
func assemble(lines []line) *assembly {
	a := &assembly{}
	var b strings.Builder
	b.WriteByte('{')
	for i, ln := range lines {
		if i > 0 {
			b.WriteString(", ")
		}
		a.starts = append(a.starts, b.Len())
		a.lines = append(a.lines, ln.num)
		b.WriteString(mapSegments(ln.text, convertSegment))
	}
	b.WriteByte('}')
	a.text = b.String()
	return a
}

func convertSegment(seg Segment, _ int) string {
	switch seg.Kind {
	case SegSingleQuoted:
		inner := seg.Text[1 : len(seg.Text)-1]
		return quoteJSON(strings.ReplaceAll(inner, "''", "'"))
	case SegDoubleQuoted:
		return escapeControl(seg.Text)
	case SegBare:
		return bracketReplacer.Replace(seg.Text)
	default:
		return seg.Text
	}
}

// lineAt returns the source line of the statement containing offset.
func (a *assembly) lineAt(offset int64) int {
	if len(a.starts) == 0 {
		return 0
	}
	i := sort.Search(len(a.starts), func(i int) bool { return int64(a.starts[i]) > offset })
	if i > 0 {
		i--
	}
	return a.lines[i]
}

// --- Stage 9: trailing commas ---

var trailingCommaRE = regexp.MustCompile(`,\s*[}\]]`)

// dropTrailingCommas removes commas that directly precede a closing
// bracket or brace, keeping statement offsets aligned.
func dropTrailingCommas(a *assembly) *assembly {
	var removed []int
	for _, seg := range lexLine(a.text, false) {
		if seg.Kind != SegBare {
			continue
		}
		for _, m := range trailingCommaRE.FindAllStringIndex(seg.Text, -1) {
			removed = append(removed, seg.Col-1+m[0])
		}
	}
	if len(removed) == 0 {
		return a
	}

	var b strings.Builder
	b.Grow(len(a.text))
	next := 0
	for i := 0; i < len(a.text); i++ {
		if next < len(removed) && removed[next] == i {
			next++
			continue
		}
		b.WriteByte(a.text[i])
	}

	starts := make([]int, len(a.starts))
	for i, s := range a.starts {
		shift := sort.SearchInts(removed, s)
		starts[i] = s - shift
	}
	return &assembly{text: b.String(), starts: starts, lines: a.lines}
}
