package expkeys

// SegmentKind identifies the runs a keys-file line is split into.
type SegmentKind int

const (
	SegBare SegmentKind = iota
	SegDoubleQuoted
	SegSingleQuoted
	SegComment
	SegError // unterminated string
)

// Segment is a run of one line that is either bare text, a quoted string
// (quotes included), or a trailing comment.
type Segment struct {
	Kind SegmentKind
	Text string
	Col  int // 1-indexed byte column
}

// lexer splits a single line into segments. Double-quoted strings honor
// backslash escapes; single-quoted strings follow MATLAB and treat a doubled
// quote as a literal apostrophe.
type lexer struct {
	src      string
	pos      int
	comments bool // when true, an unquoted % starts a comment
}

func newLexer(src string, comments bool) *lexer {
	return &lexer{src: src, comments: comments}
}

func (l *lexer) atEnd() bool { return l.pos >= len(l.src) }

func (l *lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) peekNext() byte {
	p := l.pos + 1
	if p >= len(l.src) {
		return 0
	}
	return l.src[p]
}

func (l *lexer) makeSegment(kind SegmentKind, start int) Segment {
	return Segment{Kind: kind, Text: l.src[start:l.pos], Col: start + 1}
}

// Next returns the next segment. ok is false at end of line.
func (l *lexer) Next() (Segment, bool) {
	if l.atEnd() {
		return Segment{}, false
	}
	switch ch := l.peek(); {
	case ch == '"':
		return l.scanDoubleQuoted(), true
	case ch == '\'':
		return l.scanSingleQuoted(), true
	case ch == '%' && l.comments:
		start := l.pos
		l.pos = len(l.src)
		return l.makeSegment(SegComment, start), true
	default:
		return l.scanBare(), true
	}
}

func (l *lexer) scanBare() Segment {
	start := l.pos
	for !l.atEnd() {
		ch := l.peek()
		if ch == '"' || ch == '\'' || (ch == '%' && l.comments) {
			break
		}
		l.pos++
	}
	return l.makeSegment(SegBare, start)
}

func (l *lexer) scanDoubleQuoted() Segment {
	start := l.pos
	l.pos++ // opening "
	for !l.atEnd() {
		switch l.peek() {
		case '\\':
			l.pos++
			if !l.atEnd() {
				l.pos++
			}
			continue
		case '"':
			l.pos++
			return l.makeSegment(SegDoubleQuoted, start)
		}
		l.pos++
	}
	return l.makeSegment(SegError, start)
}

func (l *lexer) scanSingleQuoted() Segment {
	start := l.pos
	l.pos++ // opening '
	for !l.atEnd() {
		if l.peek() == '\'' {
			if l.peekNext() == '\'' {
				l.pos += 2
				continue
			}
			l.pos++
			return l.makeSegment(SegSingleQuoted, start)
		}
		l.pos++
	}
	return l.makeSegment(SegError, start)
}

// lexLine splits s into segments. If a string is left open the final
// segment has kind SegError and runs to the end of the line.
func lexLine(s string, comments bool) []Segment {
	l := newLexer(s, comments)
	var segs []Segment
	for {
		seg, ok := l.Next()
		if !ok {
			return segs
		}
		segs = append(segs, seg)
		if seg.Kind == SegError {
			return segs
		}
	}
}

// openString reports the unterminated string segment, if any.
func openString(segs []Segment) (Segment, bool) {
	if n := len(segs); n > 0 && segs[n-1].Kind == SegError {
		return segs[n-1], true
	}
	return Segment{}, false
}

// indexUnquoted returns the byte offset of the first b outside any quoted
// string, or -1.
func indexUnquoted(s string, b byte) int {
	for _, seg := range lexLine(s, false) {
		if seg.Kind != SegBare {
			continue
		}
		for i := 0; i < len(seg.Text); i++ {
			if seg.Text[i] == b {
				return seg.Col - 1 + i
			}
		}
	}
	return -1
}
