package template

// The lexer scans template source and yields tokens for text and the two
// delimiter forms: interpolations {{ }} and statements {% %}. A '-'
// immediately inside a delimiter is recorded as a trim flag on the token
// and never emitted as content. The lexer is permissive: an unterminated
// tag runs to EOF and the parser reports the error with a position.

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokText
	tokVarStart  // {{ or {{-
	tokVarEnd    // }} or -}}
	tokStmtStart // {% or {%-
	tokStmtEnd   // %} or -%}
	tokContent   // content inside a tag (parser requests it)
)

type token struct {
	kind tokenKind
	val  string
	pos  int  // byte offset in source
	trim bool // '-' adjacent to the delimiter
}

type lexer struct {
	src []byte
	i   int
	n   int
}

func newLexer(src []byte) *lexer {
	return &lexer{src: src, n: len(src)}
}

func (l *lexer) at(s string) bool {
	if l.i+len(s) > l.n {
		return false
	}
	for j := 0; j < len(s); j++ {
		if l.src[l.i+j] != s[j] {
			return false
		}
	}
	return true
}

// nextTokenOutside scans in normal text context and emits either a text token
// up to the next opening delimiter, or an opening delimiter token, or EOF.
func (l *lexer) nextTokenOutside() token {
	if l.i >= l.n {
		return token{kind: tokEOF, pos: l.i}
	}
	start := l.i
	for l.i < l.n {
		if l.at("{{") || l.at("{%") {
			if l.i > start {
				return token{kind: tokText, val: string(l.src[start:l.i]), pos: start}
			}
			kind := tokVarStart
			if l.src[l.i+1] == '%' {
				kind = tokStmtStart
			}
			l.i += 2
			trim := false
			if l.i < l.n && l.src[l.i] == '-' {
				trim = true
				l.i++
			}
			return token{kind: kind, pos: start, trim: trim}
		}
		l.i++
	}
	if start < l.n {
		return token{kind: tokText, val: string(l.src[start:l.n]), pos: start}
	}
	return token{kind: tokEOF, pos: l.i}
}

// nextTokenInside scans inside a tag of the given closing kind, returning
// either tokContent chunks or the closing token. Quoted regions are opaque so
// a '}}' inside a string argument does not terminate the tag.
func (l *lexer) nextTokenInside(close tokenKind) token {
	if l.i >= l.n {
		return token{kind: tokEOF, pos: l.i}
	}
	start := l.i
	var inStr byte
	for l.i < l.n {
		c := l.src[l.i]
		if inStr != 0 {
			if c == '\\' && l.i+1 < l.n {
				l.i += 2
				continue
			}
			if c == inStr {
				inStr = 0
			}
			l.i++
			continue
		}
		if c == '\'' || c == '"' {
			inStr = c
			l.i++
			continue
		}
		end, width, trim := l.closer(close)
		if end {
			if l.i > start {
				return token{kind: tokContent, val: string(l.src[start:l.i]), pos: start}
			}
			l.i += width
			return token{kind: close, pos: start, trim: trim}
		}
		l.i++
	}
	// Unterminated tag; return remaining content then EOF.
	if start < l.n {
		return token{kind: tokContent, val: string(l.src[start:l.n]), pos: start}
	}
	return token{kind: tokEOF, pos: l.i}
}

// closer reports whether the scanner sits on the closing delimiter for the
// requested kind, along with its byte width and trim flag.
func (l *lexer) closer(close tokenKind) (ok bool, width int, trim bool) {
	switch close {
	case tokVarEnd:
		if l.at("-}}") {
			return true, 3, true
		}
		if l.at("}}") {
			return true, 2, false
		}
	case tokStmtEnd:
		if l.at("-%}") {
			return true, 3, true
		}
		if l.at("%}") {
			return true, 2, false
		}
	}
	return false, 0, false
}
