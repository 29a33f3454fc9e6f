package template

import (
	"strconv"
	"strings"
)

// reservedPrefixes are resolved through collaborator-supplied mechanisms
// rather than the plain variable map. Their payload may contain almost any
// character (CSS selectors, prose), so a reserved identifier consumes the
// rest of the expression up to the next top-level pipe.
var reservedPrefixes = []string{"selector:", "schema:", "prompt:"}

func reservedPrefix(name string) (string, bool) {
	for _, p := range reservedPrefixes {
		if strings.HasPrefix(name, p) {
			return p, true
		}
	}
	return "", false
}

// exprParser is a recursive-descent parser over the raw text of a single
// tag. Precedence, low to high:
//
//	?? -> or -> and -> not (prefix) -> comparison (non-associative)
//	   -> filter pipe (left-associative) -> primary
type exprParser struct {
	src  string
	i    int
	base int // offset of src within the template, for diagnostics
}

func parseExpression(src string, base int) (Expr, *ParseError) {
	p := &exprParser{src: src, base: base}
	e, err := p.parseCoalesce()
	if err != nil {
		return nil, err
	}
	p.skipWS()
	if p.i < len(p.src) {
		return nil, parseErrorf(p.pos(), "unexpected %q in expression", p.src[p.i:])
	}
	return e, nil
}

func (p *exprParser) pos() int { return p.base + p.i }

func (p *exprParser) skipWS() {
	for p.i < len(p.src) && isSpace(p.src[p.i]) {
		p.i++
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentByte(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}

// keyword consumes kw if it appears at the cursor followed by a
// non-identifier byte.
func (p *exprParser) keyword(kw string) bool {
	p.skipWS()
	end := p.i + len(kw)
	if end > len(p.src) || p.src[p.i:end] != kw {
		return false
	}
	if end < len(p.src) && isIdentByte(p.src[end]) {
		return false
	}
	p.i = end
	return true
}

func (p *exprParser) parseCoalesce() (Expr, *ParseError) {
	left, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWS()
		if !strings.HasPrefix(p.src[p.i:], "??") {
			return left, nil
		}
		pos := p.pos()
		p.i += 2
		right, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		left = &Binary{Pos: pos, Op: "??", Left: left, Right: right}
	}
}

func (p *exprParser) parseOr() (Expr, *ParseError) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.keyword("or") {
		pos := p.pos()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Binary{Pos: pos, Op: "or", Left: left, Right: right}
	}
	return left, nil
}

func (p *exprParser) parseAnd() (Expr, *ParseError) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.keyword("and") {
		pos := p.pos()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &Binary{Pos: pos, Op: "and", Left: left, Right: right}
	}
	return left, nil
}

func (p *exprParser) parseNot() (Expr, *ParseError) {
	if p.keyword("not") {
		pos := p.pos()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Unary{Pos: pos, Op: "not", Operand: operand}, nil
	}
	return p.parseComparison()
}

// parseComparison applies at most one comparison operator; chaining a second
// one (a < b < c) is a parse error surfaced as trailing garbage.
func (p *exprParser) parseComparison() (Expr, *ParseError) {
	left, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	p.skipWS()
	var op string
	switch {
	case strings.HasPrefix(p.src[p.i:], "=="):
		op = "=="
	case strings.HasPrefix(p.src[p.i:], "!="):
		op = "!="
	case strings.HasPrefix(p.src[p.i:], ">="):
		op = ">="
	case strings.HasPrefix(p.src[p.i:], "<="):
		op = "<="
	case strings.HasPrefix(p.src[p.i:], ">"):
		op = ">"
	case strings.HasPrefix(p.src[p.i:], "<"):
		op = "<"
	default:
		if p.keyword("contains") {
			op = "contains"
		}
	}
	if op == "" {
		return left, nil
	}
	pos := p.pos()
	if op != "contains" {
		p.i += len(op)
	}
	right, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	return &Binary{Pos: pos, Op: op, Left: left, Right: right}, nil
}

func (p *exprParser) parsePipe() (Expr, *ParseError) {
	value, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWS()
		if p.i >= len(p.src) || p.src[p.i] != '|' {
			return value, nil
		}
		pos := p.pos()
		p.i++
		p.skipWS()
		start := p.i
		for p.i < len(p.src) && (isIdentByte(p.src[p.i])) {
			p.i++
		}
		name := p.src[start:p.i]
		if name == "" {
			return nil, parseErrorf(pos, "expected filter name after '|'")
		}
		var rawArgs string
		if p.i < len(p.src) && p.src[p.i] == ':' {
			p.i++
			rawArgs = p.scanBalancedUntilPipe()
		}
		args := parseFilterArgs(rawArgs, p.base+p.i-len(rawArgs))
		value = &FilterExpr{Pos: pos, Name: name, Value: value, Args: args, RawArgs: strings.TrimSpace(rawArgs)}
	}
}

// scanBalancedUntilPipe consumes text up to the next top-level '|', honoring
// quoted strings, backslash escapes, and bracket nesting.
func (p *exprParser) scanBalancedUntilPipe() string {
	start := p.i
	depth := 0
	var inStr byte
	for p.i < len(p.src) {
		c := p.src[p.i]
		if inStr != 0 {
			if c == '\\' && p.i+1 < len(p.src) {
				p.i += 2
				continue
			}
			if c == inStr {
				inStr = 0
			}
			p.i++
			continue
		}
		switch c {
		case '\'', '"':
			inStr = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case '|':
			if depth == 0 {
				return p.src[start:p.i]
			}
		}
		p.i++
	}
	return p.src[start:p.i]
}

func (p *exprParser) parsePrimary() (Expr, *ParseError) {
	p.skipWS()
	if p.i >= len(p.src) {
		return nil, parseErrorf(p.pos(), "unexpected end of expression")
	}
	pos := p.pos()
	c := p.src[p.i]

	switch {
	case c == '(':
		p.i++
		inner, err := p.parseCoalesce()
		if err != nil {
			return nil, err
		}
		p.skipWS()
		if p.i >= len(p.src) || p.src[p.i] != ')' {
			return nil, parseErrorf(p.pos(), "missing ')'")
		}
		p.i++
		return p.parseMemberSuffix(&Group{Pos: pos, Inner: inner})
	case c == '\'' || c == '"':
		s, err := p.scanString()
		if err != nil {
			return nil, err
		}
		return &Literal{Pos: pos, Value: s, Quoted: true}, nil
	case c >= '0' && c <= '9', c == '-' && p.i+1 < len(p.src) && p.src[p.i+1] >= '0' && p.src[p.i+1] <= '9':
		return p.scanNumber()
	}

	// Reserved-prefix identifiers swallow the rest of the segment: selectors
	// and prompt text contain spaces and punctuation.
	for _, prefix := range reservedPrefixes {
		if strings.HasPrefix(p.src[p.i:], prefix) {
			raw := p.scanBalancedUntilPipe()
			return &Identifier{Pos: pos, Name: strings.TrimSpace(raw)}, nil
		}
	}

	if p.keyword("true") {
		return &Literal{Pos: pos, Value: true}, nil
	}
	if p.keyword("false") {
		return &Literal{Pos: pos, Value: false}, nil
	}
	if p.keyword("null") || p.keyword("none") {
		return &Literal{Pos: pos, Value: nil}, nil
	}

	if !isIdentStart(c) {
		return nil, parseErrorf(pos, "unexpected %q in expression", string(c))
	}
	start := p.i
	for p.i < len(p.src) && isIdentByte(p.src[p.i]) {
		p.i++
	}
	ident := &Identifier{Pos: pos, Name: p.src[start:p.i]}
	return p.parseMemberSuffix(ident)
}

func (p *exprParser) parseMemberSuffix(object Expr) (Expr, *ParseError) {
	for p.i < len(p.src) {
		switch p.src[p.i] {
		case '.':
			pos := p.pos()
			p.i++
			start := p.i
			for p.i < len(p.src) && isIdentByte(p.src[p.i]) {
				p.i++
			}
			if p.i == start {
				return nil, parseErrorf(pos, "expected property name after '.'")
			}
			object = &Member{
				Pos:      pos,
				Object:   object,
				Property: &Literal{Pos: pos + 1, Value: p.src[start:p.i]},
			}
		case '[':
			pos := p.pos()
			p.i++
			start := p.i
			depth := 1
			var inStr byte
			for p.i < len(p.src) && depth > 0 {
				b := p.src[p.i]
				if inStr != 0 {
					if b == inStr {
						inStr = 0
					}
				} else if b == '\'' || b == '"' {
					inStr = b
				} else if b == '[' {
					depth++
				} else if b == ']' {
					depth--
				}
				p.i++
			}
			if depth > 0 {
				return nil, parseErrorf(pos, "missing ']'")
			}
			inner, err := parseExpression(p.src[start:p.i-1], p.base+start)
			if err != nil {
				return nil, err
			}
			object = &Member{Pos: pos, Object: object, Property: inner, Computed: true}
		default:
			return object, nil
		}
	}
	return object, nil
}

func (p *exprParser) scanString() (string, *ParseError) {
	quote := p.src[p.i]
	p.i++
	var b strings.Builder
	for p.i < len(p.src) {
		c := p.src[p.i]
		if c == '\\' && p.i+1 < len(p.src) {
			b.WriteByte(p.src[p.i+1])
			p.i += 2
			continue
		}
		if c == quote {
			p.i++
			return b.String(), nil
		}
		b.WriteByte(c)
		p.i++
	}
	return "", parseErrorf(p.pos(), "unterminated string literal")
}

func (p *exprParser) scanNumber() (Expr, *ParseError) {
	pos := p.pos()
	start := p.i
	if p.src[p.i] == '-' {
		p.i++
	}
	seenDot := false
	for p.i < len(p.src) {
		c := p.src[p.i]
		if c == '.' && !seenDot && p.i+1 < len(p.src) && p.src[p.i+1] >= '0' && p.src[p.i+1] <= '9' {
			seenDot = true
			p.i++
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		p.i++
	}
	text := p.src[start:p.i]
	if seenDot {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, parseErrorf(pos, "invalid number %q", text)
		}
		return &Literal{Pos: pos, Value: f}, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, parseErrorf(pos, "invalid number %q", text)
	}
	return &Literal{Pos: pos, Value: n}, nil
}

// parseFilterArgs splits a raw parameter string on top-level commas and
// parses each piece as an argument expression. Pieces that are not literals
// or identifiers stay as raw text so filters can apply their own grammar.
func parseFilterArgs(raw string, base int) []Expr {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var args []Expr
	for _, piece := range splitTopLevel(raw, ',') {
		args = append(args, parseFilterArg(piece, base))
	}
	return args
}

func parseFilterArg(raw string, base int) Expr {
	s := strings.TrimSpace(raw)
	if len(s) >= 2 {
		if q := s[0]; (q == '\'' || q == '"') && s[len(s)-1] == q {
			return &Literal{Pos: base, Value: unescape(s[1 : len(s)-1]), Quoted: true}
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &Literal{Pos: base, Value: n}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return &Literal{Pos: base, Value: f}
	}
	if s == "true" {
		return &Literal{Pos: base, Value: true}
	}
	if s == "false" {
		return &Literal{Pos: base, Value: false}
	}
	if isIdentName(s) {
		return &Identifier{Pos: base, Name: s}
	}
	return &Literal{Pos: base, Value: s}
}

func isIdentName(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentByte(s[i]) && s[i] != '.' {
			return false
		}
	}
	return true
}

// splitTopLevel splits s on sep, honoring quotes, backslash escapes, and
// bracket nesting. Separators inside any of those are opaque.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	var b strings.Builder
	depth := 0
	var inStr byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr != 0 {
			b.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				b.WriteByte(s[i+1])
				i++
				continue
			}
			if c == inStr {
				inStr = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			inStr = c
			b.WriteByte(c)
		case '(', '[', '{':
			depth++
			b.WriteByte(c)
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
			b.WriteByte(c)
		case sep:
			if depth == 0 {
				parts = append(parts, b.String())
				b.Reset()
			} else {
				b.WriteByte(c)
			}
		default:
			b.WriteByte(c)
		}
	}
	parts = append(parts, b.String())
	return parts
}

func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			b.WriteByte(s[i+1])
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
