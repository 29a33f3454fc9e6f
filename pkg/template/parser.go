package template

import (
	"strings"
)

// Parse parses a template string into an AST. It recognizes text,
// interpolations {{ expr }}, and the block statements if/elseif/else/endif,
// for/endfor, and set. A non-empty error slice means the template is
// structurally broken and must not be rendered.
func Parse(src string) ([]Node, []*ParseError) {
	p := &parser{l: newLexer([]byte(src))}
	nodes, _, _ := p.parseNodes(nil)
	return nodes, p.errs
}

type parser struct {
	l    *lexer
	errs []*ParseError
}

// endTag describes the statement that terminated a parseNodes call.
type endTag struct {
	name      string
	args      string
	pos       int
	trimLeft  bool // '-' on the end tag's opening delimiter
	trimRight bool // '-' on the end tag's closing delimiter
}

func (p *parser) errorf(pos int, format string, args ...any) {
	p.errs = append(p.errs, parseErrorf(pos, format, args...))
}

// parseNodes parses until a statement named in `until` is encountered. With a
// nil set it parses to EOF. Nesting is handled by recursion: an inner block's
// end tag is consumed by the inner call and can never terminate an outer
// block prematurely.
func (p *parser) parseNodes(until map[string]bool) (nodes []Node, end endTag, eof bool) {
	for {
		tok := p.l.nextTokenOutside()
		switch tok.kind {
		case tokEOF:
			return nodes, endTag{}, true
		case tokText:
			if tok.val != "" {
				nodes = append(nodes, &TextNode{Pos: tok.pos, Text: tok.val})
			}
		case tokVarStart:
			raw, closeTok, ok := p.readInside(tokVarEnd)
			if !ok {
				p.errorf(tok.pos, "unterminated interpolation {{ ... }}")
				return nodes, endTag{}, true
			}
			raw = strings.TrimSpace(raw)
			node := &VariableNode{Pos: tok.pos, Raw: raw, TrimLeft: tok.trim, TrimRight: closeTok.trim}
			if raw == "" {
				p.errorf(tok.pos, "empty interpolation")
			} else if expr, err := parseExpression(raw, tok.pos+2); err != nil {
				p.errs = append(p.errs, err)
			} else {
				node.Expr = expr
			}
			nodes = append(nodes, node)
		case tokStmtStart:
			raw, closeTok, ok := p.readInside(tokStmtEnd)
			if !ok {
				p.errorf(tok.pos, "unterminated statement {%% ... %%}")
				return nodes, endTag{}, true
			}
			name, args := splitNameArgs(raw)
			if until[name] {
				return nodes, endTag{
					name: name, args: args, pos: tok.pos,
					trimLeft: tok.trim, trimRight: closeTok.trim,
				}, false
			}
			switch name {
			case "set":
				nodes = append(nodes, p.parseSet(args, tok, closeTok))
			case "if":
				n, ok := p.parseIf(args, tok, closeTok)
				if !ok {
					return nodes, endTag{}, true
				}
				nodes = append(nodes, n)
			case "for":
				n, ok := p.parseFor(args, tok, closeTok)
				if !ok {
					return nodes, endTag{}, true
				}
				nodes = append(nodes, n)
			case "":
				p.errorf(tok.pos, "empty statement")
			case "elseif", "else", "endif", "endfor":
				p.errorf(tok.pos, "unexpected {%% %s %%}", name)
			default:
				p.errorf(tok.pos, "unsupported statement %q", name)
			}
		}
	}
}

// readInside collects tag content up to the closing delimiter.
func (p *parser) readInside(close tokenKind) (string, token, bool) {
	var b strings.Builder
	for {
		t := p.l.nextTokenInside(close)
		switch t.kind {
		case tokContent:
			b.WriteString(t.val)
		case close:
			return b.String(), t, true
		case tokEOF:
			return b.String(), t, false
		}
	}
}

func splitNameArgs(stmt string) (name, args string) {
	s := strings.TrimSpace(stmt)
	i := 0
	for i < len(s) && !isSpace(s[i]) {
		i++
	}
	return s[:i], strings.TrimSpace(s[i:])
}

func (p *parser) parseSet(args string, open, close token) *SetNode {
	n := &SetNode{Pos: open.pos, TrimLeft: open.trim, TrimRight: close.trim}
	eq := indexTopLevel(args, '=')
	if eq < 0 {
		p.errorf(open.pos, "invalid set statement, expected '=': %q", args)
		return n
	}
	n.Name = strings.TrimSpace(args[:eq])
	exprText := strings.TrimSpace(args[eq+1:])
	if n.Name == "" || exprText == "" {
		p.errorf(open.pos, "invalid set statement, empty name or value")
		return n
	}
	if expr, err := parseExpression(exprText, open.pos); err != nil {
		p.errs = append(p.errs, err)
	} else {
		n.Value = expr
	}
	return n
}

// indexTopLevel finds the first occurrence of sep outside quotes, skipping
// '==' so that {% set ok = a == b %} splits at the first '='.
func indexTopLevel(s string, sep byte) int {
	var inStr byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr != 0 {
			if c == '\\' {
				i++
			} else if c == inStr {
				inStr = 0
			}
			continue
		}
		if c == '\'' || c == '"' {
			inStr = c
			continue
		}
		if c == sep {
			if sep == '=' && (i+1 < len(s) && s[i+1] == '=' || i > 0 && (s[i-1] == '!' || s[i-1] == '<' || s[i-1] == '>' || s[i-1] == '=')) {
				if i+1 < len(s) && s[i+1] == '=' {
					i++
				}
				continue
			}
			return i
		}
	}
	return -1
}

func (p *parser) parseIf(cond string, open, openClose token) (*IfNode, bool) {
	n := &IfNode{Pos: open.pos, TrimLeft: open.trim}
	if expr, err := parseExpression(cond, open.pos); err != nil {
		p.errs = append(p.errs, err)
	} else {
		n.Cond = expr
	}
	until := map[string]bool{"elseif": true, "else": true, "endif": true}
	body, end, eof := p.parseNodes(until)
	if eof {
		p.errorf(open.pos, "unbalanced if: missing {%% endif %%}")
		return n, false
	}
	n.Then = applyInnerTrims(body, openClose.trim, end.trimLeft)
	for end.name == "elseif" {
		branch := ElifBranch{}
		if expr, err := parseExpression(end.args, end.pos); err != nil {
			p.errs = append(p.errs, err)
		} else {
			branch.Cond = expr
		}
		branchOpenTrim := end.trimRight
		body, end, eof = p.parseNodes(until)
		if eof {
			p.errorf(open.pos, "unbalanced if: missing {%% endif %%}")
			return n, false
		}
		branch.Body = applyInnerTrims(body, branchOpenTrim, end.trimLeft)
		n.Elifs = append(n.Elifs, branch)
	}
	if end.name == "else" {
		elseOpenTrim := end.trimRight
		elseBody, elseEnd, eof := p.parseNodes(map[string]bool{"endif": true})
		if eof {
			p.errorf(open.pos, "unbalanced if: missing {%% endif %%}")
			return n, false
		}
		n.Else = applyInnerTrims(elseBody, elseOpenTrim, elseEnd.trimLeft)
		end = elseEnd
	}
	n.TrimRight = end.trimRight
	return n, true
}

func (p *parser) parseFor(args string, open, openClose token) (*ForNode, bool) {
	n := &ForNode{Pos: open.pos, TrimLeft: open.trim}
	parts := strings.SplitN(args, " in ", 2)
	if len(parts) != 2 {
		p.errorf(open.pos, "invalid for statement, expected 'name in iterable': %q", args)
	} else {
		n.Target = strings.TrimSpace(parts[0])
		iterable := strings.TrimSpace(parts[1])
		if n.Target == "" || iterable == "" {
			p.errorf(open.pos, "invalid for statement, empty name or iterable")
		} else if expr, err := parseExpression(iterable, open.pos); err != nil {
			p.errs = append(p.errs, err)
		} else {
			n.Iterable = expr
		}
	}
	body, end, eof := p.parseNodes(map[string]bool{"endfor": true})
	if eof {
		p.errorf(open.pos, "unbalanced for: missing {%% endfor %%}")
		return n, false
	}
	n.Body = applyInnerTrims(body, openClose.trim, end.trimLeft)
	n.TrimRight = end.trimRight
	return n, true
}

// applyInnerTrims handles whitespace control on the inner boundaries of a
// block: the '-' on the opening tag's close delimiter trims the start of the
// body, and the '-' on the end tag's open delimiter trims the end of it.
// These are resolved statically since block-internal text is fixed.
func applyInnerTrims(body []Node, lead, tail bool) []Node {
	if lead && len(body) > 0 {
		if t, ok := body[0].(*TextNode); ok {
			t.Text = trimAfterTag(t.Text)
		}
	}
	if tail && len(body) > 0 {
		if t, ok := body[len(body)-1].(*TextNode); ok {
			t.Text = trimBeforeTag(t.Text)
		}
	}
	return body
}

// trimAfterTag strips a leading run of spaces/tabs and at most one line
// terminator. Used when the preceding tag carries trim-right.
func trimAfterTag(s string) string {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	if i < len(s) && s[i] == '\r' {
		i++
	}
	if i < len(s) && s[i] == '\n' {
		i++
	}
	return s[i:]
}

// trimBeforeTag strips a trailing run of spaces/tabs, at most one line
// terminator, and the spaces/tabs preceding that terminator. Used when the
// following tag carries trim-left.
func trimBeforeTag(s string) string {
	i := len(s)
	for i > 0 && (s[i-1] == ' ' || s[i-1] == '\t') {
		i--
	}
	if i > 0 && s[i-1] == '\n' {
		i--
		if i > 0 && s[i-1] == '\r' {
			i--
		}
		for i > 0 && (s[i-1] == ' ' || s[i-1] == '\t') {
			i--
		}
	}
	return s[:i]
}
