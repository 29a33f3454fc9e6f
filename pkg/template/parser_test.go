package template

import (
	"strings"
	"testing"
)

func mustParse(t *testing.T, src string) []Node {
	t.Helper()
	nodes, errs := Parse(src)
	if len(errs) > 0 {
		t.Fatalf("parse errors for %q: %v", src, errs)
	}
	return nodes
}

func TestParseTextAndVariable(t *testing.T) {
	nodes := mustParse(t, "Hello {{ name }}!")
	if len(nodes) != 3 {
		t.Fatalf("want 3 nodes, got %d", len(nodes))
	}
	if tn, ok := nodes[0].(*TextNode); !ok || tn.Text != "Hello " {
		t.Fatalf("node0 not Text('Hello '): %#v", nodes[0])
	}
	vn, ok := nodes[1].(*VariableNode)
	if !ok || vn.Raw != "name" {
		t.Fatalf("node1 not Variable(name): %#v", nodes[1])
	}
	if _, ok := vn.Expr.(*Identifier); !ok {
		t.Fatalf("variable expr not Identifier: %#v", vn.Expr)
	}
	if tn, ok := nodes[2].(*TextNode); !ok || tn.Text != "!" {
		t.Fatalf("node2 not Text('!'): %#v", nodes[2])
	}
}

func TestParseTrimFlags(t *testing.T) {
	nodes := mustParse(t, "a {{- x -}} b")
	vn, ok := nodes[1].(*VariableNode)
	if !ok {
		t.Fatalf("node1 not VariableNode: %#v", nodes[1])
	}
	if !vn.TrimLeft || !vn.TrimRight {
		t.Fatalf("trim flags not set: left=%v right=%v", vn.TrimLeft, vn.TrimRight)
	}

	nodes = mustParse(t, "{%- set x = 1 -%}")
	sn, ok := nodes[0].(*SetNode)
	if !ok {
		t.Fatalf("node0 not SetNode: %#v", nodes[0])
	}
	if !sn.TrimLeft || !sn.TrimRight {
		t.Fatalf("set trim flags not set: left=%v right=%v", sn.TrimLeft, sn.TrimRight)
	}
}

func TestParseIfChain(t *testing.T) {
	nodes := mustParse(t, "{% if a %}A{% elseif b %}B{% elseif c %}C{% else %}D{% endif %}")
	n, ok := nodes[0].(*IfNode)
	if !ok {
		t.Fatalf("node0 not IfNode: %#v", nodes[0])
	}
	if len(n.Elifs) != 2 {
		t.Fatalf("want 2 elseif branches, got %d", len(n.Elifs))
	}
	if n.Else == nil {
		t.Fatalf("missing else branch")
	}
}

func TestParseNestedBlocks(t *testing.T) {
	src := "{% if a %}{% if b %}inner{% endif %}outer{% endif %}"
	nodes := mustParse(t, src)
	n := nodes[0].(*IfNode)
	if len(n.Then) != 2 {
		t.Fatalf("outer body: want 2 nodes, got %d", len(n.Then))
	}
	if _, ok := n.Then[0].(*IfNode); !ok {
		t.Fatalf("inner node not IfNode: %#v", n.Then[0])
	}
	if tn, ok := n.Then[1].(*TextNode); !ok || tn.Text != "outer" {
		t.Fatalf("text after inner block: %#v", n.Then[1])
	}
}

func TestParseNestedFor(t *testing.T) {
	src := "{% for a in xs %}{% for b in ys %}{{ b }}{% endfor %}{% endfor %}"
	nodes := mustParse(t, src)
	outer := nodes[0].(*ForNode)
	if len(outer.Body) != 1 {
		t.Fatalf("outer body: want 1 node, got %d", len(outer.Body))
	}
	if _, ok := outer.Body[0].(*ForNode); !ok {
		t.Fatalf("inner node not ForNode: %#v", outer.Body[0])
	}
}

func TestParseUnbalancedBlocks(t *testing.T) {
	cases := []string{
		"{% if x %}no endif",
		"{% for i in xs %}no endfor",
		"{% if a %}{% if b %}{% endif %}",
		"{% endif %}",
		"{% endfor %}",
	}
	for _, src := range cases {
		if _, errs := Parse(src); len(errs) == 0 {
			t.Errorf("Parse(%q): want errors, got none", src)
		}
	}
}

func TestParseStrayEndTagDiagnostic(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"{% endif %}", "unexpected {% endif %}"},
		{"{% endfor %}", "unexpected {% endfor %}"},
		{"{% else %}x", "unexpected {% else %}"},
		{"a{% elseif b %}", "unexpected {% elseif %}"},
		{"{% for i in xs %}{% endfor %}{% endfor %}", "unexpected {% endfor %}"},
	}
	for _, tc := range cases {
		_, errs := Parse(tc.src)
		if len(errs) == 0 {
			t.Errorf("Parse(%q): want errors, got none", tc.src)
			continue
		}
		if got := errs[0].Error(); !strings.Contains(got, tc.want) {
			t.Errorf("Parse(%q): error %q does not mention %q", tc.src, got, tc.want)
		}
	}
}

func TestParseUnterminatedTags(t *testing.T) {
	for _, src := range []string{"{{ x", "{% if x %}a{% endif", "{{ 'open"} {
		if _, errs := Parse(src); len(errs) == 0 {
			t.Errorf("Parse(%q): want errors, got none", src)
		}
	}
}

func TestParseMalformedExpressions(t *testing.T) {
	cases := []string{
		"{{ }}",
		"{{ x + }}",
		"{% set = 1 %}",
		"{% set x %}",
		"{% for in xs %}{% endfor %}",
		"{{ (a }}",
	}
	for _, src := range cases {
		if _, errs := Parse(src); len(errs) == 0 {
			t.Errorf("Parse(%q): want errors, got none", src)
		}
	}
}

func TestParseSet(t *testing.T) {
	nodes := mustParse(t, "{% set ok = a == b %}")
	sn := nodes[0].(*SetNode)
	if sn.Name != "ok" {
		t.Fatalf("set name: got %q", sn.Name)
	}
	if bin, ok := sn.Value.(*Binary); !ok || bin.Op != "==" {
		t.Fatalf("set value not '==' binary: %#v", sn.Value)
	}
}

func TestExpressionPrecedence(t *testing.T) {
	nodes := mustParse(t, "{{ a or b and not c == 1 }}")
	vn := nodes[0].(*VariableNode)
	top, ok := vn.Expr.(*Binary)
	if !ok || top.Op != "or" {
		t.Fatalf("top not 'or': %#v", vn.Expr)
	}
	and, ok := top.Right.(*Binary)
	if !ok || and.Op != "and" {
		t.Fatalf("right of or not 'and': %#v", top.Right)
	}
	not, ok := and.Right.(*Unary)
	if !ok || not.Op != "not" {
		t.Fatalf("right of and not 'not': %#v", and.Right)
	}
	if cmp, ok := not.Operand.(*Binary); !ok || cmp.Op != "==" {
		t.Fatalf("operand of not: %#v", not.Operand)
	}
}

func TestFilterPipeBindsTighterThanComparison(t *testing.T) {
	nodes := mustParse(t, "{{ xs|length > 2 }}")
	vn := nodes[0].(*VariableNode)
	cmp, ok := vn.Expr.(*Binary)
	if !ok || cmp.Op != ">" {
		t.Fatalf("top not '>': %#v", vn.Expr)
	}
	if _, ok := cmp.Left.(*FilterExpr); !ok {
		t.Fatalf("left of '>' not a filter: %#v", cmp.Left)
	}
}

func TestFilterChainParsing(t *testing.T) {
	nodes := mustParse(t, `{{ x|replace:"a","b"|upper }}`)
	vn := nodes[0].(*VariableNode)
	upper, ok := vn.Expr.(*FilterExpr)
	if !ok || upper.Name != "upper" {
		t.Fatalf("outer filter not upper: %#v", vn.Expr)
	}
	replace, ok := upper.Value.(*FilterExpr)
	if !ok || replace.Name != "replace" {
		t.Fatalf("inner filter not replace: %#v", upper.Value)
	}
	if len(replace.Args) != 2 {
		t.Fatalf("replace args: want 2, got %d", len(replace.Args))
	}
	if replace.RawArgs != `"a","b"` {
		t.Fatalf("raw args: got %q", replace.RawArgs)
	}
}

func TestMemberAccessParsing(t *testing.T) {
	nodes := mustParse(t, "{{ a.b[0].c }}")
	vn := nodes[0].(*VariableNode)
	m, ok := vn.Expr.(*Member)
	if !ok || m.Computed {
		t.Fatalf("outer not dotted member: %#v", vn.Expr)
	}
	idx, ok := m.Object.(*Member)
	if !ok || !idx.Computed {
		t.Fatalf("middle not computed member: %#v", m.Object)
	}
}

func TestReservedIdentifierSwallowsSelector(t *testing.T) {
	nodes := mustParse(t, "{{ selector:.post h1 a|upper }}")
	vn := nodes[0].(*VariableNode)
	f, ok := vn.Expr.(*FilterExpr)
	if !ok || f.Name != "upper" {
		t.Fatalf("expected filter on selector: %#v", vn.Expr)
	}
	id, ok := f.Value.(*Identifier)
	if !ok || id.Name != "selector:.post h1 a" {
		t.Fatalf("selector identifier: %#v", f.Value)
	}
}

func TestQuotedDelimiterInsideTag(t *testing.T) {
	nodes := mustParse(t, `{{ x|replace:"}}","!" }}`)
	vn, ok := nodes[0].(*VariableNode)
	if !ok {
		t.Fatalf("node0 not VariableNode: %#v", nodes[0])
	}
	if !strings.Contains(vn.Raw, `"}}"`) {
		t.Fatalf("quoted close delimiter lost: raw=%q", vn.Raw)
	}
}

func TestPretty(t *testing.T) {
	nodes := mustParse(t, "A{{ x }}{% if y %}B{% endif %}")
	s := Pretty(nodes)
	for _, want := range []string{"Text(", "Variable(", "If"} {
		if !strings.Contains(s, want) {
			t.Fatalf("pretty output missing %q:\n%s", want, s)
		}
	}
}

func TestWalkVisitsNestedNodes(t *testing.T) {
	nodes := mustParse(t, "{% if a %}{% for i in xs %}{{ i }}{% endfor %}{% endif %}")
	count := 0
	v := visitorFunc(func(Node) error { count++; return nil })
	for _, n := range nodes {
		if err := Walk(v, n); err != nil {
			t.Fatalf("walk error: %v", err)
		}
	}
	if count != 3 {
		t.Fatalf("want 3 visited nodes, got %d", count)
	}
}

type visitorFunc func(Node) error

func (f visitorFunc) Visit(n Node) error { return f(n) }
