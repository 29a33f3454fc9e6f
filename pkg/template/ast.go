package template

// Node is any AST node in a parsed template.
type Node interface {
	node()
	Position() int
}

// TextNode represents literal text between tags.
type TextNode struct {
	Pos  int
	Text string
}

func (*TextNode) node()           {}
func (n *TextNode) Position() int { return n.Pos }

// VariableNode represents one interpolation: {{ expr }}.
// Raw preserves the inner expression text exactly as written so a deferred
// value can be re-emitted in its original surface syntax.
type VariableNode struct {
	Pos       int
	Expr      Expr
	Raw       string
	TrimLeft  bool
	TrimRight bool
}

func (*VariableNode) node()           {}
func (n *VariableNode) Position() int { return n.Pos }

// SetNode represents an assignment: {% set name = expr %}.
type SetNode struct {
	Pos       int
	Name      string
	Value     Expr
	TrimLeft  bool
	TrimRight bool
}

func (*SetNode) node()           {}
func (n *SetNode) Position() int { return n.Pos }

// IfNode represents an if/elseif/else block.
type IfNode struct {
	Pos       int
	Cond      Expr
	Then      []Node
	Elifs     []ElifBranch
	Else      []Node
	TrimLeft  bool
	TrimRight bool
}

func (*IfNode) node()           {}
func (n *IfNode) Position() int { return n.Pos }

// ElifBranch is a single elseif condition with its body.
type ElifBranch struct {
	Cond Expr
	Body []Node
}

// ForNode represents a loop: {% for target in iterable %}.
type ForNode struct {
	Pos       int
	Target    string
	Iterable  Expr
	Body      []Node
	TrimLeft  bool
	TrimRight bool
}

func (*ForNode) node()           {}
func (n *ForNode) Position() int { return n.Pos }

// Expr is any node of the expression hierarchy parsed from tag contents.
type Expr interface {
	expr()
	Position() int
}

// Literal is a string, number, or boolean constant.
type Literal struct {
	Pos   int
	Value any
	// Quoted marks string literals that were written with quotes in the
	// source. A bare quoted string in variable position is a prompt
	// placeholder, not plain text output.
	Quoted bool
}

func (*Literal) node()           {}
func (*Literal) expr()           {}
func (e *Literal) Position() int { return e.Pos }

// Identifier references a variable by name. Names carrying one of the
// reserved prefixes (selector:, schema:, prompt:) bypass the variable map.
type Identifier struct {
	Pos  int
	Name string
}

func (*Identifier) expr()           {}
func (e *Identifier) Position() int { return e.Pos }

// Member is property access: object.prop or object[index].
type Member struct {
	Pos      int
	Object   Expr
	Property Expr
	Computed bool // true for [index], false for .prop
}

func (*Member) expr()           {}
func (e *Member) Position() int { return e.Pos }

// Unary is a prefix operator application. The only operator is "not".
type Unary struct {
	Pos     int
	Op      string
	Operand Expr
}

func (*Unary) expr()           {}
func (e *Unary) Position() int { return e.Pos }

// Binary is a binary operator application.
// Operators: == != > < >= <= contains and or ??
type Binary struct {
	Pos   int
	Op    string
	Left  Expr
	Right Expr
}

func (*Binary) expr()           {}
func (e *Binary) Position() int { return e.Pos }

// Group is a parenthesized expression.
type Group struct {
	Pos   int
	Inner Expr
}

func (*Group) expr()           {}
func (e *Group) Position() int { return e.Pos }

// FilterExpr pipes Value through the named filter: value|name:args.
// RawArgs preserves the argument text as written for reconstruction.
type FilterExpr struct {
	Pos     int
	Name    string
	Value   Expr
	Args    []Expr
	RawArgs string
}

func (*FilterExpr) expr()           {}
func (e *FilterExpr) Position() int { return e.Pos }
