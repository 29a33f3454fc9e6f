package template

import (
	"bytes"
	"fmt"
)

type Visitor interface {
	Visit(n Node) error
}

// Walk applies v to n and every node beneath it in document order.
func Walk(v Visitor, n Node) error {
	if err := v.Visit(n); err != nil {
		return err
	}
	switch t := n.(type) {
	case *IfNode:
		for _, c := range t.Then {
			if err := Walk(v, c); err != nil {
				return err
			}
		}
		for _, e := range t.Elifs {
			for _, c := range e.Body {
				if err := Walk(v, c); err != nil {
					return err
				}
			}
		}
		for _, c := range t.Else {
			if err := Walk(v, c); err != nil {
				return err
			}
		}
	case *ForNode:
		for _, c := range t.Body {
			if err := Walk(v, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// Pretty returns a line-oriented string representation of the AST.
func Pretty(nodes []Node) string {
	var buf bytes.Buffer
	for _, n := range nodes {
		ppNode(&buf, 0, n)
	}
	return buf.String()
}

func ppNode(buf *bytes.Buffer, indent int, n Node) {
	ind := func() {
		for i := 0; i < indent; i++ {
			buf.WriteByte(' ')
		}
	}
	switch t := n.(type) {
	case *TextNode:
		ind()
		fmt.Fprintf(buf, "Text(%q)\n", t.Text)
	case *VariableNode:
		ind()
		fmt.Fprintf(buf, "Variable(%q)\n", t.Raw)
	case *SetNode:
		ind()
		fmt.Fprintf(buf, "Set(%s)\n", t.Name)
	case *IfNode:
		ind()
		buf.WriteString("If\n")
		for _, c := range t.Then {
			ppNode(buf, indent+2, c)
		}
		for _, e := range t.Elifs {
			ind()
			buf.WriteString("Elseif\n")
			for _, c := range e.Body {
				ppNode(buf, indent+2, c)
			}
		}
		if len(t.Else) > 0 {
			ind()
			buf.WriteString("Else\n")
			for _, c := range t.Else {
				ppNode(buf, indent+2, c)
			}
		}
	case *ForNode:
		ind()
		fmt.Fprintf(buf, "For(%s)\n", t.Target)
		for _, c := range t.Body {
			ppNode(buf, indent+2, c)
		}
	}
}
