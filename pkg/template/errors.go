package template

import "fmt"

// ParseError is a structural error in the template source. Any parse error
// aborts rendering of the whole template: a broken template produces no
// partial output.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Pos, e.Msg)
}

// RenderError is a node-local evaluation failure. The offending node
// contributes an empty string and rendering of sibling nodes continues.
type RenderError struct {
	Pos int
	Msg string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render error at offset %d: %s", e.Pos, e.Msg)
}

func parseErrorf(pos int, format string, args ...any) *ParseError {
	return &ParseError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func renderErrorf(pos int, format string, args ...any) *RenderError {
	return &RenderError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
