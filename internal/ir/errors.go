package ir

import "fmt"

// SyntaxError reports that the parser front end could not produce a usable
// parse tree for a file. It carries enough position information to surface
// a useful diagnostic without requiring callers to re-parse.
type SyntaxError struct {
	File    string
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("ir: syntax error in %s at %d:%d: %s", e.File, e.Line, e.Column, e.Message)
}
