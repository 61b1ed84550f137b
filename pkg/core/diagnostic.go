package core

import "fmt"

// Diagnostic describes a single check failure at a source location.
// Line and Col are 1-based; a zero value means the location is unknown
// (for example a synthetic diagnostic reporting a spawn failure).
type Diagnostic struct {
	File    string `json:"file"`
	Line    uint32 `json:"line"`
	Col     uint32 `json:"col"`
	Message string `json:"message"`
}

// String formats the diagnostic as file:line:col: message.
func (d Diagnostic) String() string {
	if d.Line == 0 {
		return fmt.Sprintf("%s: %s", d.File, d.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s", d.File, d.Line, d.Col, d.Message)
}
