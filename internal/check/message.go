package check

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/leapstack-labs/sceneforge/pkg/core"
)

const reasonCompilerMessage = "compiler-message"

type record struct {
	Reason  string           `json:"reason"`
	Message *compilerMessage `json:"message"`
}

type compilerMessage struct {
	Message string `json:"message"`
	Level   string `json:"level"`
	Spans   []span `json:"spans"`
}

type span struct {
	FileName    string `json:"file_name"`
	LineStart   uint32 `json:"line_start"`
	ColumnStart uint32 `json:"column_start"`
}

// ParseLine turns one line of verification output into a diagnostic. Lines
// that are not JSON, records of another reason and messages without a source
// span are rejected.
func ParseLine(line []byte) (core.Diagnostic, bool) {
	var rec record
	if err := json.Unmarshal(line, &rec); err != nil {
		return core.Diagnostic{}, false
	}
	if rec.Reason != reasonCompilerMessage || rec.Message == nil || len(rec.Message.Spans) == 0 {
		return core.Diagnostic{}, false
	}

	sp := rec.Message.Spans[0]
	return core.Diagnostic{
		File:    sp.FileName,
		Line:    sp.LineStart,
		Col:     sp.ColumnStart,
		Message: fmt.Sprintf("[%s] %s", rec.Message.Level, strings.TrimSpace(rec.Message.Message)),
	}, true
}
