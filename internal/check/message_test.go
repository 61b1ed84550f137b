package check

import (
	"testing"

	"github.com/leapstack-labs/sceneforge/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want core.Diagnostic
		ok   bool
	}{
		{
			name: "error with span",
			line: `{"reason":"compiler-message","package_id":"demo 0.1.0","message":{"message":"  mismatched types\n","level":"error","spans":[{"file_name":"src/main.rs","line_start":10,"column_start":5,"line_end":10,"column_end":9}]}}`,
			want: core.Diagnostic{File: "src/main.rs", Line: 10, Col: 5, Message: "[error] mismatched types"},
			ok:   true,
		},
		{
			name: "first span wins",
			line: `{"reason":"compiler-message","message":{"message":"unused variable","level":"warning","spans":[{"file_name":"src/a.rs","line_start":3,"column_start":9},{"file_name":"src/b.rs","line_start":1,"column_start":1}]}}`,
			want: core.Diagnostic{File: "src/a.rs", Line: 3, Col: 9, Message: "[warning] unused variable"},
			ok:   true,
		},
		{
			name: "no spans",
			line: `{"reason":"compiler-message","message":{"message":"aborting due to previous error","level":"error","spans":[]}}`,
		},
		{
			name: "other reason",
			line: `{"reason":"compiler-artifact","target":{"name":"demo"}}`,
		},
		{
			name: "build finished",
			line: `{"reason":"build-finished","success":false}`,
		},
		{
			name: "not json",
			line: `   Compiling demo v0.1.0 (/tmp/demo)`,
		},
		{
			name: "message of wrong shape",
			line: `{"reason":"compiler-message","message":"oops"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLine([]byte(tt.line))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
