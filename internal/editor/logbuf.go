package editor

// DefaultLogLines is the number of log lines kept when no bound is configured.
const DefaultLogLines = 5000

// LogBuffer keeps the most recent lines of process output; the oldest lines
// are evicted first once the bound is reached.
type LogBuffer struct {
	max   int
	lines []string
}

// NewLogBuffer creates a buffer bounded to max lines (DefaultLogLines when max <= 0).
func NewLogBuffer(max int) *LogBuffer {
	if max <= 0 {
		max = DefaultLogLines
	}
	return &LogBuffer{max: max}
}

// Append adds lines, evicting the oldest ones beyond the bound.
func (b *LogBuffer) Append(lines ...string) {
	b.lines = append(b.lines, lines...)
	if over := len(b.lines) - b.max; over > 0 {
		b.lines = b.lines[over:]
	}
}

// Lines returns a copy of the buffered lines, oldest first.
func (b *LogBuffer) Lines() []string {
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// Tail returns a copy of at most n of the newest lines.
func (b *LogBuffer) Tail(n int) []string {
	n = max(0, min(n, len(b.lines)))
	out := make([]string, n)
	copy(out, b.lines[len(b.lines)-n:])
	return out
}

// Len returns the number of buffered lines.
func (b *LogBuffer) Len() int { return len(b.lines) }

// Clear drops every line.
func (b *LogBuffer) Clear() { b.lines = nil }
