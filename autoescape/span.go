package autoescape

// Span is the location of a placeholder in the template source, "${" and "}"
// included.
type Span struct {
	Offset int // Byte offset in the source
	Line   int // 1-based line number
	Column int // 1-based column number (in runes, not bytes)
	Length int // Length in bytes
}

// End returns the offset just past the span.
func (s Span) End() int {
	return s.Offset + s.Length
}
