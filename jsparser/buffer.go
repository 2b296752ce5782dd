package jsparser

// bufferSize is the number of trailing characters kept for the regular expression
// heuristic. It fits the longest keyword in regexpPrefixes plus a delimiter.
const bufferSize = 18

// ringBuffer keeps the last bufferSize characters of JavaScript text outside of
// strings, comments and regular expressions. Runs of whitespace are folded into
// their first character.
type ringBuffer struct {
	data [bufferSize]rune
	pos  int // next write position
	n    int // number of valid characters
}

func (b *ringBuffer) reset() {
	b.pos = 0
	b.n = 0
}

// get returns the character at a negative offset from the end; -1 is the last one.
// Offsets before the first character return 0.
func (b *ringBuffer) get(offset int) rune {
	if offset >= 0 || -offset > b.n {
		return 0
	}
	return b.data[b.index(offset)]
}

// set overwrites the character at a negative offset. Out of range offsets are ignored.
func (b *ringBuffer) set(offset int, c rune) {
	if offset >= 0 || -offset > b.n {
		return
	}
	b.data[b.index(offset)] = c
}

func (b *ringBuffer) index(offset int) int {
	return (b.pos + offset + bufferSize) % bufferSize
}

func (b *ringBuffer) append(c rune) {
	if isWhitespace(c) && isWhitespace(b.get(-1)) {
		return
	}
	b.data[b.pos] = c
	b.pos = (b.pos + 1) % bufferSize
	if b.n < bufferSize {
		b.n++
	}
}

// pop removes the last character.
func (b *ringBuffer) pop() {
	if b.n == 0 {
		return
	}
	b.pos = (b.pos - 1 + bufferSize) % bufferSize
	b.n--
}

// lastIdentifier returns the identifier at the end of the buffer, skipping one
// trailing whitespace character.
func (b *ringBuffer) lastIdentifier() string {
	end := -1
	if isWhitespace(b.get(end)) {
		end--
	}
	start := end
	for isIdentifierChar(b.get(start)) {
		start--
	}
	if start == end {
		return ""
	}
	out := make([]rune, 0, end-start)
	for i := start + 1; i <= end; i++ {
		out = append(out, b.get(i))
	}
	return string(out)
}

// String returns the buffered characters, oldest first.
func (b *ringBuffer) String() string {
	out := make([]rune, 0, b.n)
	for i := -b.n; i < 0; i++ {
		out = append(out, b.get(i))
	}
	return string(out)
}

func isWhitespace(c rune) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f', '\u00a0':
		return true
	}
	return false
}

func isIdentifierChar(c rune) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
