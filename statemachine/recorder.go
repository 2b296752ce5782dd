package statemachine

import "unicode/utf8"

// MaxRecordSize is the number of bytes a Recorder keeps. Characters past it are
// dropped and the recorder reports itself truncated.
const MaxRecordSize = 4096

// Recorder accumulates the characters seen while it is recording.
type Recorder struct {
	buf       []byte
	recording bool
	truncated bool
}

// Start clears the recorder and begins recording.
func (r *Recorder) Start() {
	r.buf = r.buf[:0]
	r.recording = true
	r.truncated = false
}

// Stop ends recording. The content stays readable.
func (r *Recorder) Stop() {
	r.recording = false
}

// MaybeRecord appends c if the recorder is active and has room for it.
func (r *Recorder) MaybeRecord(c rune) {
	if !r.recording {
		return
	}
	if len(r.buf)+utf8.RuneLen(c) > MaxRecordSize {
		r.truncated = true
		return
	}
	r.buf = utf8.AppendRune(r.buf, c)
}

// Reset clears the content and stops recording.
func (r *Recorder) Reset() {
	r.buf = r.buf[:0]
	r.recording = false
	r.truncated = false
}

func (r *Recorder) Recording() bool {
	return r.recording
}

// Truncated reports whether characters were dropped since the last Start.
func (r *Recorder) Truncated() bool {
	return r.truncated
}

func (r *Recorder) Content() string {
	return string(r.buf)
}

// Clone returns a copy that does not share the underlying buffer.
func (r *Recorder) Clone() Recorder {
	return Recorder{
		buf:       append([]byte(nil), r.buf...),
		recording: r.recording,
		truncated: r.truncated,
	}
}
