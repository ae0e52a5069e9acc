package protocol

import (
	"bytes"
	"strings"
)

// FrameReader turns an arbitrarily-chunked byte stream into complete
// newline-delimited frames. It holds at most one partial (unterminated)
// fragment between feeds; after every Feed the buffer is either empty
// or exactly the unterminated tail of the stream seen so far.
//
// The framing is chunk-boundary independent: a message split one byte
// per chunk and ten messages concatenated in one chunk both yield the
// same frame sequence.
type FrameReader struct {
	buf []byte
}

// NewFrameReader creates an empty frame reader.
func NewFrameReader() *FrameReader {
	return &FrameReader{}
}

// Feed appends a chunk and returns every complete frame it unlocked, in
// order. Frames are trimmed of surrounding whitespace (including the
// \r of CRLF input); frames that are blank after trimming are dropped.
func (f *FrameReader) Feed(chunk []byte) []string {
	f.buf = append(f.buf, chunk...)

	pieces := bytes.Split(f.buf, []byte("\n"))
	// Everything before the last newline is complete; the final piece
	// (possibly empty) is the new partial fragment.
	tail := pieces[len(pieces)-1]
	f.buf = append(f.buf[:0], tail...)

	var frames []string
	for _, piece := range pieces[:len(pieces)-1] {
		line := strings.TrimSpace(string(piece))
		if line == "" {
			continue
		}
		frames = append(frames, line)
	}
	return frames
}

// Pending returns the current partial fragment. Useful for diagnostics
// when the stream ends mid-message.
func (f *FrameReader) Pending() string {
	return string(f.buf)
}
