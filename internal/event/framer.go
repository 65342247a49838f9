package event

import "bytes"

const lineTerminator = '\n'

// Framer splits a chunked byte stream into complete lines. It keeps the
// unterminated tail between calls, so a line split across reads is
// delivered once, whole. A Framer belongs to a single connection and must
// only be fed from the goroutine reading it.
type Framer struct {
	buf []byte
}

// Feed appends chunk and returns every line it completed, in order.
// Empty lines are dropped.
func (f *Framer) Feed(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}
	f.buf = append(f.buf, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(f.buf, lineTerminator)
		if i < 0 {
			break
		}
		if i > 0 {
			lines = append(lines, string(f.buf[:i]))
		}
		f.buf = f.buf[i+1:]
	}

	// Reclaim the consumed prefix once nothing is pending.
	if len(f.buf) == 0 {
		f.buf = f.buf[:0:0]
	}
	return lines
}

// Pending reports how many unterminated bytes are buffered
func (f *Framer) Pending() int {
	return len(f.buf)
}

// Reset discards the unterminated tail and returns its length. It is called
// at end of stream: a record without its terminator cannot be recovered.
func (f *Framer) Reset() int {
	n := len(f.buf)
	f.buf = nil
	return n
}
