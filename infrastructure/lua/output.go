package lua

import (
	"strings"
	"unicode/utf8"
)

// outputBuffer collects print lines up to limit bytes. Once full, further
// lines are dropped and Truncated reports true. A cut never splits a rune.
type outputBuffer struct {
	b         strings.Builder
	limit     int
	truncated bool
}

func newOutputBuffer(limit int) *outputBuffer {
	return &outputBuffer{limit: limit}
}

// WriteLine appends s and a newline.
func (o *outputBuffer) WriteLine(s string) {
	o.write(s + "\n")
}

func (o *outputBuffer) write(s string) {
	room := o.limit - o.b.Len()
	if len(s) <= room {
		o.b.WriteString(s)
		return
	}
	o.truncated = true
	if room <= 0 {
		return
	}
	cut := room
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	o.b.WriteString(s[:cut])
}

func (o *outputBuffer) String() string { return o.b.String() }

func (o *outputBuffer) Truncated() bool { return o.truncated }
