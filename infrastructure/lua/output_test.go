package lua

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutputBuffer(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		lines     []string
		want      string
		truncated bool
	}{
		{"fits", 16, []string{"a", "b"}, "a\nb\n", false},
		{"exact", 4, []string{"a", "b"}, "a\nb\n", false},
		{"cut mid line", 5, []string{"hello world"}, "hello", true},
		{"drops after full", 2, []string{"a", "b"}, "a\n", true},
		{"keeps runes whole", 2, []string{"añb"}, "a", true},
		{"multibyte at start", 1, []string{"ñ"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOutputBuffer(tt.limit)
			for _, l := range tt.lines {
				o.WriteLine(l)
			}
			assert.Equal(t, tt.want, o.String())
			assert.Equal(t, tt.truncated, o.Truncated())
		})
	}
}
