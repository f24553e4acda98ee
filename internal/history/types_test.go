package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyKind(t *testing.T) {
	tests := []struct {
		name    string
		content string
		voice   bool
		want    Kind
	}{
		{"plain text", "Hi, I need help with my order", false, KindText},
		{"image markdown", "![Receipt photo](https://cdn.example.com/r.jpg)", false, KindImage},
		{"audio markdown", "[Audio Message](https://cdn.example.com/a.ogg)", false, KindAudio},
		{"document markdown", "[invoice.pdf](https://cdn.example.com/i.pdf)", false, KindDocument},
		{"voice flag wins", "hello there", true, KindAudio},
		{"voice flag beats image shape", "![x](y)", true, KindAudio},
		{"bare brackets are text", "[not a link]", false, KindText},
		{"link without closing paren is text", "[doc](http://x", false, KindText},
		{"empty string", "", false, KindText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyKind(tt.content, tt.voice))
		})
	}
}

func TestClassifyKindRoundTrip(t *testing.T) {
	// Construct each category the way the gateway does, then classify.
	samples := map[Kind]string{
		KindText:     "where is my parcel?",
		KindImage:    "![photo](https://files.example.com/p.png)",
		KindAudio:    "[Audio Message](https://files.example.com/v.ogg)",
		KindDocument: "[manual.pdf](https://files.example.com/m.pdf)",
	}
	for want, content := range samples {
		assert.Equal(t, want, ClassifyKind(content, false), "content %q", content)
	}
}
