package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainText_UTF8(t *testing.T) {
	p := NewPlainText()

	text, err := p.Extract("notes.txt", []byte("héllo wörld"))
	require.NoError(t, err)
	assert.Equal(t, "héllo wörld", text)
}

func TestPlainText_Latin1Fallback(t *testing.T) {
	p := NewPlainText()

	// 0xE9 is 'é' in Latin-1 but invalid standalone UTF-8
	text, err := p.Extract("legacy.txt", []byte{'c', 'a', 'f', 0xE9})
	require.NoError(t, err)
	assert.Equal(t, "café", text)
}

func TestPlainText_EmptyInput(t *testing.T) {
	p := NewPlainText()

	_, err := p.Extract("empty.txt", nil)
	assert.Error(t, err)
}

func TestRegistry_FallbackForUnknownExtension(t *testing.T) {
	r := NewRegistry()

	text, err := r.Extract("report.xyz", []byte("content"))
	require.NoError(t, err)
	assert.Equal(t, "content", text)
}

type fakeExtractor struct{}

func (fakeExtractor) Extract(string, []byte) (string, error) { return "pdf text", nil }
func (fakeExtractor) Extensions() []string                   { return []string{".pdf"} }

func TestRegistry_RegisteredExtractorWins(t *testing.T) {
	r := NewRegistry()
	r.Register(fakeExtractor{})

	text, err := r.Extract("doc.PDF", []byte{0x25, 0x50})
	require.NoError(t, err)
	assert.Equal(t, "pdf text", text)
}
