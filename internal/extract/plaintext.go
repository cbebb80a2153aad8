package extract

import (
	"fmt"
	"unicode/utf8"

	askerrors "github.com/askpile/askpile/internal/errors"
)

// PlainText extracts text from UTF-8 documents, falling back to Latin-1 for
// legacy encodings. Latin-1 decoding cannot fail, so any byte sequence
// produces some text; truly binary input is caught by the emptiness check
// after chunking rather than here.
type PlainText struct{}

// NewPlainText creates a plain text extractor.
func NewPlainText() *PlainText {
	return &PlainText{}
}

// Extensions returns the extensions handled natively.
func (p *PlainText) Extensions() []string {
	return []string{".txt", ".md", ".log", ".csv"}
}

// Extract decodes data as UTF-8, or as Latin-1 when the bytes are not valid
// UTF-8.
func (p *PlainText) Extract(filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", askerrors.ExtractionError(
			fmt.Sprintf("%s is empty", filename), nil)
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	return decodeLatin1(data), nil
}

// decodeLatin1 maps each byte to the Unicode code point of the same value.
func decodeLatin1(data []byte) string {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}

var _ Extractor = (*PlainText)(nil)
