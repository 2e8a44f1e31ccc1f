//go:build !tesseract

package recognition

import "errors"

// TesseractAvailable reports whether the binary was built with Tesseract.
const TesseractAvailable = false

// ErrTesseractUnavailable is returned by NewTesseract in builds without the
// tesseract tag.
var ErrTesseractUnavailable = errors.New("tesseract support not built in; rebuild with -tags tesseract")

// Tesseract is unavailable in this build.
type Tesseract struct{}

// NewTesseract always fails in builds without the tesseract tag.
func NewTesseract(languages ...string) (*Tesseract, error) {
	return nil, ErrTesseractUnavailable
}

// Recognize always fails in builds without the tesseract tag.
func (t *Tesseract) Recognize(imageData []byte, contentType string) (string, error) {
	return "", ErrTesseractUnavailable
}

// Close is a no-op
func (t *Tesseract) Close() error {
	return nil
}
