//go:build tesseract

package recognition

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractAvailable reports whether the binary was built with Tesseract.
const TesseractAvailable = true

// Tesseract implements the Recognizer interface using a local Tesseract
// install through cgo.
type Tesseract struct {
	languages []string
}

// NewTesseract creates a Tesseract recognizer. languages defaults to
// chi_sim and eng; the matching traineddata files must be installed.
func NewTesseract(languages ...string) (*Tesseract, error) {
	if len(languages) == 0 {
		languages = []string{"chi_sim", "eng"}
	}
	return &Tesseract{languages: languages}, nil
}

// Recognize runs OCR on an invoice image
func (t *Tesseract) Recognize(imageData []byte, contentType string) (string, error) {
	pngData, _, err := preparePNG(imageData, contentType)
	if err != nil {
		return "", err
	}

	// A client is not safe for concurrent use, so each call gets its own.
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return "", fmt.Errorf("setting tesseract languages %s: %w", strings.Join(t.languages, "+"), err)
	}
	if err := client.SetImageFromBytes(pngData); err != nil {
		return "", fmt.Errorf("loading image into tesseract: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract ocr: %w", err)
	}

	return cleanText(text)
}

// Close is a no-op; clients are released per call
func (t *Tesseract) Close() error {
	return nil
}
