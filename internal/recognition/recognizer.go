package recognition

import "errors"

// ErrNoText is returned when an engine ran but recognized no text.
var ErrNoText = errors.New("no text recognized")

// Recognizer defines the interface for text recognition engines
type Recognizer interface {
	// Recognize returns the text found in an image or PDF
	Recognize(imageData []byte, contentType string) (string, error)
	// Close releases engine resources
	Close() error
}
