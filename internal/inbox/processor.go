package inbox

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zombor/invoice-manager/internal/extraction"
	"github.com/zombor/invoice-manager/internal/recognition"
)

const sidecarSuffix = ".fields.json"

// Sidecar is written next to each processed image
type Sidecar struct {
	Source      string            `json:"source"`
	ProcessedAt time.Time         `json:"processed_at"`
	Text        string            `json:"text"`
	Fields      extraction.Fields `json:"fields"`
}

// Handler processes one file from the inbox
type Handler interface {
	Process(path string) (*Sidecar, error)
}

// Processor recognizes an image and writes its extracted fields beside it
type Processor struct {
	recognizer recognition.Recognizer
	extractor  *extraction.Extractor
	now        func() time.Time
}

// NewProcessor creates a Processor. A nil extractor uses the default rules.
func NewProcessor(recognizer recognition.Recognizer, extractor *extraction.Extractor) *Processor {
	if extractor == nil {
		extractor = extraction.MustNewExtractor(extraction.DefaultRules())
	}
	return &Processor{recognizer: recognizer, extractor: extractor, now: time.Now}
}

// SidecarPath returns where the fields of the image at path are written
func SidecarPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + sidecarSuffix
}

// Process recognizes the image at path and writes its sidecar
func (p *Processor) Process(path string) (*Sidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	text, err := p.recognizer.Recognize(data, recognition.ContentTypeFor(path))
	if err != nil {
		return nil, fmt.Errorf("recognizing %s: %w", path, err)
	}

	sidecar := &Sidecar{
		Source:      filepath.Base(path),
		ProcessedAt: p.now().UTC(),
		Text:        text,
		Fields:      p.extractor.Parse(text),
	}
	if err := writeJSON(SidecarPath(path), sidecar); err != nil {
		return nil, err
	}
	return sidecar, nil
}

// writeJSON writes through a temp file so readers never see a partial sidecar
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding sidecar: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".sidecar-*")
	if err != nil {
		return fmt.Errorf("creating sidecar: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("writing sidecar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing sidecar: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming sidecar: %w", err)
	}
	return nil
}
