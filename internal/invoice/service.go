package invoice

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/invoice-manager/internal/extraction"
	"github.com/zombor/invoice-manager/internal/recognition"
)

// IDGenerator generates unique IDs for invoices
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles invoice operations
type Service struct {
	db          DB
	recognizer  recognition.Recognizer
	storage     Storage
	extractor   *extraction.Extractor
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service. A nil recognizer disables scanning and
// a nil extractor uses the default rules.
func NewService(db DB, recognizer recognition.Recognizer, storage Storage, extractor *extraction.Extractor) *Service {
	return NewServiceWithDeps(db, recognizer, storage, extractor, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, recognizer recognition.Recognizer, storage Storage, extractor *extraction.Extractor, idGen IDGenerator, timeSrc TimeSource) *Service {
	if extractor == nil {
		extractor = extraction.MustNewExtractor(extraction.DefaultRules())
	}
	return &Service{
		db:          db,
		recognizer:  recognizer,
		storage:     storage,
		extractor:   extractor,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{N}\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename strips punctuation and truncates long phone-generated names
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = repeatedSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	if r := []rune(base); len(r) > 50 {
		base = string(r[:50])
	}
	if base == "" {
		base = "invoice"
	}
	if unsafeFilenameChars.MatchString(strings.TrimPrefix(ext, ".")) {
		ext = ""
	}
	return base + ext
}

// ScanInvoice stores an uploaded image, recognizes its text and extracts a
// candidate record. Nothing is written to the database.
func (s *Service) ScanInvoice(filename string, data []byte, contentType string) (*Candidate, error) {
	if s.recognizer == nil {
		return nil, ErrRecognitionUnavailable
	}

	id := s.idGenerator.Generate()
	savedName, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	text, err := s.recognizer.Recognize(data, contentType)
	if err != nil {
		slog.Error("Failed to recognize invoice",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		if delErr := s.storage.Delete(savedName); delErr != nil {
			slog.Warn("Failed to delete file", "filename", savedName, "error", delErr)
		}
		return nil, fmt.Errorf("%w: %w", ErrRecognitionFailed, err)
	}

	fields := s.extractor.Parse(text)
	slog.Info("Scanned invoice", "filename", savedName, "fields", fields.Keys())

	return &Candidate{
		ID:          id,
		Filename:    savedName,
		ContentType: contentType,
		Text:        text,
		Fields:      fields,
	}, nil
}

// DiscardCandidate removes the image of a candidate that will not be saved.
// Files referenced by a stored invoice are refused with ErrAttachmentInUse.
func (s *Service) DiscardCandidate(filename string) error {
	invoices, err := s.db.ListInvoices()
	if err != nil {
		return fmt.Errorf("discarding candidate: %w", err)
	}
	for _, inv := range invoices {
		if inv.Filename != "" && inv.Filename == filename {
			return fmt.Errorf("%w: %s", ErrAttachmentInUse, filename)
		}
	}
	if err := s.storage.Delete(filename); err != nil {
		return fmt.Errorf("discarding candidate: %w", err)
	}
	return nil
}

// ExtractText runs extraction and normalization on pasted text
func (s *Service) ExtractText(text string) extraction.Fields {
	return s.extractor.Parse(text)
}

// CreateInvoice fills defaults, validates and inserts a confirmed invoice
func (s *Service) CreateInvoice(input *Invoice) (*Invoice, error) {
	now := s.timeSource.Now()

	inv := *input
	inv.InvoiceNumber = strings.TrimSpace(inv.InvoiceNumber)
	inv.InvoiceDate = strings.TrimSpace(inv.InvoiceDate)
	inv.BuyerName = strings.TrimSpace(inv.BuyerName)
	inv.BuyerTaxID = strings.TrimSpace(inv.BuyerTaxID)
	inv.SellerName = strings.TrimSpace(inv.SellerName)
	inv.SellerTaxID = strings.TrimSpace(inv.SellerTaxID)
	inv.Notes = strings.TrimSpace(inv.Notes)

	if inv.ID == "" {
		inv.ID = s.idGenerator.Generate()
	}
	if inv.InvoiceType == "" {
		inv.InvoiceType = TypeVAT
	}
	if inv.Status == "" {
		inv.Status = StatusNormal
	}
	if inv.TotalAmount.IsZero() {
		inv.TotalAmount = inv.Amount.Add(inv.TaxAmount)
	}
	inv.CreatedAt = now
	inv.UpdatedAt = now

	if err := Validate(&inv); err != nil {
		return nil, err
	}
	if err := s.db.SaveInvoice(&inv); err != nil {
		return nil, fmt.Errorf("saving invoice to database: %w", err)
	}
	slog.Info("Saved invoice", "id", inv.ID, "invoice_number", inv.InvoiceNumber)
	return &inv, nil
}

// GetInvoice retrieves an invoice by ID
func (s *Service) GetInvoice(id string) (*Invoice, error) {
	inv, err := s.db.GetInvoice(id)
	if err != nil {
		return nil, fmt.Errorf("getting invoice: %w", err)
	}
	return inv, nil
}

// ListInvoices returns all invoices
func (s *Service) ListInvoices() ([]*Invoice, error) {
	invoices, err := s.db.ListInvoices()
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	return invoices, nil
}

// SearchInvoices returns invoices matching keyword. An empty keyword lists
// everything.
func (s *Service) SearchInvoices(keyword string) ([]*Invoice, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return s.ListInvoices()
	}
	invoices, err := s.db.SearchInvoices(keyword)
	if err != nil {
		return nil, fmt.Errorf("searching invoices: %w", err)
	}
	return invoices, nil
}

// DeleteInvoice removes an invoice and its attachment
func (s *Service) DeleteInvoice(id string) error {
	inv, err := s.db.GetInvoice(id)
	if err != nil {
		return fmt.Errorf("getting invoice for deletion: %w", err)
	}

	if inv.Filename != "" {
		if err := s.storage.Delete(inv.Filename); err != nil {
			slog.Warn("Failed to delete file", "filename", inv.Filename, "error", err)
		}
	}

	if err := s.db.DeleteInvoice(id); err != nil {
		return fmt.Errorf("deleting invoice from database: %w", err)
	}
	return nil
}

// GetInvoiceFile retrieves the attached image of an invoice
func (s *Service) GetInvoiceFile(id string) ([]byte, string, error) {
	inv, err := s.db.GetInvoice(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting invoice: %w", err)
	}
	if inv.Filename == "" {
		return nil, "", fmt.Errorf("%w: invoice %s has no attachment", ErrNotFound, id)
	}

	data, err := s.storage.Get(inv.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting invoice file: %w", err)
	}

	contentType := inv.ContentType
	if contentType == "" {
		contentType = recognition.ContentTypeFor(inv.Filename)
	}
	return data, contentType, nil
}

// Statistics sums amounts over all invoices
func (s *Service) Statistics() (*Statistics, error) {
	stats, err := s.db.Statistics()
	if err != nil {
		return nil, fmt.Errorf("computing statistics: %w", err)
	}
	return stats, nil
}
