package invoice

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/zombor/invoice-manager/internal/recognition"
)

const (
	maxUploadSize = int64(50 << 20) // high-resolution phone photos
	maxJSONSize   = int64(1 << 20)
	xlsxMimeType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type errorResponse struct {
	Error string `json:"error"`
}

type extractRequest struct {
	Text string `json:"text"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, errorResponse{Error: message})
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateInvoice), errors.Is(err, ErrAttachmentInUse):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInvoice):
		return http.StatusBadRequest
	case errors.Is(err, ErrRecognitionFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrRecognitionUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError logs server faults and reports client faults verbatim
func writeServiceError(w http.ResponseWriter, err error, msg string) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		slog.Error(msg, "error", err)
		writeError(w, code, "Internal server error")
		return
	}
	writeError(w, code, err.Error())
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (s *Server) handleStatic(contentType string, body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Write(body)
	}
}

// handleScanInvoice recognizes an uploaded image and returns a candidate
func (s *Server) handleScanInvoice(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File is too large. Maximum size is 50MB.")
			return
		}
		writeError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file was selected. Please choose a file to upload.")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return
	}

	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = recognition.ContentTypeFor(header.Filename)
	}

	candidate, err := s.service.ScanInvoice(header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error scanning invoice", "filename", header.Filename, "error", err)
		code := statusFor(err)
		switch code {
		case http.StatusUnprocessableEntity:
			writeError(w, code, ErrRecognitionFailed.Error())
		case http.StatusServiceUnavailable:
			writeError(w, code, ErrRecognitionUnavailable.Error())
		default:
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, candidate)
}

// handleExtract runs extraction on pasted text
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONSize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, s.service.ExtractText(req.Text))
}

// handleDiscardUpload removes the image of an abandoned candidate
func (s *Server) handleDiscardUpload(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DiscardCandidate(r.PathValue("filename")); err != nil {
		writeServiceError(w, err, "Error discarding upload")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCreateInvoice saves a confirmed invoice
func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var inv Invoice
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONSize)).Decode(&inv); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := s.service.CreateInvoice(&inv)
	if err != nil {
		writeServiceError(w, err, "Error creating invoice")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleListInvoices lists invoices, filtered by the q parameter
func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := s.service.SearchInvoices(r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err, "Error listing invoices")
		return
	}
	writeJSON(w, http.StatusOK, invoices)
}

// handleGetInvoice returns a single invoice
func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := s.service.GetInvoice(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "Error getting invoice")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// handleGetInvoiceFile returns the attached image of an invoice
func (s *Server) handleGetInvoiceFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetInvoiceFile(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "Error getting invoice file")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteInvoice deletes an invoice
func (s *Server) handleDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteInvoice(r.PathValue("id")); err != nil {
		writeServiceError(w, err, "Error deleting invoice")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Statistics()
	if err != nil {
		writeServiceError(w, err, "Error computing statistics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.service.ExportJSON(&buf); err != nil {
		writeServiceError(w, err, "Error exporting invoices")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="invoices.json"`)
	w.Write(buf.Bytes())
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.ExportXLSX()
	if err != nil {
		writeServiceError(w, err, "Error exporting invoices")
		return
	}
	w.Header().Set("Content-Type", xlsxMimeType)
	w.Header().Set("Content-Disposition", `attachment; filename="invoices.xlsx"`)
	w.Write(data)
}
