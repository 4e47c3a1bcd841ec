package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/bhumika-medical/api/internal/notify"
	"github.com/bhumika-medical/api/internal/upload"
	"github.com/go-chi/chi/v5"
)

// PrescriptionLogger appends the prescription audit line.
// Satisfied by *upload.Saver.
type PrescriptionLogger interface {
	LogPrescription(name, phone, address, fileURL string) error
}

// UploadsHandler handles the order-by-prescription flow: the customer
// uploads a photo of their prescription instead of picking products.
type UploadsHandler struct {
	saver          FileSaver
	logger         PrescriptionLogger
	pharmacyNumber string
}

// NewUploadsHandler creates a new UploadsHandler.
func NewUploadsHandler(saver FileSaver, logger PrescriptionLogger, pharmacyNumber string) *UploadsHandler {
	return &UploadsHandler{saver: saver, logger: logger, pharmacyNumber: pharmacyNumber}
}

// RegisterRoutes registers the prescription upload endpoint.
func (h *UploadsHandler) RegisterRoutes(r chi.Router) {
	r.Post("/upload-prescription", h.UploadPrescription)
}

type uploadPrescriptionResponse struct {
	Success bool   `json:"success"`
	FileURL string `json:"fileUrl"`
	WALink  string `json:"waLink"`
}

// UploadPrescription stores the file, writes the audit line and returns
// a WhatsApp link that sends the prescription details to the pharmacy.
func (h *UploadsHandler) UploadPrescription(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	phone := strings.TrimSpace(r.FormValue("phone"))
	address := strings.TrimSpace(r.FormValue("address"))
	if name == "" || phone == "" || address == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name, phone and address are required"})
		return
	}

	file, header, err := r.FormFile("prescription")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "prescription file is required"})
		return
	}
	defer file.Close()

	fileURL, err := h.saver.Save("", header.Filename, file)
	if err != nil {
		writeUploadError(w, err)
		return
	}

	if err := h.logger.LogPrescription(name, phone, address, fileURL); err != nil {
		log.Printf("WARN: prescription audit log: %v", err)
	}

	msg := "New prescription order\nName: " + name + "\nPhone: " + phone + "\nAddress: " + address + "\nPrescription: " + fileURL
	writeJSON(w, http.StatusCreated, uploadPrescriptionResponse{
		Success: true,
		FileURL: fileURL,
		WALink:  notify.WALink(h.pharmacyNumber, msg),
	})
}

// writeUploadError maps saver errors onto HTTP statuses. Shared by
// every handler that accepts files.
func writeUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, upload.ErrUnsupportedType):
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": "only JPEG, PNG, WebP and PDF files are accepted"})
	case errors.Is(err, upload.ErrFileTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file exceeds the 5 MB limit"})
	default:
		log.Printf("ERROR: save upload: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
