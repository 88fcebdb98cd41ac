package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zombor/pantry-manager/internal/fiscal"
)

// maxFormSize bounds receipt photo uploads; phone photos are large
const maxFormSize = int64(50 << 20)

type qrTextRequest struct {
	Text       string `json:"text"`
	AutoImport *bool  `json:"auto_import"`
}

type classifyResponse struct {
	Type      fiscal.QRType `json:"type"`
	AccessKey string        `json:"access_key,omitempty"`
}

// handleHealth reports that the server is up
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleClassify tells which lookup a scanned text needs without fetching
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req qrTextRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp := classifyResponse{Type: fiscal.Classify(req.Text)}
	switch resp.Type {
	case fiscal.QRAccessKey:
		resp.AccessKey, _ = fiscal.ExtractAccessKey(strings.TrimSpace(req.Text))
	case fiscal.QRAuthorityURL:
		resp.AccessKey, _ = fiscal.ExtractAccessKeyFromURL(req.Text)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleScanText fetches and stores the receipt behind a scanned text
func (s *Server) handleScanText(w http.ResponseWriter, r *http.Request) {
	var req qrTextRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		corsError(w, "text is required", http.StatusBadRequest)
		return
	}

	autoImport := s.autoImport
	if req.AutoImport != nil {
		autoImport = *req.AutoImport
	}

	result, err := s.deps.Fiscal.ScanText(r.Context(), userID(r), req.Text, autoImport)
	s.writeScanResult(w, r, result, err)
}

// handleScanImage reads the QR code from an uploaded receipt photo
func (s *Server) handleScanImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			errorMsg = "File is too large. Maximum size is 50MB."
		}
		corsError(w, errorMsg, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if errors.Is(err, http.ErrMissingFile) {
			errorMsg = "No file was selected. Please choose a file to upload."
		}
		corsError(w, errorMsg, http.StatusBadRequest)
		return
	}
	defer f.Close()

	if header.Size > maxFormSize {
		corsError(w, "File is too large. Maximum size is 50MB.", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		corsError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	autoImport := s.autoImport
	if v, err := strconv.ParseBool(r.FormValue("auto_import")); err == nil {
		autoImport = v
	}
	contentType := uploadContentType(header.Header.Get("Content-Type"), header.Filename)

	result, err := s.deps.Fiscal.ScanImage(r.Context(), userID(r), header.Filename, data, contentType, autoImport)
	s.writeScanResult(w, r, result, err)
}

// uploadContentType falls back to the file extension when the client sent
// no content type. HEIC types are kept so the scanner can convert them.
func uploadContentType(contentType, filename string) string {
	if contentType == "" {
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".jpg", ".jpeg":
			contentType = "image/jpeg"
		case ".png":
			contentType = "image/png"
		case ".pdf":
			contentType = "application/pdf"
		case ".heic":
			contentType = "image/heic"
		case ".heif":
			contentType = "image/heif"
		default:
			contentType = "application/octet-stream"
		}
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// writeScanResult answers 201 for a new receipt and 200 for one the user
// already had. A receipt that was stored but failed to import is still
// returned with its import summary.
func (s *Server) writeScanResult(w http.ResponseWriter, r *http.Request, result *fiscal.ScanResult, err error) {
	if err != nil {
		if result == nil || result.Receipt == nil {
			writeError(w, r, "scanning receipt", err)
			return
		}
		slog.Error("Receipt stored but import failed", "receipt_id", result.Receipt.ID, "error", err)
	}

	if result.Duplicate {
		writeJSON(w, http.StatusOK, result)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// handleListReceipts returns the user's fiscal receipts
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.deps.Pantry.ListFiscalReceipts(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, "listing receipts", err)
		return
	}
	writeJSON(w, http.StatusOK, receipts)
}

// handleGetReceipt returns a single receipt
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.deps.Pantry.GetFiscalReceipt(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, "getting receipt", err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// handleGetReceiptImage returns the photo a receipt was scanned from
func (s *Server) handleGetReceiptImage(w http.ResponseWriter, r *http.Request) {
	data, err := s.deps.Fiscal.ReceiptPhoto(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, "getting receipt photo", err)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Write(data)
}

// handleImportReceipt turns the receipt's items into products
func (s *Server) handleImportReceipt(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Fiscal.ImportReceipt(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, "importing receipt", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleDeleteReceipt deletes a receipt and its photo
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Fiscal.DeleteReceipt(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeError(w, r, "deleting receipt", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
