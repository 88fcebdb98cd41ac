package fiscal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/zombor/pantry-manager/internal/pantry"
	"github.com/zombor/pantry-manager/internal/scanning"
)

// ErrNoScanner is returned by ScanImage when no vision provider is configured
var ErrNoScanner = errors.New("no QR scanner configured")

// Store is the pantry service as seen by the scan pipeline
type Store interface {
	Catalog
	GetFiscalReceipt(ctx context.Context, userID, id string) (*pantry.FiscalReceipt, error)
	FindReceiptByAccessKey(ctx context.Context, userID, accessKey string) (*pantry.FiscalReceipt, error)
	FindReceiptBySourceCode(ctx context.Context, userID, code string) (*pantry.FiscalReceipt, error)
	DeleteFiscalReceipt(ctx context.Context, userID, id string) error
}

// ScanResult is the outcome of scanning one receipt code
type ScanResult struct {
	Type    QRType                `json:"type"`
	Receipt *pantry.FiscalReceipt `json:"receipt"`
	// Duplicate is set when the user already had a receipt with the same
	// access key, or the same scanned code when there is no key; Receipt is
	// then the stored one
	Duplicate bool          `json:"duplicate"`
	Import    *ImportResult `json:"import,omitempty"`
}

// Service runs the scan pipeline: read code, fetch receipt, store it and
// optionally import its items
type Service struct {
	fetcher  *Fetcher
	store    Store
	importer *Importer
	scanner  scanning.Scanner
	storage  Storage
}

// NewService creates a Service. scanner and storage may be nil when photo
// scanning is not offered.
func NewService(fetcher *Fetcher, store Store, scanner scanning.Scanner, storage Storage, cfg ImporterConfig) *Service {
	return &Service{
		fetcher:  fetcher,
		store:    store,
		importer: NewImporter(store, cfg),
		scanner:  scanner,
		storage:  storage,
	}
}

// ScanText fetches the receipt behind a scanned code and stores it for the
// user. A receipt the user already has is returned as is.
func (s *Service) ScanText(ctx context.Context, userID, text string, autoImport bool) (*ScanResult, error) {
	return s.scan(ctx, userID, text, autoImport, "")
}

func (s *Service) scan(ctx context.Context, userID, text string, autoImport bool, imageFilename string) (*ScanResult, error) {
	result := &ScanResult{Type: Classify(text)}

	receipt, err := s.fetcher.Fetch(ctx, text)
	if err != nil {
		return nil, err
	}

	if receipt.AccessKey == "" {
		receipt.SourceCode = strings.TrimSpace(text)
	}
	existing, err := s.findExisting(ctx, userID, receipt)
	switch {
	case err == nil:
		result.Receipt = existing
		result.Duplicate = true
		return result, nil
	case !errors.Is(err, pantry.ErrNotFound):
		return nil, fmt.Errorf("checking for existing receipt: %w", err)
	}

	receipt.ID = ""
	receipt.UserID = userID
	receipt.ImageFilename = imageFilename
	if err := s.store.SaveFiscalReceipt(ctx, receipt); err != nil {
		return nil, fmt.Errorf("saving receipt: %w", err)
	}
	result.Receipt = receipt

	slog.Info("Stored fiscal receipt",
		"receipt_id", receipt.ID,
		"type", result.Type,
		"store", receipt.StoreName,
		"items", len(receipt.Items),
	)

	if autoImport {
		imported, err := s.importer.Import(ctx, userID, receipt)
		result.Import = imported
		if err != nil {
			return result, fmt.Errorf("importing receipt: %w", err)
		}
	}
	return result, nil
}

// findExisting looks a fetched receipt up by access key, or by the scanned
// code when the authority returned no key
func (s *Service) findExisting(ctx context.Context, userID string, receipt *pantry.FiscalReceipt) (*pantry.FiscalReceipt, error) {
	if receipt.AccessKey != "" {
		return s.store.FindReceiptByAccessKey(ctx, userID, receipt.AccessKey)
	}
	return s.store.FindReceiptBySourceCode(ctx, userID, receipt.SourceCode)
}

// ScanImage reads the QR code from a receipt photo and scans it. The photo is
// kept with the receipt; it is removed again when scanning fails or the
// receipt was already stored.
func (s *Service) ScanImage(ctx context.Context, userID, filename string, data []byte, contentType string, autoImport bool) (*ScanResult, error) {
	if s.scanner == nil || s.storage == nil {
		return nil, ErrNoScanner
	}

	saved, err := s.storage.Save(fmt.Sprintf("%s_%s", uuid.NewString(), sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving photo: %w", err)
	}

	payload, err := s.scanner.ReadQRCode(ctx, data, contentType)
	if err != nil {
		slog.Error("Failed to read QR code",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.removePhoto(saved)
		return nil, fmt.Errorf("reading QR code: %w", err)
	}

	result, err := s.scan(ctx, userID, payload, autoImport, saved)
	if err != nil && (result == nil || result.Receipt == nil) {
		s.removePhoto(saved)
		return nil, err
	}
	if result.Duplicate {
		s.removePhoto(saved)
	}
	return result, err
}

func (s *Service) removePhoto(name string) {
	if err := s.storage.Delete(name); err != nil {
		slog.Warn("Failed to delete photo", "filename", name, "error", err)
	}
}

// ImportReceipt imports the items of a stored receipt
func (s *Service) ImportReceipt(ctx context.Context, userID, receiptID string) (*ImportResult, error) {
	receipt, err := s.store.GetFiscalReceipt(ctx, userID, receiptID)
	if err != nil {
		return nil, err
	}
	return s.importer.Import(ctx, userID, receipt)
}

// ReceiptPhoto returns the photo a receipt was scanned from
func (s *Service) ReceiptPhoto(ctx context.Context, userID, receiptID string) ([]byte, error) {
	receipt, err := s.store.GetFiscalReceipt(ctx, userID, receiptID)
	if err != nil {
		return nil, err
	}
	if receipt.ImageFilename == "" || s.storage == nil {
		return nil, fmt.Errorf("receipt photo: %w", pantry.ErrNotFound)
	}
	data, err := s.storage.Get(receipt.ImageFilename)
	if err != nil {
		return nil, fmt.Errorf("getting receipt photo: %w", err)
	}
	return data, nil
}

// DeleteReceipt removes a receipt and its photo. Imported products stay.
func (s *Service) DeleteReceipt(ctx context.Context, userID, receiptID string) error {
	receipt, err := s.store.GetFiscalReceipt(ctx, userID, receiptID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteFiscalReceipt(ctx, userID, receiptID); err != nil {
		return err
	}
	if receipt.ImageFilename != "" && s.storage != nil {
		s.removePhoto(receipt.ImageFilename)
	}
	return nil
}
