package fiscal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zombor/pantry-manager/internal/pantry"
)

// ErrInvalidQRCode is returned for text that matches none of the known
// receipt code shapes
var ErrInvalidQRCode = errors.New("invalid fiscal QR code")

// ErrNoLookup is returned by Fetch when no fiscal lookup service is configured
var ErrNoLookup = errors.New("no fiscal lookup configured")

// RemoteError carries the message of a lookup service that answered with an
// error status
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "fiscal lookup failed: " + e.Message
}

// Lookup is a fiscal authority lookup service. Each method performs one
// remote call.
type Lookup interface {
	ByAccessKey(ctx context.Context, key string) (*pantry.FiscalReceipt, error)
	ByURL(ctx context.Context, rawURL string) (*pantry.FiscalReceipt, error)
	BySatCode(ctx context.Context, code string) (*pantry.FiscalReceipt, error)
}

// Fetcher turns a scanned text into a receipt
type Fetcher struct {
	lookup Lookup
}

// NewFetcher creates a Fetcher over lookup. A nil lookup makes every valid
// code fail with ErrNoLookup.
func NewFetcher(lookup Lookup) *Fetcher {
	return &Fetcher{lookup: lookup}
}

// Fetch classifies text and performs exactly one lookup for it. Unknown text
// fails with ErrInvalidQRCode before any network call. Errors are not
// retried.
func (f *Fetcher) Fetch(ctx context.Context, text string) (*pantry.FiscalReceipt, error) {
	text = strings.TrimSpace(text)
	qrType := Classify(text)
	if qrType == QRUnknown {
		return nil, ErrInvalidQRCode
	}
	if f.lookup == nil {
		return nil, ErrNoLookup
	}

	var (
		receipt *pantry.FiscalReceipt
		err     error
	)
	switch qrType {
	case QRAccessKey:
		key, _ := ExtractAccessKey(text)
		receipt, err = f.lookup.ByAccessKey(ctx, key)
	case QRAuthorityURL:
		if key, ok := ExtractAccessKeyFromURL(text); ok {
			receipt, err = f.lookup.ByAccessKey(ctx, key)
		} else {
			receipt, err = f.lookup.ByURL(ctx, text)
		}
	case QRSatCoupon:
		receipt, err = f.lookup.BySatCode(ctx, text)
	default:
		return nil, ErrInvalidQRCode
	}
	if err != nil {
		slog.Warn("Fiscal lookup failed", "type", qrType, "error", err)
		return nil, fmt.Errorf("fetching %s receipt: %w", qrType, err)
	}
	return receipt, nil
}
