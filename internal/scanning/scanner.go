package scanning

import (
	"context"
	"errors"
)

// ErrNoQRCode is returned when the vision model finds nothing to read
var ErrNoQRCode = errors.New("no qr code found in image")

// Prompt is a single text-completion request
type Prompt struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float32
}

// Generator defines the interface for LLM text completion
type Generator interface {
	// Generate sends one prompt and returns every completion the provider
	// produced
	Generate(ctx context.Context, prompt Prompt) ([]string, error)
	// Close closes the generator and releases resources
	Close() error
}

// Scanner defines the interface for reading fiscal QR codes from photos
type Scanner interface {
	// ReadQRCode returns the text encoded in the QR code (or the printed
	// access key) of a receipt photo or PDF
	ReadQRCode(ctx context.Context, imageData []byte, contentType string) (string, error)
	// Close closes the scanner and releases resources
	Close() error
}
