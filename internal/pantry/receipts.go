package pantry

import (
	"context"
	"fmt"
)

// SaveFiscalReceipt stores a receipt, assigning an ID and timestamps to new
// ones
func (s *Service) SaveFiscalReceipt(ctx context.Context, receipt *FiscalReceipt) error {
	now := s.timeSource.Now()
	if receipt.ID == "" {
		receipt.ID = s.idGenerator.Generate()
		receipt.CreatedAt = now
	}
	receipt.UpdatedAt = now
	if receipt.Items == nil {
		receipt.Items = []FiscalReceiptItem{}
	}

	if err := s.db.SaveFiscalReceipt(receipt); err != nil {
		return fmt.Errorf("saving fiscal receipt: %w", err)
	}
	s.mirrorSave(ctx, KindFiscalReceipts, receipt.ID, receipt)
	return nil
}

// GetFiscalReceipt retrieves one of the user's receipts
func (s *Service) GetFiscalReceipt(ctx context.Context, userID, id string) (*FiscalReceipt, error) {
	receipt, err := s.db.GetFiscalReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting fiscal receipt: %w", err)
	}
	if receipt.UserID != userID {
		return nil, fmt.Errorf("getting fiscal receipt: %w", notFound("fiscal receipt", id))
	}
	return receipt, nil
}

// ListFiscalReceipts returns the user's receipts
func (s *Service) ListFiscalReceipts(ctx context.Context, userID string) ([]*FiscalReceipt, error) {
	receipts, err := s.db.ListFiscalReceipts(userID)
	if err != nil {
		return nil, fmt.Errorf("listing fiscal receipts: %w", err)
	}
	return receipts, nil
}

// FindReceiptByAccessKey returns the user's receipt with the given access
// key, or ErrNotFound
func (s *Service) FindReceiptByAccessKey(ctx context.Context, userID, accessKey string) (*FiscalReceipt, error) {
	receipts, err := s.db.ListFiscalReceipts(userID)
	if err != nil {
		return nil, fmt.Errorf("listing fiscal receipts: %w", err)
	}
	if accessKey != "" {
		for _, r := range receipts {
			if r.AccessKey == accessKey {
				return r, nil
			}
		}
	}
	return nil, notFound("fiscal receipt with access key", accessKey)
}

// FindReceiptBySourceCode returns the user's receipt scanned from code, or
// ErrNotFound
func (s *Service) FindReceiptBySourceCode(ctx context.Context, userID, code string) (*FiscalReceipt, error) {
	receipts, err := s.db.ListFiscalReceipts(userID)
	if err != nil {
		return nil, fmt.Errorf("listing fiscal receipts: %w", err)
	}
	if code != "" {
		for _, r := range receipts {
			if r.SourceCode == code {
				return r, nil
			}
		}
	}
	return nil, notFound("fiscal receipt with source code", code)
}

// DeleteFiscalReceipt removes a receipt. Products imported from it stay.
func (s *Service) DeleteFiscalReceipt(ctx context.Context, userID, id string) error {
	if _, err := s.GetFiscalReceipt(ctx, userID, id); err != nil {
		return fmt.Errorf("getting fiscal receipt for deletion: %w", err)
	}
	if err := s.db.DeleteFiscalReceipt(id); err != nil {
		return fmt.Errorf("deleting fiscal receipt: %w", err)
	}
	s.mirrorRemove(ctx, KindFiscalReceipts, id)
	return nil
}
