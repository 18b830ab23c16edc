package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"skillstreak/address"
	"skillstreak/database"
	"skillstreak/models"
)

// TransferRepository implements the TransferRepository interface
type TransferRepository struct {
	q queryable
}

// NewTransferRepository creates a new transfer repository
func NewTransferRepository(db *database.DB) *TransferRepository {
	return &TransferRepository{q: db.Pool}
}

func newTransferRepositoryWithTx(tx queryable) *TransferRepository {
	return &TransferRepository{q: tx}
}

// Record creates a new transfer history entry
func (r *TransferRepository) Record(ctx context.Context, transfer *models.Transfer) error {
	amount, err := signed(transfer.Amount)
	if err != nil {
		return err
	}

	var metadataJSON []byte
	if transfer.Metadata != nil {
		metadataJSON, err = json.Marshal(transfer.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal transfer metadata: %w", err)
		}
	}

	query := `
		INSERT INTO token_transfers (from_address, to_address, amount, kind, related_address, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err = r.q.QueryRow(ctx, query,
		nullableAddress(transfer.FromAddress),
		transfer.ToAddress,
		amount,
		string(transfer.Kind),
		nullableAddress(transfer.RelatedAddress),
		metadataJSON,
	).Scan(&transfer.ID, &transfer.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record transfer to %s: %w", transfer.ToAddress, err)
	}
	return nil
}

// GetByAccount returns the most recent transfers in or out of an account
func (r *TransferRepository) GetByAccount(ctx context.Context, addr address.Address, limit int) ([]*models.Transfer, error) {
	query := `
		SELECT id, from_address, to_address, amount, kind, related_address, metadata, created_at
		FROM token_transfers
		WHERE from_address = $1 OR to_address = $1
		ORDER BY id DESC
		LIMIT $2
	`
	rows, err := r.q.Query(ctx, query, addr, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transfers for %s: %w", addr, err)
	}
	defer rows.Close()

	var transfers []*models.Transfer
	for rows.Next() {
		var t models.Transfer
		var from, related *string
		var amount int64
		var kind string
		var metadataJSON []byte

		err := rows.Scan(&t.ID, &from, &t.ToAddress, &amount, &kind, &related, &metadataJSON, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		t.Amount = uint64(amount)
		t.Kind = models.TransferKind(kind)
		if t.FromAddress, err = parseNullableAddress(from); err != nil {
			return nil, fmt.Errorf("failed to parse transfer source: %w", err)
		}
		if t.RelatedAddress, err = parseNullableAddress(related); err != nil {
			return nil, fmt.Errorf("failed to parse related address: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &t.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal transfer metadata: %w", err)
			}
		}
		transfers = append(transfers, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transfers: %w", err)
	}
	return transfers, nil
}
