// Package store persists a local history of submitted transactions so
// batch runs can be audited after the fact.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Kind labels what a history record was for.
type Kind string

const (
	KindAirdrop       Kind = "airdrop"
	KindTransferSOL   Kind = "transfer-sol"
	KindTransferToken Kind = "transfer-token"
	KindMint          Kind = "mint"
	KindDeploy        Kind = "deploy"
)

// Status tracks how far a submitted transaction got.
type Status string

const (
	StatusSubmitted Status = "SUBMITTED"
	StatusConfirmed Status = "CONFIRMED"
	StatusFinalized Status = "FINALIZED"
	StatusFailed    Status = "FAILED"
)

// Record is one submitted transaction. Amount is raw units: lamports for
// SOL operations, token subunits otherwise.
type Record struct {
	ID          string
	Kind        Kind
	Signature   string
	From        string
	To          string
	Amount      uint64
	Status      Status
	CreatedAt   time.Time
	ConfirmedAt *time.Time
}

// Store is the history persistence layer.
type Store interface {
	Append(ctx context.Context, rec *Record) error
	MarkStatus(ctx context.Context, signature string, status Status) error
	List(ctx context.Context, limit int) ([]*Record, error)

	Migrate(ctx context.Context) error
	Close() error
}

// DefaultPath returns the default history database path, creating its
// directory when needed.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	dir := filepath.Join(home, ".solbatch")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	return filepath.Join(dir, "history.db"), nil
}
