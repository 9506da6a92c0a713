package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("record not found")

// ArchiveInterface defines the contract for raw payload archives
type ArchiveInterface interface {
	Store(ctx context.Context, name string, data []byte) error
	Retrieve(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]ArchivedPayload, error)
}

// ArchivedPayload describes one stored payload
type ArchivedPayload struct {
	Name       string
	Size       int64
	ModifiedAt time.Time
}
