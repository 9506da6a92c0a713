package storage

import (
	"context"
	"fmt"
)

// OpenArchive picks the raw payload archive: Azure Blob Storage when an
// account is set, a local directory when dir is set. It returns nil when
// neither is configured.
func OpenArchive(ctx context.Context, account, container, dir string) (ArchiveInterface, error) {
	if account != "" {
		archive, err := NewAzureArchive(ctx, account, container)
		if err != nil {
			return nil, err
		}
		return archive, nil
	}
	if dir != "" {
		return NewFileArchive(dir), nil
	}
	return nil, nil
}

// LatestPayload reads back the most recently written payload under prefix
func LatestPayload(ctx context.Context, archive ArchiveInterface, prefix string) (ArchivedPayload, []byte, error) {
	payloads, err := archive.List(ctx, prefix)
	if err != nil {
		return ArchivedPayload{}, nil, err
	}
	if len(payloads) == 0 {
		return ArchivedPayload{}, nil, ErrNotFound
	}

	latest := payloads[0]
	for _, p := range payloads[1:] {
		if p.ModifiedAt.After(latest.ModifiedAt) || (p.ModifiedAt.Equal(latest.ModifiedAt) && p.Name > latest.Name) {
			latest = p
		}
	}

	data, err := archive.Retrieve(ctx, latest.Name)
	if err != nil {
		return latest, nil, fmt.Errorf("failed to read %s: %w", latest.Name, err)
	}
	return latest, data, nil
}
