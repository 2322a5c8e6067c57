package memory

import (
	"context"
	"strings"
)

// NewSnapshotter creates a postgres-backed snapshotter when a database URL is
// configured, otherwise a JSON file snapshotter.
func NewSnapshotter(ctx context.Context, databaseURL, filePath string) (Snapshotter, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewFileSnapshotter(filePath), nil
	}
	return NewPostgresSnapshotter(ctx, databaseURL)
}
