package workers

import (
	"chat-relay/contract"
	"context"
	"fmt"
	"log/slog"
)

// DirectorySeeder loads the stored rooms into the directory once.
// A failure is returned to the supervisor, which retries after its restart interval.
type DirectorySeeder struct {
	log       *slog.Logger
	directory contract.IDirectory
}

func NewDirectorySeeder(log *slog.Logger, directory contract.IDirectory) *DirectorySeeder {
	return &DirectorySeeder{log: log, directory: directory}
}

func (w *DirectorySeeder) Run(ctx context.Context) error {
	if err := w.directory.Initialize(ctx); err != nil {
		w.log.Warn("Room directory not seeded yet", "error", err)
		return fmt.Errorf("seed room directory: %w", err)
	}
	return nil
}
