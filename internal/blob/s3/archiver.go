package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Jemiiah/Maniifold/internal/domain"
)

// MarketArchiveStore provides the read access the archiver needs. The full
// MarketStore satisfies it implicitly.
type MarketArchiveStore interface {
	ListByStatus(ctx context.Context, status domain.MarketStatus) ([]domain.Market, error)
}

// Archiver periodically snapshots resolved markets to object storage as
// newline-delimited JSON, partitioned by year-month. Snapshots are
// overwritten in place within a month, so re-running the archiver is safe.
//
// Deletion of archived rows from Postgres is intentionally not performed
// here. The database stays the source of truth; the archive is a backup.
type Archiver struct {
	writer  domain.BlobWriter
	markets MarketArchiveStore
	logger  *slog.Logger
}

// NewArchiver creates an Archiver.
func NewArchiver(writer domain.BlobWriter, markets MarketArchiveStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer:  writer,
		markets: markets,
		logger:  logger,
	}
}

// ArchiveResolved uploads all markets whose resolution happened before the
// cutoff to archive/resolved/YYYY-MM.jsonl and returns the number of
// archived records. A cutoff with no matching markets uploads nothing.
func (a *Archiver) ArchiveResolved(ctx context.Context, before time.Time) (int64, error) {
	markets, err := a.markets.ListByStatus(ctx, domain.StatusResolved)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive resolved query: %w", err)
	}

	var old []domain.Market
	for _, m := range markets {
		if m.UpdatedAt.Before(before) {
			old = append(old, m)
		}
	}
	if len(old) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(old)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive resolved marshal: %w", err)
	}

	path := archivePath("resolved", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive resolved upload: %w", err)
	}

	a.logger.Info("archived resolved markets",
		slog.String("path", path),
		slog.Int("count", len(old)),
	)
	return int64(len(old)), nil
}

// Run archives on the given interval until ctx is cancelled. Only markets
// resolved at least age ago are exported, so recently resolved markets stay
// queryable through the API. Errors are logged and the loop continues; a
// failed snapshot is retried at the next interval.
func (a *Archiver) Run(ctx context.Context, interval, age time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.ArchiveResolved(ctx, time.Now().Add(-age)); err != nil {
				a.logger.Error("archive run failed", slog.String("error", err.Error()))
			}
		}
	}
}

// archivePath builds the object key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/resolved/2026-01.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON, one
// compact JSON document per line.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
