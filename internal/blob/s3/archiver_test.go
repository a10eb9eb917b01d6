package s3blob

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Jemiiah/Maniifold/internal/domain"
)

type fakeWriter struct {
	path        string
	contentType string
	body        []byte
	calls       int
}

func (f *fakeWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	f.calls++
	f.path = path
	f.contentType = contentType
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.body = b
	return nil
}

type fakeArchiveStore struct {
	markets []domain.Market
}

func (f *fakeArchiveStore) ListByStatus(_ context.Context, status domain.MarketStatus) ([]domain.Market, error) {
	var out []domain.Market
	for _, m := range f.markets {
		if m.Status == status {
			out = append(out, m)
		}
	}
	return out, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestArchiveResolved(t *testing.T) {
	cutoff := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	store := &fakeArchiveStore{markets: []domain.Market{
		{ID: "1field", Title: "old resolved", Status: domain.StatusResolved, UpdatedAt: cutoff.Add(-24 * time.Hour)},
		{ID: "2field", Title: "fresh resolved", Status: domain.StatusResolved, UpdatedAt: cutoff.Add(time.Hour)},
		{ID: "3field", Title: "still locked", Status: domain.StatusLocked, UpdatedAt: cutoff.Add(-48 * time.Hour)},
	}}
	writer := &fakeWriter{}

	a := NewArchiver(writer, store, discardLogger())

	n, err := a.ArchiveResolved(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("ArchiveResolved() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("archived %d markets, want 1", n)
	}
	if writer.path != "archive/resolved/2026-01.jsonl" {
		t.Errorf("path = %q, want archive/resolved/2026-01.jsonl", writer.path)
	}
	if writer.contentType != "application/x-ndjson" {
		t.Errorf("content type = %q", writer.contentType)
	}

	lines := strings.Split(strings.TrimSpace(string(writer.body)), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d jsonl lines, want 1", len(lines))
	}
	if !bytes.Contains(writer.body, []byte(`"old resolved"`)) {
		t.Errorf("archive body missing market title: %s", writer.body)
	}
}

func TestArchiveResolvedNothingToArchive(t *testing.T) {
	store := &fakeArchiveStore{markets: []domain.Market{
		{ID: "1field", Status: domain.StatusOnChain},
	}}
	writer := &fakeWriter{}

	a := NewArchiver(writer, store, discardLogger())

	n, err := a.ArchiveResolved(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("ArchiveResolved() error = %v", err)
	}
	if n != 0 {
		t.Errorf("archived %d markets, want 0", n)
	}
	if writer.calls != 0 {
		t.Errorf("writer called %d times, want 0", writer.calls)
	}
}
