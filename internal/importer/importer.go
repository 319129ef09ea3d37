// Package importer bulk-imports Alpha Progression CSV exports from disk.
package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/claude/liftscore/internal/ingest"
	"github.com/claude/liftscore/internal/storage"
	"github.com/google/uuid"
)

const source = "alpha_progression"

// Ingester turns one export into stored workouts.
type Ingester interface {
	Ingest(ctx context.Context, r io.Reader, userID uuid.UUID) (*ingest.Result, error)
	Preview(r io.Reader) (*ingest.Result, error)
}

// ImportLogger records import outcomes. *storage.DB implements it.
type ImportLogger interface {
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
	UpdateImportLog(ctx context.Context, id int64, log storage.ImportLog) error
}

// Stats tracks import progress.
type Stats struct {
	FilesProcessed   int
	FilesSkipped     int
	FilesErrored     int
	WorkoutsInserted int
	RejectedNames    []string
}

// Importer walks a directory of CSV exports and imports each new file once.
type Importer struct {
	ingester Ingester
	state    *StateDB
	logs     ImportLogger
	log      *slog.Logger
	dryRun   bool
}

// New creates an Importer. logs may be nil.
func New(ingester Ingester, state *StateDB, logs ImportLogger, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{ingester: ingester, state: state, logs: logs, log: log, dryRun: dryRun}
}

// Import processes every .csv file under dir (or dir itself, if it is a file) for userID.
// A failing file is logged and counted; the remaining files are still processed.
func (imp *Importer) Import(ctx context.Context, dir string, userID uuid.UUID) (*Stats, error) {
	files, err := csvFiles(dir)
	if err != nil {
		return nil, err
	}

	stats := &Stats{}
	rejected := map[string]bool{}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		hash, err := HashFile(path)
		if err != nil {
			imp.log.Error("hashing file", "path", path, "error", err)
			stats.FilesErrored++
			continue
		}
		done, err := imp.state.IsImported(userID, hash)
		if err != nil {
			return stats, err
		}
		if done {
			imp.log.Debug("skipping already imported file", "path", path)
			stats.FilesSkipped++
			continue
		}

		res, err := imp.importFile(ctx, path, hash, userID)
		if err != nil {
			imp.log.Error("importing file", "path", path, "error", err)
			stats.FilesErrored++
			continue
		}
		stats.FilesProcessed++
		stats.WorkoutsInserted += res.WorkoutsInserted
		for _, n := range res.RejectedNames {
			rejected[n] = true
		}
		imp.log.Info("imported file", "path", path,
			"workouts", res.WorkoutsInserted, "warmups_skipped", res.WarmupsSkipped,
			"rejected", len(res.RejectedNames))
	}

	for n := range rejected {
		stats.RejectedNames = append(stats.RejectedNames, n)
	}
	sort.Strings(stats.RejectedNames)
	return stats, nil
}

func (imp *Importer) importFile(ctx context.Context, path, hash string, userID uuid.UUID) (*ingest.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if imp.dryRun {
		return imp.ingester.Preview(f)
	}

	start := time.Now()
	logID := imp.startLog(ctx, userID, hash)

	res, err := imp.ingester.Ingest(ctx, f, userID)
	imp.finishLog(ctx, logID, userID, res, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	if err := imp.state.MarkImported(userID, hash, path, res.WorkoutsInserted); err != nil {
		return nil, err
	}
	return res, nil
}

func (imp *Importer) startLog(ctx context.Context, userID uuid.UUID, hash string) int64 {
	if imp.logs == nil {
		return 0
	}
	id, err := imp.logs.InsertImportLog(ctx, storage.ImportLog{
		UserID: userID, Source: source, Status: "running", FileHash: &hash,
	})
	if err != nil {
		imp.log.Warn("failed to create import log", "error", err)
		return 0
	}
	return id
}

func (imp *Importer) finishLog(ctx context.Context, id int64, userID uuid.UUID, res *ingest.Result, ingestErr error, elapsed time.Duration) {
	if imp.logs == nil || id == 0 {
		return
	}
	ms := int(elapsed.Milliseconds())
	entry := storage.ImportLog{UserID: userID, Status: "success", DurationMs: &ms}
	if res != nil {
		entry.WorkoutsReceived = res.SessionsReceived
		entry.WorkoutsInserted = res.WorkoutsInserted
		entry.RejectedNames = res.RejectedNames
	}
	if ingestErr != nil {
		msg := ingestErr.Error()
		entry.Status = "error"
		entry.ErrorMessage = &msg
	}
	if err := imp.logs.UpdateImportLog(ctx, id, entry); err != nil {
		imp.log.Warn("failed to update import log", "id", id, "error", err)
	}
}

// csvFiles lists .csv files under root in name order.
func csvFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", root, err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".csv") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}
