package media

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNoRoot = errors.New("media: recordings directory is required")

// Indexer records every recording file under Root in the index.
// A file's creation time is taken from its modification time.
type Indexer struct {
	DB     *gorm.DB
	Root   string
	Logger *slog.Logger
	Now    func() time.Time
}

// Sync walks Root and inserts regular, non-empty files not indexed yet.
// It returns how many new rows were written.
func (ix *Indexer) Sync(ctx context.Context) (int, error) {
	if ix.Root == "" {
		return 0, ErrNoRoot
	}
	now := time.Now
	if ix.Now != nil {
		now = ix.Now
	}

	var batch []MediaFile
	err := filepath.WalkDir(ix.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			// removed between listing and stat
			return nil
		}
		if info.Size() == 0 {
			return nil
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		batch = append(batch, MediaFile{
			Path:            abs,
			SizeBytes:       info.Size(),
			CreatedUnixNano: info.ModTime().UnixNano(),
			IndexedUnixNano: now().UnixNano(),
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, nil
	}

	res := ix.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "path"}}, DoNothing: true}).
		CreateInBatches(&batch, 200)
	if res.Error != nil {
		return 0, res.Error
	}
	if ix.Logger != nil && res.RowsAffected > 0 {
		ix.Logger.Debug("media index synced", "root", ix.Root, "added", res.RowsAffected)
	}
	return int(res.RowsAffected), nil
}
