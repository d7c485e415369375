package media

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"
)

const DefaultLookbackSlack = 10 * time.Second

// FileResolver picks the newest recording created within the call window.
// It is a heuristic: any file written in the window matches, whether or not
// it belongs to the call.
type FileResolver struct {
	DB      *gorm.DB
	Indexer *Indexer // optional; synced before each lookup
	Slack   time.Duration
	Logger  *slog.Logger
	Now     func() time.Time
}

// Resolve returns the most recently created file with
// created >= now - duration - slack.
func (r *FileResolver) Resolve(ctx context.Context, duration time.Duration) (CandidateFile, bool, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	slack := r.Slack
	if slack <= 0 {
		slack = DefaultLookbackSlack
	}

	if r.Indexer != nil {
		if _, err := r.Indexer.Sync(ctx); err != nil && r.Logger != nil {
			r.Logger.Warn("media index sync failed", "err", err)
		}
	}

	lower := now().Add(-duration - slack).UnixNano()

	var files []MediaFile
	err := r.DB.WithContext(ctx).
		Where("created_unix_nano >= ?", lower).
		Order("created_unix_nano desc").
		Limit(1).
		Find(&files).Error
	if err != nil {
		return CandidateFile{}, false, err
	}
	if len(files) == 0 {
		return CandidateFile{}, false, nil
	}
	return CandidateFile{Handle: files[0].Path, SizeBytes: files[0].SizeBytes}, true, nil
}

// ContactResolver maps a phone number to a display name.
// Lookups never fail: query errors are logged and reported as no match.
type ContactResolver struct {
	DB     *gorm.DB
	Logger *slog.Logger
}

func (r *ContactResolver) Lookup(ctx context.Context, phoneNumber string) (string, bool) {
	norm := NormalizeNumber(phoneNumber)
	if norm == "" {
		return "", false
	}

	var c Contact
	err := r.DB.WithContext(ctx).Where("phone_number = ?", norm).Limit(1).Find(&c).Error
	if err == nil && c.ID != 0 {
		return c.DisplayName, true
	}
	if err != nil {
		r.logErr(err)
		return "", false
	}

	tail := tailDigits(norm)
	if tail == "" {
		return "", false
	}
	c = Contact{}
	err = r.DB.WithContext(ctx).Where("tail = ?", tail).Order("id asc").Limit(1).Find(&c).Error
	if err != nil {
		r.logErr(err)
		return "", false
	}
	if c.ID == 0 {
		return "", false
	}
	return c.DisplayName, true
}

func (r *ContactResolver) logErr(err error) {
	if r.Logger != nil {
		r.Logger.Error("contact lookup failed", "err", err)
	}
}
