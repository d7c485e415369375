package uploads

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"recording-relay/internal/auth"
	"recording-relay/internal/documents"
	"recording-relay/internal/failurelog"
	"recording-relay/internal/notify"
	"recording-relay/internal/storage"
	"recording-relay/pkg/logger"

	"github.com/google/uuid"
)

// Identity reports the principal currently signed in on the device.
type Identity interface {
	Current(ctx context.Context) (auth.Principal, error)
}

// File is what the pipeline needs from an opened recording.
type File interface {
	io.ReadSeeker
	io.Closer
	Stat() (os.FileInfo, error)
}

type Deps struct {
	Identity  Identity
	Policy    auth.Policy
	Blobs     storage.BlobStore
	Documents documents.Repository
	Failures  failurelog.Store
	Notifier  notify.Notifier
	Journal   Journal // optional
	Prefix    string
	Logger    *slog.Logger

	// Open defaults to os.Open.
	Open  func(name string) (File, error)
	Clock func() time.Time
}

// Pipeline uploads one recording per call. Failures are contained to the call
// and reported through the result, the failure log and a notification.
type Pipeline struct {
	identity Identity
	policy   auth.Policy
	blobs    storage.BlobStore
	docs     documents.Repository
	failures failurelog.Store
	notifier notify.Notifier
	journal  Journal
	prefix   string
	log      *slog.Logger
	open     func(string) (File, error)
	clock    func() time.Time
}

func NewPipeline(d Deps) *Pipeline {
	p := &Pipeline{
		identity: d.Identity,
		policy:   d.Policy,
		blobs:    d.Blobs,
		docs:     d.Documents,
		failures: d.Failures,
		notifier: d.Notifier,
		journal:  d.Journal,
		prefix:   d.Prefix,
		log:      logger.Component(d.Logger, "uploads"),
		open:     d.Open,
		clock:    d.Clock,
	}
	if p.policy == nil {
		p.policy = auth.DenyAll()
	}
	if p.open == nil {
		p.open = func(name string) (File, error) { return os.Open(name) }
	}
	if p.clock == nil {
		p.clock = time.Now
	}
	return p
}

// Upload runs the full pipeline for one file. It does not return an error:
// every failure is reflected in Result.Status and Result.Err.
func (p *Pipeline) Upload(ctx context.Context, req Request) Result {
	if req.Handle == "" {
		return Result{Status: StatusFailed, Err: ErrInvalidRequest}
	}
	if req.Attempt == "" {
		req.Attempt = AttemptFirst
	}
	log := p.log.With("handle", req.Handle, "attempt", string(req.Attempt))

	// Unauthorized calls leave no trace: no remote writes, no failure entry, no log line.
	principal, ok := p.authorize(ctx)
	if !ok {
		return Result{Status: StatusSkipped}
	}

	rec := UploadRecord{
		UploadID:    uuid.NewString(),
		Handle:      req.Handle,
		ObjectKey:   storage.ObjectKey(p.prefix, req.Handle),
		PhoneNumber: req.PhoneNumber,
		ContactName: req.ContactName,
		Attempt:     req.Attempt,
		Principal:   principal.Email,
	}
	log = log.With("upload_id", rec.UploadID, "key", rec.ObjectKey)
	p.record(ctx, log, rec, StatusPending, "", nil)

	if err := p.transfer(ctx, log, req.Handle, rec.ObjectKey); err != nil {
		log.Error("file upload failed", "err", err)
		if req.Attempt == AttemptFirst {
			if ferr := p.failures.Set(ctx, req.Handle, req.Handle); ferr != nil {
				log.Error("failure log write failed", "err", ferr)
			}
		}
		p.notify(ctx, log, notify.UploadFailed(fileName(req.Handle)))
		p.record(ctx, log, rec, StatusFailed, "", err)
		return Result{UploadID: rec.UploadID, Status: StatusFailed, ObjectKey: rec.ObjectKey, Err: err}
	}
	log.Info("file uploaded successfully")

	if err := p.failures.Remove(ctx, req.Handle); err != nil {
		log.Warn("failure log cleanup failed", "err", err)
	}

	url, err := p.blobs.URL(ctx, rec.ObjectKey)
	if err != nil {
		// The bytes are stored; without a URL there is nothing to link.
		log.Error("download url lookup failed", "err", err)
		p.record(ctx, log, rec, StatusSucceeded, "", nil)
		return Result{UploadID: rec.UploadID, Status: StatusSucceeded, ObjectKey: rec.ObjectKey}
	}

	p.writeMetadata(ctx, log, req, url)
	p.notify(ctx, log, notify.UploadSucceeded(fileName(req.Handle)))
	p.record(ctx, log, rec, StatusSucceeded, url, nil)
	return Result{UploadID: rec.UploadID, Status: StatusSucceeded, ObjectKey: rec.ObjectKey, URL: url}
}

func (p *Pipeline) authorize(ctx context.Context) (auth.Principal, bool) {
	if p.identity == nil {
		return auth.Principal{}, false
	}
	principal, err := p.identity.Current(ctx)
	if err != nil {
		return auth.Principal{}, false
	}
	return principal, p.policy(principal)
}

func (p *Pipeline) transfer(ctx context.Context, log *slog.Logger, handle, key string) error {
	f, err := p.open(handle)
	if err != nil {
		return fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	size := int64(-1)
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	lastPct := int64(-1)
	progress := func(sent, total int64) {
		if total <= 0 {
			return
		}
		pct := sent * 100 / total
		if pct/10 != lastPct/10 {
			lastPct = pct
			log.Debug("upload progress", "percent", pct)
		}
	}
	return p.blobs.Put(ctx, key, f, size, progress)
}

// writeMetadata appends the URL to every collection independently. A failed
// write is logged and does not affect the other or the upload outcome.
func (p *Pipeline) writeMetadata(ctx context.Context, log *slog.Logger, req Request, url string) {
	if req.PhoneNumber == "" || p.docs == nil {
		return
	}
	now := p.clock().UTC()

	var wg sync.WaitGroup
	for _, c := range documents.Collections {
		wg.Add(1)
		go func(c documents.Collection) {
			defer wg.Done()
			err := p.docs.Append(ctx,
				documents.Parent{Collection: c, PhoneNumber: req.PhoneNumber, Name: req.ContactName, CreatedAt: now},
				documents.Record{ID: uuid.NewString(), URL: url, Timestamp: now},
			)
			if err != nil {
				log.Error("metadata write failed", "collection", string(c), "err", err)
				return
			}
			log.Debug("metadata record added", "collection", string(c))
		}(c)
	}
	wg.Wait()
}

func (p *Pipeline) notify(ctx context.Context, log *slog.Logger, n notify.Notification) {
	if p.notifier == nil {
		return
	}
	n.CreatedAt = p.clock().UTC()
	if err := p.notifier.Notify(ctx, n); err != nil {
		log.Warn("notification failed", "err", err)
	}
}

// record is best-effort: a journal outage never changes the upload outcome.
func (p *Pipeline) record(ctx context.Context, log *slog.Logger, rec UploadRecord, st Status, url string, cause error) {
	if p.journal == nil {
		return
	}
	rec.ID = uuid.NewString()
	rec.Status = st
	rec.URL = url
	if cause != nil {
		rec.Error = cause.Error()
	}
	rec.CreatedAt = p.clock().UTC()
	if err := p.journal.Append(ctx, rec); err != nil {
		log.Warn("journal append failed", "status", string(st), "err", err)
	}
}

func fileName(handle string) string {
	name := filepath.Base(handle)
	if name == "." || name == string(filepath.Separator) {
		return "File"
	}
	return name
}

