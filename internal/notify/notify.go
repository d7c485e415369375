// Package notify surfaces upload outcomes to whoever is watching the relay.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Notification replaces any earlier notification with the same ID.
type Notification struct {
	ID        uint32    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	FileName  string    `json:"file_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SlotID derives a stable notification ID from a file name, so success and
// failure for the same file share one slot.
func SlotID(fileName string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fileName))
	return h.Sum32()
}

func UploadSucceeded(fileName string) Notification {
	return Notification{ID: SlotID(fileName), Title: "Upload Successful", Body: "File uploaded successfully", FileName: fileName}
}

func UploadFailed(fileName string) Notification {
	return Notification{ID: SlotID(fileName), Title: "Upload Failed", Body: "File upload failed", FileName: fileName}
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications as structured log lines.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, n Notification) error {
	lg := l.Logger
	if lg == nil {
		lg = slog.Default()
	}
	lg.InfoContext(ctx, "notification", "id", n.ID, "title", n.Title, "body", n.Body, "file", n.FileName)
	return nil
}

// RedisNotifier publishes notifications as JSON on a pub/sub channel.
type RedisNotifier struct {
	rdb     *redis.Client
	channel string
}

func NewRedisNotifier(rdb *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{rdb: rdb, channel: channel}
}

func (r *RedisNotifier) Notify(ctx context.Context, n Notification) error {
	if r.rdb == nil || r.channel == "" {
		return errors.New("notify: redis notifier not configured")
	}
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, r.channel, b).Err()
}

// Fanout delivers to every notifier and joins their errors.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, x := range f {
		if x == nil {
			continue
		}
		if err := x.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Memory records notifications, keeping only the latest per ID like a
// notification tray does.
type Memory struct {
	mu    sync.Mutex
	all   []Notification
	slots map[uint32]Notification
}

func NewMemory() *Memory { return &Memory{slots: map[uint32]Notification{}} }

func (m *Memory) Notify(ctx context.Context, n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.all = append(m.all, n)
	m.slots[n.ID] = n
	return nil
}

// Sent returns every notification in delivery order.
func (m *Memory) Sent() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Notification, len(m.all))
	copy(out, m.all)
	return out
}

// Slot returns the notification currently shown for id.
func (m *Memory) Slot(id uint32) (Notification, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.slots[id]
	return n, ok
}
