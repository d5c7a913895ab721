package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	OutcomeAnswered          = "answered"
	OutcomeSearchUnavailable = "search_unavailable"
	OutcomeFetchFailed       = "fetch_failed"
)

var bucketName = []byte("invocations")

var ErrClosed = errors.New("journal closed")

// Entry is the audit record of a single pipeline invocation.
type Entry struct {
	ID            string        `json:"id"`
	Query         string        `json:"query"`
	URL           string        `json:"url,omitempty"`
	Outcome       string        `json:"outcome"`
	Error         string        `json:"error,omitempty"`
	ContentLength int           `json:"content_length"`
	Candidates    int           `json:"candidates"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
}

// BoltJournal appends entries to a bbolt file. It is write-mostly and is
// never read on the answering path.
type BoltJournal struct {
	path string
	db   *bolt.DB
	mu   sync.RWMutex
}

// Open creates the parent directory and the bucket when missing.
func Open(path string) (*BoltJournal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory for journal: %w", err)
		}
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltJournal{path: path, db: db}, nil
}

func (j *BoltJournal) Path() string {
	return j.path
}

func (j *BoltJournal) Record(ctx context.Context, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.db == nil {
		return ErrClosed
	}

	return j.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(entryKey(entry), value)
	})
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all.
func (j *BoltJournal) Recent(limit int) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.db == nil {
		return nil, ErrClosed
	}

	entries := make([]Entry, 0)
	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(entries) >= limit {
				break
			}
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("failed to decode entry %s: %w", k, err)
			}
			entries = append(entries, e)
		}
		return nil
	})
	return entries, err
}

// Close closes the bbolt file. Further calls return ErrClosed.
func (j *BoltJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

// entryKey sorts chronologically by start time; the ID breaks ties.
func entryKey(e Entry) []byte {
	return []byte(fmt.Sprintf("%020d:%s", e.StartedAt.UnixNano(), e.ID))
}
