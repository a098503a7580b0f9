// Package tracker records which source documents have completed ingestion.
//
// The record is a newline-delimited append-only file guarded by an advisory
// file lock, so concurrent workers and repeated CLI runs agree on what has
// already been processed.
package tracker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryDelay is the poll interval while waiting for the advisory lock.
const lockRetryDelay = 50 * time.Millisecond

// Tracker tracks processed document IDs in a log file.
//
// Tracker is safe for concurrent use across goroutines and processes.
type Tracker struct {
	path string
	lock *flock.Flock
}

// New creates a tracker over the given log file path. The file is created
// on first write.
func New(path string) *Tracker {
	return &Tracker{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// withLock runs fn while holding the advisory lock.
func (t *Tracker) withLock(ctx context.Context, fn func() error) error {
	ok, err := t.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquiring tracker lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("tracker lock not acquired")
	}
	defer t.lock.Unlock() //nolint:errcheck // unlock of held lock

	return fn()
}

// read returns the set of processed IDs. A missing file means nothing has
// been processed yet.
func (t *Tracker) read() (map[string]struct{}, error) {
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]struct{}{}, nil
		}
		return nil, fmt.Errorf("opening tracker log: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	ids := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			ids[line] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading tracker log: %w", err)
	}
	return ids, nil
}

// IsProcessed reports whether the document has completed ingestion.
func (t *Tracker) IsProcessed(ctx context.Context, documentID string) (bool, error) {
	var processed bool
	err := t.withLock(ctx, func() error {
		ids, err := t.read()
		if err != nil {
			return err
		}
		_, processed = ids[documentID]
		return nil
	})
	return processed, err
}

// MarkProcessed records the document as done. Marking an already-recorded
// document is a no-op, so completion stays idempotent.
func (t *Tracker) MarkProcessed(ctx context.Context, documentID string) error {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return fmt.Errorf("document ID is required")
	}
	return t.withLock(ctx, func() error {
		ids, err := t.read()
		if err != nil {
			return err
		}
		if _, ok := ids[documentID]; ok {
			return nil
		}

		f, err := os.OpenFile(t.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening tracker log for append: %w", err)
		}
		defer f.Close() //nolint:errcheck // error checked on the write path

		if _, err := f.WriteString(documentID + "\n"); err != nil {
			return fmt.Errorf("appending to tracker log: %w", err)
		}
		return f.Sync()
	})
}

// Processed returns all recorded document IDs in file order.
func (t *Tracker) Processed(ctx context.Context) ([]string, error) {
	var out []string
	err := t.withLock(ctx, func() error {
		f, err := os.Open(t.path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("opening tracker log: %w", err)
		}
		defer f.Close() //nolint:errcheck // read-only file

		seen := make(map[string]struct{})
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if _, ok := seen[line]; ok {
				continue
			}
			seen[line] = struct{}{}
			out = append(out, line)
		}
		return scanner.Err()
	})
	return out, err
}

// Reset removes the record entirely. Used by forced re-ingestion.
func (t *Tracker) Reset(ctx context.Context) error {
	return t.withLock(ctx, func() error {
		if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing tracker log: %w", err)
		}
		return nil
	})
}
