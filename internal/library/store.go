// Package library persists saved trims as a JSON array under a single key/value
// slot and keeps an in-memory query cache of the decoded list.
package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/heimdex/heimdex-trim/internal/logging"
	"github.com/heimdex/heimdex-trim/internal/metrics"
	"github.com/heimdex/heimdex-trim/internal/store"
)

// SlotKey is the key the whole library is stored under.
const SlotKey = "@SAVED_VIDEOS"

var (
	ErrNoSource = errors.New("no video to save")
	ErrNotFound = errors.New("video not found")
)

type StorageOp string

const (
	OpRead  StorageOp = "read"
	OpWrite StorageOp = "write"
)

// StorageError reports a slot that could not be read, decoded or written.
type StorageError struct {
	Op  StorageOp
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("library %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Store reads and appends to the slot. Saves are serialized in-process; the slot
// itself has no compare-and-swap, so a second process writing the same database
// can still lose an update.
type Store struct {
	kv      store.KV
	logger  *slog.Logger
	metrics *metrics.Collector

	mu sync.Mutex
}

func NewStore(kv store.KV, logger *slog.Logger, m *metrics.Collector) *Store {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Store{kv: kv, logger: logger, metrics: m}
}

// Save appends v and returns the full decoded list. Existing elements are written
// back exactly as they were read.
func (s *Store) Save(ctx context.Context, v NewVideo) ([]SavedVideo, error) {
	if strings.TrimSpace(v.URI) == "" {
		return nil, ErrNoSource
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	videos, err := s.save(ctx, v)
	s.metrics.ObserveSave(err)
	return videos, err
}

func (s *Store) save(ctx context.Context, v NewVideo) ([]SavedVideo, error) {
	value, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := parseSlot(value)
	if err != nil {
		// Unparseable contents are replaced rather than blocking every future save.
		s.logger.Warn("discarding unparseable library slot", "error", err)
		raw = nil
	}

	elem, err := json.Marshal(v.stored())
	if err != nil {
		return nil, &StorageError{Op: OpWrite, Err: err}
	}
	raw = append(raw, elem)

	if err := s.kv.SetValue(ctx, SlotKey, encodeSlot(raw)); err != nil {
		return nil, &StorageError{Op: OpWrite, Err: err}
	}

	s.logger.Info("video saved", "count", len(raw), "uri", logging.SanitizePath(v.URI))
	return s.decode(raw), nil
}

// LoadAll decodes the slot. A missing slot is an empty library.
func (s *Store) LoadAll(ctx context.Context) ([]SavedVideo, error) {
	value, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := parseSlot(value)
	if err != nil {
		return nil, &StorageError{Op: OpRead, Err: err}
	}
	return s.decode(raw), nil
}

// Get returns the entry with the given position id.
func (s *Store) Get(ctx context.Context, id int) (*SavedVideo, error) {
	videos, err := s.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return find(videos, id)
}

func (s *Store) read(ctx context.Context) (string, error) {
	value, _, err := s.kv.GetValue(ctx, SlotKey)
	if err != nil {
		return "", &StorageError{Op: OpRead, Err: err}
	}
	return value, nil
}

// parseSlot splits the stored array into its raw elements. Empty means no entries.
func parseSlot(value string) ([]json.RawMessage, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		return nil, fmt.Errorf("slot is not a JSON array: %w", err)
	}
	return raw, nil
}

// encodeSlot joins elements without re-encoding them.
func encodeSlot(raw []json.RawMessage) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, elem := range raw {
		if i > 0 {
			b.WriteByte(',')
		}
		b.Write(elem)
	}
	b.WriteByte(']')
	return b.String()
}

// decode normalizes each element, skipping ones of unknown shape. IDs follow the
// stored position, so a skipped element leaves a gap.
func (s *Store) decode(raw []json.RawMessage) []SavedVideo {
	videos := make([]SavedVideo, 0, len(raw))
	for i, elem := range raw {
		var e entry
		if err := json.Unmarshal(elem, &e); err != nil {
			s.logger.Warn("skipping malformed library entry", "position", i, "error", err)
			continue
		}
		videos = append(videos, e.normalize(i))
	}
	return videos
}

func find(videos []SavedVideo, id int) (*SavedVideo, error) {
	for i := range videos {
		if videos[i].ID == id {
			v := videos[i]
			return &v, nil
		}
	}
	return nil, ErrNotFound
}
