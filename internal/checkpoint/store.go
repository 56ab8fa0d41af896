package checkpoint

import (
	"context"
	"encoding/json"
	"time"

	"github.com/MimeLyc/doctrans/pkg/log"
)

// Store keeps the in-flight job checkpoint in a KV medium.
// Every failure is logged and swallowed: checkpointing is best effort.
type Store struct {
	kv         KV
	key        string
	staleAfter time.Duration
	now        func() time.Time
}

type Option func(*Store)

func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

func WithStaleAfter(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func NewStore(kv KV, opts ...Option) *Store {
	s := &Store{
		kv:         kv,
		key:        DefaultKey,
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) StaleAfter() time.Duration {
	return s.staleAfter
}

// Save applies patch on top of current, stamps the record and writes it.
// It returns the written record, or false when nothing was written.
func (s *Store) Save(ctx context.Context, current Record, patch Patch) (Record, bool) {
	if s == nil || s.kv == nil {
		return Record{}, false
	}
	record := current
	patch.applyTo(&record)
	if record.DocumentID == "" {
		log.Debug("Skip checkpoint save: no document id yet")
		return Record{}, false
	}
	record.Timestamp = s.now().UTC()

	payload, err := json.Marshal(record)
	if err != nil {
		log.Error("Failed to encode checkpoint for %s: %v", record.DocumentID, err)
		return Record{}, false
	}
	if err := s.kv.Set(ctx, s.key, payload); err != nil {
		log.Error("Failed to save checkpoint for %s: %v", record.DocumentID, err)
		return Record{}, false
	}
	return record, true
}

// Load returns the persisted checkpoint if it exists and is fresh.
// Stale or unreadable checkpoints are deleted.
func (s *Store) Load(ctx context.Context) (Record, bool) {
	if s == nil || s.kv == nil {
		return Record{}, false
	}
	payload, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		log.Error("Failed to read checkpoint: %v", err)
		return Record{}, false
	}
	if !ok {
		return Record{}, false
	}

	var record Record
	if err := json.Unmarshal(payload, &record); err != nil {
		log.Warn("Discarding unreadable checkpoint: %v", err)
		s.Clear(ctx)
		return Record{}, false
	}
	if record.DocumentID == "" || record.DocumentKey == "" {
		log.Warn("Discarding checkpoint without a document handle")
		s.Clear(ctx)
		return Record{}, false
	}

	age := s.now().Sub(record.Timestamp)
	if age > s.staleAfter {
		log.Info("Discarding stale checkpoint for %s (age %s)", record.DocumentID, age.Round(time.Second))
		s.Clear(ctx)
		return Record{}, false
	}
	return record, true
}

// Clear removes the checkpoint. Safe to call when none exists.
func (s *Store) Clear(ctx context.Context) {
	if s == nil || s.kv == nil {
		return
	}
	if err := s.kv.Delete(ctx, s.key); err != nil {
		log.Error("Failed to clear checkpoint: %v", err)
	}
}
