package history

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"sync"
	"time"

	"notibridge/internal/storage"
	logx "notibridge/pkg/logx"
)

// Storage slot keys. These names and their JSON shapes are the persisted
// contract; installs upgraded from the legacy store must keep reading.
const (
	keyNotifications    = "notifications"
	keyDeletedIDs       = "deleted_notification_ids"
	keyDeletedTitleBody = "deleted_notification_title_body"
)

// Store owns the three history collections: active notifications plus the
// id- and content-tombstone sets.
//
// Each public operation is a read-modify-write cycle over the KV layer.
// A single mutex serializes them; the KV layer itself offers no cross-key
// atomicity, so a crash between slot writes can leave a tombstone recorded
// without the record removed (or vice versa). Accepted window.
//
// Tombstones are never pruned.
type Store struct {
	mu  sync.Mutex
	kv  storage.KV
	log logx.Logger

	// now is swappable for tests.
	now func() time.Time
}

func New(kv storage.KV, log logx.Logger) *Store {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Store{kv: kv, log: log, now: time.Now}
}

// Save resolves the effective title/body, mints an id, and appends the
// record unless it is a content duplicate or tombstoned.
//
// The resolved Record is returned for all outcomes so the caller can render
// exactly the text that was (or would have been) persisted.
func (s *Store) Save(ctx context.Context, in Incoming) (Record, Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Data-payload title/body override the notification block, so a
	// data-only push can carry its own text.
	title := in.Title
	body := in.Body
	data := in.Data
	if data == nil {
		data = map[string]string{}
	}
	if v, ok := data["title"]; ok {
		title = v
	}
	if v, ok := data["body"]; ok {
		body = v
	}

	now := s.now().UnixMilli()
	rec := Record{
		ID:        strconv.FormatInt(now, 10),
		Title:     title,
		Body:      body,
		Data:      data,
		Timestamp: now,
	}

	records := s.readRecords(ctx)
	for _, existing := range records {
		if existing.Title == rec.Title && existing.Body == rec.Body && maps.Equal(existing.Data, rec.Data) {
			return rec, SuppressedDuplicate, nil
		}
	}

	// Id tombstones match by id only. The fresh id is checked for parity
	// with the legacy behavior even though a collision is improbable.
	for _, id := range s.readDeletedIDs(ctx) {
		if id == rec.ID {
			return rec, SuppressedDeleted, nil
		}
	}
	for _, tb := range s.readContentTombstones(ctx) {
		if tb.Title == rec.Title && tb.Body == rec.Body {
			return rec, SuppressedDeleted, nil
		}
	}

	records = append(records, rec)
	if err := s.writeSlot(ctx, keyNotifications, records); err != nil {
		return rec, Stored, fmt.Errorf("persist notifications: %w", err)
	}
	return rec, Stored, nil
}

// List returns the active collection in insertion order, oldest first.
// A missing or malformed slot reads as empty.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readRecords(ctx), nil
}

// Delete removes every record matched by f and records tombstones so the
// same notifications cannot be re-created by a later push.
//
// Per record: an id criterion wins; the content criterion is only consulted
// for records the id did not claim. Each id-removed record appends one id
// tombstone. A content criterion appends exactly one (title, body)
// tombstone per call, whatever the match count.
//
// Zero matches, or no criteria at all, is a successful no-op on the active
// collection (the content tombstone is still recorded).
func (s *Store) Delete(ctx context.Context, f Filter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !f.hasID() && !f.hasContent() {
		return 0, nil
	}

	records := s.readRecords(ctx)
	kept := make([]Record, 0, len(records))
	var removedIDs []string
	removed := 0

	for _, rec := range records {
		match := false
		if f.hasID() && *f.ID == rec.ID {
			match = true
			removedIDs = append(removedIDs, rec.ID)
		} else if f.hasContent() && *f.Title == rec.Title && *f.Body == rec.Body {
			match = true
		}
		if match {
			removed++
			continue
		}
		kept = append(kept, rec)
	}

	if err := s.writeSlot(ctx, keyNotifications, kept); err != nil {
		return 0, fmt.Errorf("persist notifications: %w", err)
	}

	if len(removedIDs) > 0 {
		ids := append(s.readDeletedIDs(ctx), removedIDs...)
		if err := s.writeSlot(ctx, keyDeletedIDs, ids); err != nil {
			return removed, fmt.Errorf("persist id tombstones: %w", err)
		}
	}

	if f.hasContent() {
		tbs := append(s.readContentTombstones(ctx), contentTombstone{Title: *f.Title, Body: *f.Body})
		if err := s.writeSlot(ctx, keyDeletedTitleBody, tbs); err != nil {
			return removed, fmt.Errorf("persist content tombstones: %w", err)
		}
	}

	return removed, nil
}

func (s *Store) DeleteByID(ctx context.Context, id string) (int, error) {
	return s.Delete(ctx, Filter{ID: &id})
}

func (s *Store) DeleteByContent(ctx context.Context, title, body string) (int, error) {
	return s.Delete(ctx, Filter{Title: &title, Body: &body})
}

// Clear empties the active collection. Tombstones survive, so previously
// deleted content stays suppressed. Idempotent.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeSlot(ctx, keyNotifications, []Record{}); err != nil {
		return fmt.Errorf("persist notifications: %w", err)
	}
	return nil
}

// Stats reports collection sizes for the maintenance log.
func (s *Store) Stats(ctx context.Context) (active, idTombstones, contentTombstones int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.readRecords(ctx)), len(s.readDeletedIDs(ctx)), len(s.readContentTombstones(ctx))
}

// ---- slot access ----

// readSlot decodes a JSON-array slot. Missing or malformed content reads as
// nil: corrupted history degrades to empty, never to an error surfaced to
// the caller. Decoding goes through a local so a mid-array type mismatch
// cannot leak partially decoded elements.
func readSlot[T any](s *Store, ctx context.Context, key string) []T {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		s.log.Warn("slot read failed; treating as empty", logx.String("slot", key), logx.Err(err))
		return nil
	}
	if !ok || raw == "" {
		return nil
	}
	var out []T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		s.log.Warn("slot malformed; treating as empty", logx.String("slot", key), logx.Err(err))
		return nil
	}
	return out
}

func (s *Store) readRecords(ctx context.Context) []Record {
	return readSlot[Record](s, ctx, keyNotifications)
}

func (s *Store) readDeletedIDs(ctx context.Context) []string {
	return readSlot[string](s, ctx, keyDeletedIDs)
}

func (s *Store) readContentTombstones(ctx context.Context) []contentTombstone {
	return readSlot[contentTombstone](s, ctx, keyDeletedTitleBody)
}

func (s *Store) writeSlot(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.kv.Put(ctx, key, string(b))
}
