package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "notibridge/pkg/logx"
)

// fileKV is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.snapshot.json (full key->value map)
//   - <prefix>.journal.jsonl (append-only puts since last snapshot)
//
// The journal is periodically compacted into the snapshot. State is held in
// memory; Get never touches disk after open.
type fileKV struct {
	log logx.Logger

	mu sync.Mutex

	snapshotPath string
	journalFile  *os.File
	kv           map[string]string

	writes       int
	compactEvery int
}

type journalRecord struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func openFile(cfg Config, log logx.Logger) (KV, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	snapPath := prefix + ".snapshot.json"
	journalPath := prefix + ".journal.jsonl"

	// Load state from snapshot + journal. Malformed content is skipped, not
	// fatal: a half-written journal line must not brick the store.
	kv := map[string]string{}
	_ = loadSnapshot(snapPath, kv)
	_ = replayJournal(journalPath, kv)

	jf, err := os.OpenFile(journalPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}

	return &fileKV{
		log:          log,
		snapshotPath: snapPath,
		journalFile:  jf,
		kv:           kv,
		compactEvery: 500,
	}, nil
}

func (s *fileKV) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journalFile == nil {
		return nil
	}
	// Final compact so the next open replays nothing.
	if err := s.compactLocked(); err != nil {
		s.log.Debug("final compact failed", logx.Err(err))
	}
	err := s.journalFile.Close()
	s.journalFile = nil
	return err
}

func (s *fileKV) Get(ctx context.Context, key string) (string, bool, error) {
	_ = ctx
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.kv[key]
	return v, ok, nil
}

func (s *fileKV) Put(ctx context.Context, key, value string) error {
	_ = ctx
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journalFile == nil {
		return errors.New("storage journal closed")
	}

	// Journal first; the in-memory map only changes once the put is durable.
	enc := json.NewEncoder(s.journalFile)
	if err := enc.Encode(journalRecord{Key: key, Value: value}); err != nil {
		return err
	}
	s.kv[key] = value

	s.writes++
	if s.compactEvery > 0 && s.writes%s.compactEvery == 0 {
		// Best-effort compact.
		if err := s.compactLocked(); err != nil {
			s.log.Debug("journal compact failed", logx.Err(err))
		}
	}
	return nil
}

func (s *fileKV) Compact(ctx context.Context) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compactLocked()
}

func (s *fileKV) compactLocked() error {
	if s.journalFile == nil {
		return errors.New("storage journal closed")
	}

	tmp := s.snapshotPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(s.kv); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.snapshotPath); err != nil {
		return err
	}
	// Truncate journal.
	if err := s.journalFile.Truncate(0); err != nil {
		return err
	}
	_, err = s.journalFile.Seek(0, 2)
	return err
}

func loadSnapshot(path string, out map[string]string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var m map[string]string
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return err
	}
	for k, v := range m {
		out[k] = v
	}
	return nil
}

func replayJournal(path string, out map[string]string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for s.Scan() {
		var r journalRecord
		if err := json.Unmarshal(s.Bytes(), &r); err != nil {
			continue
		}
		if r.Key == "" {
			continue
		}
		out[r.Key] = r.Value
	}
	return s.Err()
}
