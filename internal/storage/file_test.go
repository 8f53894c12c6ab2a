package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	logx "notibridge/pkg/logx"
)

func TestFileKVRoundTripAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Driver: "file", Path: filepath.Join(dir, "store")}
	ctx := context.Background()

	kv, err := Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := kv.Put(ctx, "alpha", "1"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := kv.Put(ctx, "beta", "2"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := kv.Put(ctx, "alpha", "3"); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	if err := kv.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	kv, err = Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer kv.Close()

	v, ok, err := kv.Get(ctx, "alpha")
	if err != nil || !ok {
		t.Fatalf("Get alpha: ok=%v err=%v", ok, err)
	}
	if v != "3" {
		t.Fatalf("last write must win, got %q", v)
	}
	if v, ok, _ := kv.Get(ctx, "beta"); !ok || v != "2" {
		t.Fatalf("Get beta: ok=%v v=%q", ok, v)
	}
	if _, ok, _ := kv.Get(ctx, "missing"); ok {
		t.Fatalf("missing key must not exist")
	}
}

func TestFileKVCompaction(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Driver: "file", Path: filepath.Join(dir, "store")}
	ctx := context.Background()

	kv, err := Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := 0; i < 10; i++ {
		if err := kv.Put(ctx, "key", "value"); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	c, ok := kv.(Compactor)
	if !ok {
		t.Fatalf("file backend must implement Compactor")
	}
	if err := c.Compact(ctx); err != nil {
		t.Fatalf("Compact: %v", err)
	}

	// Journal is truncated after compaction; snapshot carries the state.
	journal := filepath.Join(dir, "store.journal.jsonl")
	fi, err := os.Stat(journal)
	if err != nil {
		t.Fatalf("stat journal: %v", err)
	}
	if fi.Size() != 0 {
		t.Fatalf("journal not truncated, size=%d", fi.Size())
	}
	if err := kv.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	kv, err = Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer kv.Close()
	if v, ok, _ := kv.Get(ctx, "key"); !ok || v != "value" {
		t.Fatalf("state lost after compaction: ok=%v v=%q", ok, v)
	}
}

func TestFileKVSkipsMalformedJournalLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store")
	ctx := context.Background()

	journal := filepath.Join(dir, "store.journal.jsonl")
	content := `{"key":"good","value":"1"}` + "\n" +
		`this is not json` + "\n" +
		`{"key":"later","value":"2"}` + "\n"
	if err := os.WriteFile(journal, []byte(content), 0o600); err != nil {
		t.Fatalf("seed journal: %v", err)
	}

	kv, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer kv.Close()

	if v, ok, _ := kv.Get(ctx, "good"); !ok || v != "1" {
		t.Fatalf("good line lost: ok=%v v=%q", ok, v)
	}
	if v, ok, _ := kv.Get(ctx, "later"); !ok || v != "2" {
		t.Fatalf("line after corruption lost: ok=%v v=%q", ok, v)
	}
}
