package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ReadFile decodes the document at path. A missing file yields an empty
// document so a fresh path starts with no records.
func ReadFile(path string) (Document, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Document{}, nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return Decode(f)
}

// WriteFile replaces the file at path with doc. The document is written to a
// temporary sibling, synced, and renamed over the target so readers only ever
// observe a complete file.
func WriteFile(path string, doc Document) (retErr error) {
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
