package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"schoolcore/internal/blob/core"
)

func TestPutGetHeadDelete(t *testing.T) {
	ctx := context.Background()
	st, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if st.Driver() != core.DriverFilesystem {
		t.Fatalf("driver %s", st.Driver())
	}
	info, err := st.Put(ctx, "backups/a.json", bytes.NewBufferString(`{"students":[]}`), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"source": "sqlite"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 15 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}

	got, rc, err := st.Get(ctx, "backups/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != `{"students":[]}` {
		t.Fatalf("body %q", body)
	}
	if got.ContentType != "application/json" || got.Metadata["source"] != "sqlite" || got.ETag != info.ETag {
		t.Fatalf("get info %+v", got)
	}

	head, err := st.Head(ctx, "backups/a.json")
	if err != nil || head.Size != info.Size {
		t.Fatalf("head %+v %v", head, err)
	}

	ok, err := st.Delete(ctx, "backups/a.json")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	ok, err = st.Delete(ctx, "backups/a.json")
	if err != nil || ok {
		t.Fatalf("second delete should report absent: %v %v", ok, err)
	}
	if _, err := st.Head(ctx, "backups/a.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := st.Get(ctx, "backups/a.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from get, got %v", err)
	}
}

func TestPutIsCreateOnly(t *testing.T) {
	ctx := context.Background()
	st, _ := New(t.TempDir())
	if _, err := st.Put(ctx, "k", bytes.NewBufferString("one"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := st.Put(ctx, "k", bytes.NewBufferString("two"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	_, rc, _ := st.Get(ctx, "k")
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "one" {
		t.Fatalf("original content overwritten: %q", body)
	}
	entries, _ := os.ReadDir(st.Root())
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Fatalf("leftover temp file %s", e.Name())
		}
	}
}

func TestInvalidKeys(t *testing.T) {
	st, _ := New(t.TempDir())
	for _, key := range []string{"", "  ", "../escape", "/abs", "x.meta"} {
		if _, err := st.Put(context.Background(), key, bytes.NewBufferString("x"), core.PutOptions{}); !errors.Is(err, core.ErrInvalidKey) {
			t.Fatalf("key %q: expected ErrInvalidKey, got %v", key, err)
		}
	}
}

func TestListPrefixOrdered(t *testing.T) {
	ctx := context.Background()
	st, _ := New(t.TempDir())
	for _, k := range []string{"backups/2", "other/x", "backups/1", "backups/nested/3"} {
		if _, err := st.Put(ctx, k, bytes.NewBufferString(k), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	infos, err := st.List(ctx, "backups/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"backups/1", "backups/2", "backups/nested/3"}
	if len(infos) != len(want) {
		t.Fatalf("expected %d infos, got %+v", len(want), infos)
	}
	for i, k := range want {
		if infos[i].Key != k {
			t.Fatalf("position %d: want %s got %s", i, k, infos[i].Key)
		}
	}
	all, _ := st.List(ctx, "")
	if len(all) != 4 {
		t.Fatalf("expected 4 blobs, got %d", len(all))
	}
}

func TestCancelledContext(t *testing.T) {
	st, _ := New(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := st.Put(ctx, "k", bytes.NewBufferString("x"), core.PutOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewDefaultRoot(t *testing.T) {
	t.Chdir(t.TempDir())
	st, err := New("")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := os.Stat(st.Root()); err != nil {
		t.Fatalf("default root not created: %v", err)
	}
}
