package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	logx "noticebot/pkg/logx"
)

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	st, err := Open(Config{Driver: "file", Path: dir}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	ctx := context.Background()

	if _, err := st.GetDoc(ctx, "history"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	body := []byte(`{"notice":[]}`)
	if err := st.PutDoc(ctx, "history", body); err != nil {
		t.Fatalf("PutDoc: %v", err)
	}

	got, err := st.GetDoc(ctx, "history")
	if err != nil {
		t.Fatalf("GetDoc: %v", err)
	}
	if string(got) != string(body) {
		t.Fatalf("unexpected body: %s", got)
	}

	// Overwrite replaces, and no temp file survives.
	if err := st.PutDoc(ctx, "history", []byte(`{}`)); err != nil {
		t.Fatalf("PutDoc overwrite: %v", err)
	}
	got, err = st.GetDoc(ctx, "history")
	if err != nil {
		t.Fatalf("GetDoc after overwrite: %v", err)
	}
	if string(got) != "{}" {
		t.Fatalf("unexpected body after overwrite: %s", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "history.json.tmp")); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestFileStoreRejectsBadNames(t *testing.T) {
	t.Parallel()

	st, err := Open(Config{Driver: "file", Path: t.TempDir()}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	for _, name := range []string{"", "../escape", "a/b", ".hidden"} {
		if err := st.PutDoc(ctx, name, []byte("{}")); err == nil {
			t.Fatalf("expected error for name %q", name)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()

	if _, err := Open(Config{Driver: "bolt", Path: t.TempDir()}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
