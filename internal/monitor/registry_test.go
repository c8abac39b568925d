package monitor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	logx "noticebot/pkg/logx"
)

func TestRegistryToggleRoundTrip(t *testing.T) {
	t.Parallel()

	st, dir := newTestStore(t)
	r := NewRegistry(st, logx.Nop())
	r.SetMaster(true)
	ctx := context.Background()

	if r.IsEnabled(ctx, 123456) {
		t.Fatal("group enabled before opt-in")
	}
	if err := r.SetEnabled(ctx, 123456, true); err != nil {
		t.Fatalf("SetEnabled on: %v", err)
	}
	if !r.IsEnabled(ctx, 123456) {
		t.Fatal("group not enabled after opt-in")
	}

	// IDs are persisted as strings.
	body, err := os.ReadFile(filepath.Join(dir, "enabled_groups.json"))
	if err != nil {
		t.Fatalf("read doc: %v", err)
	}
	var ids []string
	if err := json.Unmarshal(body, &ids); err != nil {
		t.Fatalf("decode doc: %v", err)
	}
	if len(ids) != 1 || ids[0] != "123456" {
		t.Fatalf("unexpected persisted ids: %v", ids)
	}

	if err := r.SetEnabled(ctx, 123456, false); err != nil {
		t.Fatalf("SetEnabled off: %v", err)
	}
	if r.IsEnabled(ctx, 123456) {
		t.Fatal("group still enabled after opt-out")
	}
}

func TestRegistrySurvivesRestart(t *testing.T) {
	t.Parallel()

	st, _ := newTestStore(t)
	ctx := context.Background()

	r := NewRegistry(st, logx.Nop())
	r.SetMaster(true)
	if err := r.SetEnabled(ctx, 7, true); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}

	// Fresh registry over the same store = process restart.
	r2 := NewRegistry(st, logx.Nop())
	r2.SetMaster(true)
	if !r2.IsEnabled(ctx, 7) {
		t.Fatal("opt-in lost across restart")
	}
	if got := r2.Targets(ctx); len(got) != 1 || got[0] != 7 {
		t.Fatalf("targets = %v", got)
	}
}

func TestRegistryMasterSwitchGatesEverything(t *testing.T) {
	t.Parallel()

	st, _ := newTestStore(t)
	r := NewRegistry(st, logx.Nop())
	r.SetMaster(true)
	ctx := context.Background()

	if err := r.SetEnabled(ctx, 9, true); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	r.SetMaster(false)
	if r.IsEnabled(ctx, 9) {
		t.Fatal("master off must disable delivery")
	}
	if got := r.Targets(ctx); len(got) != 0 {
		t.Fatalf("targets with master off = %v", got)
	}

	// The opt-in itself is preserved.
	r.SetMaster(true)
	if !r.IsEnabled(ctx, 9) {
		t.Fatal("opt-in lost while master was off")
	}
}

func TestRegistrySkipsMalformedIDs(t *testing.T) {
	t.Parallel()

	st, dir := newTestStore(t)
	body := []byte(`["42", "not-a-number", "77"]`)
	if err := os.WriteFile(filepath.Join(dir, "enabled_groups.json"), body, 0o644); err != nil {
		t.Fatalf("seed doc: %v", err)
	}

	r := NewRegistry(st, logx.Nop())
	r.SetMaster(true)
	got := r.Targets(context.Background())
	if len(got) != 2 || got[0] != 42 || got[1] != 77 {
		t.Fatalf("targets = %v", got)
	}
}
