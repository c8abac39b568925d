package scheduler

import (
	"context"
	"testing"
	"time"

	"noticebot/internal/transport"
	logx "noticebot/pkg/logx"
)

func TestNewRejectsBadInput(t *testing.T) {
	t.Parallel()

	out := make(chan transport.Event, 1)
	if _, err := New("not a cron spec", "", out, logx.Nop()); err == nil {
		t.Fatal("expected error for bad cron spec")
	}
	if _, err := New("* * * * *", "Mars/Olympus", out, logx.Nop()); err == nil {
		t.Fatal("expected error for bad timezone")
	}
}

func TestTickEmitsMetaEventAndDropsWhenFull(t *testing.T) {
	t.Parallel()

	out := make(chan transport.Event, 1)
	s, err := New("* * * * *", "UTC", out, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	s.tick()
	select {
	case ev := <-out:
		if ev.Kind != transport.EventMeta {
			t.Fatalf("kind = %q", ev.Kind)
		}
	default:
		t.Fatal("no event emitted")
	}

	// Fill the channel; the next tick must not block.
	out <- transport.Event{Kind: transport.EventMeta}
	done := make(chan struct{})
	go func() {
		s.tick()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tick blocked on a full channel")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
