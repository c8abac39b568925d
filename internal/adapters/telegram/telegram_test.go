package telegram

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"noticebot/internal/transport"
	logx "noticebot/pkg/logx"
)

// fakeBot mimics telebot's one-shot Start/Stop handshake: Start blocks
// until the first Stop, and a second Stop would block forever.
type fakeBot struct {
	stopCalls int32
	started   chan struct{}
	stopped   chan struct{}
}

func newFakeBot() *fakeBot {
	return &fakeBot{started: make(chan struct{}), stopped: make(chan struct{})}
}

func (f *fakeBot) Handle(endpoint interface{}, h tele.HandlerFunc, m ...tele.MiddlewareFunc) {}

func (f *fakeBot) Start() {
	close(f.started)
	<-f.stopped
}

func (f *fakeBot) Stop() {
	if atomic.AddInt32(&f.stopCalls, 1) == 1 {
		close(f.stopped)
		return
	}
	// Second caller hangs, like the real handshake.
	select {}
}

func (f *fakeBot) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	return &tele.Message{}, nil
}

func newTestAdapter(bot botClient) *Adapter {
	return &Adapter{
		cfg: Config{PollTimeout: time.Second, Heartbeat: 10 * time.Millisecond},
		log: logx.Nop(),
		bot: bot,
	}
}

func TestStopCallsBotStopExactlyOnce(t *testing.T) {
	t.Parallel()

	fb := newFakeBot()
	a := newTestAdapter(fb)
	out := make(chan transport.Event, 16)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Start(ctx, out); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-fb.started:
	case <-time.After(time.Second):
		t.Fatal("poll loop never started")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer stopCancel()
	if err := a.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if n := atomic.LoadInt32(&fb.stopCalls); n != 1 {
		t.Fatalf("bot.Stop called %d times, want 1", n)
	}

	// Idempotent: a second adapter Stop is a no-op, not a second
	// handshake.
	if err := a.Stop(stopCtx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if n := atomic.LoadInt32(&fb.stopCalls); n != 1 {
		t.Fatalf("bot.Stop called %d times after double Stop, want 1", n)
	}
}

func TestHeartbeatEmitsMetaEvents(t *testing.T) {
	t.Parallel()

	fb := newFakeBot()
	a := newTestAdapter(fb)
	out := make(chan transport.Event, 16)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Start(ctx, out); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Stop(context.Background())

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-out:
			if ev.Kind == transport.EventMeta {
				return
			}
		case <-deadline:
			t.Fatal("no meta tick observed")
		}
	}
}
