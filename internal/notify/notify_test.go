package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"noticebot/internal/transport"
	logx "noticebot/pkg/logx"
)

type fakeSender struct {
	mu    sync.Mutex
	sent  []int64
	fails map[int64]int // remaining failures per group
	done  chan struct{}
	want  int
}

func newFakeSender(want int) *fakeSender {
	return &fakeSender{fails: map[int64]int{}, done: make(chan struct{}), want: want}
}

func (f *fakeSender) SendToGroup(ctx context.Context, groupID int64, text string, opt *transport.SendOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails[groupID] > 0 {
		f.fails[groupID]--
		return errors.New("transport down")
	}
	f.sent = append(f.sent, groupID)
	if len(f.sent) == f.want {
		close(f.done)
	}
	return nil
}

func (f *fakeSender) SendToUser(ctx context.Context, userID int64, text string, opt *transport.SendOptions) error {
	return nil
}

func (f *fakeSender) snapshot() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.sent...)
}

func TestSendFansOutToAllTargets(t *testing.T) {
	t.Parallel()

	sender := newFakeSender(3)
	svc := New(Config{Workers: 2, RatePerSec: 100}, sender, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop(context.Background())

	for _, gid := range []int64{100, 200, 300} {
		if err := svc.Send(ctx, Notification{GroupID: gid, Text: "hello"}); err != nil {
			t.Fatalf("Send(%d): %v", gid, err)
		}
	}

	select {
	case <-sender.done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out; sent so far: %v", sender.snapshot())
	}
}

func TestFailingTargetDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	sender := newFakeSender(2)
	// group 100 fails more times than RetryMax allows, so it is dropped;
	// groups 200 and 300 must still be delivered.
	sender.fails[100] = 10
	svc := New(Config{Workers: 2, RatePerSec: 100, RetryMax: 1, RetryBase: time.Millisecond, RetryMaxDelay: 2 * time.Millisecond}, sender, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop(context.Background())

	for _, gid := range []int64{100, 200, 300} {
		if err := svc.Send(ctx, Notification{GroupID: gid, Text: "hi"}); err != nil {
			t.Fatalf("Send(%d): %v", gid, err)
		}
	}

	select {
	case <-sender.done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out; sent so far: %v", sender.snapshot())
	}
	for _, gid := range sender.snapshot() {
		if gid == 100 {
			t.Fatal("group 100 should not have been delivered")
		}
	}
}

func TestConcurrentSendAndStopNeverPanics(t *testing.T) {
	t.Parallel()

	// Send checks intake state, releases the lock, then enqueues; Stop
	// must not close the queue inside that window. Hammer the pair to
	// catch a regression to send-on-closed-channel.
	for i := 0; i < 200; i++ {
		svc := New(Config{Workers: 1, RatePerSec: 1000}, newFakeSender(0), logx.Nop())
		ctx := context.Background()
		svc.Start(ctx)

		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					err := svc.Send(ctx, Notification{GroupID: 1, Text: "x"})
					if errors.Is(err, ErrStopped) {
						return
					}
				}
			}()
		}
		svc.Stop(ctx)
		wg.Wait()
	}
}

func TestSendAfterStopReturnsErrStopped(t *testing.T) {
	t.Parallel()

	svc := New(Config{}, newFakeSender(0), logx.Nop())
	ctx := context.Background()
	svc.Start(ctx)
	svc.Stop(ctx)

	if err := svc.Send(ctx, Notification{GroupID: 1, Text: "x"}); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}
