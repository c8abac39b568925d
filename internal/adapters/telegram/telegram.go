package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	"noticebot/internal/transport"
	logx "noticebot/pkg/logx"
)

type Config struct {
	Token       string
	PollTimeout time.Duration
	// Heartbeat is the interval between synthetic meta ticks. The
	// schedule gate needs at least one tick per minute; anything in the
	// 20-30s range is plenty.
	Heartbeat time.Duration
}

// botClient is the slice of telebot the adapter drives. *tele.Bot
// satisfies it; tests swap in a fake to exercise the lifecycle without
// the network.
type botClient interface {
	Handle(endpoint interface{}, h tele.HandlerFunc, m ...tele.MiddlewareFunc)
	Start()
	Stop()
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Adapter bridges Telegram long polling to the transport event stream.
type Adapter struct {
	cfg Config
	log logx.Logger

	bot       botClient
	out       chan<- transport.Event
	runCancel context.CancelFunc
	runWG     sync.WaitGroup
	runMu     sync.Mutex
	running   bool

	// dropped counts events lost because the consumer lagged the poll
	// loop; flushed to the log periodically instead of per event.
	dropped uint64
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 10 * time.Second
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 20 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: cfg.PollTimeout},
	})
	if err != nil {
		return nil, err
	}
	return &Adapter{cfg: cfg, log: log, bot: b}, nil
}

func (a *Adapter) Start(ctx context.Context, out chan<- transport.Event) error {
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return nil
	}
	a.running = true
	a.out = out
	rctx, cancel := context.WithCancel(ctx)
	a.runCancel = cancel
	a.runWG.Add(3)
	a.runMu.Unlock()

	// Heartbeat: Telegram has no server-driven clock events, so the
	// adapter synthesizes the meta ticks the schedule gate consumes.
	go func() {
		defer a.runWG.Done()
		ticker := time.NewTicker(a.cfg.Heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-rctx.Done():
				return
			case <-ticker.C:
				a.emit(out, transport.Event{Kind: transport.EventMeta})
			}
		}
	}()

	// Periodic summary of dropped events.
	go func() {
		defer a.runWG.Done()
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		flush := func() {
			if n := atomic.SwapUint64(&a.dropped, 0); n > 0 {
				a.log.Warn("incoming events dropped (channel full)",
					logx.Int64("count", int64(n)),
					logx.Int("chan_cap", cap(out)))
			}
		}
		for {
			select {
			case <-rctx.Done():
				flush()
				return
			case <-ticker.C:
				flush()
			}
		}
	}()

	a.bot.Handle(tele.OnText, func(c tele.Context) error {
		m := c.Message()
		if m == nil || m.Sender == nil {
			return nil
		}
		msg := &transport.Message{
			ID:           m.ID,
			FromID:       m.Sender.ID,
			FromUsername: m.Sender.Username,
			Text:         m.Text,
		}
		kind := transport.EventPrivateMessage
		if m.Chat != nil && m.Chat.Type != tele.ChatPrivate {
			kind = transport.EventGroupMessage
			msg.IsGroup = true
			msg.GroupID = m.Chat.ID
		}
		a.emit(out, transport.Event{Kind: kind, Message: msg})
		return nil
	})

	go func() {
		defer a.runWG.Done()
		// Sole caller of bot.Stop: telebot's Stop is a one-shot
		// handshake with the Start loop, so a second caller blocks
		// forever.
		go func() {
			<-rctx.Done()
			a.bot.Stop()
		}()
		a.log.Info("polling started")
		a.bot.Start() // blocks until Stop()
	}()

	return nil
}

func (a *Adapter) emit(out chan<- transport.Event, ev transport.Event) {
	select {
	case out <- ev:
	default:
		atomic.AddUint64(&a.dropped, 1)
	}
}

// Stop is best-effort graceful: shutdown never waits long on a pending
// long poll.
func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	cancel := a.runCancel
	a.runCancel = nil
	wasRunning := a.running
	a.running = false
	a.runMu.Unlock()

	if !wasRunning {
		return nil
	}
	// Canceling rctx drives the single bot.Stop() caller in Start.
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		a.runWG.Wait()
		close(done)
	}()

	grace := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem > 0 && rem < grace {
			grace = rem
		}
	}
	t := time.NewTimer(grace)
	defer t.Stop()

	select {
	case <-done:
		a.log.Info("polling stopped")
		return nil
	case <-ctx.Done():
		a.log.Warn("telegram stop cancelled", logx.Err(ctx.Err()))
		return ctx.Err()
	case <-t.C:
		a.log.Warn("telegram stop grace elapsed, continuing shutdown")
		return nil
	}
}

func (a *Adapter) SendToGroup(ctx context.Context, groupID int64, text string, opt *transport.SendOptions) error {
	return a.send(groupID, text, opt)
}

func (a *Adapter) SendToUser(ctx context.Context, userID int64, text string, opt *transport.SendOptions) error {
	return a.send(userID, text, opt)
}

func (a *Adapter) send(chatID int64, text string, opt *transport.SendOptions) error {
	if opt == nil {
		opt = &transport.SendOptions{}
	}
	sendOpt := &tele.SendOptions{
		DisableWebPagePreview: opt.DisablePreview,
	}
	if opt.ReplyTo != 0 {
		sendOpt.ReplyTo = &tele.Message{ID: opt.ReplyTo, Chat: &tele.Chat{ID: chatID}}
	}
	_, err := a.bot.Send(&tele.Chat{ID: chatID}, text, sendOpt)
	return err
}
