package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"noticebot/internal/notify"
	"noticebot/internal/transport"
	logx "noticebot/pkg/logx"
)

const defaultToggleCommand = "/notices"

// Notifier is the async delivery pipeline the monitor fans out through.
// *notify.Service satisfies it.
type Notifier interface {
	Send(ctx context.Context, n notify.Notification) error
}

// Config is the monitor's runtime configuration.
type Config struct {
	ToggleCommand string
	EveryMinutes  int
	Sources       []Source
}

// Deps are the monitor's collaborators, injected so tests can swap the
// fetcher, the notifier and the sender for fakes.
type Deps struct {
	Log      logx.Logger
	Fetcher  Fetcher
	History  *HistoryStore
	Registry *Registry
	Notifier Notifier
	Sender   transport.Sender
	Owners   []int64
}

// Monitor is the polling engine: on schedule ticks it fetches every
// configured listing page, parses it into notices, announces the ones the
// history window has not seen, and persists the new window. It also
// handles the group toggle command.
type Monitor struct {
	log      logx.Logger
	fetcher  Fetcher
	history  *HistoryStore
	registry *Registry
	notifier Notifier
	sender   transport.Sender

	mu     sync.Mutex
	cfg    Config
	owners []int64
	state  ScheduleState
}

func New(cfg Config, d Deps) *Monitor {
	m := &Monitor{
		log:      d.Log,
		fetcher:  d.Fetcher,
		history:  d.History,
		registry: d.Registry,
		notifier: d.Notifier,
		sender:   d.Sender,
		owners:   append([]int64(nil), d.Owners...),
	}
	m.applyLocked(cfg)
	return m
}

// Apply swaps the runtime configuration; live on the next tick.
func (m *Monitor) Apply(cfg Config) {
	m.mu.Lock()
	m.applyLocked(cfg)
	m.mu.Unlock()
}

func (m *Monitor) applyLocked(cfg Config) {
	if cfg.ToggleCommand == "" {
		cfg.ToggleCommand = defaultToggleCommand
	}
	if cfg.EveryMinutes <= 0 {
		cfg.EveryMinutes = 5
	}
	m.cfg = cfg
}

// SetOwners replaces the command allowlist.
func (m *Monitor) SetOwners(owners []int64) {
	m.mu.Lock()
	m.owners = append([]int64(nil), owners...)
	m.mu.Unlock()
}

// HandleEvent routes one transport event. Meta ticks drive the schedule
// gate; group messages may carry the toggle command; everything else is
// observed and dropped.
func (m *Monitor) HandleEvent(ctx context.Context, ev transport.Event) {
	switch ev.Kind {
	case transport.EventMeta:
		m.onTick(ctx, time.Now())
	case transport.EventGroupMessage:
		if ev.Message != nil {
			m.onGroupMessage(ctx, ev.Message)
		}
	case transport.EventPrivateMessage:
		if ev.Message != nil {
			m.log.Debug("private message ignored", logx.Int64("from_id", ev.Message.FromID))
		}
	case transport.EventGroupNotice:
		m.log.Debug("group notice event ignored")
	case transport.EventRequest:
		m.log.Debug("request event ignored")
	case transport.EventResponse:
		m.log.Debug("response event ignored")
	}
}

func (m *Monitor) onTick(ctx context.Context, now time.Time) {
	m.mu.Lock()
	due, next := Gate{Every: m.cfg.EveryMinutes}.ShouldRun(now, m.state)
	if due {
		m.state = next
	}
	m.mu.Unlock()

	if !due {
		return
	}
	m.RunCycle(ctx)
}

func (m *Monitor) onGroupMessage(ctx context.Context, msg *transport.Message) {
	m.mu.Lock()
	toggle := m.cfg.ToggleCommand
	owners := m.owners
	m.mu.Unlock()

	if strings.TrimSpace(msg.Text) != toggle {
		return
	}

	reply := &transport.SendOptions{ReplyTo: msg.ID}
	if !isOwner(msg.FromID, owners) {
		m.log.Info("toggle denied",
			logx.Int64("group_id", msg.GroupID),
			logx.Int64("from_id", msg.FromID))
		m.sendReply(ctx, msg.GroupID, "Only a bot operator can toggle notice monitoring here.", reply)
		return
	}

	on := !m.registry.IsEnabled(ctx, msg.GroupID)
	if err := m.registry.SetEnabled(ctx, msg.GroupID, on); err != nil {
		m.log.Error("toggle failed", logx.Int64("group_id", msg.GroupID), logx.Err(err))
		m.sendReply(ctx, msg.GroupID, "Could not update notice monitoring, try again later.", reply)
		return
	}

	m.log.Info("notice monitoring toggled",
		logx.Int64("group_id", msg.GroupID),
		logx.Int64("from_id", msg.FromID),
		logx.Bool("enabled", on))
	if on {
		m.sendReply(ctx, msg.GroupID, "Notice monitoring enabled for this group. ✅", reply)
	} else {
		m.sendReply(ctx, msg.GroupID, "Notice monitoring disabled for this group. ❌", reply)
	}
}

func (m *Monitor) sendReply(ctx context.Context, groupID int64, text string, opt *transport.SendOptions) {
	if m.sender == nil {
		return
	}
	if err := m.sender.SendToGroup(ctx, groupID, text, opt); err != nil {
		m.log.Warn("toggle reply failed", logx.Int64("group_id", groupID), logx.Err(err))
	}
}

// RunCycle polls every configured source once. Sources are processed
// sequentially and independently: a failing fetch or parse is logged and
// skipped without touching that source's history or the other sources.
// An unreadable history document aborts the whole cycle, because without
// the window everything would look new.
func (m *Monitor) RunCycle(ctx context.Context) {
	started := time.Now()
	m.mu.Lock()
	sources := m.cfg.Sources
	m.mu.Unlock()

	hist, err := m.history.Load(ctx)
	if err != nil {
		m.log.Error("skipping poll cycle", logx.Err(err))
		return
	}

	for _, src := range sources {
		if err := m.pollSource(ctx, src, hist); err != nil {
			m.log.Warn("source poll failed", logx.String("source", src.Label), logx.Err(err))
		}
	}
	m.log.Debug("poll cycle finished",
		logx.Int("sources", len(sources)),
		logx.Duration("took", time.Since(started)))
}

func (m *Monitor) pollSource(ctx context.Context, src Source, hist map[string][]Notice) error {
	body, err := m.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		return err
	}
	items, err := ParseNotices(body, src)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		m.log.Debug("no notices parsed", logx.String("source", src.Label))
		return nil
	}

	var fresh []Notice
	for _, it := range items {
		if !ContainsID(hist, src.Label, it.ID) {
			fresh = append(fresh, it)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	// Persist before dispatching: a crash between the two can lose
	// announcements but never repeat them.
	if err := m.history.Save(ctx, src.Label, items); err != nil {
		return err
	}

	var enqueued int
	for _, it := range fresh {
		text := formatNotice(it)
		// Eligibility is re-read per item so a toggle landing mid-cycle
		// takes effect immediately.
		for _, gid := range m.registry.Targets(ctx) {
			err := m.notifier.Send(ctx, notify.Notification{
				GroupID: gid,
				Text:    text,
				Options: &transport.SendOptions{DisablePreview: true},
			})
			if err != nil {
				m.log.Warn("enqueue failed",
					logx.String("source", src.Label),
					logx.Int64("group_id", gid),
					logx.Err(err))
				continue
			}
			enqueued++
		}
	}
	m.log.Info("new notices announced",
		logx.String("source", src.Label),
		logx.Int("count", len(fresh)),
		logx.Int("deliveries", enqueued))
	return nil
}

func formatNotice(n Notice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 New %s\n", n.Source)
	fmt.Fprintf(&b, "📌 %s\n", n.Title)
	fmt.Fprintf(&b, "🔗 %s", n.Link)
	if n.Summary != "" {
		fmt.Fprintf(&b, "\n📝 %s", n.Summary)
	}
	return b.String()
}

func isOwner(id int64, owners []int64) bool {
	for _, o := range owners {
		if o == id {
			return true
		}
	}
	return false
}
