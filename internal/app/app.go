package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	telegram "noticebot/internal/adapters/telegram"
	"noticebot/internal/config"
	"noticebot/internal/monitor"
	"noticebot/internal/notify"
	"noticebot/internal/runtime/supervisor"
	"noticebot/internal/scheduler"
	"noticebot/internal/storage"
	"noticebot/internal/transport"
	logx "noticebot/pkg/logx"
)

// App wires the daemon together: transport adapter in, monitor in the
// middle, notify fan-out going back out, with config hot reload on top.
type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service

	store   storage.Store
	adapter transport.Adapter
	notif   *notify.Service
	mon     *monitor.Monitor
	reg     *monitor.Registry
	sched   *scheduler.Scheduler

	events chan transport.Event
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole("INFO").With(logx.String("comp", "telegram"))
	adCfg, err := mapAdapterConfig(cfg)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(adCfg, bootLog)
	if err != nil {
		return nil, err
	}

	// Bootstrap with group forwarding off so Apply() doesn't fire before
	// the target group is set.
	baseLogCfg := mapLogConfig(cfg)
	baseLogCfg.Group.Enabled = false
	logSvc, log := logx.New(baseLogCfg, ad)
	log = log.With(logx.String("comp", "app"))
	setGroupLogTarget(logSvc, cfg.Transport.GroupLog)
	logSvc.Apply(mapLogConfig(cfg))

	scfg, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(scfg, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}

	reg := monitor.NewRegistry(store, log.With(logx.String("comp", "registry")))
	reg.SetMaster(cfg.Monitor.Enabled)

	ncfg, err := mapNotifyConfig(cfg)
	if err != nil {
		return nil, err
	}
	notifSvc := notify.New(ncfg, ad, log.With(logx.String("comp", "notify")))

	fetchTimeout, err := config.ParseDurationField("monitor.fetch_timeout", cfg.Monitor.FetchTimeout, 15*time.Second)
	if err != nil {
		return nil, err
	}

	mon := monitor.New(mapMonitorConfig(cfg), monitor.Deps{
		Log:      log.With(logx.String("comp", "monitor")),
		Fetcher:  monitor.NewHTTPFetcher(fetchTimeout),
		History:  monitor.NewHistoryStore(store),
		Registry: reg,
		Notifier: notifSvc,
		Sender:   ad,
		Owners:   cfg.Transport.OwnerUserIDs,
	})

	a := &App{
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		store:   store,
		adapter: ad,
		notif:   notifSvc,
		mon:     mon,
		reg:     reg,
		events:  make(chan transport.Event, 256),
	}

	if spec := strings.TrimSpace(cfg.Monitor.Schedule); spec != "" {
		sched, err := scheduler.New(spec, cfg.Monitor.Timezone, a.events,
			log.With(logx.String("comp", "scheduler")))
		if err != nil {
			return nil, err
		}
		a.sched = sched
	}
	return a, nil
}

// Done is closed on fatal error or Stop().
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log),
		supervisor.WithCancelOnError(true))

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(c context.Context, cfg *config.Config) error {
		return validateConfig(cfg)
	})

	if err := a.adapter.Start(a.sup.Context(), a.events); err != nil {
		return err
	}
	a.notif.Start(a.sup.Context())
	if a.sched != nil {
		a.sched.Start()
	}

	a.sup.Go0("events.dispatch", func(c context.Context) {
		a.dispatchLoop(c)
	})

	a.sup.GoRestart("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
	})

	a.log.Info("started",
		logx.Int("sources", len(a.cfgm.Get().Monitor.Sources)),
		logx.Bool("monitor_enabled", a.cfgm.Get().Monitor.Enabled))
	return nil
}

// dispatchLoop feeds transport events to the monitor on a small worker
// pool so a running poll cycle never blocks command handling.
func (a *App) dispatchLoop(ctx context.Context) {
	const workers = 2
	work := make(chan transport.Event)
	for i := 0; i < workers; i++ {
		a.sup.Go0(fmt.Sprintf("events.worker.%d", i), func(c context.Context) {
			for {
				select {
				case <-c.Done():
					return
				case ev, ok := <-work:
					if !ok {
						return
					}
					a.mon.HandleEvent(c, ev)
				}
			}
		})
	}
	defer close(work)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-a.events:
			select {
			case work <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: only the newest snapshot matters.
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						cfg = newer
					}
				default:
					goto apply
				}
			}
		apply:
			a.applyConfig(cfg)
		}
	}
}

func (a *App) applyConfig(cfg *config.Config) {
	setGroupLogTarget(a.logs, cfg.Transport.GroupLog)
	a.logs.Apply(mapLogConfig(cfg))

	a.mon.SetOwners(cfg.Transport.OwnerUserIDs)
	a.mon.Apply(mapMonitorConfig(cfg))
	a.reg.SetMaster(cfg.Monitor.Enabled)

	if ncfg, err := mapNotifyConfig(cfg); err == nil {
		a.notif.Apply(ncfg)
	} else {
		a.log.Warn("invalid notify config, keeping previous", logx.Err(err))
	}

	a.log.Info("config applied",
		logx.Int("sources", len(cfg.Monitor.Sources)),
		logx.Bool("monitor_enabled", cfg.Monitor.Enabled))
}

// Stop shuts the daemon down in dependency order, each step bounded.
func (a *App) Stop(ctx context.Context) error {
	if a.sched != nil {
		stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		a.sched.Stop(stopCtx)
		cancel()
	}

	if a.adapter != nil {
		stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		_ = a.adapter.Stop(stopCtx)
		cancel()
	}

	// Drain queued notifications before closing the transport-facing
	// workers.
	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	a.notif.Stop(stopCtx)
	cancel()

	var err error
	if a.sup != nil {
		stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = a.sup.Stop(stopCtx)
		cancel()
	}

	if a.store != nil {
		_ = a.store.Close()
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return err
}

func setGroupLogTarget(svc *logx.Service, raw string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		svc.SetGroupTarget(0)
		return
	}
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		svc.SetGroupTarget(id)
	}
}
