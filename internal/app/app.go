// Package app wires the bridge together: config, logging, storage, history,
// delivery pipeline, inbound adapter, UI bridge server, and maintenance.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/hashicorp/go-multierror"
	"github.com/robfig/cron/v3"

	"notibridge/internal/config"
	"notibridge/internal/eventbus"
	"notibridge/internal/history"
	"notibridge/internal/inbound"
	"notibridge/internal/notifier"
	"notibridge/internal/server"
	"notibridge/internal/sink/telegram"
	"notibridge/internal/storage"
	"notibridge/internal/tray"
	logx "notibridge/pkg/logx"
)

type App struct {
	cfgm *config.Manager

	logs *logx.Service
	log  logx.Logger

	kv    storage.KV
	hist  *history.Store
	bus   eventbus.Bus
	notif *notifier.Service
	in    *inbound.Service
	srv   *server.Server
	trayR *tray.Renderer

	cron *cron.Cron

	stopWatch context.CancelFunc
	wg        sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(logSvc.Logger().With(logx.String("comp", "config")))

	// Storage
	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	kv, err := storage.Open(sc, logSvc.Logger().With(logx.String("comp", "storage")))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	log.Info("storage opened", logx.String("driver", driverName(sc.Driver)), logx.String("path", sc.Path))

	hist := history.New(kv, logSvc.Logger().With(logx.String("comp", "history")))
	bus := eventbus.New()

	// Delivery sinks: tray always, telegram mirror when configured.
	trayR := tray.New(tray.Config{
		AppName:   cfg.Tray.AppName,
		Icon:      cfg.Tray.Icon,
		TimeoutMS: cfg.Tray.TimeoutMS,
	}, logSvc.Logger().With(logx.String("comp", "tray")))
	sinks := []notifier.Sink{trayR}

	if cfg.Telegram != nil && strings.TrimSpace(cfg.Telegram.Token) != "" {
		tg, err := telegram.New(telegram.Config{
			Token:  cfg.Telegram.Token,
			ChatID: cfg.Telegram.ChatID,
		}, logSvc.Logger().With(logx.String("comp", "telegram")))
		if err != nil {
			return nil, fmt.Errorf("telegram sink: %w", err)
		}
		sinks = append(sinks, tg)
		log.Info("telegram mirror enabled", logx.Int64("chat_id", cfg.Telegram.ChatID))
	}

	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return nil, err
	}
	notif := notifier.New(ncfg, sinks, logSvc.Logger().With(logx.String("comp", "notifier")))

	icfg, err := mapInboundConfig(cfg)
	if err != nil {
		return nil, err
	}
	in := inbound.New(icfg, hist, notif, bus, kv, logSvc.Logger().With(logx.String("comp", "inbound")))

	scfg, err := mapServerConfig(cfg)
	if err != nil {
		return nil, err
	}
	srv := server.New(scfg, hist, in, bus, logSvc.Logger().With(logx.String("comp", "server")))

	a := &App{
		cfgm:  cfgm,
		logs:  logSvc,
		log:   log,
		kv:    kv,
		hist:  hist,
		bus:   bus,
		notif: notif,
		in:    in,
		srv:   srv,
		trayR: trayR,
	}

	if cfg.Maintenance.Enabled {
		a.cron = cron.New()
		spec := strings.TrimSpace(cfg.Maintenance.Schedule)
		if spec == "" {
			spec = "@hourly"
		}
		if _, err := a.cron.AddFunc(spec, a.maintain); err != nil {
			return nil, fmt.Errorf("maintenance schedule %q: %w", spec, err)
		}
	}

	return a, nil
}

func (a *App) Start(ctx context.Context) error {
	a.notif.Start()
	if err := a.srv.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	if a.cron != nil {
		a.cron.Start()
	}

	// Config hot reload: watcher plus a subscriber applying live-updatable
	// sections. Address and storage changes need a restart.
	wctx, cancel := context.WithCancel(ctx)
	a.stopWatch = cancel
	sub := a.cfgm.Subscribe(4)
	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		_ = a.cfgm.Watch(wctx)
	}()
	go func() {
		defer a.wg.Done()
		old := a.cfgm.Get()
		for {
			select {
			case <-wctx.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyReload(old, cfg)
				old = cfg
			}
		}
	}()

	// Best-effort; no-op outside systemd.
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	a.log.Info("bridge started", logx.String("addr", a.srv.Addr()))
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	var result *multierror.Error

	if a.stopWatch != nil {
		a.stopWatch()
	}
	if a.srv != nil {
		if err := a.srv.Stop(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("server: %w", err))
		}
	}
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	a.notif.Stop(ctx)
	a.wg.Wait()

	if a.trayR != nil {
		if err := a.trayR.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("tray: %w", err))
		}
	}
	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("storage: %w", err))
		}
	}
	if err := a.logs.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("log sink: %w", err))
	}

	return result.ErrorOrNil()
}

func (a *App) applyReload(old, cfg *config.Config) {
	changed, attrs := config.SummarizeChange(old, cfg)
	if len(changed) == 0 {
		return
	}
	a.log.Info("config reloaded", append([]logx.Field{logx.Any("sections", changed)}, attrs...)...)

	a.logs.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	if ncfg, err := mapNotifierConfig(cfg); err == nil {
		a.notif.Apply(ncfg)
	} else {
		a.log.Warn("notifier config invalid; keeping previous", logx.Err(err))
	}

	for _, section := range changed {
		switch section {
		case "server", "storage", "telegram", "tray", "inbound", "maintenance":
			a.log.Warn("config section needs restart to apply", logx.String("section", section))
		}
	}
}

// maintain compacts the storage journal (file backend) and logs collection
// sizes. Tombstones are intentionally left alone.
func (a *App) maintain() {
	ctx := context.Background()
	if c, ok := a.kv.(storage.Compactor); ok {
		if err := c.Compact(ctx); err != nil {
			a.log.Warn("storage compact failed", logx.Err(err))
		}
	}
	active, ids, contents := a.hist.Stats(ctx)
	a.log.Info("history stats",
		logx.Int("active", active),
		logx.Int("id_tombstones", ids),
		logx.Int("content_tombstones", contents),
	)
}

func driverName(d string) string {
	if strings.TrimSpace(d) == "" {
		return "file"
	}
	return d
}
