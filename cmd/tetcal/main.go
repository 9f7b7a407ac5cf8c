package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"tetcal/internal/calendar"
	"tetcal/internal/config"
	"tetcal/internal/events"
	"tetcal/internal/insight"
	appLog "tetcal/internal/log"
	"tetcal/internal/persist"
	"tetcal/internal/scheduler"
	"tetcal/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	debug      bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	conf.ApplyEnv()

	// CLI flags override both the file and the environment.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	level := appLog.ParseLevel(conf.LogLevel)
	if flags.debug {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)

	appLog.Info("tetcal starting", "version", "0.1.0")
	appLog.Info("effective config",
		"listen", conf.Listen,
		"year", conf.Year,
		"week_start", conf.WeekStart,
		"storage", conf.Storage.Backend,
		"insight_model", conf.Insight.Model,
		"insight_key_set", conf.Insight.APIKey != "",
		"prefetch", conf.Insight.Prefetch,
		"once", flags.once,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, conf, flags.once); err != nil {
		appLog.Error("tetcal exited with error", err)
		os.Exit(1)
	}
	appLog.Info("tetcal exiting")
}

func run(ctx context.Context, conf *config.Config, once bool) error {
	port, err := persist.Open(conf.Storage)
	if err != nil {
		return err
	}
	defer port.Close()

	eventOpts := []events.Option{
		events.WithKey(conf.Storage.EventsKey),
		events.WithYear(conf.Year),
	}
	if len(conf.Holidays) > 0 {
		seed := make([]events.Holiday, 0, len(conf.Holidays))
		for _, h := range conf.Holidays {
			seed = append(seed, events.Holiday{Date: h.Date, Title: h.Title})
		}
		eventOpts = append(eventOpts, events.WithSeed(seed))
	}
	store, err := events.New(port, eventOpts...)
	if err != nil {
		return err
	}
	appLog.Info("event collection ready", "events", len(store.All()), "key", conf.Storage.EventsKey)

	cache := insight.NewCache(port, newProvider(ctx, conf), insight.WithCacheKey(conf.Storage.InsightsKey))

	if once {
		stored := cache.Prefetch(ctx, calendar.MonthNames()...)
		appLog.Info("insight warm-up done", "stored", stored)
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if conf.Insight.Prefetch != "" {
		sched := scheduler.New(cache, scheduler.Options{
			Spec:    conf.Insight.Prefetch,
			Year:    conf.Year,
			Timeout: 2 * time.Minute,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sched.Start(ctx); err != nil {
				appLog.Error("scheduler failed", err)
				return
			}
			sched.Stop()
		}()
	}

	err = web.NewServer(conf, store, cache).Run(ctx)
	// A failed listener must still stop the scheduler.
	cancel()
	wg.Wait()
	return err
}

// newProvider returns the Gemini provider, or nil when no key is configured,
// in which case every insight request is answered with the fallback.
func newProvider(ctx context.Context, conf *config.Config) insight.Provider {
	if conf.Insight.APIKey == "" {
		appLog.Info("no insight api key; month insights use the fallback")
		return nil
	}
	p, err := insight.NewGeminiProvider(ctx, insight.GeminiOptions{
		APIKey:  conf.Insight.APIKey,
		Model:   conf.Insight.Model,
		Year:    conf.Year,
		Timeout: conf.Insight.Timeout,
	})
	if err != nil {
		appLog.Error("gemini provider unavailable; month insights use the fallback", err)
		return nil
	}
	return p
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./tetcal.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Warm the insight cache for all twelve months and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
