package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"server-warden/internal/botlog"
	"server-warden/internal/config"
	"server-warden/internal/discord"
	"server-warden/internal/storage"
	"server-warden/internal/users"
	v "server-warden/internal/version"
	"server-warden/pkg/jobmgr"
)

func main() {
	log.Printf("[INFO] Starting %v bot...", v.AppName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.New()
	if err != nil {
		log.Fatal(err)
	}

	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	actionLog := botlog.New(cfg.ActionLogPath)

	bot, err := discord.NewBot(cfg)
	if err != nil {
		log.Fatal(err)
	}

	svc, err := users.NewService(cfg, store, bot.Notifier(), actionLog)
	if err != nil {
		log.Fatal(err)
	}
	if err := svc.RestoreState(); err != nil {
		log.Println("[WARN] Failed to restore warden state:", err)
	}

	jobs := jobmgr.NewManager(func(msg string) {
		log.Println("[INFO] Job:", msg)
	})
	defer jobs.StopAll()

	mustStart := func(name string, runner func(context.Context) error) {
		if err := jobs.StartAsync(ctx, name, runner); err != nil {
			log.Fatal(err)
		}
	}
	mustStart("snapshot", func(ctx context.Context) error {
		svc.RunSnapshotLoop(ctx)
		return nil
	})
	mustStart("cooldown-sweep", func(ctx context.Context) error {
		svc.RunCooldownSweeper(ctx)
		return nil
	})

	errCh := make(chan error, 1)
	go func() {
		if err := bot.Run(ctx, svc); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Printf("[INFO] Received signal %s, shutting down...\n", s)
		cancel()
	case err := <-errCh:
		if err != nil {
			log.Println("[ERR] Discord bot error:", err)
		}
		cancel()
	case <-ctx.Done():
	}

	log.Println("[INFO] Discord bot exited cleanly")
}
