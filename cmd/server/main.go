package main

import (
	"flag"
	"guildsync/bot"
	"guildsync/impl/auth"
	"guildsync/impl/core"
	"guildsync/internal/aichat"
	"guildsync/internal/announcer"
	"guildsync/internal/config"
	"guildsync/internal/database"
	"guildsync/internal/gateway"
	"guildsync/internal/holidays"
	"guildsync/internal/http-server/api"
	"guildsync/internal/scheduler"
	"guildsync/lib/logger"
	"guildsync/lib/sl"
	"guildsync/tracker"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
)

const logFileName = "guildsync.log"

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	confSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "conf" {
			confSet = true
		}
	})
	if env := os.Getenv("SYNC_CONFIG_PATH"); env != "" && !confSet {
		*configPath = env
	}

	conf := config.MustLoad(*configPath)
	log, mirror := logger.SetupLogger(conf.Env, filepath.Join(*logPath, logFileName))
	log.Info("starting guildsync", slog.String("config", *configPath), slog.String("env", conf.Env))

	if conf.Discord.Token == "" {
		log.Error("discord token is not configured")
		os.Exit(1)
	}

	gw, err := gateway.New(conf.Discord.Token, log)
	if err != nil {
		log.Error("creating gateway session", sl.Err(err))
		os.Exit(1)
	}

	mongo := database.NewMongoClient(conf)
	if mongo == nil {
		log.Warn("mongodb disabled: settings, birthdays and chat history will not persist")
	}

	// interface vars stay nil when mongo is off; a plain assignment would
	// wrap the nil pointer and defeat the nil checks downstream
	var journal tracker.Journal
	var store bot.Database
	var history aichat.History
	if mongo != nil {
		journal = mongo
		store = mongo
		history = mongo
	}

	trk := tracker.New(log, gw, journal)
	events := holidays.NewClient(log)

	var chat bot.Chat
	if conf.AI.Enabled {
		chat = aichat.New(conf.AI, history, log)
	}

	b := bot.New(log, gw, store, trk, chat, events, conf.Discord)
	if err = b.Start(); err != nil {
		log.Error("starting bot", sl.Err(err))
		os.Exit(1)
	}
	mirror.SetNotifier(b)

	var sched *scheduler.Scheduler
	if mongo != nil {
		annc := announcer.New(log, mongo, events, b)
		sched, err = scheduler.New(log, conf.Announce, annc)
		if err != nil {
			log.Error("creating scheduler", sl.Err(err))
			os.Exit(1)
		}
		if err = sched.Start(); err != nil {
			log.Error("starting scheduler", sl.Err(err))
			os.Exit(1)
		}
	}

	if conf.Dashboard.Enabled {
		var storage core.Storage
		if mongo != nil {
			storage = mongo
		}
		handler := core.New(log, storage, trk, auth.New(conf.Dashboard.Token))
		go func() {
			if apiErr := api.New(conf, log, handler); apiErr != nil {
				log.Error("api server stopped", sl.Err(apiErr))
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", slog.String("signal", sig.String()))

	if sched != nil {
		sched.Stop()
	}
	b.Stop()
	log.Info("stopped")
}
