package logger

import (
	"log"
	"log/slog"
	"os"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// SetupLogger builds the application logger for the environment and wraps it
// with the ops-channel mirror. The returned DiscordHandler stays silent until
// a notifier is attached, so logging works before the gateway session opens.
func SetupLogger(env, logPath string) (*slog.Logger, *DiscordHandler) {
	var base slog.Handler
	var logFile *os.File
	var err error

	if env != envLocal {
		logFile, err = os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("error opening log file: ", err)
		}
		log.Printf("env: %s; log file: %s", env, logPath)
	}

	switch env {
	case envLocal:
		base = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	case envDev:
		base = slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug})
	case envProd:
		base = slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		log.Fatal("invalid environment: ", env)
	}

	mirror := NewDiscordHandler(base, slog.LevelWarn)
	return slog.New(mirror), mirror
}
