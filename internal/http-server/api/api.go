package api

import (
	"fmt"
	"guildsync/internal/config"
	"guildsync/internal/http-server/handlers/birthdays"
	"guildsync/internal/http-server/handlers/errors"
	"guildsync/internal/http-server/handlers/guildconfig"
	"guildsync/internal/http-server/handlers/health"
	"guildsync/internal/http-server/handlers/invitestats"
	"guildsync/internal/http-server/handlers/memberlog"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"guildsync/internal/http-server/middleware/authenticate"
	"guildsync/internal/http-server/middleware/timeout"
	"guildsync/lib/sl"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	guildconfig.Core
	birthdays.Core
	invitestats.Core
	memberlog.Core
}

func New(conf *config.Config, log *slog.Logger, handler Handler) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	router := chi.NewRouter()
	router.Use(timeout.Timeout(5))
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Get("/health", health.Live())

	router.Route("/v1", func(rootApi chi.Router) {
		rootApi.Use(authenticate.New(log, handler))
		rootApi.Route("/guilds/{guildId}", func(guild chi.Router) {
			guild.Get("/config", guildconfig.Get(log, handler))
			guild.Post("/config", guildconfig.Save(log, handler))
			guild.Get("/birthdays", birthdays.List(log, handler))
			guild.Post("/birthdays", birthdays.Save(log, handler))
			guild.Delete("/birthdays/{userId}", birthdays.Delete(log, handler))
			guild.Get("/invites", invitestats.Get(log, handler))
			guild.Get("/members/log", memberlog.Get(log, handler))
		})
	})

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:      router,
		ErrorLog:     httpLog,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIp, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
