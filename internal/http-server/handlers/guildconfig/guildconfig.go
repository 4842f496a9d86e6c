package guildconfig

import (
	"fmt"
	"guildsync/entity"
	"guildsync/lib/api/cont"
	"guildsync/lib/api/response"
	"guildsync/lib/sl"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	GuildSettings(guildID string) (*entity.GuildConfig, error)
	SaveGuildSettings(conf *entity.GuildConfig) error
}

func Get(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.guildconfig")
		guildID := chi.URLParam(r, "guildId")

		log := logger.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Guild(guildID),
		)

		if handler == nil {
			log.Error("settings service not available")
			render.JSON(w, r, response.Error("Settings not available"))
			return
		}

		conf, err := handler.GuildSettings(guildID)
		if err != nil {
			log.Error("loading guild settings", sl.Err(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Request failed: %v", err)))
			return
		}
		if conf == nil {
			render.Status(r, 404)
			render.JSON(w, r, response.Error("Guild not configured"))
			return
		}

		render.JSON(w, r, response.Ok(conf))
	}
}

func Save(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.guildconfig")
		guildID := chi.URLParam(r, "guildId")

		log := logger.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Guild(guildID),
		)

		if handler == nil {
			log.Error("settings service not available")
			render.JSON(w, r, response.Error("Settings not available"))
			return
		}

		var conf entity.GuildConfig
		conf.GuildID = guildID
		if err := render.Bind(r, &conf); err != nil {
			log.Error("bind request", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		// The path, not the body, decides which guild is touched.
		conf.GuildID = guildID

		if err := handler.SaveGuildSettings(&conf); err != nil {
			log.Error("saving guild settings", sl.Err(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Request failed: %v", err)))
			return
		}
		log.With(slog.String("operator", cont.GetOperator(r.Context()).Name)).Info("guild settings saved")

		render.JSON(w, r, response.Ok(conf))
	}
}
