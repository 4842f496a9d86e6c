package birthdays

import (
	"fmt"
	"guildsync/entity"
	"guildsync/lib/api/cont"
	"guildsync/lib/api/response"
	"guildsync/lib/sl"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	Birthdays(guildID string) ([]entity.Birthday, error)
	SaveBirthday(birthday *entity.Birthday) error
	DeleteBirthday(guildID, userID string) (bool, error)
}

func List(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.birthdays")
		guildID := chi.URLParam(r, "guildId")

		log := logger.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Guild(guildID),
		)

		if handler == nil {
			log.Error("birthday service not available")
			render.JSON(w, r, response.Error("Birthdays not available"))
			return
		}

		birthdays, err := handler.Birthdays(guildID)
		if err != nil {
			log.Error("loading birthdays", sl.Err(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Request failed: %v", err)))
			return
		}

		render.JSON(w, r, response.List(birthdays, len(birthdays)))
	}
}

func Save(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.birthdays")
		guildID := chi.URLParam(r, "guildId")

		log := logger.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Guild(guildID),
		)

		if handler == nil {
			log.Error("birthday service not available")
			render.JSON(w, r, response.Error("Birthdays not available"))
			return
		}

		var birthday entity.Birthday
		birthday.GuildID = guildID
		if err := render.Bind(r, &birthday); err != nil {
			log.Error("bind request", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		// The path, not the body, decides which guild is touched.
		birthday.GuildID = guildID
		if birthday.CreatedAt.IsZero() {
			birthday.CreatedAt = time.Now().UTC()
		}

		if err := handler.SaveBirthday(&birthday); err != nil {
			log.Error("saving birthday", sl.Err(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Request failed: %v", err)))
			return
		}
		log.With(
			sl.User(birthday.UserID),
			slog.String("operator", cont.GetOperator(r.Context()).Name),
		).Info("birthday saved")

		render.JSON(w, r, response.Ok(birthday))
	}
}

func Delete(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.birthdays")
		guildID := chi.URLParam(r, "guildId")
		userID := chi.URLParam(r, "userId")

		log := logger.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Guild(guildID),
			sl.User(userID),
		)

		if handler == nil {
			log.Error("birthday service not available")
			render.JSON(w, r, response.Error("Birthdays not available"))
			return
		}

		deleted, err := handler.DeleteBirthday(guildID, userID)
		if err != nil {
			log.Error("deleting birthday", sl.Err(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Request failed: %v", err)))
			return
		}
		if !deleted {
			render.Status(r, 404)
			render.JSON(w, r, response.Error("Birthday not found"))
			return
		}
		log.With(slog.String("operator", cont.GetOperator(r.Context()).Name)).Info("birthday deleted")

		render.JSON(w, r, response.Ok(nil))
	}
}
