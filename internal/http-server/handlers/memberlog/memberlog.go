package memberlog

import (
	"fmt"
	"guildsync/entity"
	"guildsync/lib/api/response"
	"guildsync/lib/sl"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	MemberEvents(guildID string, limit int) ([]entity.MemberEvent, error)
}

// Get serves the newest join and leave records for one guild. An optional
// ?limit= caps the page; anything unparsable falls back to the default.
func Get(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.memberlog")
		guildID := chi.URLParam(r, "guildId")

		log := logger.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Guild(guildID),
		)

		if handler == nil {
			log.Error("member log not available")
			render.JSON(w, r, response.Error("Member log not available"))
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				log.Debug("ignoring bad limit", slog.String("limit", raw))
			} else {
				limit = parsed
			}
		}

		events, err := handler.MemberEvents(guildID, limit)
		if err != nil {
			log.Error("loading member events", sl.Err(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Request failed: %v", err)))
			return
		}

		render.JSON(w, r, response.List(events, len(events)))
	}
}
