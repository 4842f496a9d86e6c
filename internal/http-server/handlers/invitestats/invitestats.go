package invitestats

import (
	"fmt"
	"guildsync/lib/api/response"
	"guildsync/lib/sl"
	"guildsync/tracker"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	InviteOverview(guildID string) (*tracker.Overview, error)
}

// Get serves the live invite cache for one guild. The data comes from
// memory, so a guild the bot never joined simply reads as empty.
func Get(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.invitestats")
		guildID := chi.URLParam(r, "guildId")

		log := logger.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Guild(guildID),
		)

		if handler == nil {
			log.Error("invite service not available")
			render.JSON(w, r, response.Error("Invites not available"))
			return
		}

		overview, err := handler.InviteOverview(guildID)
		if err != nil {
			log.Error("loading invite overview", sl.Err(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Request failed: %v", err)))
			return
		}

		render.JSON(w, r, response.Ok(overview))
	}
}
