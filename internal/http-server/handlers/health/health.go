package health

import (
	"guildsync/lib/api/response"
	"net/http"

	"github.com/go-chi/render"
)

// Live answers readiness probes. It sits outside the authenticated tree so
// monitors do not need a token.
func Live() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, response.Ok(map[string]string{"status": "up"}))
	}
}
