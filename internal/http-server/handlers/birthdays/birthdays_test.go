package birthdays

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guildsync/entity"
	"guildsync/lib/api/response"
)

type fakeCore struct {
	birthdays []entity.Birthday
	listErr   error
	saved     *entity.Birthday
	deleted   bool
	askedUser string
}

func (f *fakeCore) Birthdays(_ string) ([]entity.Birthday, error) {
	return f.birthdays, f.listErr
}

func (f *fakeCore) SaveBirthday(birthday *entity.Birthday) error {
	f.saved = birthday
	return nil
}

func (f *fakeCore) DeleteBirthday(_, userID string) (bool, error) {
	f.askedUser = userID
	return f.deleted, nil
}

func testRouter(core Core) *chi.Mux {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := chi.NewRouter()
	router.Route("/v1/guilds/{guildId}", func(guild chi.Router) {
		guild.Get("/birthdays", List(log, core))
		guild.Post("/birthdays", Save(log, core))
		guild.Delete("/birthdays/{userId}", Delete(log, core))
	})
	return router
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var envelope response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return rec, envelope
}

func TestListBirthdays(t *testing.T) {
	core := &fakeCore{birthdays: []entity.Birthday{
		{GuildID: "g1", UserID: "u1", MonthDay: "03-14"},
		{GuildID: "g1", UserID: "u2", MonthDay: "07-09"},
	}}

	rec, envelope := doRequest(t, testRouter(core), http.MethodGet, "/v1/guilds/g1/birthdays", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, envelope.Success)
	require.NotNil(t, envelope.Count)
	assert.Equal(t, 2, *envelope.Count)
}

func TestListBirthdaysFailure(t *testing.T) {
	core := &fakeCore{listErr: errors.New("storage offline")}

	_, envelope := doRequest(t, testRouter(core), http.MethodGet, "/v1/guilds/g1/birthdays", "")

	assert.False(t, envelope.Success)
	assert.Contains(t, envelope.StatusMessage, "storage offline")
}

func TestSaveBirthday(t *testing.T) {
	core := &fakeCore{}

	rec, envelope := doRequest(t, testRouter(core), http.MethodPost, "/v1/guilds/g1/birthdays",
		`{"user_id":"u1","user_name":"Ann","birthday":"03-14"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, envelope.Success)
	require.NotNil(t, core.saved)
	assert.Equal(t, "g1", core.saved.GuildID)
	assert.Equal(t, "03-14", core.saved.MonthDay)
	assert.False(t, core.saved.CreatedAt.IsZero())
}

// The guild in the URL wins over whatever guild id the body claims.
func TestSaveBirthdayIgnoresBodyGuild(t *testing.T) {
	core := &fakeCore{}

	_, envelope := doRequest(t, testRouter(core), http.MethodPost, "/v1/guilds/g1/birthdays",
		`{"guild_id":"other","user_id":"u1","birthday":"03-14"}`)

	assert.True(t, envelope.Success)
	require.NotNil(t, core.saved)
	assert.Equal(t, "g1", core.saved.GuildID)
}

func TestSaveBirthdayRejectsBadDate(t *testing.T) {
	core := &fakeCore{}

	rec, envelope := doRequest(t, testRouter(core), http.MethodPost, "/v1/guilds/g1/birthdays",
		`{"user_id":"u1","birthday":"13-40"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, envelope.Success)
	assert.Nil(t, core.saved)
}

func TestSaveBirthdayRejectsMissingUser(t *testing.T) {
	core := &fakeCore{}

	rec, _ := doRequest(t, testRouter(core), http.MethodPost, "/v1/guilds/g1/birthdays",
		`{"birthday":"03-14"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, core.saved)
}

func TestDeleteBirthday(t *testing.T) {
	core := &fakeCore{deleted: true}

	rec, envelope := doRequest(t, testRouter(core), http.MethodDelete, "/v1/guilds/g1/birthdays/u1", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, envelope.Success)
	assert.Equal(t, "u1", core.askedUser)
}

func TestDeleteBirthdayNotFound(t *testing.T) {
	core := &fakeCore{deleted: false}

	rec, envelope := doRequest(t, testRouter(core), http.MethodDelete, "/v1/guilds/g1/birthdays/u1", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, envelope.Success)
	assert.Equal(t, "Birthday not found", envelope.StatusMessage)
}

func TestHandlersNilCore(t *testing.T) {
	_, envelope := doRequest(t, testRouter(nil), http.MethodGet, "/v1/guilds/g1/birthdays", "")

	assert.False(t, envelope.Success)
	assert.Equal(t, "Birthdays not available", envelope.StatusMessage)
}
