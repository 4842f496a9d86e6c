package holidays

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDay = time.Date(2025, 8, 19, 8, 0, 0, 0, time.UTC)

func testClient(sources ...Source) *Client {
	return NewClient(slog.New(slog.NewTextHandler(io.Discard, nil)), sources...)
}

func stubSource(t *testing.T, name string, status int, body string) Source {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return Source{Name: name, URLPattern: srv.URL + "?d=%s", DateLayout: "2006-01-02"}
}

func TestTodayEventsShape(t *testing.T) {
	src := stubSource(t, "first", http.StatusOK,
		`{"events":[{"title":"National Widget Day","link":"https://example.com/widget","excerpt":"All about widgets."}]}`)

	got := testClient(src).Today(context.Background(), testDay)
	assert.Equal(t, "National Widget Day", got.Name)
	assert.Equal(t, "https://example.com/widget", got.URL)
	assert.Equal(t, "All about widgets.", got.Description)
	assert.Equal(t, "first", got.Source)
}

func TestTodayHolidaysShape(t *testing.T) {
	src := stubSource(t, "first", http.StatusOK,
		`{"holidays":[{"name":"Checkiday Day","url":"https://example.com/c"}]}`)

	got := testClient(src).Today(context.Background(), testDay)
	assert.Equal(t, "Checkiday Day", got.Name)
}

func TestTodayBareArrayShape(t *testing.T) {
	src := stubSource(t, "first", http.StatusOK, `[{"holiday":"Array Day"}]`)

	got := testClient(src).Today(context.Background(), testDay)
	assert.Equal(t, "Array Day", got.Name)
}

func TestTodayPrefersPriorityKeyword(t *testing.T) {
	src := stubSource(t, "first", http.StatusOK,
		`{"events":[
			{"name":"Obscure Observance Day"},
			{"name":"National Pizza Day"},
			{"name":"Another Quiet Day"}
		]}`)

	got := testClient(src).Today(context.Background(), testDay)
	assert.Equal(t, "National Pizza Day", got.Name)
}

func TestTodaySkipsUnnamedEvents(t *testing.T) {
	src := stubSource(t, "first", http.StatusOK,
		`{"events":[{"url":"https://example.com/nameless"},{"name":"Real Day"}]}`)

	got := testClient(src).Today(context.Background(), testDay)
	assert.Equal(t, "Real Day", got.Name)
}

func TestTodayFailsOverToNextSource(t *testing.T) {
	broken := stubSource(t, "broken", http.StatusInternalServerError, `oops`)
	garbage := stubSource(t, "garbage", http.StatusOK, `{"error":"nope"}`)
	good := stubSource(t, "good", http.StatusOK, `{"events":[{"name":"Backup Day"}]}`)

	got := testClient(broken, garbage, good).Today(context.Background(), testDay)
	assert.Equal(t, "Backup Day", got.Name)
	assert.Equal(t, "good", got.Source)
}

func TestTodayFallbackKnownDay(t *testing.T) {
	broken := stubSource(t, "broken", http.StatusInternalServerError, `oops`)

	christmas := time.Date(2025, 12, 25, 8, 0, 0, 0, time.UTC)
	got := testClient(broken).Today(context.Background(), christmas)
	assert.Equal(t, "Christmas Day", got.Name)
	assert.Equal(t, "builtin", got.Source)
}

func TestTodayFallbackGeneric(t *testing.T) {
	broken := stubSource(t, "broken", http.StatusInternalServerError, `oops`)

	got := testClient(broken).Today(context.Background(), testDay)
	assert.Equal(t, "Tuesday Appreciation Day", got.Name)
	assert.Equal(t, "builtin", got.Source)
}

func TestNormalizeRejectsUnknownShape(t *testing.T) {
	_, err := normalize("x", []byte(`{"error":"nope"}`))
	require.Error(t, err)

	_, err = normalize("x", []byte(`not json at all`))
	require.Error(t, err)
}
