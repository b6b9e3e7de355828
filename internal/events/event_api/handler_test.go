package event_api_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"ms-events/internal/database"
	"ms-events/internal/database/migrations"
	"ms-events/internal/events/db"
	"ms-events/internal/events/event_api"
	"ms-events/internal/events/service"
	"ms-events/internal/flash"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/web"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	server  *httptest.Server
	client  *http.Client
	service *service.EventService
}

func setupTestApp(t *testing.T, opts event_api.RouterOptions) *testApp {
	t.Helper()

	bunDB, err := database.Open(context.Background(), database.MemoryPath, database.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { bunDB.Close() })

	_, err = migrations.NewRunner(bunDB, migrations.DefaultOptions()).RunMigrations()
	require.NoError(t, err)

	log := logger.NewNopLogger()
	store := &db.DB{Bun: bunDB}
	svc := service.NewEventService(store, nil, log)

	renderer, err := web.NewRenderer()
	require.NoError(t, err)

	handler := event_api.NewHandler(svc, renderer, flash.NewCookieStore("test-secret", false), log)
	if opts.Pinger == nil {
		opts.Pinger = store
	}
	server := httptest.NewServer(event_api.NewRouter(handler, opts))
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testApp{server: server, client: client, service: svc}
}

func (a *testApp) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := a.client.Get(a.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func (a *testApp) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := a.client.PostForm(a.server.URL+path, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (a *testApp) onlyEvent(t *testing.T) models.Event {
	t.Helper()
	events, err := a.service.List(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	return events[0]
}

func TestListEmpty(t *testing.T) {
	app := setupTestApp(t, event_api.RouterOptions{})

	status, body := app.get(t, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "No events registered yet.")
}

func TestCreateFormIsEmpty(t *testing.T) {
	app := setupTestApp(t, event_api.RouterOptions{})

	status, body := app.get(t, "/create")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `action="/create"`)
	assert.Contains(t, body, `name="name" value=""`)
}

func TestCreateEventRedirectsWithFlash(t *testing.T) {
	app := setupTestApp(t, event_api.RouterOptions{})

	resp, _ := app.post(t, "/create", url.Values{
		"name":        {"Meetup"},
		"minimum_age": {""},
		"date":        {"2025-03-10"},
		"time":        {"18:30"},
		"city":        {"Recife"},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	event := app.onlyEvent(t)
	assert.Equal(t, "Meetup", event.Name)
	assert.Nil(t, event.MinimumAge)
	assert.Equal(t, models.NewClock(18, 30), event.Time)

	// The flash shows once
	_, body := app.get(t, "/")
	assert.Contains(t, body, "Event created successfully!")
	assert.Contains(t, body, "Meetup")

	_, body = app.get(t, "/")
	assert.NotContains(t, body, "Event created successfully!")
}

func TestCreateEventValidationError(t *testing.T) {
	app := setupTestApp(t, event_api.RouterOptions{})

	resp, body := app.post(t, "/create", url.Values{
		"name": {"Meetup"},
		"date": {"2024-02-30"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Date must be a valid date (YYYY-MM-DD)")
	// Submitted values are kept
	assert.Contains(t, body, `value="Meetup"`)

	events, err := app.service.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEditFormPrefilled(t *testing.T) {
	app := setupTestApp(t, event_api.RouterOptions{})
	age := 16
	event, err := app.service.Create(context.Background(), service.EventForm{
		Name: "Meetup", Date: "2025-03-10", Time: "09:15", MinimumAge: fmt.Sprint(age), Venue: "Hall A",
	})
	require.NoError(t, err)

	status, body := app.get(t, fmt.Sprintf("/edit/%d", event.ID))
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, fmt.Sprintf(`action="/edit/%d"`, event.ID))
	assert.Contains(t, body, `value="Meetup"`)
	assert.Contains(t, body, `value="16"`)
	assert.Contains(t, body, `value="2025-03-10"`)
	assert.Contains(t, body, `value="09:15"`)
	assert.Contains(t, body, `value="Hall A"`)
}

func TestUnknownIDsAreNotFound(t *testing.T) {
	app := setupTestApp(t, event_api.RouterOptions{})

	status, body := app.get(t, "/edit/999")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "Event 999 does not exist.")

	status, _ = app.get(t, "/edit/abc")
	assert.Equal(t, http.StatusNotFound, status)

	resp, _ := app.post(t, "/edit/999", url.Values{"name": {"x"}, "date": {"2025-01-01"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = app.post(t, "/delete/999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	status, _ = app.get(t, "/no/such/page")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDeleteRequiresPost(t *testing.T) {
	app := setupTestApp(t, event_api.RouterOptions{})
	event, err := app.service.Create(context.Background(), service.EventForm{Name: "Keep", Date: "2025-03-10"})
	require.NoError(t, err)

	status, _ := app.get(t, fmt.Sprintf("/delete/%d", event.ID))
	assert.Equal(t, http.StatusMethodNotAllowed, status)

	_, err = app.service.Get(context.Background(), event.ID)
	assert.NoError(t, err)
}

func TestEventLifecycle(t *testing.T) {
	app := setupTestApp(t, event_api.RouterOptions{})
	ctx := context.Background()

	// Create
	resp, _ := app.post(t, "/create", url.Values{
		"name": {"Meetup"},
		"date": {"2025-03-10"},
		"time": {"18:30"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	event := app.onlyEvent(t)
	assert.Equal(t, models.NewDate(2025, time.March, 10), event.Date)

	_, body := app.get(t, "/")
	assert.Contains(t, body, "2025-03-10")

	// Edit replaces every field
	resp, _ = app.post(t, fmt.Sprintf("/edit/%d", event.ID), url.Values{
		"name": {"Meetup v2"},
		"date": {"2025-03-11"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	updated, err := app.service.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "Meetup v2", updated.Name)
	assert.Equal(t, models.NewDate(2025, time.March, 11), updated.Date)
	assert.False(t, updated.Time.Valid)

	_, body = app.get(t, "/")
	assert.Contains(t, body, "Event updated successfully!")

	// Delete
	resp, _ = app.post(t, fmt.Sprintf("/delete/%d", event.ID), nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body = app.get(t, "/")
	assert.Contains(t, body, "Event deleted successfully!")
	assert.NotContains(t, body, "Meetup v2")

	_, err = app.service.Get(ctx, event.ID)
	assert.ErrorIs(t, err, service.ErrEventNotFound)

	status, _ := app.get(t, fmt.Sprintf("/edit/%d", event.ID))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestEditValidationKeepsRecord(t *testing.T) {
	app := setupTestApp(t, event_api.RouterOptions{})
	event, err := app.service.Create(context.Background(), service.EventForm{Name: "Meetup", Date: "2025-03-10"})
	require.NoError(t, err)

	resp, body := app.post(t, fmt.Sprintf("/edit/%d", event.ID), url.Values{
		"name":        {""},
		"date":        {"2025-03-10"},
		"minimum_age": {"old enough"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Name is required")
	assert.Contains(t, body, "Minimum age must be a whole number")

	stored, err := app.service.Get(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, "Meetup", stored.Name)
}

func TestHealthz(t *testing.T) {
	app := setupTestApp(t, event_api.RouterOptions{})

	status, body := app.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"success":true`)
	assert.Contains(t, body, `"message":"ok"`)
}

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error { return fmt.Errorf("closed") }

func TestHealthzReportsDatabaseFailure(t *testing.T) {
	app := setupTestApp(t, event_api.RouterOptions{Pinger: failingPinger{}})

	status, body := app.get(t, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, body, `"error":"closed"`)
}

var csrfField = regexp.MustCompile(`name="gorilla.csrf.Token" value="([^"]+)"`)

func TestCSRFProtection(t *testing.T) {
	app := setupTestApp(t, event_api.RouterOptions{CSRFSecret: "test-secret"})

	// Without a token the form is rejected
	resp, body := app.post(t, "/create", url.Values{"name": {"Meetup"}, "date": {"2025-03-10"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, body, "The form expired")

	// The rendered form carries a token that is accepted
	status, body := app.get(t, "/create")
	require.Equal(t, http.StatusOK, status)
	match := csrfField.FindStringSubmatch(body)
	require.Len(t, match, 2)

	token := strings.ReplaceAll(match[1], "&#43;", "+")
	resp, _ = app.post(t, "/create", url.Values{
		"gorilla.csrf.Token": {token},
		"name":               {"Meetup"},
		"date":               {"2025-03-10"},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	app.onlyEvent(t)
}
