package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/training-dashboard/backend/internal/api/middleware"
	"github.com/training-dashboard/backend/internal/athlete"
	"github.com/training-dashboard/backend/internal/calendar"
	"github.com/training-dashboard/backend/internal/gateway"
	"github.com/training-dashboard/backend/internal/globalsync"
	"github.com/training-dashboard/backend/internal/storage/models"
)

func ptr[T any](v T) *T { return &v }

type stubSessions struct {
	mu      sync.Mutex
	current models.Session
}

func signedIn(id models.AthleteID) *stubSessions {
	return &stubSessions{current: models.Session{
		AccessToken: "token",
		User:        models.SessionUser{AthleteID: id, AccessToken: "token"},
	}}
}

func (s *stubSessions) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.AccessToken
}

func (s *stubSessions) Identity() models.AthleteID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.User.AthleteID
}

func (s *stubSessions) Current() models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *stubSessions) Set(_ context.Context, token string, user models.SessionUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = models.Session{AccessToken: token, User: user}
	return nil
}

func (s *stubSessions) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = models.Session{}
	return nil
}

type stubAuth struct {
	user models.SessionUser
	err  error
}

func (a *stubAuth) Login(context.Context, string, string) (models.SessionUser, error) {
	return a.user, a.err
}

func (a *stubAuth) Register(context.Context, gateway.RegisterRequest) error {
	return a.err
}

type stubDashboard struct {
	snap      athlete.Snapshot
	refreshes int
}

func (d *stubDashboard) Snapshot() athlete.Snapshot { return d.snap }

func (d *stubDashboard) Refresh(context.Context, bool) athlete.Snapshot {
	d.refreshes++
	return d.snap
}

type stubLister struct {
	queries    []gateway.ActivityQuery
	activities []models.Activity
	err        error
}

func (l *stubLister) Activities(_ context.Context, _ models.AthleteID, q gateway.ActivityQuery) ([]models.Activity, error) {
	l.queries = append(l.queries, q)
	return l.activities, l.err
}

type stubSource struct {
	loads      int
	activities []models.Activity
	races      []models.Race
}

func (s *stubSource) Activities(context.Context, models.AthleteID, gateway.ActivityQuery) ([]models.Activity, error) {
	s.loads++
	return s.activities, nil
}

func (s *stubSource) Races(context.Context, models.AthleteID) ([]models.Race, error) {
	return s.races, nil
}

func (s *stubSource) CreateActivity(_ context.Context, _ models.AthleteID, in models.ActivityCreate) (*models.Activity, error) {
	return &models.Activity{ID: 99, Name: in.Name, StartDate: in.StartDate}, nil
}

func (s *stubSource) CreateRace(_ context.Context, in models.RaceCreate) (*models.Race, error) {
	return &models.Race{ID: 7, AthleteID: in.AthleteID, Name: in.Name, RaceDate: in.RaceDate}, nil
}

func (s *stubSource) DeleteRace(context.Context, models.AthleteID, int64) error {
	return nil
}

type stubSyncer struct {
	status  globalsync.Status
	last    *models.SyncRun
	err     error
	started []models.AthleteID
	deleted []int64
}

func (s *stubSyncer) Start(_ context.Context, id models.AthleteID, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.started = append(s.started, id)
	return "run-1", nil
}

func (s *stubSyncer) Status() globalsync.Status { return s.status }

func (s *stubSyncer) LastRun() *models.SyncRun { return s.last }

func (s *stubSyncer) DeleteActivity(_ context.Context, _ models.AthleteID, activityID int64) error {
	if s.err != nil {
		return s.err
	}
	s.deleted = append(s.deleted, activityID)
	return nil
}

type stubRuns struct {
	runs  []models.SyncRun
	limit int
}

func (r *stubRuns) ListRecent(_ context.Context, _ models.AthleteID, limit int) ([]models.SyncRun, error) {
	r.limit = limit
	return r.runs, nil
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }

func fixedNow(t *testing.T, now time.Time) {
	t.Helper()
	prev := timeNow
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = prev })
}

func serve(h http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func serveWithID(h http.HandlerFunc, method, target, id string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req = mux.SetURLVars(req, map[string]string{"id": id})
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) middleware.ErrorResponse {
	t.Helper()
	var resp middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestUpstreamErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"expired session", gateway.ErrSessionExpired, http.StatusUnauthorized, middleware.ErrUnauthorized},
		{"no athlete", calendar.ErrNoIdentity, http.StatusUnauthorized, middleware.ErrUnauthorized},
		{"busy", globalsync.ErrBusy, http.StatusConflict, middleware.ErrConflict},
		{"validation", &gateway.APIError{Status: 422, Message: "bad date"}, http.StatusUnprocessableEntity, middleware.ErrValidation},
		{"not found", &gateway.APIError{Status: 404, Message: "missing"}, http.StatusNotFound, middleware.ErrNotFound},
		{"server", &gateway.APIError{Status: 500, Message: "boom"}, http.StatusBadGateway, middleware.ErrUpstreamUnavailable},
		{"unexpected status", &gateway.APIError{Status: 409, Message: "exists"}, http.StatusBadGateway, middleware.ErrUpstream},
		{"network", &gateway.NetworkError{Op: "GET /x", Err: errors.New("refused")}, http.StatusBadGateway, middleware.ErrUpstreamUnavailable},
		{"other", errors.New("disk"), http.StatusInternalServerError, middleware.ErrInternalError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeUpstreamError(rec, tc.err, "Failed")
			require.Equal(t, tc.status, rec.Code)
			require.Equal(t, tc.code, decodeError(t, rec).Error)
		})
	}

	rec := httptest.NewRecorder()
	writeUpstreamError(rec, &gateway.APIError{Status: 422, Message: "bad date"}, "Failed")
	require.Equal(t, "bad date", decodeError(t, rec).Message)
}

func TestHealthCheck(t *testing.T) {
	rec := serve(HealthCheck(stubPinger{}), http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(HealthCheck(stubPinger{err: errors.New("closed")}), http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "degraded", resp.Status)
	require.False(t, resp.DBConnected)
}

func TestLoginStoresSession(t *testing.T) {
	sessions := &stubSessions{}
	auth := &stubAuth{user: models.SessionUser{AthleteID: 42, AccessToken: "abc"}}

	rec := serve(Login(sessions, auth), http.MethodPost, "/api/session/login", `{"email":" a@b.c ","password":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "abc", sessions.Token())
	require.Equal(t, models.AthleteID(42), sessions.Identity())

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Authenticated)
	require.EqualValues(t, 42, resp.AthleteID)
	require.NotContains(t, rec.Body.String(), "abc")
}

func TestLoginRejectedCredentials(t *testing.T) {
	sessions := &stubSessions{}
	auth := &stubAuth{err: gateway.ErrUnauthorized}

	rec := serve(Login(sessions, auth), http.MethodPost, "/api/session/login", `{"email":"a@b.c","password":"pw"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "", sessions.Token())

	rec = serve(Login(sessions, auth), http.MethodPost, "/api/session/login", `{"email":"","password":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogout(t *testing.T) {
	sessions := signedIn(42)
	rec := serve(Logout(sessions), http.MethodPost, "/api/session/logout", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.True(t, sessions.Identity().IsZero())
}

func TestRegisterValidates(t *testing.T) {
	rec := serve(Register(&stubAuth{}), http.MethodPost, "/api/session/register", `{"email":"a@b.c","password":"pw"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(Register(&stubAuth{}), http.MethodPost, "/api/session/register", `{"email":"a@b.c","password":"pw","id":42,"name":"Ana"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestGetDashboard(t *testing.T) {
	dashboard := &stubDashboard{snap: athlete.Snapshot{
		Identity: 42,
		Metrics:  &models.DailyMetricSnapshot{CTL: ptr(42.46), ATL: ptr(50.0), TSB: ptr(-7.5)},
		Activities: []models.Activity{
			{ID: 1, Name: "Ride", StartDate: "2024-03-15T07:00:00Z", DistanceM: 30000, MovingTimeS: 3600, TSS: ptr(55.4)},
		},
	}}

	rec := serve(GetDashboard(dashboard), http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DashboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Cards, 4)
	require.Equal(t, "42.5", resp.Cards[0].Value)
	require.Equal(t, "-7.5", resp.Cards[2].Value)
	require.NotNil(t, resp.Cards[2].Positive)
	require.False(t, *resp.Cards[2].Positive)
	require.Equal(t, "--", resp.Cards[3].Value)

	require.Len(t, resp.Activities, 1)
	require.Equal(t, "2024-03-15", resp.Activities[0].Day)
	require.Equal(t, "30.0", resp.Activities[0].Distance)
	require.Equal(t, "2:00 min/km", resp.Activities[0].Pace)
	require.Equal(t, "55", resp.Activities[0].TSS)

	require.Equal(t, 1, resp.Summary.Activities)
	require.Equal(t, "30.0", resp.Summary.Distance)
	require.Equal(t, "--/--/-- --:--", resp.SyncedAt)
	require.Equal(t, "never", resp.SyncedAgo)
}

func TestRefreshDashboard(t *testing.T) {
	dashboard := &stubDashboard{snap: athlete.Snapshot{Identity: 42, Error: athlete.LoadErrorMessage}}
	rec := serve(RefreshDashboard(dashboard), http.MethodPost, "/api/dashboard/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, dashboard.refreshes)
	require.Contains(t, rec.Body.String(), athlete.LoadErrorMessage)
}

func TestListActivitiesPaging(t *testing.T) {
	now := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	fixedNow(t, now)

	full := make([]models.Activity, 20)
	for i := range full {
		full[i] = models.Activity{ID: int64(i + 1), StartDate: "2024-03-01T08:00:00Z"}
	}
	lister := &stubLister{activities: full}

	rec := serve(ListActivities(signedIn(42), lister), http.MethodGet, "/api/activities?limit=20&page=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, lister.queries, 1)
	q := lister.queries[0]
	require.Equal(t, 20, q.Limit)
	require.Equal(t, 40, q.Offset)
	require.Equal(t, "2000-01-01", q.From.Format(gateway.DateLayout))
	require.Equal(t, now, q.To)

	var page ActivityPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.True(t, page.HasMore)
	require.Equal(t, 2, page.Page)

	lister.activities = full[:3]
	rec = serve(ListActivities(signedIn(42), lister), http.MethodGet, "/api/activities", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, 10, page.Limit)
	require.Equal(t, 0, lister.queries[1].Offset)
	require.False(t, page.HasMore)
}

func TestListActivitiesRejectsOddPageSize(t *testing.T) {
	lister := &stubLister{}
	for _, target := range []string{"/api/activities?limit=15", "/api/activities?page=-1", "/api/activities?limit=abc"} {
		rec := serve(ListActivities(signedIn(42), lister), http.MethodGet, target, "")
		require.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
	require.Empty(t, lister.queries)
}

func TestGetActivityFallsBackToCalendar(t *testing.T) {
	dashboard := &stubDashboard{snap: athlete.Snapshot{Activities: []models.Activity{{ID: 1, Name: "Recent"}}}}
	src := &stubSource{activities: []models.Activity{{ID: 2, Name: "Old", StartDate: "2020-01-01T08:00:00Z"}}}
	loader := calendar.NewLoader(src)
	_, err := loader.Load(context.Background(), 42)
	require.NoError(t, err)

	rec := serveWithID(GetActivity(dashboard, loader), http.MethodGet, "/api/activities/2", "2")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail ActivityDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.Equal(t, "Old", detail.Name)
	require.Equal(t, "--", detail.AverageHR)

	rec = serveWithID(GetActivity(dashboard, loader), http.MethodGet, "/api/activities/3", "3")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateActivityValidatesAndRefreshes(t *testing.T) {
	src := &stubSource{}
	loader := calendar.NewLoader(src)
	_, err := loader.Load(context.Background(), 42)
	require.NoError(t, err)
	dashboard := &stubDashboard{}

	rec := serve(CreateActivity(loader, dashboard), http.MethodPost, "/api/activities", `{"name":"Run"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, middleware.ErrValidation, decodeError(t, rec).Error)

	body := `{"name":"Run","sport_type":"Run","start_date":"2024-03-15T07:30","distance_m":10000,"moving_time_s":3000}`
	rec = serve(CreateActivity(loader, dashboard), http.MethodPost, "/api/activities", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, 1, dashboard.refreshes)
	require.Equal(t, 2, src.loads)
}

func TestDeleteActivityWhileBusy(t *testing.T) {
	syncer := &stubSyncer{err: globalsync.ErrBusy}
	rec := serveWithID(DeleteActivity(signedIn(42), syncer), http.MethodDelete, "/api/activities/5", "5")
	require.Equal(t, http.StatusConflict, rec.Code)

	syncer.err = nil
	rec = serveWithID(DeleteActivity(signedIn(42), syncer), http.MethodDelete, "/api/activities/5", "5")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, []int64{5}, syncer.deleted)
}

func TestExportActivities(t *testing.T) {
	fixedNow(t, time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC))
	lister := &stubLister{activities: []models.Activity{
		{ID: 1, Name: "Ride", StartDate: "2024-03-15T07:00:00Z", DistanceM: 30000, MovingTimeS: 3600},
	}}

	rec := serve(ExportActivities(signedIn(42), lister, 500), http.MethodGet, "/api/activities/export.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "activities-42-2024-03-15.csv")
	require.Equal(t, 500, lister.queries[0].Limit)

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "id,date,name"))
}

func TestGetCalendarLoadsOnFirstView(t *testing.T) {
	now := time.Date(2024, time.September, 10, 12, 0, 0, 0, time.UTC)
	fixedNow(t, now)

	src := &stubSource{
		activities: []models.Activity{{ID: 1, Name: "Ride", StartDate: "2024-09-02T23:30:00Z", MovingTimeS: 65}},
		races:      []models.Race{{ID: 7, Name: "10k", RaceDate: "2024-09-29", GoalTimeSec: 2700, Notes: ptr("**A** race")}},
	}
	loader := calendar.NewLoader(src, calendar.WithClock(func() time.Time { return now }))
	h := GetCalendar(signedIn(42), loader)

	rec := serve(h, http.MethodGet, "/api/calendar?month=2024-09", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, src.loads)

	var resp CalendarResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "2024-09", resp.Month)
	require.Equal(t, "September 2024", resp.Title)
	require.Equal(t, "2024-08", resp.Prev)
	require.Equal(t, "2024-10", resp.Next)
	require.Len(t, resp.Weeks, 6)

	// 1 September 2024 is a Sunday.
	require.Nil(t, resp.Weeks[0][0])
	require.Equal(t, "2024-09-01", resp.Weeks[0][6].Date)

	monday := resp.Weeks[1][0]
	require.Equal(t, "2024-09-02", monday.Date)
	require.Len(t, monday.Items, 1)
	require.Equal(t, "1:05 min", monday.Items[0].Duration)

	today := resp.Weeks[2][1]
	require.Equal(t, "2024-09-10", today.Date)
	require.True(t, today.IsToday)

	race := resp.Weeks[4][6]
	require.Equal(t, "2024-09-29", race.Date)
	require.Equal(t, calendar.KindRace, race.Items[0].Kind)
	require.Equal(t, "45:00 min", race.Items[0].GoalTime)
	require.Contains(t, race.Items[0].NotesHTML, "<strong>A</strong>")

	rec = serve(h, http.MethodGet, "/api/calendar?month=2024-10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, src.loads)

	rec = serve(h, http.MethodGet, "/api/calendar?month=September", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRaceWrites(t *testing.T) {
	src := &stubSource{}
	loader := calendar.NewLoader(src)
	_, err := loader.Load(context.Background(), 42)
	require.NoError(t, err)

	rec := serve(CreateRace(signedIn(42), loader), http.MethodPost, "/api/races", `{"name":"10k","race_date":"2024-10-01","distance_m":10000,"goal_time_sec":2700,"priority":"D"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(CreateRace(signedIn(42), loader), http.MethodPost, "/api/races", `{"name":"10k","race_date":"2024-10-01","distance_m":10000,"goal_time_sec":2700,"priority":"A"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var race models.Race
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &race))
	require.EqualValues(t, 42, race.AthleteID)

	rec = serveWithID(DeleteRace(loader), http.MethodDelete, "/api/races/7", "7")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, 3, src.loads)
}

func TestStartSync(t *testing.T) {
	syncer := &stubSyncer{}
	rec := serve(StartSync(signedIn(42), syncer), http.MethodPost, "/api/sync", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, []models.AthleteID{42}, syncer.started)
	require.Contains(t, rec.Body.String(), "run-1")

	syncer.err = globalsync.ErrBusy
	rec = serve(StartSync(signedIn(42), syncer), http.MethodPost, "/api/sync", "")
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestSyncStatusAndHistory(t *testing.T) {
	finished := time.Now().Add(-3 * time.Minute)
	syncer := &stubSyncer{
		status: globalsync.Status{Phase: globalsync.PhaseRecalculating, Text: globalsync.TextRecalculating, Busy: true},
		last:   &models.SyncRun{ID: "run-0", Status: models.SyncStatusSuccess, FinishedAt: &finished},
	}
	rec := serve(SyncStatus(syncer), http.MethodGet, "/api/sync/status", "")
	var status SyncStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.True(t, status.Busy)
	require.Equal(t, globalsync.TextRecalculating, status.Text)
	require.Equal(t, "3 minutes ago", status.LastSyncAgo)

	runs := &stubRuns{}
	rec = serve(SyncHistory(signedIn(42), runs), http.MethodGet, "/api/sync/history?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 5, runs.limit)
	require.JSONEq(t, "[]", rec.Body.String())

	rec = serve(SyncHistory(signedIn(42), runs), http.MethodGet, "/api/sync/history?limit=1000", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

type stubProfiles struct{ raw json.RawMessage }

func (p stubProfiles) Profile(context.Context, models.AthleteID) (json.RawMessage, error) {
	return p.raw, nil
}

func TestGetProfile(t *testing.T) {
	profiles := stubProfiles{raw: json.RawMessage(`{"athlete_id":42,"ftp_watts":251.4,"threshold_pace_sec_per_km":265,"lthr_bpm":null}`)}
	rec := serve(GetProfile(signedIn(42), profiles), http.MethodGet, "/api/profile", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProfileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "251 W", resp.FTP)
	require.Equal(t, "--", resp.LTHR)
	require.Equal(t, "4:25 min/km", resp.ThresholdPace)
	require.Contains(t, string(resp.Profile), `"athlete_id":42`)
}
