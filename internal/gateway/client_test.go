package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/training-dashboard/backend/internal/storage/models"
)

type stubTokens struct {
	token   string
	expired int
}

func (s *stubTokens) Token() string { return s.token }

func (s *stubTokens) Expire(context.Context) error {
	s.expired++
	s.token = ""
	return nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc, tokens *stubTokens) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/", Timeout: 5 * time.Second}, tokens)
}

func TestActivitiesSendsBearerAndQuery(t *testing.T) {
	tokens := &stubTokens{token: "tok-1"}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/athletes/42/activities", r.URL.Path)
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Equal(t, "2024-03-08", r.URL.Query().Get("from_day"))
		require.Equal(t, "2024-03-15", r.URL.Query().Get("to_day"))
		require.Equal(t, "50", r.URL.Query().Get("limit"))
		require.Equal(t, "0", r.URL.Query().Get("offset"))
		w.Write([]byte(`{"activities":[{"id":1,"name":"Morning Run","start_date":"2024-03-15T07:00:00Z","distance_m":5000,"moving_time_s":1500}]}`))
	}, tokens)

	to := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	acts, err := client.Activities(context.Background(), 42, ActivityQuery{From: to.AddDate(0, 0, -7), To: to, Limit: 50})
	require.NoError(t, err)
	require.Len(t, acts, 1)
	require.Equal(t, "Morning Run", acts[0].Name)
	require.Equal(t, "2024-03-15", acts[0].StartDay())
}

func TestNoAuthorizationHeaderWithoutToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"metrics":null}`))
	}, &stubTokens{})

	history, err := client.MetricsHistory(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, history)
	require.Empty(t, history)
}

func TestUnauthorizedOutsideLoginExpiresSession(t *testing.T) {
	tokens := &stubTokens{token: "stale"}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, tokens)

	_, err := client.LatestMetrics(context.Background(), 7)
	require.ErrorIs(t, err, ErrSessionExpired)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Equal(t, 1, tokens.expired)
	require.Empty(t, tokens.token)
}

func TestUnauthorizedDuringLoginKeepsSession(t *testing.T) {
	tokens := &stubTokens{token: "current"}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Invalid credentials"}`))
	}, tokens)

	_, err := client.Login(context.Background(), "a@b.c", "wrong")
	require.ErrorIs(t, err, ErrUnauthorized)
	require.False(t, errors.Is(err, ErrSessionExpired))
	require.Zero(t, tokens.expired)
	require.Equal(t, "current", tokens.token)
}

func TestErrorDetailMessage(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"string detail", http.StatusBadRequest, `{"detail":"Athlete not linked"}`, "Athlete not linked"},
		{"validation list", http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"}]}`, "field required"},
		{"no detail", http.StatusInternalServerError, `{"error":"boom"}`, "request failed"},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`, "request failed"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}, &stubTokens{token: "tok"})

			_, err := client.ImportActivities(context.Background(), 3)
			apiErr, ok := AsAPIError(err)
			require.True(t, ok)
			require.Equal(t, tc.status, apiErr.Status)
			require.Equal(t, tc.message, apiErr.Message)
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := New(Config{BaseURL: srv.URL}, &stubTokens{})

	_, err := client.Races(context.Background(), 1)
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
}

func TestRebuildMetricsQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/metrics/9/rebuild", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "2024-03-08", q.Get("from_day"))
		require.Equal(t, "2024-03-15", q.Get("to_day"))
		require.Equal(t, "true", q.Get("force"))
		w.WriteHeader(http.StatusNoContent)
	}, &stubTokens{token: "tok"})

	to := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, client.RebuildMetrics(context.Background(), 9, to.AddDate(0, 0, -7), to))
}

func TestCreateAndDeleteRace(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			require.Equal(t, "/races", r.URL.Path)
			var in models.RaceCreate
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			require.Equal(t, "City Marathon", in.Name)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(models.Race{ID: 11, AthleteID: in.AthleteID, Name: in.Name, RaceDate: in.RaceDate})
		case http.MethodDelete:
			require.Equal(t, "/races/11", r.URL.Path)
			require.Equal(t, "5", r.URL.Query().Get("athlete_id"))
			w.WriteHeader(http.StatusNoContent)
		}
	}, &stubTokens{token: "tok"})

	race, err := client.CreateRace(context.Background(), models.RaceCreate{
		AthleteID: 5, Name: "City Marathon", RaceDate: "2024-04-21", DistanceM: 42195, GoalTimeSec: 12600,
	})
	require.NoError(t, err)
	require.Equal(t, int64(11), race.ID)
	require.NoError(t, client.DeleteRace(context.Background(), 5, race.ID))
}

func TestImportResultDecoding(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/strava/3/import-activities", r.URL.Path)
		w.Write([]byte(`{"fetched":12,"saved_or_updated":10,"pages":2}`))
	}, &stubTokens{token: "tok"})

	res, err := client.ImportActivities(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, ImportResult{Fetched: 12, SavedOrUpdated: 10, Pages: 2}, res)
}
