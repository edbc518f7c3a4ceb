package tennis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/courtwatch/internal/cache"
	"github.com/albapepper/courtwatch/internal/provider"
	"github.com/albapepper/courtwatch/internal/rules"
)

const liveBody = `{"data":[{
	"id":"m1","tour":"ATP",
	"tournament":{"id":"t1","name":"Roland Garros","category":"Grand_Slam","surface":"Clay"},
	"round":"Quarter-finals","status":"inprogress","best_of":5,
	"start_time":"2026-06-03T12:00:00Z",
	"home":{"id":"p1","name":"Carlos Alcaraz","ranking":2},
	"away":{"id":"p2","name":"Jannik Sinner","ranking":1},
	"scores":[{"home":6,"away":4},{"home":6,"away":7,"home_tiebreak":5,"away_tiebreak":7}]
}]}`

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	c := NewClient(Config{BaseURL: srv.URL, APIKey: "secret", Timeout: time.Second}, cache.New(true), nil)
	return c, &calls
}

func TestLiveDecodesCanonicalMatch(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/matches/live", r.URL.Path)
		assert.Equal(t, "atp", r.URL.Query().Get("tour"))
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		w.Write([]byte(liveBody))
	})

	matches, err := c.Live(context.Background(), rules.TourATP, false)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, rules.TourATP, m.Tour)
	assert.Equal(t, "QF", m.Round)
	assert.Equal(t, provider.StatusLive, m.Status)
	assert.Equal(t, "clay", m.Tournament.Surface)
	assert.Equal(t, "grand_slam", m.Tournament.Category)
	assert.Equal(t, "Jannik Sinner", m.Players[1].Name)
	assert.Equal(t, 1, m.Players[1].Rank)
	assert.Equal(t, [2]int{5, 7}, m.Sets[1].Tiebreak)
	assert.Equal(t, 5, m.MaxSets())
}

func TestResponsesAreCachedUnlessFresh(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(liveBody))
	})
	ctx := context.Background()

	_, err := c.Live(ctx, rules.TourATP, false)
	require.NoError(t, err)
	_, err = c.Live(ctx, rules.TourATP, false)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	_, err = c.Live(ctx, rules.TourATP, true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestStatusErrorRetryable(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("maintenance"))
	})

	_, err := c.Players(context.Background(), rules.TourWTA, false)
	require.Error(t, err)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Retryable())
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)

	assert.False(t, (&StatusError{Code: http.StatusUnauthorized}).Retryable())
	assert.True(t, (&StatusError{Code: http.StatusTooManyRequests}).Retryable())
}

func TestHeadToHeadSortedOldestFirst(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "p1", r.URL.Query().Get("player1"))
		w.Write([]byte(`{"data":[
			{"id":"b","status":"finished","start_time":"2025-05-01T10:00:00Z"},
			{"id":"a","status":"finished","start_time":"2024-05-01T10:00:00Z"}
		]}`))
	})

	matches, err := c.HeadToHead(context.Background(), "p1", "p2", false)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ID)
	assert.Equal(t, provider.StatusFinished, matches[1].Status)
}

func TestUpcomingPassesLookahead(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "48", r.URL.Query().Get("hours"))
		w.Write([]byte(`{"data":null}`))
	})

	matches, err := c.Upcoming(context.Background(), rules.TourWTA, 48*time.Hour, false)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestResultsCarryRetirementAndWinner(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{
			"id":"r1","tour":"ATP","round":"R32","status":"Retired","winner":"away",
			"start_time":"2026-06-01T10:00:00Z",
			"home":{"id":"p1","name":"Retiree A","ranking":60},
			"away":{"id":"p2","name":"Opponent B","ranking":3},
			"scores":[{"home":6,"away":3},{"home":1,"away":0}]
		}]}`))
	})

	matches, err := c.Results(context.Background(), rules.TourATP, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), false)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, provider.StatusFinished, m.Status)
	assert.Equal(t, provider.EndingRetired, m.Ending)
	assert.Equal(t, 2, m.WinnerSide)
	assert.Equal(t, 1, m.Winner())
	assert.Equal(t, "6-3 1-0 ret.", m.ScoreLine())
}
