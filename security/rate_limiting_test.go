package security

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRateLimiter(limit int64) (*RateLimiter, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	r := NewRateLimiter(db, "redeem", limit, time.Minute)
	r.Identifier = func(e *core.RequestEvent) string { return "10.0.0.7" }
	return r, mock
}

func expectCount(mock redismock.ClientMock, key string, count int64) {
	mock.ExpectTxPipeline()
	mock.ExpectIncr(key).SetVal(count)
	mock.ExpectExpireNX(key, time.Minute).SetVal(count == 1)
	mock.ExpectTxPipelineExec()
}

func newTestEvent() *core.RequestEvent {
	e := &core.RequestEvent{}
	e.Request = httptest.NewRequest(http.MethodPost, "/api/v1/tickets/redeem", nil)
	e.Response = httptest.NewRecorder()
	return e
}

func TestRateLimiter_FirstRequestSetsWindow(t *testing.T) {
	r, mock := setupTestRateLimiter(2)
	defer mock.ClearExpect()

	expectCount(mock, "ratelimit:redeem:10.0.0.7", 1)

	err := r.Middleware()(newTestEvent())

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_RejectsOverLimit(t *testing.T) {
	r, mock := setupTestRateLimiter(2)
	defer mock.ClearExpect()

	expectCount(mock, "ratelimit:redeem:10.0.0.7", 3)

	err := r.Middleware()(newTestEvent())

	var apiErr *router.ApiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	r, mock := setupTestRateLimiter(2)
	defer mock.ClearExpect()

	mock.ExpectTxPipeline()
	mock.ExpectIncr("ratelimit:redeem:10.0.0.7").SetErr(errors.New("connection refused"))

	assert.NoError(t, r.Middleware()(newTestEvent()))
}

func TestRateLimiter_Allow(t *testing.T) {
	r, mock := setupTestRateLimiter(1)
	defer mock.ClearExpect()

	expectCount(mock, "ratelimit:redeem:scanner-1", 1)
	expectCount(mock, "ratelimit:redeem:scanner-1", 2)

	ok, err := r.Allow(t.Context(), "scanner-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Allow(t.Context(), "scanner-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
