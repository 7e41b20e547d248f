package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

// fakeCounter mimics the redis INCR/EXPIRE/TTL commands in memory
type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	ttls   map[string]time.Duration
	err    error

	expireErr error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCounter) Incr(_ context.Context, key string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeCounter) Expire(_ context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.expireErr != nil {
		return redis.NewBoolResult(false, f.expireErr)
	}
	f.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCounter) TTL(_ context.Context, key string) *redis.DurationCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	ttl, ok := f.ttls[key]
	if !ok {
		// redis reports -1 for a key without an expiry
		return redis.NewDurationResult(-1, nil)
	}
	return redis.NewDurationResult(ttl-90*time.Minute, nil)
}

func submit(limiter *SubmissionRateLimiter, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/issues", nil)
	req.RemoteAddr = ip + ":52100"
	rr := httptest.NewRecorder()
	limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})).ServeHTTP(rr, req)
	return rr
}

func TestSubmissionRateLimiter(t *testing.T) {
	counter := newFakeCounter()
	limiter := NewSubmissionRateLimiter(counter, 2)

	assert.Equal(t, http.StatusCreated, submit(limiter, "10.0.0.1").Code)
	assert.Equal(t, http.StatusCreated, submit(limiter, "10.0.0.1").Code)

	rr := submit(limiter, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "81000", rr.Header().Get("Retry-After"))

	// other clients keep their own budget
	assert.Equal(t, http.StatusCreated, submit(limiter, "10.0.0.2").Code)
	assert.Equal(t, 24*time.Hour, counter.ttls["sentinel:submissions:10.0.0.1"])
}

func TestSubmissionRateLimiterRestoresLostTTL(t *testing.T) {
	counter := newFakeCounter()
	counter.expireErr = errors.New("i/o timeout")
	limiter := NewSubmissionRateLimiter(counter, 2)

	assert.Equal(t, http.StatusCreated, submit(limiter, "10.0.0.1").Code)
	_, hasTTL := counter.ttls["sentinel:submissions:10.0.0.1"]
	assert.False(t, hasTTL)

	counter.expireErr = nil
	assert.Equal(t, http.StatusCreated, submit(limiter, "10.0.0.1").Code)

	rr := submit(limiter, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "86400", rr.Header().Get("Retry-After"))
	assert.Equal(t, 24*time.Hour, counter.ttls["sentinel:submissions:10.0.0.1"])
}

func TestSubmissionRateLimiterFailsOpen(t *testing.T) {
	counter := newFakeCounter()
	counter.err = errors.New("connection refused")
	limiter := NewSubmissionRateLimiter(counter, 1)

	assert.Equal(t, http.StatusCreated, submit(limiter, "10.0.0.1").Code)
	assert.Equal(t, http.StatusCreated, submit(limiter, "10.0.0.1").Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "192.168.1.5:4000"
	assert.Equal(t, "192.168.1.5", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.1.1.1")
	assert.Equal(t, "203.0.113.9", clientIP(req))
}
