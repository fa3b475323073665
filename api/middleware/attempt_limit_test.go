package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/relaymart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/relaymart-backend/pkg/errors"
)

type fakeAttemptStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{counts: make(map[string]int64)}
}

func (f *fakeAttemptStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := f.RateLimitKey(scope)
	f.counts[key]++
	return f.counts[key] <= limit, f.counts[key], nil
}

func (f *fakeAttemptStore) RateLimitKey(scope string) string {
	return "fake:rl:" + scope
}

func (f *fakeAttemptStore) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.counts, key)
	}
	return nil
}

// verifyRouter answers 200 when the submitted code is right and 400 otherwise.
func verifyRouter(store *fakeAttemptStore, limit int) http.Handler {
	policy := NewAttemptLimitPolicy("verify_code", 15*time.Minute, limit, "orderId")
	r := chi.NewRouter()
	r.With(AttemptLimit(policy, store, nil)).Post("/orders/{orderId}/verify-code", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("code") == "4821" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	})
	return r
}

func verifyAttempt(router http.Handler, driverID uuid.UUID, orderID, code string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID+"/verify-code?code="+code, nil)
	ctx := WithRole(WithUserID(req.Context(), driverID.String()), enums.RoleDriver)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req.WithContext(ctx))
	return resp
}

func TestAttemptLimitBlocksAfterRepeatedFailures(t *testing.T) {
	store := newFakeAttemptStore()
	router := verifyRouter(store, 3)
	driver := uuid.New()
	order := uuid.NewString()

	for i := 0; i < 3; i++ {
		if resp := verifyAttempt(router, driver, order, "0000"); resp.Code != http.StatusBadRequest {
			t.Fatalf("attempt %d: expected 400 got %d", i+1, resp.Code)
		}
	}

	resp := verifyAttempt(router, driver, order, "4821")
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once the limit is hit, got %d", resp.Code)
	}
	if resp.Header().Get("Retry-After") != "900" {
		t.Fatalf("expected Retry-After of the window, got %q", resp.Header().Get("Retry-After"))
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeRateLimit) {
		t.Fatalf("unexpected code: %s", payload.Error.Code)
	}

	if resp := verifyAttempt(router, driver, uuid.NewString(), "4821"); resp.Code != http.StatusOK {
		t.Fatalf("another order keeps its own counter, got %d", resp.Code)
	}
	if resp := verifyAttempt(router, uuid.New(), order, "0000"); resp.Code != http.StatusBadRequest {
		t.Fatalf("another driver keeps its own counter, got %d", resp.Code)
	}
}

func TestAttemptLimitResetsOnSuccess(t *testing.T) {
	store := newFakeAttemptStore()
	router := verifyRouter(store, 3)
	driver := uuid.New()
	order := uuid.NewString()

	for round := 0; round < 3; round++ {
		for i := 0; i < 2; i++ {
			verifyAttempt(router, driver, order, "0000")
		}
		if resp := verifyAttempt(router, driver, order, "4821"); resp.Code != http.StatusOK {
			t.Fatalf("round %d: expected success within the limit, got %d", round, resp.Code)
		}
	}
}

func TestAttemptLimitDisabled(t *testing.T) {
	store := newFakeAttemptStore()
	router := verifyRouter(store, 0)
	driver := uuid.New()
	for i := 0; i < 10; i++ {
		if resp := verifyAttempt(router, driver, "o1", "0000"); resp.Code != http.StatusBadRequest {
			t.Fatalf("expected the handler to answer every time, got %d", resp.Code)
		}
	}
	if len(store.counts) != 0 {
		t.Fatalf("disabled policy must not count, got %v", store.counts)
	}
}
