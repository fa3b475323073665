package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/relaymart-backend/api/responses"
	pkgerrors "github.com/angelmondragon/relaymart-backend/pkg/errors"
	"github.com/angelmondragon/relaymart-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/relaymart-backend/pkg/redis"
)

// AttemptLimitPolicy caps how often one actor may try an action on one
// resource within a fixed window.
type AttemptLimitPolicy struct {
	name   string
	window time.Duration
	limit  int
	param  string
}

// NewAttemptLimitPolicy builds a policy keyed by the authenticated actor and
// the chi URL parameter param.
func NewAttemptLimitPolicy(name string, window time.Duration, limit int, param string) AttemptLimitPolicy {
	return AttemptLimitPolicy{
		name:   strings.ToLower(strings.TrimSpace(name)),
		window: window,
		limit:  limit,
		param:  param,
	}
}

func (p AttemptLimitPolicy) enabled() bool {
	return p.window > 0 && p.limit > 0
}

func (p AttemptLimitPolicy) scope(actorID, resource string) string {
	name := p.name
	if name == "" {
		name = "attempt"
	}
	return fmt.Sprintf("%s:%s:%s", name, actorID, resource)
}

// AttemptLimit counts every request against the actor and resource. A
// successful response clears the counter, so only failed attempts add up
// across the window.
func AttemptLimit(policy AttemptLimitPolicy, store pkgredis.AttemptStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actorID, _, ok := ActorFromContext(ctx)
			resource := chi.URLParam(r, policy.param)
			if !ok || resource == "" {
				next.ServeHTTP(w, r)
				return
			}

			scope := policy.scope(actorID.String(), resource)
			allowed, count, err := store.FixedWindowAllow(ctx, scope, int64(policy.limit), policy.window)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attempt limiting"))
				return
			}
			if !allowed {
				respondAttemptLimited(ctx, logg, w, policy, actorID.String(), resource, count)
				return
			}

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if rec.status < http.StatusMultipleChoices {
				if err := store.Del(ctx, store.RateLimitKey(scope)); err != nil && logg != nil {
					logg.Warn(logg.WithField(ctx, "scope", scope), "attempt_limit.reset_failed")
				}
			}
		})
	}
}

func respondAttemptLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy AttemptLimitPolicy, actorID, resource string, count int64) {
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":         policy.name,
			"actor_id":       actorID,
			"resource":       resource,
			"attempts":       count,
			"limit":          policy.limit,
			"window_seconds": int(policy.window.Seconds()),
		}), "attempt_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(policy.window.Seconds())))
	err := pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts").
		WithDetails(map[string]any{
			"limit":          policy.limit,
			"window_seconds": int(policy.window.Seconds()),
		})
	responses.WriteError(ctx, logg, w, err)
}
