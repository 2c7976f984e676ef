package gate

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"bulwark-hq/ceres/pkg/ratelimit"
)

// Rejection headers attached to denied responses and, minus Retry-After,
// to allowed responses as well.
const (
	// HeaderLimit carries the window quota.
	HeaderLimit = "X-RateLimit-Limit"

	// HeaderRemaining carries the requests left in the window.
	HeaderRemaining = "X-RateLimit-Remaining"

	// HeaderReset carries the window end as epoch seconds.
	HeaderReset = "X-RateLimit-Reset"

	// HeaderRetryAfter carries seconds until the window resets.
	HeaderRetryAfter = "Retry-After"
)

// RejectionBody is the structured payload returned on a denied request.
type RejectionBody struct {
	Error             string `json:"error"`
	Limit             uint64 `json:"limit"`
	Remaining         uint64 `json:"remaining"`
	ResetAt           int64  `json:"resetAt"`
	RetryAfterSeconds int64  `json:"retryAfterSeconds"`
}

// Config configures the admission gate.
type Config struct {
	// Strict controls how a request-time UnknownClassError is handled.
	// Strict mode (non-production) fails the request loudly with a 500
	// so the deployment bug is caught immediately; otherwise the gate
	// fails open with an error log, because a misconfigured limit class
	// must not take down the whole API.
	Strict bool
}

// Gate is the per-request admission middleware.
type Gate struct {
	engine *ratelimit.Engine
	mapper *ratelimit.ClassMapper
	config Config
	logger *slog.Logger
}

// New creates a new admission gate.
func New(engine *ratelimit.Engine, mapper *ratelimit.ClassMapper, config Config) *Gate {
	return &Gate{
		engine: engine,
		mapper: mapper,
		config: config,
		logger: slog.Default().With("component", "gate"),
	}
}

// Middleware wraps next with the admission check.
//
// On allow, the X-RateLimit-* headers are attached and control passes
// onward. On deny, the gate short-circuits with the structured 429
// rejection; no downstream logic runs and the only side effect is the
// already-recorded admission event.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := ratelimit.IdentityFromRequest(r)
		identifier := ratelimit.ResolveIdentifier(identity)
		class := g.mapper.ClassForPath(r.URL.Path)

		decision, err := g.engine.Check(r.Context(), identifier, r.URL.Path, class)
		if err != nil {
			g.handleCheckError(w, r, err, class, next)
			return
		}

		setRateLimitHeaders(w, decision)

		if !decision.Allowed {
			g.logger.Info("request denied by rate limiter",
				"identifier", identifier,
				"path", r.URL.Path,
				"class", class,
				"reset_at", decision.ResetAt,
			)
			writeRejection(w, decision, time.Now())
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleCheckError handles the one error the engine can return: an unknown
// limit class, which is a deployment bug rather than a runtime condition.
func (g *Gate) handleCheckError(w http.ResponseWriter, r *http.Request, err error, class string, next http.Handler) {
	var unknown *ratelimit.UnknownClassError
	if !errors.As(err, &unknown) {
		// No other error type is expected from Check; treat the same way.
		unknown = ratelimit.NewUnknownClassError(class)
	}

	if g.config.Strict {
		g.logger.Error("unknown limit class, failing request (strict mode)",
			"class", unknown.Class,
			"path", r.URL.Path,
		)
		http.Error(w, "misconfigured rate limit class", http.StatusInternalServerError)
		return
	}

	g.logger.Error("unknown limit class, failing open",
		"class", unknown.Class,
		"path", r.URL.Path,
	)
	next.ServeHTTP(w, r)
}

// setRateLimitHeaders attaches rate limit metadata to the response.
// A zero-limit decision (subsystem disabled) carries no metadata.
func setRateLimitHeaders(w http.ResponseWriter, decision ratelimit.Decision) {
	if decision.Limit == 0 {
		return
	}
	w.Header().Set(HeaderLimit, strconv.FormatUint(decision.Limit, 10))
	w.Header().Set(HeaderRemaining, strconv.FormatUint(decision.Remaining, 10))
	w.Header().Set(HeaderReset, strconv.FormatInt(decision.ResetAt.Unix(), 10))
}

// writeRejection writes the structured 429 response.
func writeRejection(w http.ResponseWriter, decision ratelimit.Decision, now time.Time) {
	retryAfter := decision.RetryAfter(now)

	w.Header().Set(HeaderRetryAfter, strconv.FormatInt(retryAfter, 10))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	body := RejectionBody{
		Error:             "rate_limit_exceeded",
		Limit:             decision.Limit,
		Remaining:         0,
		ResetAt:           decision.ResetAt.Unix(),
		RetryAfterSeconds: retryAfter,
	}

	// Encoding errors past WriteHeader are unrecoverable.
	_ = json.NewEncoder(w).Encode(body)
}
