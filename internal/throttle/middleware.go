package throttle

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"quiz-solver/internal/httputil"
	"quiz-solver/internal/stats"

	"github.com/sirupsen/logrus"
)

type KeyFunc func(r *http.Request) string

type Options struct {
	Store               *Store
	Stats               stats.Store
	KeyFn               KeyFunc
	KeyHeader           string
	TrustXForwardedFor  bool
	RejectStatus        int
	RetryAfter          time.Duration
	AddRateLimitHeaders bool
	Logger              logrus.FieldLogger
}

func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			// primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				ip, _, _ := strings.Cut(xff, ",")
				if ip = strings.TrimSpace(ip); ip != "" {
					return ip
				}
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.RetryAfter == 0 {
		opts.RetryAfter = 1 * time.Second
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)

			if opts.AddRateLimitHeaders {
				w.Header().Set("X-RateLimit-Key", key)
				if opts.Store != nil {
					w.Header().Set("X-RateLimit-RPS", strconv.FormatFloat(opts.Store.RPS(), 'f', -1, 64))
					w.Header().Set("X-RateLimit-Burst", strconv.Itoa(opts.Store.Burst()))
				}
			}

			dec := opts.Store.Decide(key, opts.RetryAfter)
			if opts.Stats != nil {
				outcome := stats.OutcomeAllowed
				if !dec.Allowed {
					outcome = stats.OutcomeDenied
				}
				err := opts.Stats.Record(r.Context(), stats.Event{
					Key:     key,
					Outcome: outcome,
					Method:  r.Method,
					Path:    r.URL.Path,
					At:      time.Now(),
				})
				if err != nil {
					opts.Logger.WithError(err).Debug("rate stats record failed")
				}
			}
			if !dec.Allowed {
				opts.Logger.WithField("key", key).Warn("rate limit exceeded")
				w.Header().Set("Retry-After", strconv.Itoa(int(dec.RetryAfter.Seconds())))
				httputil.Detail(w, opts.RejectStatus, http.StatusText(opts.RejectStatus))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
}

// ConcurrencyMiddleware limita requisições em voo. Max <= 0 desliga o limite.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}

	pool := NewPool(opts.Max)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, ok := AcquireWithin(r.Context(), pool, opts.AcquireTimeout)
			if !ok {
				httputil.Detail(w, opts.RejectStatus, http.StatusText(opts.RejectStatus))
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
