package transport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/shop-service/internal/auth"
	shopHttp "github.com/vasiliy-maslov/shop-service/internal/handler/http"
	"github.com/vasiliy-maslov/shop-service/internal/metrics"
)

const APIPrefix = "/api/v1"

type Handlers struct {
	Auth          *shopHttp.AuthHandler
	Products      *shopHttp.ProductHandler
	Orders        *shopHttp.OrderHandler
	Notifications *shopHttp.NotificationHandler
}

func NewRouter(h Handlers, authn *auth.Authenticator, m *metrics.ServerMetrics, gatherer prometheus.Gatherer) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if m != nil {
		r.Use(m.Middleware)
	}

	r.Get("/health", health)
	if gatherer != nil {
		r.Handle("/metrics", metrics.Handler(gatherer))
	}

	r.Route(APIPrefix, func(api chi.Router) {
		api.Get("/", health)
		h.Auth.RegisterRoutes(api, authn.Middleware)
		h.Products.RegisterRoutes(api, authn.Middleware)
		h.Orders.RegisterRoutes(api, authn.Middleware)
		h.Notifications.RegisterRoutes(api, authn.Middleware)
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// requestLogger writes one zerolog line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
