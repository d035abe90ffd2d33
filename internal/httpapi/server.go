package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lorachat/pkg/types"
)

// rootMessage is the static acknowledgement served at GET /.
const rootMessage = "lorachat API server is running"

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Handle(ctx context.Context, req types.ChatRequest) (types.ChatResponse, error)
	Status() types.StatusResponse
	Ready() bool
}

// BusyReasoner is implemented by backpressure errors to label the 429 metric.
type BusyReasoner interface {
	Reason() string
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}

	r.Get("/", rootHandler)
	r.Post("/api/chat", chatHandler(svc))
	r.Get("/status", statusHandler(svc))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("model unavailable"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// rootHandler godoc
// @Summary      Liveness acknowledgement
// @Description  Static message; does not reflect model state.
// @Tags         meta
// @Produce      json
// @Success      200  {object}  types.RootResponse
// @Router       / [get]
func rootHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.RootResponse{Message: rootMessage})
}

// statusHandler godoc
// @Summary      Service status
// @Description  Model description, load state, admission queue and uptime.
// @Tags         meta
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /status [get]
func statusHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	}
}

// chatHandler godoc
// @Summary      Chat completion
// @Description  Generates one assistant reply for the conversation. A default persona is injected when no system turn is present.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        request  body      types.ChatRequest  true  "Conversation and generation knobs"
// @Success      200      {object}  types.ChatResponse
// @Failure      400      {object}  types.ErrorResponse
// @Failure      415      {object}  types.ErrorResponse
// @Failure      429      {object}  types.ErrorResponse
// @Failure      500      {object}  types.ErrorResponse
// @Failure      503      {object}  types.ErrorResponse
// @Router       /api/chat [post]
func chatHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		body := &countingReader{r: http.MaxBytesReader(w, r.Body, maxBodyBytes)}
		var req types.ChatRequest
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			// Oversized bodies surface here too; they get the same 400.
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		chatRequestBytes.Observe(float64(body.n))
		chatRequestTurns.Observe(float64(len(req.Messages)))

		lvl := requestLogLevel(r)
		logger := requestLogger(r, lvl)
		start := time.Now()
		if lvl >= LevelInfo {
			logger.Info().Str("model", req.Model).Int("messages", len(req.Messages)).Msg("chat start")
		}
		// Shutdown cancels requests that are still queued; running generations finish.
		ctx, cancel := joinContexts(serverBaseCtx, logger.WithContext(r.Context()))
		defer cancel()

		resp, err := svc.Handle(ctx, req)
		if err != nil {
			if r.Context().Err() != nil {
				// Client went away while queued; nobody reads the response.
				return
			}
			status := http.StatusInternalServerError
			msg := "internal error"
			var he HTTPError
			if errors.As(err, &he) {
				status = he.StatusCode()
				msg = he.Error()
			} else if serverBaseCtx.Err() != nil {
				status = http.StatusServiceUnavailable
				msg = "server shutting down"
			}
			if status == http.StatusTooManyRequests {
				var br BusyReasoner
				reason := ""
				if errors.As(err, &br) {
					reason = br.Reason()
				}
				IncrementBackpressure(reason)
			}
			writeJSONError(w, status, msg)
			if lvl >= LevelError {
				logger.Info().Int("status", status).Dur("dur", time.Since(start)).Err(err).Msg("chat end")
			}
			return
		}
		writeJSON(w, http.StatusOK, resp)
		if lvl >= LevelInfo {
			logger.Info().Int("status", http.StatusOK).Dur("dur", time.Since(start)).Msg("chat end")
		}
	}
}
