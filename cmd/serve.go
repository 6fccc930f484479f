package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/salesdash/internal/geomap"
	"github.com/sells-group/salesdash/internal/report"
	"github.com/sells-group/salesdash/internal/resilience"
	"github.com/sells-group/salesdash/pkg/dashapi"
	"github.com/sells-group/salesdash/pkg/geocode"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve report, city and store location endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initGeocoder(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		router := buildRouter(serverDeps{
			API:            newDashClient(cfg),
			Geocoder:       env.Geocoder,
			Breakers:       env.Breakers,
			Geo:            geomapConfig(cfg),
			PerPage:        cfg.Report.PerPage,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		})

		return startServer(ctx, router, resolvePort(servePort, cfg.Server.Port))
	},
}

// serverDeps are the collaborators behind the HTTP handlers. Nil API or
// Geocoder makes the dependent endpoints answer 503.
type serverDeps struct {
	API            dashapi.Client
	Geocoder       geocode.Client
	Breakers       *resilience.Breakers
	Geo            geomap.Config
	PerPage        int
	AllowedOrigins []string
}

// resolvePort prefers the flag over the configured port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

// startServer serves handler on port until ctx is done, then shuts down
// gracefully.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

type requestIDKey struct{}

// requestID tags each request with X-Request-ID, reusing the caller's value
// when present, and logs the request on completion.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		zap.L().Debug("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func buildRouter(deps serverDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{"status": "ok"}
		if deps.Breakers != nil {
			states := make(map[string]string)
			for name, s := range deps.Breakers.States() {
				states[name] = s.String()
			}
			body["breakers"] = states
		}
		writeJSON(w, http.StatusOK, body)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/report", reportHandler(deps))
		r.Get("/cities", citiesHandler(deps))
		r.Get("/locations", locationsHandler(deps))
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	if err != nil {
		zap.L().Warn("request failed",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, map[string]string{"status": "error", "message": msg})
}

// reportHandler runs one report page. Query parameters use the data API's
// names; sort may repeat to toggle direction.
func reportHandler(deps serverDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.API == nil {
			writeError(w, r, http.StatusServiceUnavailable, "data api not configured", nil)
			return
		}
		q := r.URL.Query()

		page := 1
		if v := q.Get(report.ParamPage); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeError(w, r, http.StatusBadRequest, "page must be a positive integer", nil)
				return
			}
			page = n
		}
		perPage := deps.PerPage
		if v := q.Get(report.ParamPerPage); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > 1000 {
				writeError(w, r, http.StatusBadRequest, "per_page must be between 1 and 1000", nil)
				return
			}
			perPage = n
		}

		res, err := runReport(r.Context(), deps.API, reportOptions{
			Criteria: report.CriteriaFromValues(q),
			Page:     page,
			PerPage:  perPage,
			Pages:    1,
			Sort:     q["sort"],
		})
		var vErr *report.ValidationError
		var fErr *report.FetchError
		switch {
		case errors.As(err, &vErr):
			writeError(w, r, http.StatusBadRequest, res.Notice, err)
		case errors.As(err, &fErr):
			writeError(w, r, http.StatusBadGateway, "data unavailable", err)
		case err != nil:
			writeError(w, r, http.StatusInternalServerError, "report failed", err)
		default:
			writeJSON(w, http.StatusOK, res)
		}
	}
}

func citiesHandler(deps serverDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.API == nil {
			writeError(w, r, http.StatusServiceUnavailable, "data api not configured", nil)
			return
		}
		cities, err := deps.API.Cities(r.Context())
		if err != nil {
			writeError(w, r, http.StatusBadGateway, "cities unavailable", err)
			return
		}
		writeJSON(w, http.StatusOK, cities)
	}
}

// locationsHandler aggregates the store analysis into map points. format=geojson
// returns a FeatureCollection.
func locationsHandler(deps serverDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.API == nil {
			writeError(w, r, http.StatusServiceUnavailable, "data api not configured", nil)
			return
		}
		if deps.Geocoder == nil || !deps.Geocoder.Available() {
			writeError(w, r, http.StatusServiceUnavailable, "geocoder not available", geomap.ErrGeocoderUnavailable)
			return
		}

		data, err := deps.API.StoreAnalysis(r.Context())
		if err != nil {
			var aErr *dashapi.AnalysisError
			if errors.As(err, &aErr) {
				writeError(w, r, http.StatusBadGateway, aErr.Message, err)
				return
			}
			writeError(w, r, http.StatusBadGateway, "store analysis unavailable", err)
			return
		}

		locs, err := geomap.NewAggregator(deps.Geocoder, deps.Geo).Aggregate(r.Context(), *data)
		if err != nil {
			if errors.Is(err, geomap.ErrGeocoderUnavailable) {
				writeError(w, r, http.StatusServiceUnavailable, "geocoder not available", err)
				return
			}
			writeError(w, r, http.StatusInternalServerError, "aggregate locations", err)
			return
		}

		if r.URL.Query().Get("format") == "geojson" {
			w.Header().Set("Content-Type", "application/geo+json")
			if err := geomap.WriteGeoJSON(w, locs); err != nil {
				zap.L().Error("write geojson", zap.Error(err))
			}
			return
		}
		writeJSON(w, http.StatusOK, locs)
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
