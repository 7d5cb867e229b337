package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"

	"c1fapp/internal/apierr"
	"c1fapp/internal/auth"
	"c1fapp/internal/config"
	"c1fapp/internal/ctim"
	"c1fapp/internal/enrich"
	"c1fapp/internal/mapping"
)

// Version is reported by /version. Overridden at build time with -ldflags.
var Version = "dev"

// healthProbeValue is looked up by /health to check the feed and the caller's key.
const healthProbeValue = "test.com"

// Enricher runs a batch enrichment.
type Enricher interface {
	Enrich(ctx context.Context, apiKey string, observables []ctim.Observable, limit int) (*enrich.Result, error)
}

// Prober checks that the feed accepts the caller's key.
type Prober interface {
	Lookup(ctx context.Context, apiKey, value string) ([]mapping.Record, error)
}

// Server wraps HTTP and gRPC servers
type Server struct {
	enricher Enricher
	prober   Prober
	verifier *auth.Verifier
	cfg      *config.Config
	logger   *slog.Logger
	router   *mux.Router
	grpcSrv  *grpc.Server
}

func New(enricher Enricher, prober Prober, cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		enricher: enricher,
		prober:   prober,
		verifier: auth.NewVerifier(cfg.SecretKey),
		cfg:      cfg,
		logger:   logger,
		router:   mux.NewRouter(),
		grpcSrv:  grpc.NewServer(),
	}
	s.routes()
	RegisterEnrichmentServer(s.grpcSrv, &enrichmentService{srv: s})
	return s
}

func (s *Server) Router() http.Handler { return s.router }

func (s *Server) StartMetrics(addr string) {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, metricsMux); err != nil && err != http.ErrServerClosed {
			s.logger.Error("metrics server error", "err", err)
		}
	}()
}

func (s *Server) StartGRPC(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.ServeGRPC(ln)
}

// ServeGRPC serves the enrichment service on ln until StopGRPC is called.
func (s *Server) ServeGRPC(ln net.Listener) error {
	return s.grpcSrv.Serve(ln)
}

// StopGRPC drains in-flight calls and stops the gRPC server.
func (s *Server) StopGRPC() {
	s.grpcSrv.GracefulStop()
}

// observe is shared by the HTTP and gRPC transports.
func (s *Server) observe(ctx context.Context, authorization string, body []byte) apierr.Envelope {
	key, err := s.verifier.APIKey(authorization)
	if err != nil {
		return apierr.Errors(apierr.From(err))
	}
	observables, err := decodeObservables(body)
	if err != nil {
		return apierr.Errors(apierr.From(err))
	}
	res, err := s.enricher.Enrich(ctx, key, observables, s.cfg.EntitiesLimit)
	if err != nil {
		s.logger.Warn("enrichment aborted", "err", err)
		return apierr.Errors(apierr.NewEntry(apierr.CodeUnavailable, "Enrichment was cancelled."))
	}
	return res.Envelope()
}

func (s *Server) health(ctx context.Context, authorization string) apierr.Envelope {
	key, err := s.verifier.APIKey(authorization)
	if err != nil {
		return apierr.Errors(apierr.From(err))
	}
	if _, err := s.prober.Lookup(ctx, key, healthProbeValue); err != nil {
		s.logger.Error("health check failed", "err", err)
		return apierr.Errors(apierr.From(err))
	}
	return apierr.Data(map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
