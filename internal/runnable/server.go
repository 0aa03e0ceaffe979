package runnable

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"pagediff/internal/capture"
	"pagediff/internal/config"
	diffimage "pagediff/internal/diff/image"
	"pagediff/internal/myhttp"
	"pagediff/internal/routes"
	"pagediff/internal/scenario"
	"pagediff/internal/storage"
	"runtime"
	"syscall"
	"time"

	otelpyroscope "github.com/grafana/otel-profiling-go"
	"github.com/grafana/pyroscope-go"
	pyroscopepprof "github.com/grafana/pyroscope-go/http/pprof"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"golang.org/x/net/netutil"
	"golang.org/x/xerrors"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
)

const applicationName = "pagediff"

// Dependencies are the collaborators behind the HTTP API. Storage and Store
// are optional; their routes are left out when nil.
type Dependencies struct {
	Capturer  capture.Capturer
	Inspector capture.Inspector
	Storage   storage.Storage
	Store     scenario.Store
	Options   diffimage.Options
	// Kubernetes adds the artifacts routes backed by the in-cluster API server.
	Kubernetes bool
}

type Server struct {
	address                string
	terminationGracePeriod time.Duration
	lameduck               time.Duration
	keepAlive              bool
	maxConnections         int
	compareCacheSize       int
	batchConcurrency       int
	deps                   Dependencies
}

func NewServer(deps Dependencies) *Server {
	return &Server{
		address:                config.EnvOrDefault("ADDRESS", "0.0.0.0:8082"),
		terminationGracePeriod: config.EnvOrDefault("TERMINATION_GRACE_PERIOD", 10*time.Second),
		lameduck:               config.EnvOrDefault("LAMEDUCK", 1*time.Second),
		keepAlive:              config.EnvOrDefault("HTTP_KEEPALIVE", true),
		maxConnections:         config.EnvOrDefault("MAX_CONNECTIONS", 65532),
		compareCacheSize:       config.EnvOrDefault("COMPARE_CACHE_SIZE", 128),
		batchConcurrency:       config.EnvOrDefault("BATCH_CONCURRENCY", 2),
		deps:                   deps,
	}
}

var Debug = false

func newLogger() (*slog.Logger, error) {
	logLevel := slog.LevelInfo
	if v, ok := os.LookupEnv("GO_LOG"); ok {
		if err := logLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, xerrors.Errorf("failed to parse log level: %w", err)
		}
	}
	handlerOpts := &slog.HandlerOptions{
		Level: logLevel,
		// https://opentelemetry.io/docs/specs/otel/logs/data-model/
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.LevelKey:
				a.Key = "severitytext"
			case slog.MessageKey:
				a.Key = "body"
			}
			return a
		},
	}
	if Debug {
		return slog.New(slog.NewTextHandler(os.Stderr, handlerOpts)), nil
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, handlerOpts)), nil
}

// Handler builds the API. dynamicClient is only used when the Kubernetes
// dependency is enabled.
func (s *Server) Handler(logger *slog.Logger, httpRequestsDurationMicroSeconds metric.Int64Histogram, dynamicClient dynamic.Interface) (http.Handler, error) {
	mux := myhttp.NewServerMux(logger, httpRequestsDurationMicroSeconds)

	cache, err := routes.NewCompareCache(s.compareCacheSize)
	if err != nil {
		return nil, xerrors.Errorf("failed to create compare cache: %w", err)
	}
	mux.HandleFuncWithMiddleware("POST /api/compare", routes.Compare(s.deps.Options, cache))

	if s.deps.Capturer != nil {
		mux.HandleFuncWithMiddleware("POST /api/screenshot", routes.Screenshot(s.deps.Capturer, s.deps.Storage))
		mux.HandleFuncWithMiddleware("POST /api/batch", routes.Batch(routes.BatchConfig{
			Store:       s.deps.Store,
			Capturer:    s.deps.Capturer,
			Storage:     s.deps.Storage,
			Options:     s.deps.Options,
			Concurrency: s.batchConcurrency,
		}))
	}
	if s.deps.Inspector != nil {
		mux.HandleFuncWithMiddleware("POST /api/inspector", routes.Inspector(s.deps.Inspector))
	}

	if store := s.deps.Store; store != nil {
		mux.HandleFuncWithMiddleware("GET /api/scenarios", routes.ListScenarios(store))
		mux.HandleFuncWithMiddleware("POST /api/scenarios", routes.CreateScenario(store))
		mux.HandleFuncWithMiddleware("POST /api/scenarios/import", routes.ImportScenarios(store))
		mux.HandleFuncWithMiddleware("GET /api/scenarios/{id}", routes.GetScenario(store))
		mux.HandleFuncWithMiddleware("PUT /api/scenarios/{id}", routes.UpdateScenario(store))
		mux.HandleFuncWithMiddleware("DELETE /api/scenarios/{id}", routes.DeleteScenario(store))

		mux.HandleFuncWithMiddleware("GET /api/scenarios/collections", routes.ListCollections(store))
		mux.HandleFuncWithMiddleware("POST /api/scenarios/collections", routes.CreateCollection(store))
		mux.HandleFuncWithMiddleware("PUT /api/scenarios/collections/{id}", routes.UpdateCollection(store))
		mux.HandleFuncWithMiddleware("DELETE /api/scenarios/collections/{id}", routes.DeleteCollection(store))
	}

	if s.deps.Kubernetes && dynamicClient != nil {
		mux.HandleFuncWithMiddleware("PATCH /api/{namespace}/{group}/{version}/{kind}/{name}/artifacts", routes.UpdateArtifacts(dynamicClient))
		if s.deps.Storage != nil {
			mux.HandleFuncWithMiddleware("GET /api/{namespace}/{group}/{version}/{kind}/{name}/artifacts", routes.ListArtifacts(dynamicClient, s.deps.Storage))
		}
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(http.StatusText(http.StatusOK)))
	})

	mux.Handle("GET /metrics", promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer, promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		}),
	))

	if Debug {
		mux.HandleFunc("GET /debug/pprof/", pprof.Index)
		mux.HandleFunc("GET /debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("GET /debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("GET /debug/pprof/trace", pprof.Trace)
		mux.HandleFunc("GET /debug/pprof/profile", pyroscopepprof.Profile)
	}

	return mux, nil
}

// Start serves until ctx is done or the process receives SIGTERM.
func (s *Server) Start(ctx context.Context) error {
	runtime.SetMutexProfileFraction(1)
	runtime.SetBlockProfileRate(1)

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: applicationName,
		ServerAddress:   os.Getenv("PYROSCOPE_ENDPOINT"),
		UploadRate:      60 * time.Second,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
			pyroscope.ProfileMutexCount,
			pyroscope.ProfileMutexDuration,
			pyroscope.ProfileBlockCount,
			pyroscope.ProfileBlockDuration,
		},
	})
	if err != nil {
		return xerrors.Errorf("failed to create profiler: %w", err)
	}

	otel.SetTextMapPropagator(propagation.TraceContext{})

	r, err := sdkresource.Merge(
		sdkresource.Default(),
		sdkresource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(applicationName)),
	)
	if err != nil {
		return xerrors.Errorf("failed to create resource: %w", err)
	}
	traceExporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return xerrors.Errorf("failed to create trace exporter: %w", err)
	}
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(r),
		sdktrace.WithBatcher(traceExporter),
	)
	otel.SetTracerProvider(otelpyroscope.NewTracerProvider(traceProvider))

	exporter, err := otelprometheus.New()
	if err != nil {
		return xerrors.Errorf("failed to create exporter: %w", err)
	}
	// NOTE: Gauge(UpDownCounter), Summary or Untyped does not support exemplars
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)).Meter(applicationName)
	httpRequestsDurationMicroSeconds, err := meter.Int64Histogram("http_requests_duration_micro_seconds")
	if err != nil {
		return xerrors.Errorf("failed to create histogram: %w", err)
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}

	var dynamicClient dynamic.Interface
	if s.deps.Kubernetes {
		kubeConfig, err := rest.InClusterConfig()
		if err != nil {
			return xerrors.Errorf("failed to create kubernetes config: %w", err)
		}
		dynamicClient, err = dynamic.NewForConfig(kubeConfig)
		if err != nil {
			return xerrors.Errorf("failed to create kubernetes dynamic client: %w", err)
		}
	}

	handler, err := s.Handler(logger, httpRequestsDurationMicroSeconds, dynamicClient)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return xerrors.Errorf("failed to listen on address %s: %w", s.address, err)
	}

	server := &http.Server{
		Handler: handler,
	}
	server.SetKeepAlivesEnabled(s.keepAlive)

	go func() {
		if err := server.Serve(netutil.LimitListener(listener, s.maxConnections)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to serve HTTP", "error", err)
		}
	}()
	logger.Info("listening", "address", s.address)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM)
	defer signal.Stop(quit)
	select {
	case <-quit:
		time.Sleep(s.lameduck)
	case <-ctx.Done():
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.terminationGracePeriod)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return xerrors.Errorf("failed to shutdown server: %w", err)
	}

	if err := traceProvider.Shutdown(ctx); err != nil {
		return xerrors.Errorf("failed to shutdown trace provider: %w", err)
	}

	if err := profiler.Stop(); err != nil {
		return xerrors.Errorf("failed to shutdown profiler: %w", err)
	}

	return nil
}
