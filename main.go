package main

import (
	"crypto/tls"
	"flag"
	"os"
	pdV1 "pagediff/api/v1"
	"pagediff/internal/capture"
	"pagediff/internal/config"
	"pagediff/internal/controllers"
	diffimage "pagediff/internal/diff/image"
	"pagediff/internal/runnable"
	"pagediff/internal/storage"

	// Import all Kubernetes client auth plugins (e.g. Azure, GCP, OIDC, etc.)
	// to ensure that exec-entrypoint and run can make use of them.
	_ "k8s.io/client-go/plugin/pkg/client/auth"

	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/klog/v2"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"
	"sigs.k8s.io/controller-runtime/pkg/webhook"
	// +kubebuilder:scaffold:imports
)

var (
	scheme = runtime.NewScheme()
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(pdV1.AddToScheme(scheme))
}

func main() {
	var metricsAddr string
	var secureMetrics bool
	var enableHTTP2 bool
	var probeAddr string
	var enableLeaderElection bool

	var storageLocation string
	var s3Endpoint string
	var chromeDevtoolsProtocolURL string

	var distributed bool
	var distributedCallbackHost string
	var distributedWorkerImage string

	flag.StringVar(&metricsAddr, "metrics-bind-address", config.EnvOrDefault("METRICS_BIND_ADDRESS", "0.0.0.0:8080"), "The address the metric endpoint binds to.")
	flag.BoolVar(&secureMetrics, "metrics-secure", config.EnvOrDefault("METRICS_SECURE", false), "If set the metrics endpoint is served securely")
	flag.BoolVar(&enableHTTP2, "enable-http2", config.EnvOrDefault("ENABLE_HTTP2", false), "If set, HTTP/2 will be enabled for the metrics and webhook servers")
	flag.StringVar(&probeAddr, "health-probe-bind-address", config.EnvOrDefault("HEALTH_PROBE_BIND_ADDRESS", "0.0.0.0:8081"), "The address the probe endpoint binds to.")
	flag.BoolVar(&enableLeaderElection, "enable-leader-election", config.EnvOrDefault("ENABLE_LEADER_ELECTION", false),
		"Enable leader election for controller manager.")

	flag.StringVar(&storageLocation, "storage", config.EnvOrDefault("STORAGE", "/tmp/pagediff"), "Artifact storage: a directory, file:///path or s3://bucket/prefix")
	flag.StringVar(&s3Endpoint, "s3-endpoint", config.EnvOrDefault("S3_ENDPOINT", ""), "Custom S3 endpoint (e.g. MinIO)")
	flag.StringVar(&chromeDevtoolsProtocolURL, "chrome-devtools-protocol-url", config.EnvOrDefault("CHROME_DEVTOOLS_PROTOCOL_URL", ""), "Connect to existing browser via Chrome DevTools Protocol URL (e.g., http://localhost:9222)")

	flag.BoolVar(&distributed, "distributed", config.EnvOrDefault("DISTRIBUTED", false), "Enable distributed mode using Jobs/CronJobs")
	flag.StringVar(&distributedCallbackHost, "distributed-callback-host", config.EnvOrDefault("DISTRIBUTED_CALLBACK_HOST", "pagediff.pagediff.svc.cluster.local:8082"), "Callback host workers report to in distributed mode")
	flag.StringVar(&distributedWorkerImage, "distributed-worker-image", config.EnvOrDefault("DISTRIBUTED_WORKER_IMAGE", "ghcr.io/pagediff/pagediff-worker:main"), "The image to use for the distributed worker jobs")
	opts := zap.Options{}
	opts.BindFlags(flag.CommandLine)
	klog.InitFlags(flag.CommandLine)
	flag.Parse()

	zapLogger := zap.New(zap.UseFlagOptions(&opts))
	klog.SetLogger(zapLogger)
	ctrl.SetLogger(zapLogger)

	entrypointLogger := ctrl.Log.WithName("entrypoint")

	// HTTP/2 stays off unless asked for, see
	// https://github.com/advisories/GHSA-qppj-fm5r-hxr3 and
	// https://github.com/advisories/GHSA-4374-p667-p6c8
	disableHTTP2 := func(c *tls.Config) {
		entrypointLogger.Info("disabling http/2")
		c.NextProtos = []string{"http/1.1"}
	}

	tlsOpts := []func(*tls.Config){}
	if !enableHTTP2 {
		tlsOpts = append(tlsOpts, disableHTTP2)
	}

	m, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme: scheme,
		Metrics: metricsserver.Options{
			BindAddress:   metricsAddr,
			SecureServing: secureMetrics,
			TLSOpts:       tlsOpts,
		},
		HealthProbeBindAddress: probeAddr,
		WebhookServer: webhook.NewServer(webhook.Options{
			TLSOpts: tlsOpts,
		}),
		LeaderElection:   enableLeaderElection,
		LeaderElectionID: "pagediff",
	})
	if err != nil {
		entrypointLogger.Error(err, "unable to create manager")
		os.Exit(1)
	}

	ctx := ctrl.SetupSignalHandler()

	capturerConfig := capture.DefaultPlaywrightConfig()
	capturerConfig.ChromeDevtoolsProtocolURL = chromeDevtoolsProtocolURL

	capturer, err := capture.NewPlaywrightCapturer(ctx, capturerConfig)
	if err != nil {
		entrypointLogger.Error(err, "unable to create screenshot capturer")
		os.Exit(1)
	}

	s, err := storage.Open(ctx, storageLocation, s3Endpoint)
	if err != nil {
		entrypointLogger.Error(err, "unable to open storage", "storage", storageLocation)
		os.Exit(1)
	}

	if err := (&controllers.ComparisonReconciler{
		Client:                  m.GetClient(),
		Scheme:                  m.GetScheme(),
		Log:                     ctrl.Log.WithName("controllers").WithName("comparison"),
		Recorder:                m.GetEventRecorderFor("comparison-controller"),
		Capturer:                capturer,
		Storage:                 s,
		Distributed:             distributed,
		DistributedCallbackHost: distributedCallbackHost,
		DistributedWorkerImage:  distributedWorkerImage,
	}).SetupWithManager(m); err != nil {
		entrypointLogger.Error(err, "unable to create controller", "controller", "Comparison")
		os.Exit(1)
	}

	if err := (&controllers.ScheduledComparisonReconciler{
		Client:                  m.GetClient(),
		Scheme:                  m.GetScheme(),
		Log:                     ctrl.Log.WithName("controllers").WithName("scheduledcomparison"),
		Recorder:                m.GetEventRecorderFor("scheduledcomparison-controller"),
		Capturer:                capturer,
		Storage:                 s,
		Distributed:             distributed,
		DistributedCallbackHost: distributedCallbackHost,
		DistributedWorkerImage:  distributedWorkerImage,
	}).SetupWithManager(m); err != nil {
		entrypointLogger.Error(err, "unable to create controller", "controller", "ScheduledComparison")
		os.Exit(1)
	}

	options := diffimage.DefaultOptions()
	options.MaxPixels = config.EnvOrDefault("MAX_PIXELS", options.MaxPixels)
	if err := m.Add(runnable.NewServer(runnable.Dependencies{
		Capturer:   capturer,
		Inspector:  capturer,
		Storage:    s,
		Options:    options,
		Kubernetes: true,
	})); err != nil {
		entrypointLogger.Error(err, "unable to add Server runnable")
		os.Exit(1)
	}

	if err := m.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		entrypointLogger.Error(err, "unable to set up health check")
		os.Exit(1)
	}
	if err := m.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		entrypointLogger.Error(err, "unable to set up ready check")
		os.Exit(1)
	}

	entrypointLogger.Info("starting manager")
	if err := m.Start(ctx); err != nil {
		entrypointLogger.Error(err, "problem running manager")
		os.Exit(1)
	}
}
