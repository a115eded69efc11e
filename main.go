// Command gridpath starts the Grid Pathfinder server.
//
// Commands:
//  1. "serve" (default) – runs the HTTP server exposing the REST API, WebSocket
//     trace streaming, Prometheus metrics and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server against a REST API, starting an internal
//     one if none is reachable
//  3. "solve" – solves a preset or a layout file and prints the result
//  4. "validate" – checks every preset file in a directory
//
// Flags can also be set through environment variables or a .env file, and
// optional ngrok tunneling gives easy external access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/gridpath/api"
	"github.com/wricardo/gridpath/pathfinding/preset"
	"github.com/wricardo/gridpath/pathfinding/search"
	"github.com/wricardo/gridpath/pathfinding/service"
	"github.com/wricardo/gridpath/transport/mcp"
	"github.com/wricardo/gridpath/transport/websocket"
	"github.com/wricardo/gridpath/validate"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Grid Pathfinder Server"
)

const tracerName = "github.com/wricardo/gridpath"

// serverConfig holds the settings shared by serve and the internal API
// started by the mcp command.
type serverConfig struct {
	Host           string
	Port           int
	PresetDir      string
	DefaultPreset  string
	SearchTimeout  time.Duration
	MaxCells       int
	AllowedOrigins []string

	// Export search spans; to TraceOutput, or stderr when nil
	TraceSpans  bool
	TraceOutput io.Writer

	NgrokEnabled bool
	NgrokAuth    string
	NgrokDomain  string
}

func (c serverConfig) addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func configFromCommand(cmd *cli.Command) serverConfig {
	return serverConfig{
		Host:           cmd.String("host"),
		Port:           int(cmd.Int("port")),
		PresetDir:      cmd.String("preset-dir"),
		DefaultPreset:  cmd.String("default-preset"),
		SearchTimeout:  cmd.Duration("search-timeout"),
		MaxCells:       int(cmd.Int("max-cells")),
		AllowedOrigins: splitOrigins(cmd.StringSlice("allowed-origins")),
		TraceSpans:     cmd.Bool("trace-spans"),
		NgrokEnabled:   cmd.Bool("ngrok"),
		NgrokAuth:      cmd.String("ngrok-auth"),
		NgrokDomain:    cmd.String("ngrok-domain"),
	}
}

// splitOrigins accepts repeated flags as well as a comma separated env value.
func splitOrigins(values []string) []string {
	var origins []string
	for _, v := range values {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}
	return origins
}

// main loads .env, then parses flags and runs the selected command.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("Error loading .env file: %v", err)
		}
	} else {
		log.Info("Loaded environment variables from .env file")
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "gridpath",
		Usage:   "Shortest paths on grids with obstacles, with a step-by-step search trace",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Value:   "localhost",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "preset-dir",
				Value:   "presets",
				Usage:   "Directory containing preset grids",
				Sources: cli.EnvVars("PRESET_DIR"),
			},
			&cli.StringFlag{
				Name:    "default-preset",
				Usage:   "Preset solved when none is named (default: classic, else the first valid one)",
				Sources: cli.EnvVars("DEFAULT_PRESET"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("DEBUG"),
			},
			&cli.DurationFlag{
				Name:    "search-timeout",
				Value:   service.DefaultTimeout,
				Usage:   "Maximum time a single search may run",
				Sources: cli.EnvVars("SEARCH_TIMEOUT"),
			},
			&cli.IntFlag{
				Name:    "max-cells",
				Value:   service.DefaultMaxCells,
				Usage:   "Largest grid (rows*cols) accepted by the API",
				Sources: cli.EnvVars("MAX_CELLS"),
			},
			&cli.StringSliceFlag{
				Name:    "allowed-origins",
				Value:   api.DefaultAllowedOrigins,
				Usage:   "Origins allowed by CORS and the WebSocket upgrade (* for any)",
				Sources: cli.EnvVars("ALLOWED_ORIGINS"),
			},
			&cli.BoolFlag{
				Name:    "trace-spans",
				Usage:   "Export OpenTelemetry search spans to stderr",
				Sources: cli.EnvVars("OTEL_TRACES"),
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "Enable ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "Ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "Custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Before: setupLogging,
		Action: serveAction,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server with API, WebSocket, metrics and MCP endpoint",
				Action: serveAction,
			},
			{
				Name:  "mcp",
				Usage: "Run an MCP stdio server that proxies to the REST API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-url",
						Value:   "http://localhost:8080",
						Usage:   "REST API to proxy to; an internal server is started if it is unreachable",
						Sources: cli.EnvVars("MCP_API_URL"),
					},
				},
				Action: mcpAction,
			},
			{
				Name:  "solve",
				Usage: "Solve a preset or a layout file and print the path",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "preset", Aliases: []string{"p"}, Usage: "Preset name (default preset when no layout file is given)"},
					&cli.StringFlag{Name: "layout-file", Aliases: []string{"f"}, Usage: "Text file with one grid row per line"},
					&cli.BoolFlag{Name: "trace", Usage: "Print every visualization step"},
					&cli.BoolFlag{Name: "json", Usage: "Print the raw API response"},
				},
				Action: solveAction,
			},
			{
				Name:      "validate",
				Usage:     "Validate the preset files in a directory",
				ArgsUsage: "[dir]",
				Action:    validateAction,
			},
		},
	}
}

func setupLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if cmd.Bool("debug") {
		log.SetLevel(log.DebugLevel)
		log.SetReportCaller(true)
	} else {
		log.SetLevel(log.InfoLevel)
	}
	return ctx, nil
}

// services bundles everything the HTTP handlers depend on.
type services struct {
	Presets  *preset.Manager
	Paths    service.PathService
	Registry *prometheus.Registry
	Tracing  *sdktrace.TracerProvider // nil unless span export is enabled
}

// Shutdown flushes pending spans.
func (s *services) Shutdown(ctx context.Context) error {
	if s.Tracing == nil {
		return nil
	}
	return s.Tracing.Shutdown(ctx)
}

// initializeServices wires the preset manager, metrics registry, tracer
// provider and path service.
func initializeServices(cfg serverConfig) (*services, error) {
	presetManager, err := preset.NewManager(cfg.PresetDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create preset manager: %w", err)
	}
	if cfg.DefaultPreset != "" {
		if err := presetManager.SetDefault(cfg.DefaultPreset); err != nil {
			return nil, fmt.Errorf("failed to set default preset %q: %w", cfg.DefaultPreset, err)
		}
		log.Infof("Default preset: %s", cfg.DefaultPreset)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := []service.Option{
		service.WithMetrics(service.NewMetrics(registry)),
		service.WithLogger(log.StandardLogger()),
	}
	if cfg.SearchTimeout > 0 {
		opts = append(opts, service.WithTimeout(cfg.SearchTimeout))
	}
	if cfg.MaxCells > 0 {
		opts = append(opts, service.WithMaxCells(cfg.MaxCells))
	}

	var tp *sdktrace.TracerProvider
	if cfg.TraceSpans {
		tp, err = newTracerProvider(cfg.TraceOutput)
		if err != nil {
			return nil, fmt.Errorf("failed to create tracer provider: %w", err)
		}
		otel.SetTracerProvider(tp)
		opts = append(opts, service.WithTracer(tp.Tracer(tracerName)))
		log.Info("Exporting search spans")
	}

	return &services{
		Presets:  presetManager,
		Paths:    service.NewPathService(presetManager, opts...),
		Registry: registry,
		Tracing:  tp,
	}, nil
}

// newTracerProvider batches spans to a stdout-style exporter writing to w.
func newTracerProvider(w io.Writer) (*sdktrace.TracerProvider, error) {
	if w == nil {
		w = os.Stderr
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", "gridpath"),
			attribute.String("service.version", Version),
		)),
	), nil
}

// newHandler mounts the API at root and the MCP proxy at /mcp.
func newHandler(svcs *services, hub *websocket.Hub, cfg serverConfig) http.Handler {
	apiServer := api.NewServer(svcs.Paths, hub,
		api.WithAllowedOrigins(cfg.AllowedOrigins),
		api.WithMetricsHandler(promhttp.HandlerFor(svcs.Registry, promhttp.HandlerOpts{})),
		api.WithPresetReloader(svcs.Presets),
	)

	// Create MCP client for /mcp endpoint
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", cfg.addr()))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
	return mainRouter
}

// serveAction starts the HTTP server and, if enabled, an ngrok tunnel. It
// returns after SIGINT/SIGTERM once both have shut down.
func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg := configFromCommand(cmd)
	log.Infof("Starting %s v%s", AppName, Version)

	svcs, err := initializeServices(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub(websocket.WithAllowedOrigins(cfg.AllowedOrigins))
	go hub.Run(ctx)

	handler := newHandler(svcs, hub, cfg)
	addr := cfg.addr()
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.SearchTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Infof("HTTP server listening on %s", addr)
		log.Infof("REST API: http://%s/api", addr)
		log.Infof("WebSocket: ws://%s/ws?channel=<channel>", addr)
		log.Infof("Metrics: http://%s/metrics", addr)
		log.Infof("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	if cfg.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, cfg, handler)
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("Received shutdown signal. Shutting down...")
	case err := <-serveErr:
		stop()
		wg.Wait()
		svcs.Shutdown(context.Background())
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	if err := svcs.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Tracer shutdown error: %v", err)
	}
	log.Info("Server stopped")
	return nil
}

// runNgrok serves handler through an ngrok tunnel until ctx is done.
func runNgrok(ctx context.Context, cfg serverConfig, handler http.Handler) {
	if cfg.NgrokAuth == "" {
		log.Warn("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Info("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if cfg.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.NgrokDomain))
		log.Infof("Using custom ngrok domain: %s", cfg.NgrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.NgrokAuth))
	if err != nil {
		log.Errorf("Failed to start ngrok tunnel: %v", err)
		return
	}

	// Serve returns once the tunnel is closed.
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Errorf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Infof("🚀 Ngrok tunnel established: %s", ngrokURL)
	log.Infof("  REST API (ngrok): %s/api", ngrokURL)
	log.Infof("  WebSocket (ngrok): %s/ws?channel=<channel>", ngrokURL)
	log.Infof("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		log.Errorf("Ngrok server error: %v", err)
	}
	log.Info("Ngrok tunnel closed")
}

// mcpAction runs an MCP stdio server. It uses the API at --api-url when it
// answers /health; otherwise it starts an internal API on a random loopback
// port and targets that.
func mcpAction(ctx context.Context, cmd *cli.Command) error {
	externalURL := strings.TrimSuffix(cmd.String("api-url"), "/")
	baseURL := externalURL

	log.Infof("Checking for external API server at %s...", externalURL)
	if !apiReachable(ctx, externalURL) {
		log.Info("No external API server found, starting internal HTTP server")

		cfg := configFromCommand(cmd)
		svcs, err := initializeServices(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer svcs.Shutdown(context.Background())

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		internalAddr := listener.Addr().String()

		hub := websocket.NewHub(websocket.WithAllowedOrigins(cfg.AllowedOrigins))
		go hub.Run(ctx)

		httpServer := &http.Server{
			Handler: api.NewServer(svcs.Paths, hub,
				api.WithAllowedOrigins(cfg.AllowedOrigins),
				api.WithPresetReloader(svcs.Presets),
			),
		}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Errorf("Internal HTTP server error: %v", err)
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + internalAddr
		log.Infof("Internal HTTP server listening on %s for MCP stdio", internalAddr)
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Infof("MCP stdio server ready (API: %s)", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

func apiReachable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// solveAction solves a preset or a layout file without starting a server.
func solveAction(ctx context.Context, cmd *cli.Command) error {
	cfg := configFromCommand(cmd)
	svcs, err := initializeServices(cfg)
	if err != nil {
		return err
	}
	defer svcs.Shutdown(context.Background())

	var result *service.FindPathResult
	if file := cmd.String("layout-file"); file != "" {
		layout, err := readLayoutFile(file)
		if err != nil {
			return err
		}
		result, err = svcs.Paths.FindPath(ctx, &service.FindPathRequest{Layout: layout})
		if err != nil {
			return err
		}
	} else {
		result, err = svcs.Paths.SolvePreset(ctx, cmd.String("preset"))
		if err != nil {
			return err
		}
	}

	out := cmd.Root().Writer
	if cmd.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printResult(out, result, cmd.Bool("trace"))
	return nil
}

// readLayoutFile reads one grid row per line, skipping blank lines.
func readLayoutFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}

	var layout []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r \t")
		if line != "" {
			layout = append(layout, line)
		}
	}
	if len(layout) == 0 {
		return nil, fmt.Errorf("layout file %s is empty", path)
	}
	return layout, nil
}

func printResult(w io.Writer, result *service.FindPathResult, showTrace bool) {
	if result.Preset != "" {
		fmt.Fprintf(w, "Preset: %s\n", result.Preset)
	}
	fmt.Fprintf(w, "Grid: %dx%d  Start: (%d,%d)  End: (%d,%d)\n",
		result.Rows, result.Cols, result.Start.Row, result.Start.Col, result.End.Row, result.End.Col)

	for _, row := range result.Rendered {
		fmt.Fprintln(w, row)
	}

	if result.Distance != nil {
		fmt.Fprintf(w, "%s Distance: %d, finalized cells: %d, steps: %d\n",
			result.Message, *result.Distance, result.FinalizedCells, len(result.VisualizationSteps))
	} else {
		fmt.Fprintf(w, "%s Finalized cells: %d, steps: %d\n",
			result.Message, result.FinalizedCells, len(result.VisualizationSteps))
	}

	if !showTrace {
		return
	}
	for i, step := range result.VisualizationSteps {
		fmt.Fprintf(w, "%4d %-17s", i, step.Action)
		switch step.Action {
		case search.ActionUpdatingDistance:
			for _, u := range step.Updated {
				fmt.Fprintf(w, " (%d,%d)=%g", u.Row, u.Col, u.Distance)
			}
		default:
			for _, v := range step.Visited {
				fmt.Fprintf(w, " (%d,%d)", v.Row, v.Col)
			}
		}
		fmt.Fprintln(w)
	}
}

// validateAction validates every preset file in the given directory,
// defaulting to --preset-dir.
func validateAction(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		dir = cmd.String("preset-dir")
	}

	results, err := validate.ValidateDir(dir)
	if err != nil {
		return err
	}
	if !validate.Report(cmd.Root().Writer, results) {
		return errors.New("some presets have errors")
	}
	return nil
}
