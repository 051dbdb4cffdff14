// Command riddlematch starts the Riddle Match game server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Settings come from the environment (optionally a .env file) and can be
// overridden by flags: host/port, catalog directory, rate limiting, debug
// logging, version output, and optional ngrok tunneling.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/mcp-training/riddlematch/api"
	"github.com/wricardo/mcp-training/riddlematch/game/clock"
	"github.com/wricardo/mcp-training/riddlematch/game/config"
	"github.com/wricardo/mcp-training/riddlematch/game/service"
	"github.com/wricardo/mcp-training/riddlematch/game/session"
	"github.com/wricardo/mcp-training/riddlematch/transport/mcp"
	"github.com/wricardo/mcp-training/riddlematch/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Riddle Match Server"
)

// Settings holds everything main needs to start. Environment variables
// provide the defaults and explicitly set flags win.
type Settings struct {
	Host           string        `env:"HOST" envDefault:"localhost"`
	Port           int           `env:"PORT" envDefault:"8080"`
	CatalogDir     string        `env:"CATALOG_DIR" envDefault:"catalogs"`
	Debug          bool          `env:"DEBUG"`
	RateLimitRPS   int           `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int           `env:"RATE_LIMIT_BURST" envDefault:"40"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	NgrokEnabled   bool          `env:"NGROK_ENABLED"`
	NgrokAuthToken string        `env:"NGROK_AUTHTOKEN"`
	NgrokAuthAlt   string        `env:"NGROK_AUTH_TOKEN"`
	NgrokDomain    string        `env:"NGROK_DOMAIN"`
}

// Configuration flags control how the server starts and which services are enabled.
var (
	port         = flag.Int("port", 8080, "HTTP server port (env PORT)")
	host         = flag.String("host", "localhost", "HTTP server host (env HOST)")
	catalogDir   = flag.String("catalog-dir", "catalogs", "Directory containing riddle catalogs (env CATALOG_DIR)")
	rateLimit    = flag.Int("rate-limit", 20, "API requests per second per client, 0 disables (env RATE_LIMIT_RPS)")
	debug        = flag.Bool("debug", false, "Enable debug logging (env DEBUG)")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Enable ngrok tunnel (env NGROK_ENABLED)")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with API, WebSocket, and MCP endpoint (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
		fmt.Fprintf(os.Stderr, "  mcp-stdio        Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "  mcp              Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                    # Run HTTP server on default port 8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -port 9090         # Run HTTP server on port 9090\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s stdio-mcp          # Run MCP stdio server\n", os.Args[0])
	}
}

// main parses settings, initializes services, and starts the selected mode.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	settings, err := loadSettings(flag.CommandLine)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if settings.Debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}

	args := flag.Args()
	mode := "server"
	if len(args) > 0 {
		mode = args[0]
	}

	log.Printf("Starting %s v%s (mode: %s)", AppName, Version, mode)

	hub := websocket.NewHub()
	go hub.Run()

	gameService, err := initializeServices(settings, hub)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		runStdioMCPWithInternalServer(settings, gameService, hub)

	case "server", "http":
		runHTTPServer(settings, gameService, hub)

	default:
		log.Fatalf("Unknown mode: %s. Use 'server' (default) or 'stdio-mcp'", mode)
	}
}

// loadSettings parses the environment, then applies the flags that were set
// explicitly on fs.
func loadSettings(fs *flag.FlagSet) (*Settings, error) {
	var settings Settings
	if err := env.Parse(&settings); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			settings.Port = *port
		case "host":
			settings.Host = *host
		case "catalog-dir":
			settings.CatalogDir = *catalogDir
		case "rate-limit":
			settings.RateLimitRPS = *rateLimit
		case "debug":
			settings.Debug = *debug
		case "ngrok":
			settings.NgrokEnabled = *ngrokEnabled
		case "ngrok-auth":
			settings.NgrokAuthToken = *ngrokAuth
		case "ngrok-domain":
			settings.NgrokDomain = *ngrokDomain
		}
	})

	if settings.NgrokAuthToken == "" {
		settings.NgrokAuthToken = settings.NgrokAuthAlt
	}
	if settings.Port <= 0 || settings.Port > 65535 {
		return nil, fmt.Errorf("port out of range: %d", settings.Port)
	}

	return &settings, nil
}

// newRouter combines the API server with the /mcp endpoint
func newRouter(apiServer http.Handler, mcpClient *mcp.Client) *http.ServeMux {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)

	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
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

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runHTTPServer(settings *Settings, gameService service.GameService, hub *websocket.Hub) {
	apiServer := api.NewServer(gameService, hub, api.WithRateLimit(settings.RateLimitRPS, settings.RateLimitBurst))

	addr := fmt.Sprintf("%s:%d", settings.Host, settings.Port)

	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))
	mainRouter := newRouter(apiServer, mcpClient)

	// WriteTimeout stays unset: WebSocket connections outlive any request deadline
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     mainRouter,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	if settings.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, settings, mainRouter)
		}()
	}

	sig := <-stop
	log.Printf("Received signal: %v. Shutting down...", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("Server stopped")
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx is done
func runNgrokTunnel(ctx context.Context, settings *Settings, handler http.Handler) {
	if settings.NgrokAuthToken == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if settings.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(settings.NgrokDomain))
		log.Printf("Using custom ngrok domain: %s", settings.NgrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(settings.NgrokAuthToken))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Printf("🚀 Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws?session=<session_id>", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// initializeServices wires the session and catalog managers into the game
// service, with hub receiving every rendered snapshot. It also starts a
// background routine that ends and prunes stale sessions.
func initializeServices(settings *Settings, hub *websocket.Hub) (service.GameService, error) {
	catalogManager, err := config.NewManager(settings.CatalogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog manager: %w", err)
	}

	sessionManager := session.NewManager(clock.Real())

	var notifier service.StateNotifier
	if hub != nil {
		notifier = hub
	}
	gameService := service.NewGameService(sessionManager, catalogManager, notifier)

	go sessionCleanupRoutine(sessionManager, settings.SessionTTL)

	return gameService, nil
}

// sessionCleanupRoutine periodically ends sessions that have not been accessed
// within ttl.
func sessionCleanupRoutine(manager *session.Manager, ttl time.Duration) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		removed := manager.CleanupExpiredSessions(ttl)
		if removed > 0 {
			log.Printf("Cleaned up %d expired sessions", removed)
		}
	}
}

// externalAPIAvailable reports whether an API server answers /healthz at baseURL
func externalAPIAvailable(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/healthz")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API on the configured address; if unavailable, it
// starts an internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(settings *Settings, gameService service.GameService, hub *websocket.Hub) {
	externalURL := fmt.Sprintf("http://%s:%d", settings.Host, settings.Port)
	baseURL := externalURL
	log.Printf("Checking for external API server at %s...", externalURL)

	testClient := &http.Client{Timeout: 2 * time.Second}
	if externalAPIAvailable(testClient, externalURL) {
		log.Printf("External API server found at %s, using it for MCP", externalURL)
	} else {
		log.Printf("No external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			log.Fatalf("Failed to get available port: %v", err)
		}

		internalAddr := listener.Addr().String()
		log.Printf("Starting internal HTTP server on %s for MCP stdio", internalAddr)

		httpServer := &http.Server{
			Handler: api.NewServer(gameService, hub),
		}

		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()

		baseURL = fmt.Sprintf("http://%s", internalAddr)
	}

	mcpClient := mcp.NewClient(baseURL)

	if baseURL == externalURL {
		log.Println("MCP stdio server ready (using external HTTP server)")
	} else {
		log.Println("MCP stdio server ready (using internal HTTP server)")
	}

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		log.Fatalf("MCP stdio server error: %v", err)
	}
}
