package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/kalambet/askbot/internal/api"
	"github.com/kalambet/askbot/internal/cascade"
	"github.com/kalambet/askbot/internal/config"
	"github.com/kalambet/askbot/internal/content"
	"github.com/kalambet/askbot/internal/engine"
	"github.com/kalambet/askbot/internal/intent"
	"github.com/kalambet/askbot/internal/lang"
	"github.com/kalambet/askbot/internal/metrics"
	"github.com/kalambet/askbot/internal/normalize"
	"github.com/kalambet/askbot/internal/preload"
	"github.com/kalambet/askbot/internal/retrieval"
	"github.com/kalambet/askbot/internal/session"
	"github.com/kalambet/askbot/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the askbot server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running askbot server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show askbot system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "askbot.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func parseLogLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func openSessions(ctx context.Context, cfg config.SessionConfig) (session.Store, error) {
	switch cfg.Backend {
	case config.SessionRedis:
		r, err := session.NewRedis(ctx, cfg.RedisURL, cfg.TTLDuration())
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return session.NewMemory(cfg.TTLDuration()), nil
	}
}

func matchThresholds(cfg config.MatchConfig) cascade.Thresholds {
	return cascade.Thresholds{
		Intent:    cfg.IntentThreshold,
		Content:   cfg.ContentThreshold,
		TieMargin: cfg.TieMargin,
	}
}

func runServer() error {
	fmt.Fprintf(stderr, "askbot version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(cfg.Log.Level)})))

	// Refuse to start twice on the same port.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("askbot is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("askbot is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng := engine.NewOllamaEngine(cfg.Ollama.BaseURL)
	if err := engine.EnsureReady(ctx, eng, cfg.Ollama.EmbedModel, stderr); err != nil {
		if errors.Is(err, engine.ErrNotRunning) {
			printError("Ollama is not reachable at %s", cfg.Ollama.BaseURL)
		}
		return err
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("closing storage", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	embedder := retrieval.NewEmbedder(eng, cfg.Ollama.EmbedModel,
		retrieval.WithTimeout(cfg.Ollama.EmbedTimeoutDuration()),
		retrieval.WithCache(retrieval.NewSQLiteVectorCache(store.DB())),
	)

	intents, err := intent.Load(cfg.Intents.File)
	if err != nil {
		return fmt.Errorf("loading intents: %w", err)
	}
	intentIndex, err := intent.NewIndex(ctx, intents, embedder)
	if err != nil {
		return fmt.Errorf("building intent index: %w", err)
	}
	slog.Info("intent index ready", "intents", len(intents), "patterns", intentIndex.Len())

	cache := content.New(store, embedder, m)
	identifier := lang.NewIdentifier(cfg.Lang.DefaultLang(), lang.WithHints(normalize.Hint))
	answerer := cascade.New(identifier, intentIndex, cache, store,
		cascade.WithThresholds(matchThresholds(cfg.Match)),
		cascade.WithMetrics(m),
	)

	sessions, err := openSessions(ctx, cfg.Session)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer sessions.Close()

	if cfg.Cache.Preload {
		go preload.NewWorker(cache, lang.All, 30*time.Second).Run(ctx)
	}

	if cfg.Server.AdminToken == "" {
		slog.Warn("ASKBOT_ADMIN_TOKEN is not set; admin routes are disabled")
	}

	handler := api.NewHandler(api.Deps{
		Engine:     answerer,
		Sessions:   sessions,
		Store:      store,
		Cache:      cache,
		Metrics:    m,
		Gatherer:   reg,
		AdminToken: cfg.Server.AdminToken,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("askbot listening", "addr", addr, "session_backend", cfg.Session.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("askbot is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop askbot (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to askbot (PID %d)", pid)
	return nil
}

type healthReport struct {
	Status          string   `json:"status"`
	LanguagesLoaded []string `json:"languages_loaded"`
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	running := false
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		var h healthReport
		decodeErr := json.NewDecoder(resp.Body).Decode(&h)
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
			if decodeErr == nil {
				printStatus("Languages loaded", "%s", languagesLabel(h.LanguagesLoaded))
			}
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	eng := engine.NewOllamaEngine(cfg.Ollama.BaseURL)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if eng.IsRunning(ctx) {
		printStatus("Ollama", "running at %s", cfg.Ollama.BaseURL)
		if eng.HasModel(ctx, cfg.Ollama.EmbedModel) {
			printStatus("Embed model", "%s", cfg.Ollama.EmbedModel)
		} else {
			printStatus("Embed model", "%s (not pulled)", cfg.Ollama.EmbedModel)
		}
	} else {
		printStatus("Ollama", "not running")
		printStatus("Embed model", "%s", cfg.Ollama.EmbedModel)
	}
	printStatus("Sessions", "%s", cfg.Session.Backend)

	if running && cfg.Server.AdminToken != "" {
		c := &apiClient{baseURL: serverURL, token: cfg.Server.AdminToken, httpClient: client}
		resp, err := c.get(ctx, "/admin/interactions?limit=100")
		if err == nil {
			var interactions []json.RawMessage
			if decodeJSON(resp, &interactions) == nil {
				printStatus("Interactions", "%s", countLabel(len(interactions), 100))
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func languagesLabel(langs []string) string {
	if len(langs) == 0 {
		return "none yet"
	}
	return strings.Join(langs, ", ")
}

func countLabel(count, limit int) string {
	if count >= limit {
		return fmt.Sprintf("%d+", count)
	}
	return fmt.Sprintf("%d", count)
}
