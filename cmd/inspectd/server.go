package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/assure/inspectd/internal/analysis"
	"github.com/assure/inspectd/internal/api"
	"github.com/assure/inspectd/internal/blob"
	"github.com/assure/inspectd/internal/completion"
	"github.com/assure/inspectd/internal/config"
	"github.com/assure/inspectd/internal/conversation"
	"github.com/assure/inspectd/internal/extract"
	"github.com/assure/inspectd/internal/inspection"
	"github.com/assure/inspectd/internal/metrics"
	"github.com/assure/inspectd/internal/notify"
	"github.com/assure/inspectd/internal/storage"
)

const (
	shutdownTimeout = 10 * time.Second
	jobPollInterval = 2 * time.Second
)

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "inspectd.pid")
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

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupLogging installs the default slog logger. With a log file configured,
// records go to a rotating file and are teed to stderr. The returned closer
// flushes the file.
func setupLogging(cfg config.LogConfig) io.Closer {
	var w io.Writer = os.Stderr
	var closer io.Closer = io.NopCloser(nil)
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		}
		w = io.MultiWriter(os.Stderr, lj)
		closer = lj
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(cfg.Level)})))
	return closer
}

func newCompleter(ctx context.Context, cfg config.CompletionConfig) (completion.Completer, error) {
	switch cfg.Provider {
	case config.ProviderAnthropic:
		return completion.NewAnthropic(cfg.AnthropicAPIKey, cfg.Model), nil
	case config.ProviderOpenRouter:
		return completion.NewOpenRouter(cfg.OpenRouterAPIKey, cfg.Model), nil
	case config.ProviderOllama:
		c := completion.NewOllama(cfg.OllamaBaseURL, cfg.Model)
		if !c.IsRunning(ctx) {
			printWarning("Ollama is not reachable at %s; answers will fail until it starts", cfg.OllamaBaseURL)
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown completion provider %q", cfg.Provider)
}

func newBlobStore(ctx context.Context, cfg config.StorageConfig) (blob.Store, error) {
	if cfg.UploadBackend == "minio" {
		return blob.NewMinIOStore(ctx, blob.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
	}
	return blob.NewLocalStore(cfg.ResolvedUploadDir())
}

// app is the assembled daemon.
type app struct {
	store   *storage.Store
	service *inspection.Service
	metrics *metrics.Metrics
	worker  *notify.Worker
}

func (a *app) Close() error {
	return a.store.Close()
}

// buildApp opens storage and wires the inspection service. The lead email
// worker is only created when SMTP credentials are configured.
func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	m := metrics.New()
	llm, err := newCompleter(ctx, cfg.Completion)
	if err != nil {
		store.Close()
		return nil, err
	}
	llm = m.WrapCompleter(llm)

	blobs, err := newBlobStore(ctx, cfg.Storage)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening upload store: %w", err)
	}

	deps := inspection.Deps{
		Store:      store,
		Extractor:  extract.NewPDF(),
		Blobs:      blobs,
		Completer:  llm,
		Analyzer:   analysis.New(llm, cfg.Completion.WarrantyTimeoutDuration()),
		Reports:    conversation.NewCache(cfg.Cache.Capacity, conversation.WithObserver(m)),
		Warranties: conversation.NewCache(cfg.Cache.Capacity),
		Metrics:    m,
	}

	a := &app{store: store, metrics: m}
	if cfg.Mail.MailEnabled() {
		mailer := notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		})
		deps.Leads = notify.NewQueue(store)
		a.worker = notify.NewWorker(store, mailer, jobPollInterval)
	} else {
		slog.Info("lead email disabled", "reason", "mail.username or mail.password not set")
	}

	a.service = inspection.New(deps)
	return a, nil
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "inspectd version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logs := setupLogging(cfg.Log)
	defer logs.Close()

	// Check if the server is already running via the health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("inspectd is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("inspectd is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("closing storage", "error", err)
		}
	}()

	limiter := api.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	handler := api.NewHandler(api.Deps{
		Service:        a.service,
		Metrics:        a.metrics,
		Limiter:        limiter,
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	if cfg.Server.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, cfg.Server.MaxConnections)
	}

	srv := newHTTPServer(handler)

	g, gctx := errgroup.WithContext(ctx)
	if a.worker != nil {
		g.Go(func() error {
			a.worker.Run(gctx)
			return nil
		})
	}
	if limiter != nil {
		g.Go(func() error {
			limiter.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		slog.Info("inspectd listening",
			"addr", addr,
			"cache_capacity", cfg.Cache.Capacity,
			"provider", cfg.Completion.Provider,
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newHTTPServer builds the API server. Request contexts are not tied to the
// signal context so in-flight answers can finish during Shutdown.
func newHTTPServer(handler http.Handler) *http.Server {
	return &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// startDetached re-executes the binary in foreground mode without waiting for it.
func startDetached() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating executable: %w", err)
	}
	cmd := exec.Command(exe, "start", "--foreground")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting inspectd: %w", err)
	}
	printSuccess("Started inspectd (PID %d)", cmd.Process.Pid)
	return cmd.Process.Release()
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
		printError("inspectd is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop inspectd (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to inspectd (PID %d)", pid)
	return nil
}

type healthResponse struct {
	Status string `json:"status"`
	Cache  struct {
		Size     int `json:"size"`
		Capacity int `json:"capacity"`
	} `json:"cache"`
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client := &apiClient{
		baseURL:    fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port),
		httpClient: &http.Client{Timeout: 2 * time.Second},
	}

	resp, err := client.get(ctx, "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		var h healthResponse
		if err := decodeJSON(resp, &h); err != nil {
			printStatus("Server", "error (%v)", err)
		} else {
			printStatus("Server", "running on port %d", cfg.Server.Port)
			printStatus("Conversations", "%d/%d resident", h.Cache.Size, h.Cache.Capacity)
		}
	}

	printStatus("Provider", "%s (%s)", cfg.Completion.Provider, cfg.Completion.Model)
	printStatus("Uploads", "%s", cfg.Storage.UploadBackend)
	if cfg.Mail.MailEnabled() {
		printStatus("Lead email", "enabled via %s", cfg.Mail.Host)
	} else {
		printStatus("Lead email", "disabled")
	}
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
