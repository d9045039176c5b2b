package main

import (
	"context"
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

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/mandymgr/KRINS-Chronicle-Keeper-sub001/internal/api"
	"github.com/mandymgr/KRINS-Chronicle-Keeper-sub001/internal/config"
	"github.com/mandymgr/KRINS-Chronicle-Keeper-sub001/internal/impact"
	"github.com/mandymgr/KRINS-Chronicle-Keeper-sub001/internal/reeval"
	"github.com/mandymgr/KRINS-Chronicle-Keeper-sub001/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the adrpulse server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running adrpulse server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show adrpulse system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "adrpulse.pid")
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

// trackerEvaluator adapts the tracker to the re-evaluation worker.
type trackerEvaluator struct {
	tr *impact.Tracker
}

func (e trackerEvaluator) Evaluate(decisionID, title string, implementationDate time.Time, periodMonths int) error {
	_, err := e.tr.Evaluate(decisionID, title, implementationDate, periodMonths)
	return err
}

// storedDecisionSource lists every decision that already holds an
// evaluation; those are the ones worth keeping fresh.
type storedDecisionSource struct {
	tr *impact.Tracker
}

func (s storedDecisionSource) ListDecisions(_ context.Context) ([]reeval.Decision, error) {
	evals := s.tr.Evaluations()
	out := make([]reeval.Decision, len(evals))
	for i, ev := range evals {
		out[i] = reeval.Decision{
			ID:                 ev.DecisionID,
			Title:              ev.Title,
			ImplementationDate: ev.ImplementationDate,
			PeriodMonths:       impact.DefaultPeriodMonths,
		}
	}
	return out, nil
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "adrpulse version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("adrpulse is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("adrpulse is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open storage.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Build the tracker and rehydrate it from the database.
	tracker := impact.NewTracker(
		impact.WithMaxHistory(cfg.Storage.MaxHistory),
		impact.WithPersister(store),
	)
	impacts, err := store.LoadImpacts()
	if err != nil {
		return fmt.Errorf("loading impacts: %w", err)
	}
	evals, err := store.LoadEvaluations()
	if err != nil {
		return fmt.Errorf("loading evaluations: %w", err)
	}
	tracker.Restore(impacts, evals)
	slog.Info("tracker restored", "impacts", len(impacts), "evaluations", len(evals))

	// Build HTTP handler and server.
	handler := api.NewHandler(tracker, cfg.Server.Token)
	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Start the periodic re-evaluation worker.
	worker := reeval.NewWorker(
		storedDecisionSource{tr: tracker},
		trackerEvaluator{tr: tracker},
		cfg.ReevalInterval(),
		cfg.Reeval.Workers,
	)
	go worker.Run(ctx)

	// Build and start MCP server (stdio transport in a goroutine).
	mcpSrv := api.NewMCPServer(tracker)
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "adrpulse listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
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
		printError("adrpulse is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop adrpulse (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to adrpulse (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	// Check server health.
	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	running := false
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
			running = true
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	// Show counts if server is running.
	if running {
		analyticsResp, err := client.Get(serverURL + "/analytics")
		if err == nil {
			var a impact.ImpactAnalytics
			if decodeJSON(analyticsResp, &a) == nil {
				printStatus("Decisions tracked", "%d", a.TotalDecisionsTracked)
				printStatus("Impacts recorded", "%d", a.TotalImpacts)
				if a.AverageEffectiveness > 0 {
					printStatus("Avg effectiveness", "%.1f/10", a.AverageEffectiveness)
				}
			}
		}
	}

	printStatus("Re-eval interval", "%s", cfg.Reeval.Interval)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
