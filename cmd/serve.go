package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/detect"
	"github.com/kozaktomas/face-attendance/internal/match"
	"github.com/kozaktomas/face-attendance/internal/store"
	"github.com/kozaktomas/face-attendance/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the kiosk API server",
	Long: `Start the Face Attendance API server.
The server exposes enrollment, recognition and punch endpoints for a
kiosk frontend, plus attendance summaries for the current day.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

// initNeighborIndex builds the in-memory HNSW index over the enrolled set.
// The index is advisory; authoritative matching scans exactly.
func initNeighborIndex(ctx context.Context, st store.Store) (*store.NeighborIndex, error) {
	identities, err := st.ListIdentities(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list identities: %w", err)
	}
	neighbors := store.NewNeighborIndex()
	neighbors.BuildFromIdentities(identities)
	fmt.Printf("Neighbor index built with %d identities (in-memory only)\n", neighbors.Count())
	return neighbors, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()

	neighbors, err := initNeighborIndex(ctx, st)
	if err != nil {
		return err
	}

	engine := match.NewEngine(cfg.Recognition.MatchThreshold)
	controller, err := attendance.NewController(ctx, st, engine, cfg.AttendanceParams())
	if err != nil {
		return fmt.Errorf("failed to initialize attendance controller: %w", err)
	}

	faces := detect.NewClient(cfg.Detector.URL)
	port, host := resolveServeHostPort(cmd)

	server := web.NewServer(cfg, port, host, st, controller, neighbors, faces)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Attendance API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
