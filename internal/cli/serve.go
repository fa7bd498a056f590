package cli

import (
	"os/signal"
	"syscall"

	"github.com/enchung913/career-recommender/internal/ops"
	"github.com/enchung913/career-recommender/internal/services"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and the ops endpoints",
	Long: `Run the nightly scheduler (feature similarity, behavior similarity and
maintenance) together with the ops HTTP server exposing /metrics, /healthz,
event ingestion and manual batch triggers.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var scheduler *services.Scheduler
	if a.cfg.Scheduler.Enabled {
		scheduler, err = services.NewScheduler(ctx, a.cfg.Scheduler, a.similarity, a.maintenance)
		if err != nil {
			return err
		}
		scheduler.Start()
	}

	server := ops.NewServer(a.cfg.Ops.ListenAddr, ops.NewRouter(ops.Handlers{
		Similarity:  a.similarity,
		Maintenance: a.maintenance,
		Recorder:    a.recorder,
		Checks: map[string]ops.HealthCheck{
			"db":    a.db.Ping,
			"redis": a.store.Ping,
		},
	}))
	server.Start()

	<-ctx.Done()

	log.Info("Shutting down services...")
	if err = server.Shutdown(); err != nil {
		log.Warnf("ops server shutdown: %v", err)
	}
	if scheduler != nil {
		scheduler.Stop()
	}
	log.Info("Services stopped.")
	return nil
}
