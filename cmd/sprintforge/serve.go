package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/sprintforge/internal/completion"
	"github.com/ShayCichocki/sprintforge/internal/config"
	"github.com/ShayCichocki/sprintforge/internal/llm"
	"github.com/ShayCichocki/sprintforge/internal/narrative"
	"github.com/ShayCichocki/sprintforge/internal/planner"
	"github.com/ShayCichocki/sprintforge/internal/server"
	"github.com/ShayCichocki/sprintforge/internal/store"
	"github.com/ShayCichocki/sprintforge/internal/team"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Run the SprintForge HTTP server.

Endpoints:
  POST /chat     chat exchanges; a final-stage trigger streams completion
                 events as NDJSON
  POST /message  non-streaming chat pass-through
  GET  /healthz  health and maintenance status

Creating a file named "maintenance" next to the database puts the server
into maintenance mode: in-flight completion runs finish, new ones are
rejected until the file is removed.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	dbPath := cfg.Store.Path
	if dbPath == "" {
		dbPath = store.DefaultPath()
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrating store: %w", err)
	}

	client, err := llm.NewClient(llm.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return fmt.Errorf("creating LLM client: %w", err)
	}

	sections := narrative.NewGenerator(client, db, cfg.Narrative.SectionDelay)
	dispatcher := narrative.NewDispatcher(sections, narrative.DispatcherConfig{
		Workers:   cfg.Narrative.Workers,
		QueueSize: cfg.Narrative.QueueSize,
		Retries:   cfg.Narrative.Retries,
	})
	defer dispatcher.Close()

	runner := completion.NewRunner(completion.Collaborators{
		Team:      team.NewSyncer(db),
		Projects:  &completion.StoreProjects{DB: db},
		Documents: &completion.StoreDocuments{DB: db},
		Planner:   planner.NewGenerator(client, cfg.Completion.PlanRetries),
		Plans:     &completion.StorePlans{DB: db},
		Narrative: dispatcher,
		Sessions:  &completion.StoreSessions{DB: db},
	}, cfg.Completion.StepTimeout)

	maint, err := server.NewMaintenanceWatcher(filepath.Dir(dbPath))
	if err != nil {
		return fmt.Errorf("starting maintenance watcher: %w", err)
	}
	defer maint.Close()

	srv := server.New(db, runner, server.NewAgent(client), maint, cfg.Server.Addr, cfg.Server.ShutdownTimeout)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
