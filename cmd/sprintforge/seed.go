package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/sprintforge/internal/config"
	"github.com/ShayCichocki/sprintforge/internal/store"
)

var seedDBPath string

var seedCmd = &cobra.Command{
	Use:   "seed <fixtures.yaml>",
	Short: "Load session fixtures into the store",
	Long: `Load sessions, team members, and documents from a YAML fixture file
into the store, for local development and demos.

Fixture format:

  sessions:
    - id: sess-1
      user_id: user-1
      idea_title: Meal-prep marketplace
      idea_summary: Connects home cooks with subscribers
      stage: 8
  team_members:
    - session_id: sess-1
      name: Ada
      email: ada@example.com
      role: engineer
      weekly_capacity_days: 5
  documents:
    - session_id: sess-1
      name: pitch.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedDBPath, "db", "", "Database path (overrides config)")
}

// seedFixtures mirrors the YAML fixture file.
type seedFixtures struct {
	Sessions []struct {
		ID          string `yaml:"id"`
		UserID      string `yaml:"user_id"`
		IdeaTitle   string `yaml:"idea_title"`
		IdeaSummary string `yaml:"idea_summary"`
		Stage       int    `yaml:"stage"`
	} `yaml:"sessions"`
	TeamMembers []struct {
		SessionID          string  `yaml:"session_id"`
		Name               string  `yaml:"name"`
		Email              string  `yaml:"email"`
		Profession         string  `yaml:"profession"`
		Role               string  `yaml:"role"`
		WeeklyCapacityDays float64 `yaml:"weekly_capacity_days"`
	} `yaml:"team_members"`
	Documents []struct {
		SessionID string `yaml:"session_id"`
		Name      string `yaml:"name"`
		Trashed   bool   `yaml:"trashed"`
	} `yaml:"documents"`
}

func runSeed(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading fixtures: %w", err)
	}

	var fixtures seedFixtures
	if err := yaml.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("parsing fixtures: %w", err)
	}

	dbPath := seedDBPath
	if dbPath == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		dbPath = cfg.Store.Path
	}
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

	green := color.New(color.FgGreen).SprintFunc()
	now := time.Now()

	for _, s := range fixtures.Sessions {
		sess := &store.Session{
			ID:          s.ID,
			UserID:      s.UserID,
			IdeaTitle:   s.IdeaTitle,
			IdeaSummary: s.IdeaSummary,
			Stage:       s.Stage,
			Status:      store.SessionActive,
			CreatedAt:   now,
		}
		if sess.ID == "" {
			sess.ID = uuid.NewString()
		}
		if err := db.CreateSession(sess); err != nil {
			return fmt.Errorf("seeding session %s: %w", sess.ID, err)
		}
		fmt.Printf("%s session %s (%s)\n", green("✓"), sess.ID, sess.IdeaTitle)
	}

	for _, m := range fixtures.TeamMembers {
		member := &store.TeamMember{
			ID:                 uuid.NewString(),
			SessionID:          m.SessionID,
			Name:               m.Name,
			Email:              m.Email,
			Profession:         m.Profession,
			Role:               m.Role,
			WeeklyCapacityDays: m.WeeklyCapacityDays,
			CreatedAt:          now,
		}
		if err := db.UpsertTeamMember(member); err != nil {
			return fmt.Errorf("seeding member %s: %w", m.Email, err)
		}
		fmt.Printf("%s member %s (%s)\n", green("✓"), m.Name, m.Email)
	}

	for _, d := range fixtures.Documents {
		doc := &store.Document{
			ID:        uuid.NewString(),
			SessionID: d.SessionID,
			Name:      d.Name,
			Trashed:   d.Trashed,
			CreatedAt: now,
		}
		if err := db.CreateDocument(doc); err != nil {
			return fmt.Errorf("seeding document %s: %w", d.Name, err)
		}
		fmt.Printf("%s document %s\n", green("✓"), d.Name)
	}

	fmt.Printf("\nSeeded %d sessions, %d members, %d documents into %s\n",
		len(fixtures.Sessions), len(fixtures.TeamMembers), len(fixtures.Documents), dbPath)
	return nil
}
