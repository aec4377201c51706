// Package main provides babylogctl, the maintenance CLI for a babylog
// database: JSON backups, admin promotion and session cleanup.
package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"babylog/internal/config"
	"babylog/internal/database"
	"babylog/internal/repository"
	"babylog/internal/service"
)

const (
	Version = "0.1.0"
	appName = "babylogctl"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Maintenance tool for the babylog database",
		Long: `babylogctl works directly on the database configured for the babylog
server (DB_TYPE, DB_PATH, DATABASE_URL or the BABYLOG_CONFIG file).`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd.ErrOrStderr(), logLevel)
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(exportCmd(), importCmd(), promoteCmd(), cleanupCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})

	return cmd
}

func setupLogging(w io.Writer, logLevel string) {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// openDatabase connects to the configured database and brings the schema up
// to date
func openDatabase() (*database.DB, *config.Config, error) {
	cfg := config.Load()

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Database ready", "type", cfg.DatabaseType)
	return db, cfg, nil
}

func exportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the database to a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			if output == "" {
				output = fmt.Sprintf("babylog_backup_%s.json", time.Now().Format("20060102_150405"))
			}
			if dir := filepath.Dir(output); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}

			slog.Info("Exporting database", "output", output)
			backup, err := service.NewBackupService(db).Export(output)
			if err != nil {
				return err
			}

			slog.Info("Export complete",
				"users", len(backup.Users),
				"families", len(backup.Families),
				"babies", len(backup.Babies),
				"feedings", len(backup.Feedings))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (default: babylog_backup_YYYYMMDD_HHMMSS.json)")
	return cmd
}

func importCmd() *cobra.Command {
	var (
		input     string
		clearData bool
		yes       bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a JSON backup into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(input); err != nil {
				return fmt.Errorf("input file: %w", err)
			}

			db, _, err := openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			if clearData {
				if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "This will delete all existing data. Type 'yes' to confirm: ") {
					slog.Info("Import cancelled")
					return nil
				}
				if err := clearDatabase(db); err != nil {
					return err
				}
			}

			slog.Info("Importing database", "input", input)
			if err := service.NewBackupService(db).Import(input); err != nil {
				return err
			}
			slog.Info("Import complete")
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input file path")
	cmd.Flags().BoolVar(&clearData, "clear", false, "Delete existing data before importing (destructive)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(answer) == "yes"
}

// clearDatabase deletes every row, children first
func clearDatabase(db *database.DB) error {
	tables := []string{
		"notes",
		"sleepings",
		"changings",
		"feedings",
		"recipes",
		"babies",
		"users_families",
		"sessions",
		"families",
		"users",
	}

	return db.WithTx(func(tx *database.Tx) error {
		for _, table := range tables {
			if _, err := tx.Exec("DELETE FROM " + table); err != nil {
				return fmt.Errorf("failed to clear table %s: %w", table, err)
			}
			slog.Debug("Cleared table", "table", table)
		}
		return nil
	})
}

func promoteCmd() *cobra.Command {
	var revoke bool

	cmd := &cobra.Command{
		Use:   "promote <username>",
		Short: "Grant (or with --revoke remove) the admin flag of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cfg, err := openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			authService := service.NewAuthService(db, repository.NewUserRepository(db), cfg.SessionDuration, nil)
			if err := authService.SetAdmin(args[0], !revoke); err != nil {
				return fmt.Errorf("failed to update %s: %w", args[0], err)
			}
			slog.Info("Admin flag updated", "username", args[0], "admin", !revoke)
			return nil
		},
	}

	cmd.Flags().BoolVar(&revoke, "revoke", false, "Remove the admin flag instead")
	return cmd
}

func cleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup-sessions",
		Short: "Delete expired sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cfg, err := openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			authService := service.NewAuthService(db, repository.NewUserRepository(db), cfg.SessionDuration, nil)
			n, err := authService.CleanupExpiredSessions()
			if err != nil {
				return err
			}
			slog.Info("Expired sessions deleted", "count", n)
			return nil
		},
	}
}
