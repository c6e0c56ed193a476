// Command admissionctl inspects admission data from an operator shell.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"hostel-admissions/internal/audit"
	"hostel-admissions/internal/common/config"
	"hostel-admissions/internal/common/database"
	"hostel-admissions/internal/common/logger"
	"hostel-admissions/internal/lifecycle"
	"hostel-admissions/internal/models"
	"hostel-admissions/internal/reconcile"
	"hostel-admissions/internal/store/esindex"
	"hostel-admissions/internal/store/postgres"
)

const (
	Version = "0.1.0"
	appName = "admissionctl"
)

// backend is what the commands read and append through.
type backend struct {
	machine  *lifecycle.Machine
	engine   *reconcile.Engine
	recorder audit.Recorder
	close    func()
}

type opener func(ctx context.Context, configPath string) (*backend, error)

func main() {
	if err := rootCmd(openBackend, os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd(open opener, out io.Writer) *cobra.Command {
	var (
		configPath string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Inspect hostel admission records",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML); defaults to configs/config.yaml")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 15*time.Second, "Deadline for the whole command")
	cmd.SetOut(out)

	// with opens the backend under the command deadline and runs fn.
	with := func(cmd *cobra.Command, fn func(ctx context.Context, b *backend) (interface{}, error)) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		b, err := open(ctx, configPath)
		if err != nil {
			return err
		}
		defer b.close()

		result, err := fn(ctx, b)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	cmd.AddCommand(
		reconcileCmd(with),
		auditCmd(with),
		applicationCmd(with),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}

type runner func(cmd *cobra.Command, fn func(ctx context.Context, b *backend) (interface{}, error)) error

func reconcileCmd(with runner) *cobra.Command {
	var contact string
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "List every ward reachable from a guardian mobile number",
		RunE: func(cmd *cobra.Command, args []string) error {
			return with(cmd, func(ctx context.Context, b *backend) (interface{}, error) {
				return b.engine.Reconcile(ctx, contact)
			})
		},
	}
	cmd.Flags().StringVar(&contact, "contact", "", "Guardian mobile, any format")
	_ = cmd.MarkFlagRequired("contact")
	return cmd
}

func auditCmd(with runner) *cobra.Command {
	var applicationID string
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Print an application's audit trail in chronological order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return with(cmd, func(ctx context.Context, b *backend) (interface{}, error) {
				return b.machine.ListAudit(ctx, applicationID)
			})
		},
	}
	cmd.PersistentFlags().StringVar(&applicationID, "application", "", "Application id")
	_ = cmd.MarkPersistentFlagRequired("application")

	var (
		entryID string
		remarks string
		actor   models.Actor
		role    string
	)
	correct := &cobra.Command{
		Use:   "correct",
		Short: "Append a correction that supersedes an audit entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor.Role = models.Role(role)
			return with(cmd, func(ctx context.Context, b *backend) (interface{}, error) {
				if _, err := b.machine.ListAudit(ctx, applicationID); err != nil {
					return nil, err
				}
				prev := models.AuditEntry{ID: entryID, ApplicationID: applicationID}
				return b.recorder.Append(ctx, audit.Supersede(prev, actor, remarks))
			})
		},
	}
	correct.Flags().StringVar(&entryID, "entry", "", "Id of the entry being corrected")
	correct.Flags().StringVar(&remarks, "remarks", "", "What was wrong and what is right")
	correct.Flags().StringVar(&actor.ID, "actor-id", "", "Id of the staff member correcting")
	correct.Flags().StringVar(&actor.Name, "actor-name", "", "Name of the staff member correcting")
	correct.Flags().StringVar(&role, "actor-role", string(models.RoleSuperintendent), "SUPERINTENDENT or TRUSTEE")
	_ = correct.MarkFlagRequired("entry")
	_ = correct.MarkFlagRequired("actor-id")
	cmd.AddCommand(correct)
	return cmd
}

func applicationCmd(with runner) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "application",
		Short: "Print an application and its interview",
		RunE: func(cmd *cobra.Command, args []string) error {
			return with(cmd, func(ctx context.Context, b *backend) (interface{}, error) {
				app, iv, err := b.machine.Application(ctx, id)
				if err != nil {
					return nil, err
				}
				return lifecycle.Outcome{Application: app, Interview: iv}, nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Application id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// openBackend connects to Postgres and, when the guardian search runs on
// Elasticsearch, to the application index. No hooks are installed: the
// CLI never performs transitions.
func openBackend(ctx context.Context, configPath string) (*backend, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	log := logger.NewStructured("warn", "console", "stderr")

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return nil, err
	}
	if err := pg.Ping(ctx); err != nil {
		pg.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}
	store := postgres.New(pg.DB)
	sources := store.Sources()

	if cfg.Reconciliation.ApplicationSource == config.ApplicationSourceElasticsearch {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch, nil)
		if err != nil {
			pg.Close()
			return nil, err
		}
		sources.Applications = esindex.NewApplicationIndex(es.Client, cfg.Database.Elasticsearch.ApplicationIndex)
	}

	return &backend{
		machine:  lifecycle.NewMachine(store, log),
		engine:   reconcile.NewEngine(sources, log),
		recorder: store.Recorder(),
		close:    func() { pg.Close() },
	}, nil
}
