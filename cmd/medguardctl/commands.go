package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/medguard/medguard-backend/internal/verification/extractor"
	"github.com/medguard/medguard-backend/internal/verification/registry"
	"github.com/medguard/medguard-backend/internal/verification/repository"
	"github.com/medguard/medguard-backend/internal/verification/service"
	"github.com/medguard/medguard-backend/migrations"
	"github.com/medguard/medguard-backend/pkg/config"
	"github.com/medguard/medguard-backend/pkg/database"
	"github.com/medguard/medguard-backend/pkg/logger"
	"github.com/spf13/cobra"
)

const cliName = "medguardctl"

func rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           cliName,
		Short:         "MedGuard operator tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		migrateCommand(),
		extractCommand(),
		classifyCommand(),
		verifyCommand(),
	)

	return rootCmd
}

// migrateCommand applies the embedded schema in a single transaction
func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}

			db, err := database.New(&cfg.Database, log)
			if err != nil {
				return err
			}
			defer db.Close()

			names, err := migrations.Files()
			if err != nil {
				return err
			}

			err = db.Transaction(cmd.Context(), func(tx *sqlx.Tx) error {
				return migrations.Apply(cmd.Context(), tx)
			})
			if err != nil {
				return err
			}

			log.Info().Strs("files", names).Msg("migrations applied")
			return nil
		},
	}
}

// extractCommand runs field extraction over text given as arguments or on stdin
func extractCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "extract [text]",
		Short: "Extract batch, expiry, manufacturer and name from free text",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), extractor.Extract(text))
		},
	}
}

// classifyCommand classifies a QR payload, fetching pages for URL payloads
func classifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "classify [qr-data]",
		Short: "Classify a QR payload and extract its fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}

			data, err := inputText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			classifier := service.NewQRClassifier(cfg.Registries.Timeout, log)
			return printJSON(cmd.OutOrStdout(), classifier.Classify(cmd.Context(), data))
		},
	}
}

// verifyCommand runs batch verification against the configured database and registries
func verifyCommand() *cobra.Command {
	var (
		batch string
		name  string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a batch number against the drug registries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}

			db, err := database.New(&cfg.Database, log)
			if err != nil {
				return err
			}
			defer db.Close()

			rc := cfg.Registries
			chain := registry.NewChain([]registry.Source{
				registry.NewOpenFDA(rc.OpenFDAURL, rc.Timeout),
				registry.NewRxNorm(rc.RxNormURL, rc.Timeout),
				registry.NewDailyMed(rc.DailyMedURL, rc.Timeout),
				registry.NewPubChem(rc.PubChemURL, rc.Timeout),
				registry.NewEMA(rc.EMAURL, rc.Timeout),
			}, rc.Priority, log, registry.WithSequential(rc.Sequential))

			verifier := service.NewVerifier(repository.NewVerifiedMedicineRepository(db), chain, nil, nil, log)

			result, err := verifier.Verify(cmd.Context(), batch, name)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&batch, "batch", "", "batch number to verify")
	cmd.Flags().StringVar(&name, "name", "", "medicine name used for registry lookups")
	_ = cmd.MarkFlagRequired("batch")

	return cmd
}

func load() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(cliName)
	if err != nil {
		return nil, nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, logger.NewWithWriter(cliName, os.Stderr), nil
}

func inputText(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
