package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/popgraph/internal/config"
	"github.com/ehr/popgraph/internal/domain/mapper"
	"github.com/ehr/popgraph/internal/domain/pipeline"
	"github.com/ehr/popgraph/internal/domain/population"
	"github.com/ehr/popgraph/internal/platform/render"
	"github.com/ehr/popgraph/internal/platform/sandbox"
	"github.com/ehr/popgraph/internal/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "popgraph",
		Short: "Population concept graph builder for FHIR bundles",
	}

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(mapCmd())
	rootCmd.AddCommand(buildCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(dev bool) zerolog.Logger {
	if dev {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write synthetic patient bundles into the bundles directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.IsDev())

			count, _ := cmd.Flags().GetInt("count")
			if count == 0 {
				count = cfg.PatientCount
			}
			seed, _ := cmd.Flags().GetInt64("seed")
			if seed == 0 {
				seed = cfg.Seed
			}

			n, err := sandbox.WriteBundles(cfg.BundlesDir, sandbox.GenConfig{
				PatientCount: count,
				Seed:         seed,
			})
			if err != nil {
				return fmt.Errorf("generate bundles: %w", err)
			}
			logger.Info().Int("bundles", n).Str("dir", cfg.BundlesDir).Msg("synthetic bundles written")
			return nil
		},
	}
	cmd.Flags().Int("count", 0, "Number of patients to generate (default from config)")
	cmd.Flags().Int64("seed", 0, "Random seed (default from config)")
	return cmd
}

func mapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map <bundle.json>",
		Short: "Map one bundle to its per-record graph JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")

			doc, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read bundle: %w", err)
			}
			g, err := mapper.NewMapper(nil).Map(doc)
			if err != nil {
				return err
			}
			raw, err := json.MarshalIndent(g, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, raw, 0o644); err != nil {
				return fmt.Errorf("write graph: %w", err)
			}
			fmt.Printf("Wrote %s with %d nodes and %d edges.\n", out, len(g.Nodes), len(g.Edges))
			return nil
		},
	}
	cmd.Flags().StringP("out", "o", "graph.json", "Output JSON path")
	return cmd
}

func buildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build the population co-occurrence graph from all bundles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.IsDev())

			mg, err := pipeline.Run(pipeline.DirSource{Dir: cfg.BundlesDir}, pipeline.Options{
				ConceptTypes: cfg.ConceptTypeSet(),
				Log:          logger,
			})
			if err != nil {
				return err
			}

			if err := writeOutputs(mg, cfg.OutDir); err != nil {
				return err
			}
			logger.Info().
				Int("concepts", len(mg.Nodes)).
				Int("edges", len(mg.Edges)).
				Str("dir", cfg.OutDir).
				Msg("aggregate graph written")

			if cfg.RenderEnabled {
				opts := render.DefaultOptions()
				opts.FontPath = cfg.RenderFont
				opts.LabelMinSupport = cfg.RenderLabelMinSupport
				pngPath := filepath.Join(cfg.OutDir, "meta_graph.png")
				if err := render.Render(mg, pngPath, opts); err != nil {
					logger.Info().Err(err).Msg("skipping graph image")
				} else {
					logger.Info().Str("path", pngPath).Msg("graph image written")
				}
			}
			return nil
		},
	}
}

// writeOutputs writes the aggregate graph JSON and CSV into outDir.
func writeOutputs(mg *population.MetaGraph, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	jsonFile, err := os.Create(filepath.Join(outDir, "meta_graph.json"))
	if err != nil {
		return err
	}
	defer jsonFile.Close()
	if err := mg.WriteJSON(jsonFile); err != nil {
		return fmt.Errorf("write meta_graph.json: %w", err)
	}

	csvFile, err := os.Create(filepath.Join(outDir, "cooccurrence.csv"))
	if err != nil {
		return err
	}
	defer csvFile.Close()
	if err := mg.WriteCSV(csvFile); err != nil {
		return fmt.Errorf("write cooccurrence.csv: %w", err)
	}
	return nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the built graph artifacts over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.IsDev())

			srv := server.New(cfg.OutDir, logger)

			errCh := make(chan error, 1)
			go func() {
				logger.Info().Str("port", cfg.Port).Msg("serving graph artifacts")
				if err := srv.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return err
			case <-quit:
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			logger.Info().Msg("shutting down")
			return srv.Shutdown(ctx)
		},
	}
}
