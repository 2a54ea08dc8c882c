package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/circuit-microservice/internal/config"
	"github.com/circuit-microservice/internal/pkg/logger"
	"github.com/circuit-microservice/internal/usecase"
	"github.com/circuit-microservice/internal/usecase/dto"
)

// fusion - оффлайн-инструмент сопровождающего карты: слияние мобильных
// бэкапов в канонический GeoJSON и построение индекса официальных
// circuits из каталога GPX файлов.
func main() {
	root := &cobra.Command{
		Use:     "fusion",
		Short:   "Maintainer tools: backup fusion and official circuit indexing",
		Version: "1.0.0",
	}

	root.AddCommand(newFuseCmd())
	root.AddCommand(newIndexCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newFuseCmd() *cobra.Command {
	var (
		sourcePath string
		backupPath string
		outPath    string
		applyAll   bool
	)

	cmd := &cobra.Command{
		Use:   "fuse",
		Short: "Classify backup changes against the canonical GeoJSON, optionally apply them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := logger.New(cfg.Log.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer log.Sync()

			source, err := os.ReadFile(sourcePath)
			if err != nil {
				return fmt.Errorf("read source: %w", err)
			}
			backup, err := os.ReadFile(backupPath)
			if err != nil {
				return fmt.Errorf("read backup: %w", err)
			}

			uc := usecase.NewFusionUseCase(&cfg.Fusion, log)
			ctx := context.Background()

			analysis, err := uc.Analyze(ctx, dto.FusionAnalyzeRequest{
				Source: source,
				Backup: backup,
			})
			if err != nil {
				return err
			}

			report, err := json.MarshalIndent(analysis, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(report))

			if !applyAll {
				return nil
			}

			// Полное применение: все классифицированные изменения выбраны
			selection := dto.FusionSelection{
				NewPois:        map[string]bool{},
				GPSCorrections: map[string]bool{},
				ContentChanges: map[string]bool{},
			}
			for _, p := range analysis.NewPois {
				selection.NewPois[p.PoiID] = true
			}
			for _, c := range analysis.GPSCorrections {
				selection.GPSCorrections[c.PoiID] = true
			}
			for _, c := range analysis.ContentChanges {
				selection.ContentChanges[fmt.Sprintf("%s:%s", c.PoiID, c.MobileField)] = true
			}

			result, err := uc.Apply(ctx, dto.FusionApplyRequest{
				Source:    source,
				Backup:    backup,
				Selection: selection,
			})
			if err != nil {
				return err
			}

			if err := os.WriteFile(outPath, result.Merged, 0644); err != nil {
				return fmt.Errorf("write merged output: %w", err)
			}

			log.Info("Fusion applied",
				zap.String("output", outPath),
				zap.Int("new", result.Summary.New),
				zap.Int("gps_changed", result.Summary.GPSChanged),
				zap.Int("content_changed", result.Summary.ContentChanged),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&sourcePath, "source", "", "canonical GeoJSON file")
	cmd.Flags().StringVar(&backupPath, "backup", "", "mobile backup JSON file")
	cmd.Flags().StringVar(&outPath, "out", "merged.geojson", "output file for --apply-all")
	cmd.Flags().BoolVar(&applyAll, "apply-all", false, "apply every classified change")
	cmd.MarkFlagRequired("source")
	cmd.MarkFlagRequired("backup")

	return cmd
}

func newIndexCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build index.json for a directory of official circuit GPX files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := logger.New(cfg.Log.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer log.Sync()

			uc := usecase.NewIndexUseCase(log)
			entries, err := uc.BuildIndex(context.Background(), dir)
			if err != nil {
				return err
			}

			log.Info("Index built",
				zap.String("dir", dir),
				zap.Int("circuits", len(entries)),
			)
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%.1f m\n", e.ID, e.Name, e.DistanceM)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "directory with GPX files")
	return cmd
}
