package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"quranreels/config"
	"quranreels/handlers"
	"quranreels/models"
	"quranreels/services"
	"quranreels/utils"
)

var (
	seriesLang        string
	seriesQari        string
	seriesConcurrency int
	seriesSRTDir      string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "quranreels",
		Short:        "Timing and pagination engine for short Quran recitation videos",
		SilenceUsage: true,
		RunE:         runServeCmd,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	})
	rootCmd.AddCommand(newSeriesCmd())

	return rootCmd
}

func newSeriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "series <start> [end]",
		Short: "Build timelines for every verse from start to end",
		Example: "  quranreels series 1:1-7\n" +
			"  quranreels series 2:255 2:257 --lang de --qari sudais --srt ./out",
		Args: cobra.RangeArgs(1, 2),
		RunE: runSeriesCmd,
	}

	cmd.Flags().StringVar(&seriesLang, "lang", "", "translation language (default: DEFAULT_LANGUAGE)")
	cmd.Flags().StringVar(&seriesQari, "qari", "", "reciter id (default: DEFAULT_QARI)")
	cmd.Flags().IntVar(&seriesConcurrency, "concurrency", 0, "verses processed in parallel (default: SERIES_CONCURRENCY)")
	cmd.Flags().StringVar(&seriesSRTDir, "srt", "", "write one SRT file per verse into this directory")

	return cmd
}

// setup loads configuration and builds the logger and providers shared by every command.
func setup() (*config.Config, *utils.Logger, *services.Providers, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := utils.NewLogger(cfg.LogMode)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	log.Info("configuration loaded", "config", cfg.String())

	cleanup := log.Sync

	var cache services.Cache
	if cfg.RedisAddr != "" {
		rc, err := services.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Warn("provider cache disabled", "error", err)
		} else {
			cache = rc
			cleanup = func() {
				_ = rc.Close()
				log.Sync()
			}
			log.Info("provider cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL.String())
		}
	}

	return cfg, log, services.NewProviders(cfg, cache, log), cleanup, nil
}

func runServeCmd(_ *cobra.Command, _ []string) error {
	cfg, log, providers, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.LogMode == "production" || cfg.LogMode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// Setup CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	seriesHandler := handlers.NewSeriesHandler(cfg, providers, log)
	seriesHandler.Register(router.Group("/api"))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("starting server", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func runSeriesCmd(cmd *cobra.Command, args []string) error {
	start, err := models.ParseRef(args[0])
	if err != nil {
		return err
	}
	end := start
	if len(args) == 2 {
		if end, err = models.ParseRef(args[1]); err != nil {
			return err
		}
	}

	cfg, log, providers, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	if seriesLang == "" {
		seriesLang = cfg.DefaultLanguage
	}
	if seriesConcurrency <= 0 {
		seriesConcurrency = cfg.SeriesConcurrency
	}

	jobID := "cli-" + uuid.New().String()
	dir, err := utils.CreateTempDir(cfg.TempDir, jobID)
	if err != nil {
		return err
	}
	defer func() { _ = utils.CleanupJobFiles(cfg.TempDir, jobID) }()

	orchestrator, err := providers.Orchestrator(seriesQari, dir, cfg.Timing,
		services.SeriesOptions{Language: seriesLang, Concurrency: seriesConcurrency}, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seq, err := orchestrator.Series(ctx, start, end)
	if err != nil {
		return err
	}

	if seriesSRTDir != "" {
		if err := os.MkdirAll(seriesSRTDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	subtitles := services.NewSubtitleService()
	var results []models.UnitResult

	for ref, res := range seq {
		results = append(results, res)
		if !res.OK() {
			fmt.Fprintf(out, "%-9s FAILED %s: %v\n", ref, models.ErrorKind(res.Err), res.Err)
			continue
		}

		tl := res.Timeline
		fmt.Fprintf(out, "%-9s ok     pages=%d title_card=%t duration=%dms\n",
			ref, len(tl.Pages()), tl.HasTitleCard(), tl.TotalDurationMs)

		if seriesSRTDir != "" {
			if err := writeSRT(subtitles, seriesSRTDir, tl); err != nil {
				return err
			}
		}
	}

	summary := services.Summarize(results)
	fmt.Fprintf(out, "\n%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)

	if ctx.Err() != nil {
		return fmt.Errorf("series interrupted after %d verses", len(results))
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d verses failed", summary.Failed)
	}
	return nil
}

func writeSRT(subtitles *services.SubtitleService, dir string, tl *models.Timeline) error {
	path := filepath.Join(dir, fmt.Sprintf("%03d_%03d.srt", tl.Ref.Major, tl.Ref.MinorStart))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := subtitles.WriteSRT(f, tl); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
