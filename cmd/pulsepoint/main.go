package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/Pruthvirajj2/pulsepoint-ai/internal/api"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/config"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/detector"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/energy"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/faceplan"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/pipeline"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/reconciler"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/render"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/scorer"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/store"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/transcript"
	"github.com/Pruthvirajj2/pulsepoint-ai/internal/worker"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	config.InitLogger(settings.LogLevel)
	log := config.Logger()

	if err := settings.EnsureDirectories(); err != nil {
		log.WithError(err).Fatal("Failed to create working directories")
	}

	st, err := store.New(settings.SupabaseURL, settings.SupabaseKey, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize Supabase store")
	}
	if st == nil {
		log.Info("Supabase persistence disabled")
	}

	deps := pipeline.Deps{
		Media:      pipeline.FFmpegMedia{},
		Energy:     energy.New(settings.EnergySampleInterval, log),
		Reconciler: reconciler.New(reconciler.ConfigFromSettings(settings), log),
		Planner:    faceplan.New(faceplan.ConfigFromSettings(settings), log),
		Renderer:   render.NewFFmpeg(settings, log),
		Registry:   pipeline.NewRegistry(),
		Store:      st,
	}

	if settings.AssemblyAIKey != "" {
		deps.Transcriber = transcript.NewAssemblyAI(settings.AssemblyAIKey, "", log)
	} else {
		log.Warn("ASSEMBLYAI_API_KEY not set, jobs will run on audio energy only")
	}

	switch settings.ScorerProvider {
	case "openai":
		if settings.OpenAIKey != "" {
			deps.Scorer = scorer.NewOpenAI(settings.OpenAIKey, "", "", log)
		}
	default:
		if settings.GeminiKey != "" {
			deps.Scorer = scorer.NewGemini(settings.GeminiKey, "", log)
		}
	}
	if deps.Scorer == nil {
		log.Warn("No scorer API key set, clips will be ranked by audio energy only")
	}

	if settings.DetectorURL != "" {
		deps.Detector = detector.New(settings.DetectorURL, log)
	} else {
		log.Warn("FACE_DETECTOR_URL not set, clips will use a fixed center crop")
	}

	processor := pipeline.NewProcessor(settings, deps, log)

	dispatcher := worker.NewDispatcher(settings.MaxWorkers, settings.JobQueueSize, log)
	dispatcher.Run(context.Background())

	app := fiber.New(fiber.Config{
		BodyLimit: 2 << 30, // source videos are large
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	app.Use(api.RequestLogger(log))

	api.New(settings, deps.Registry, dispatcher, processor, st, log).Register(app)

	go func() {
		addr := fmt.Sprintf("%s:%d", settings.Host, settings.Port)
		log.WithField("addr", addr).Info("Starting server")
		if err := app.Listen(addr); err != nil {
			log.WithError(err).Fatal("Server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	if err := app.Shutdown(); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}
	dispatcher.Stop()
	log.Info("Shutdown complete")
}
