package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/retainloop/churn-triage-pipeline/internal/config"
	"github.com/retainloop/churn-triage-pipeline/internal/llm"
	"github.com/retainloop/churn-triage-pipeline/internal/pipeline"
	"github.com/retainloop/churn-triage-pipeline/internal/store"
	"github.com/retainloop/churn-triage-pipeline/internal/telemetry"
)

func main() {
	message := flag.String("message", "", "customer message to triage")
	rating := flag.Int("rating", 0, "external 1-5 rating, 0 when absent")
	streak := flag.Int("streak", 0, "consecutive negative messages before this one")
	model := flag.String("model", "", "override configured model identifier")
	temperature := flag.Float64("temperature", -1, "override configured sampling temperature")
	variants := flag.Int("variants", 0, "override configured variant count")
	recent := flag.Int("recent", 0, "print the N most recent logged runs and exit")
	flag.Parse()

	if *message == "" && *recent <= 0 {
		log.Fatal("usage: -message is required (or -recent to inspect the run log)")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if *model != "" {
		cfg.LLM.Model = *model
	}
	if *temperature >= 0 {
		cfg.LLM.Temperature = *temperature
	}
	if *variants > 0 {
		cfg.Pipeline.VariantCount = *variants
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	var (
		st   *store.Store
		src  pipeline.ExemplarSource
		sink telemetry.RunSink
	)
	if cfg.Database.ConnString != "" {
		st, err = store.New(ctx, cfg.Database.ConnString)
		if err != nil {
			logger.Fatal("store connection failed", zap.Error(err))
		}
		defer st.Close()
		if err := st.EnsureSchema(ctx); err != nil {
			logger.Fatal("schema setup failed", zap.Error(err))
		}
		src, sink = st, st
	} else {
		logger.Warn("no database configured; running without exemplars or durable run log")
	}

	if *recent > 0 {
		if st == nil {
			logger.Fatal("run log inspection requires DATABASE_URL")
		}
		runs, err := st.LatestRuns(ctx, *recent)
		if err != nil {
			logger.Fatal("run log read failed", zap.Error(err))
		}
		for _, r := range runs {
			fmt.Printf("%s  %-6s %-9s %s  %q\n",
				r.FinishedAt.Format(time.RFC3339), r.Verdict, r.Decision, r.RunID, r.Message)
		}
		return
	}

	client := llm.NewHTTPClient(cfg.LLM.BaseURL, cfg.LLM.APIKey)
	producer := telemetry.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.RunsTopic)
	defer producer.Close()

	p := pipeline.New(pipeline.OptionsFromConfig(cfg), client, src,
		telemetry.NewLogger(sink, producer, logger), logger)

	res, err := p.Run(ctx, pipeline.Input{
		Message:        *message,
		Rating:         *rating,
		NegativeStreak: *streak,
	})
	if err != nil {
		logger.Fatal("run failed", zap.Error(err))
	}

	fmt.Printf("run:      %s\n", res.RunID)
	fmt.Printf("verdict:  %s\n", res.Verdict)
	fmt.Printf("decision: %s\n", res.Decision)
	for i, v := range res.Variants {
		fmt.Printf("\n-- variant %d --\n%s\n", i+1, v)
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build()
}
