// Batch evaluation runner: samples k dataset rows per topic, runs the
// full triage pipeline on each prompt, and prints the model reply next to
// the dataset's ideal response. Outputs are logged through the normal
// telemetry path, then read back from pipeline_runs so the audit trail
// itself is checked on every batch.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/retainloop/churn-triage-pipeline/internal/config"
	"github.com/retainloop/churn-triage-pipeline/internal/llm"
	"github.com/retainloop/churn-triage-pipeline/internal/pipeline"
	"github.com/retainloop/churn-triage-pipeline/internal/store"
	"github.com/retainloop/churn-triage-pipeline/internal/telemetry"
)

var topics = []string{"support", "billing", "delivery", "product", "app"}

func main() {
	perTopic := flag.Int("per-topic", 2, "rows to evaluate per topic")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if cfg.Database.ConnString == "" {
		log.Fatal("DATABASE_URL must be set for evaluation")
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	ctx := context.Background()
	st, err := store.New(ctx, cfg.Database.ConnString)
	if err != nil {
		log.Fatal("connect:", err)
	}
	defer st.Close()
	if err := st.EnsureSchema(ctx); err != nil {
		log.Fatal("ensure schema:", err)
	}

	client := llm.NewHTTPClient(cfg.LLM.BaseURL, cfg.LLM.APIKey)
	producer := telemetry.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.RunsTopic)
	defer producer.Close()

	p := pipeline.New(pipeline.OptionsFromConfig(cfg), client, st,
		telemetry.NewLogger(st, producer, logger), logger)

	i := 0
	failures := 0
	for _, topic := range topics {
		rows, err := st.FetchExemplars(ctx, topic, "", *perTopic)
		if err != nil {
			log.Printf("fetch %s rows: %v", topic, err)
			continue
		}
		for _, row := range rows {
			i++
			res, err := p.Run(ctx, pipeline.Input{Message: row.Prompt, Rating: row.Rating})
			fmt.Printf("\n#%d [%s/%s] review_id=%s\n", i, row.Topic, row.Sentiment, row.ID)
			fmt.Println("Prompt:", row.Prompt)
			fmt.Println("Ideal :", row.IdealResponse)
			if err != nil {
				failures++
				fmt.Println("Model : <failed:", err, ">")
				continue
			}
			fmt.Printf("Route : %s (verdict %s)\n", res.Decision, res.Verdict)
			fmt.Println("Model :", res.Variants[0])
		}
	}

	fmt.Printf("\nEvaluated %d rows, %d failures.\n", i, failures)

	runs, err := st.LatestRuns(ctx, i)
	if err != nil {
		log.Fatal("read back run log:", err)
	}
	fmt.Printf("\nRun log (%d most recent):\n", len(runs))
	for _, r := range runs {
		fmt.Printf("  %s  verdict=%-6s decision=%-9s errors=%d\n",
			r.RunID, r.Verdict, r.Decision, len(r.Errors))
	}
	if len(runs) < i {
		log.Printf("run log holds %d records for %d evaluated rows", len(runs), i)
	}

	if failures > 0 {
		os.Exit(1)
	}
}
