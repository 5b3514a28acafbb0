// Seeds the reviews table with a synthetic customer-feedback dataset:
// topic and sentiment controlled templates, sentiment-derived ratings,
// and an ideal agent response per row.
package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/retainloop/churn-triage-pipeline/internal/store"
)

var topics = []string{"support", "delivery", "billing", "product", "app"}
var sentiments = []string{"positive", "neutral", "negative"}

// Tone-specific customer prompts by topic and sentiment.
var promptTemplates = map[string]map[string]string{
	"support": {
		"positive": "Customer: thanks for the quick help, one last question about my support case.",
		"neutral":  "Customer: could you give me an update on my support case?",
		"negative": "Customer: I'm frustrated, my ticket has been open for days with no update.",
	},
	"app": {
		"positive": "Customer: loving the app overall, just confirming how to use a feature.",
		"neutral":  "Customer: where do I change my notification settings in the app?",
		"negative": "Customer: the app keeps crashing and I'm losing work.",
	},
	"delivery": {
		"positive": "Customer: delivery arrived early, just checking the status page accuracy.",
		"neutral":  "Customer: can you confirm the delivery window for my order?",
		"negative": "Customer: delivery is delayed again and I need this urgently.",
	},
	"billing": {
		"positive": "Customer: billing looks correct, could you clarify one line item?",
		"neutral":  "Customer: how do I download my last three invoices?",
		"negative": "Customer: I was charged twice and need a refund ASAP.",
	},
	"product": {
		"positive": "Customer: product works great, question about an accessory.",
		"neutral":  "Customer: does this product support the newer connector?",
		"negative": "Customer: product arrived damaged and I'm very unhappy.",
	},
}

var idealResponses = map[string]string{
	"positive": "Agent: Appreciate the kind words! Here's a quick next step and where to find more help.",
	"neutral":  "Agent: Thanks for reaching out, here's what we'll do next.",
	"negative": "Agent: I'm sorry for the trouble. Here's what I'll do immediately and when to expect an update.",
}

func main() {
	n := flag.Int("n", 1000, "number of rows to generate")
	seed := flag.Int64("seed", 0, "random seed for reproducibility (0 = time-based)")
	flag.Parse()

	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		log.Fatal("DATABASE_URL must be set")
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	ctx := context.Background()
	st, err := store.New(ctx, connString)
	if err != nil {
		log.Fatal("connect:", err)
	}
	defer st.Close()

	if err := st.EnsureSchema(ctx); err != nil {
		log.Fatal("ensure schema:", err)
	}

	log.Printf("Generating %d synthetic reviews (seed %d)...", *n, *seed)

	reviews := make([]store.Review, 0, *n)
	now := time.Now().UTC()
	for i := 0; i < *n; i++ {
		s := sentiments[rng.Intn(len(sentiments))]
		t := topics[rng.Intn(len(topics))]
		reviews = append(reviews, store.Review{
			ID:               uuid.NewString(),
			Platform:         "synthetic",
			Store:            "Demo Store",
			AuthorName:       "User" + uuid.NewString()[:8],
			Rating:           ratingFor(rng, s),
			ReviewText:       "This is a " + s + " review about " + t + ".",
			Topic:            t,
			Sentiment:        s,
			FrustrationLevel: frustrationFor(rng, s),
			ChurnRisk:        churnRiskFor(s),
			CreatedAt:        now.Add(-time.Duration(rng.Intn(365*24)) * time.Hour),
			Prompt:           promptTemplates[t][s],
			IdealResponse:    idealResponses[s],
		})
	}

	inserted, err := st.InsertReviews(ctx, reviews)
	if err != nil {
		log.Fatal("insert:", err)
	}
	log.Printf("Done. Inserted %d rows (duplicates skipped).", inserted)
}

func ratingFor(rng *rand.Rand, sentiment string) int {
	switch sentiment {
	case "positive":
		return 4 + rng.Intn(2)
	case "neutral":
		return 3
	default:
		return 1 + rng.Intn(2)
	}
}

func frustrationFor(rng *rand.Rand, sentiment string) string {
	if sentiment == "positive" {
		return "low"
	}
	if rng.Intn(2) == 0 {
		return "medium"
	}
	return "high"
}

func churnRiskFor(sentiment string) string {
	switch sentiment {
	case "positive":
		return "unlikely"
	case "neutral":
		return "possible"
	default:
		return "likely"
	}
}
