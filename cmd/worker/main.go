// Command worker runs a Temporal worker hosting the Domain Bootstrap and
// Document Contribution workflows plus their activities.
//
// # Configuration
//
// Environment variables:
//
//	TEMPORAL_HOST_PORT      - Temporal frontend address (default: "localhost:7233")
//	TEMPORAL_NAMESPACE      - Temporal namespace (default: "default")
//	MONGO_URI               - MongoDB connection string (default: "mongodb://localhost:27017")
//	MONGO_DATABASE          - MongoDB database name (default: "domainkit")
//	REDIS_URL               - Redis address backing the LLM tier rate limiter (default: "localhost:6379")
//	REDIS_PASSWORD          - Redis password (optional)
//	ANTHROPIC_API_KEY       - credential for the balanced/deep tiers (optional; tier skipped if unset)
//	OPENAI_API_KEY          - credential for the fast_cheap/ultra_fast/ultra_cheap tiers (optional; tier skipped if unset)
//	AWS_REGION              - region for the Bedrock-backed ultra_quality tier (optional; tier skipped if unset)
//
// # Example
//
//	TEMPORAL_HOST_PORT=localhost:7233 ANTHROPIC_API_KEY=sk-... go run ./cmd/worker
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/redis/go-redis/v9"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	mongooptions "go.mongodb.org/mongo-driver/v2/mongo/options"
	"goa.design/pulse/rmap"

	"github.com/domainkit/platform/activities"
	"github.com/domainkit/platform/engine"
	temporalengine "github.com/domainkit/platform/engine/temporal"
	"github.com/domainkit/platform/llm/anthropic"
	"github.com/domainkit/platform/llm/bedrock"
	"github.com/domainkit/platform/llm/model"
	"github.com/domainkit/platform/llm/openai"
	"github.com/domainkit/platform/llm/ratelimit"
	"github.com/domainkit/platform/retrypolicy"
	"github.com/domainkit/platform/signal"
	mongoclient "github.com/domainkit/platform/signal/mongostore/clients/mongo"
	"github.com/domainkit/platform/signal/mongostore"
	"github.com/domainkit/platform/signal/stream"
	"github.com/domainkit/platform/telemetry"
	"github.com/domainkit/platform/visibility"
	"github.com/domainkit/platform/workflows/bootstrap"
	"github.com/domainkit/platform/workflows/contribution"

	"go.temporal.io/sdk/client"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx := context.Background()

	hostPort := envOr("TEMPORAL_HOST_PORT", "localhost:7233")
	namespace := envOr("TEMPORAL_NAMESPACE", "default")
	mongoURI := envOr("MONGO_URI", "mongodb://localhost:27017")
	mongoDatabase := envOr("MONGO_DATABASE", "domainkit")
	redisURL := envOr("REDIS_URL", "localhost:6379")
	redisPassword := os.Getenv("REDIS_PASSWORD")

	rdb := redis.NewClient(&redis.Options{Addr: redisURL, Password: redisPassword})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}

	tierLimits, err := rmap.Join(ctx, "llm-tier-rate-limits", rdb)
	if err != nil {
		return fmt.Errorf("join tier rate limit map: %w", err)
	}

	mongoConn, err := mongodriver.Connect(mongooptions.Client().ApplyURI(mongoURI))
	if err != nil {
		return fmt.Errorf("connect to mongo: %w", err)
	}
	defer mongoConn.Disconnect(ctx)

	mClient, err := mongoclient.New(mongoclient.Options{Client: mongoConn, Database: mongoDatabase})
	if err != nil {
		return fmt.Errorf("create signal mongo client: %w", err)
	}
	store, err := mongostore.NewStore(mClient)
	if err != nil {
		return fmt.Errorf("create signal store: %w", err)
	}

	logger := telemetry.NewClueLogger()
	signals := signal.NewService(stream.NewHub(), store, logger)

	router := buildTierRouter(ctx, tierLimits)

	a := activities.New(router, nil, nil, nil, nil, signals, logger)
	policy := retrypolicy.NewTable()

	eng, err := temporalengine.New(temporalengine.Options{
		ClientOptions: &client.Options{HostPort: hostPort, Namespace: namespace},
		WorkerOptions: temporalengine.WorkerOptions{TaskQueue: visibility.QueueDomainBootstrap},
		Logger:        logger,
		Metrics:       telemetry.NewClueMetrics(),
		Tracer:        telemetry.NewClueTracer(),
	})
	if err != nil {
		return fmt.Errorf("create temporal engine: %w", err)
	}
	defer eng.Close()

	if err := eng.RegisterWorkflow(ctx, engine.WorkflowDefinition{
		Name: bootstrap.Name, TaskQueue: visibility.QueueDomainBootstrap, Handler: bootstrap.Workflow,
	}); err != nil {
		return fmt.Errorf("register bootstrap workflow: %w", err)
	}
	if err := eng.RegisterWorkflow(ctx, engine.WorkflowDefinition{
		Name: contribution.Name, TaskQueue: visibility.QueueDocumentAnalysis, Handler: contribution.Workflow,
	}); err != nil {
		return fmt.Errorf("register contribution workflow: %w", err)
	}
	if err := activities.Register(ctx, eng, a, policy); err != nil {
		return fmt.Errorf("register activities: %w", err)
	}

	log.Printf("starting worker on %s (namespace=%s)", hostPort, namespace)
	return eng.Worker().Start()
}

// buildTierRouter registers a provider client for every tier whose
// credentials are present in the environment, each wrapped in the
// cluster-aware adaptive rate limiter so concurrent workers sharing
// tierLimits back off together when a provider starts throttling.
func buildTierRouter(ctx context.Context, tierLimits *rmap.Map) *model.TierRouter {
	router := model.NewTierRouter()

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c := anthropic.NewFromAPIKey(key)
		limiter := ratelimit.NewAdaptiveRateLimiter(ctx, tierLimits, "anthropic", 60_000, 600_000)
		router.Register(model.TierBalanced, limiter.Middleware()(c))
		router.Register(model.TierDeep, limiter.Middleware()(c))
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c := openai.NewFromAPIKey(key)
		limiter := ratelimit.NewAdaptiveRateLimiter(ctx, tierLimits, "openai", 60_000, 600_000)
		router.Register(model.TierFastCheap, limiter.Middleware()(c))
		router.Register(model.TierUltraFast, limiter.Middleware()(c))
		router.Register(model.TierUltraCheap, limiter.Middleware()(c))
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		c, err := bedrock.NewFromEnv(ctx, region)
		if err != nil {
			log.Printf("skipping bedrock tier: %v", err)
		} else {
			limiter := ratelimit.NewAdaptiveRateLimiter(ctx, tierLimits, "bedrock", 60_000, 600_000)
			router.Register(model.TierUltraQuality, limiter.Middleware()(c))
		}
	}
	return router
}

func envOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
