package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"counsellor/config"
	"counsellor/db"
	"counsellor/handlers"
	"counsellor/services"
	"counsellor/services/agent"
	"counsellor/services/embedding"
	"counsellor/services/onboarding"
	"counsellor/services/pinecone"
	"counsellor/services/recommendation"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

type repositories struct {
	profiles     db.ProfileRepository
	locks        db.LockRepository
	tasks        db.TaskRepository
	universities db.UniversityRepository
	close        func()
}

func main() {
	cfg := config.Load()
	ctx := context.Background()

	if cfg.PineconeAPIKey == "" {
		log.Fatal("PINECONE_API_KEY environment variable is required")
	}

	if cfg.AnthropicAPIKey == "" {
		log.Fatal("ANTHROPIC_API_KEY environment variable is required")
	}

	repos, err := openRepositories(cfg.DatabaseURL, cfg.UniversitySeedFile)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer repos.close()

	embedder, _, err := embedding.New(ctx, cfg.EmbeddingProvider, cfg.OpenAIAPIKey, cfg.GeminiAPIKey)
	if err != nil {
		log.Fatalf("Failed to initialize embedder: %v", err)
	}

	searchService, err := pinecone.NewService(cfg.PineconeAPIKey, cfg.PineconeIndexName, cfg.PineconeNamespace, embedder)
	if err != nil {
		log.Fatalf("Failed to initialize university search: %v", err)
	}
	recommender := recommendation.NewService(searchService, repos.universities, cfg.FitSearchLimit)

	profileService := services.NewProfileService(repos.profiles)
	taskService := services.NewTaskService(repos.tasks)
	taskGenerator := services.NewTaskGenerator(repos.universities, repos.tasks)
	lockService := services.NewLockService(repos.locks, repos.universities, profileService, taskService, taskGenerator, recommender)

	extractor := onboarding.NewExtractor(extractionModel(cfg.OpenAIAPIKey), cfg.LLMTimeout)
	onboardingService := onboarding.NewService(profileService, extractor)

	counsellorService := agent.NewService(
		agent.NewAnthropicMessages(cfg.AnthropicAPIKey),
		profileService,
		lockService,
		taskService,
		recommender,
		cfg.AgentMaxSteps,
	)

	router := handlers.NewRouter(
		handlers.NewProfileHandler(profileService, onboardingService),
		handlers.NewUniversityHandler(profileService, lockService, recommender, cfg.RecommendLimit),
		handlers.NewTaskHandler(taskService),
		handlers.NewCounsellorHandler(counsellorService),
	)

	addr := ":" + cfg.Port
	fmt.Printf("Server starting on port %s\n", cfg.Port)

	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// openRepositories connects to Postgres, or keeps everything in memory when
// no database is configured. The in-memory university catalogue comes from
// seedFile; without it every lock and shortlist request returns not found.
func openRepositories(databaseURL, seedFile string) (*repositories, error) {
	if databaseURL == "" {
		log.Printf("[WARN] DB_URL not set, using in-memory storage; data is lost on restart")
		store := db.NewMemoryStore()
		if err := seedMemoryStore(store, seedFile); err != nil {
			return nil, err
		}
		return &repositories{
			profiles:     store,
			locks:        store,
			tasks:        store,
			universities: store,
			close:        func() {},
		}, nil
	}

	profileRepo, err := db.NewPostgresProfileRepository(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("profile repository: %w", err)
	}
	lockRepo, err := db.NewPostgresLockRepository(databaseURL)
	if err != nil {
		profileRepo.Close()
		return nil, fmt.Errorf("lock repository: %w", err)
	}
	taskRepo, err := db.NewPostgresTaskRepository(databaseURL)
	if err != nil {
		profileRepo.Close()
		lockRepo.Close()
		return nil, fmt.Errorf("task repository: %w", err)
	}
	universityRepo, err := db.NewPostgresUniversityRepository(databaseURL)
	if err != nil {
		profileRepo.Close()
		lockRepo.Close()
		taskRepo.Close()
		return nil, fmt.Errorf("university repository: %w", err)
	}

	return &repositories{
		profiles:     profileRepo,
		locks:        lockRepo,
		tasks:        taskRepo,
		universities: universityRepo,
		close: func() {
			profileRepo.Close()
			lockRepo.Close()
			taskRepo.Close()
			universityRepo.Close()
		},
	}, nil
}

func seedMemoryStore(store *db.MemoryStore, seedFile string) error {
	if seedFile == "" {
		log.Printf("[WARN] UNIVERSITY_SEED_FILE not set, the in-memory university catalogue is empty; lock and shortlist will return not found")
		return nil
	}

	f, err := os.Open(seedFile)
	if err != nil {
		return fmt.Errorf("open university seed: %w", err)
	}
	defer f.Close()

	count, err := store.LoadSeed(f)
	if err != nil {
		return fmt.Errorf("load university seed %s: %w", seedFile, err)
	}
	log.Printf("[INFO] Seeded in-memory store with %d universities from %s", count, seedFile)
	return nil
}

func extractionModel(openaiAPIKey string) llms.Model {
	if openaiAPIKey == "" {
		log.Printf("[WARN] OPENAI_API_KEY not set, onboarding answers use rule-based extraction only")
		return nil
	}

	llm, err := openai.New(
		openai.WithModel("gpt-4o-mini"),
		openai.WithToken(openaiAPIKey),
	)
	if err != nil {
		log.Printf("[WARN] Failed to create OpenAI client, onboarding answers use rule-based extraction only: %v", err)
		return nil
	}
	return llm
}
