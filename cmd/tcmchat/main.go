package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tcm-rag/internal/config"
	"tcm-rag/internal/embedding"
	"tcm-rag/internal/helper"
	"tcm-rag/internal/index"
	"tcm-rag/internal/llmservice"
	"tcm-rag/internal/models"
	"tcm-rag/internal/rag"
	"tcm-rag/internal/vectorstore"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	// .env is optional, the credential check below is not
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(configFilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	apiKey, err := config.APIKey()
	if err != nil {
		log.Fatal().Err(err).Msg("Error reading credential")
	}

	embedder, err := embedding.NewDashScopeEmbedder(&cfg.LLM, &cfg.Embedding, apiKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	generator, err := llmservice.NewClient(&cfg.LLM, apiKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing LLM client")
	}

	ctx := context.Background()

	if err := helper.CreateFolder(cfg.Corpus.PersistDir); err != nil {
		log.Fatal().Err(err).Msg("Error creating persistence directory")
	}

	store, err := vectorstore.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating vector store")
	}

	builder := index.NewBuilder(cfg, embedder, store)
	if err := builder.BuildOrLoad(ctx); err != nil {
		log.Fatal().Err(err).Msg("Error building vector index")
	}

	ragEngine := rag.New(store, embedder, generator, cfg.RAG.TopK)

	fmt.Printf("Query: %s\n\n", models.DemoQuery)
	fmt.Println("回答：")

	fragments, errs := ragEngine.QueryStream(ctx, models.DemoQuery)
	for fragment := range fragments {
		fmt.Print(fragment)
	}
	if err := <-errs; err != nil {
		log.Fatal().Err(err).Msg("Error querying")
	}
	fmt.Print("\n\n")
}
