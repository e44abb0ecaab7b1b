package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// APIKeyEnv is the only source of the DashScope credential. No default,
// no fallback: a missing key is a startup-fatal configuration error.
const APIKeyEnv = "DASHSCOPE_API_KEY"

type CorpusConfig struct {
	DataDir    string   `yaml:"data_dir"`
	PersistDir string   `yaml:"persist_dir"`
	ChunkSize  int      `yaml:"chunk_size"`
	Extensions []string `yaml:"extensions"`
}

type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type EmbeddingConfig struct {
	Model string `yaml:"model"`
}

type RAGConfig struct {
	TopK       int    `yaml:"top_k"`
	Collection string `yaml:"collection"`
}

type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type StoreConfig struct {
	Type     string         `yaml:"type"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type Config struct {
	Corpus    CorpusConfig    `yaml:"corpus"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	RAG       RAGConfig       `yaml:"rag"`
	Store     StoreConfig     `yaml:"store"`
	Server    ServerConfig    `yaml:"server"`
}

// LoadConfig reads the yaml config at path. A missing file is not an
// error: both binaries run with no arguments, so defaults apply.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// APIKey reads the DashScope credential from the environment.
func APIKey() (string, error) {
	key := os.Getenv(APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%s environment variable is not set", APIKeyEnv)
	}
	return key, nil
}

func DefaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			DataDir:    "./data",
			PersistDir: "./doc_emb",
			ChunkSize:  256,
			Extensions: []string{".txt"},
		},
		LLM: LLMConfig{
			BaseURL:     "https://dashscope.aliyuncs.com/compatible-mode/v1",
			Model:       "qwen-max",
			Temperature: 0.0,
			MaxTokens:   2048,
		},
		Embedding: EmbeddingConfig{
			Model: "text-embedding-v1",
		},
		RAG: RAGConfig{
			TopK:       5,
			Collection: "tcm_corpus",
		},
		Store: StoreConfig{
			Type: "chromem",
		},
		Server: ServerConfig{
			Port: 7880,
		},
	}
}

// applyDefaults fills zero values left by a partial config file
func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Corpus.DataDir == "" {
		cfg.Corpus.DataDir = def.Corpus.DataDir
	}
	if cfg.Corpus.PersistDir == "" {
		cfg.Corpus.PersistDir = def.Corpus.PersistDir
	}
	if cfg.Corpus.ChunkSize == 0 {
		cfg.Corpus.ChunkSize = def.Corpus.ChunkSize
	}
	if len(cfg.Corpus.Extensions) == 0 {
		cfg.Corpus.Extensions = def.Corpus.Extensions
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = def.LLM.BaseURL
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = def.LLM.Model
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = def.LLM.MaxTokens
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = def.Embedding.Model
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = def.RAG.TopK
	}
	if cfg.RAG.Collection == "" {
		cfg.RAG.Collection = def.RAG.Collection
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = def.Store.Type
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
}
