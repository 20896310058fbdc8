package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定
	Database DatabaseConfig

	// OpenAI設定（Embeddings + 回答生成）
	OpenAI OpenAIConfig

	// 取り込み設定
	Ingest IngestConfig

	// 回答生成設定
	Answer AnswerConfig

	// ストレージ設定
	Storage StorageConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey             string
	EmbeddingModel     string
	EmbeddingDimension int
	LLMModel           string
	VisionModel        string // 画像添付時に使用するモデル
	Temperature        float64
	MaxTokens          int
}

// IngestConfig はドキュメント取り込み設定
type IngestConfig struct {
	ChunkSize    int // テキストチャンクの最大文字数
	ChunkOverlap int // チャンク間の重複量（文字数換算の目安）
	Workers      int // バックグラウンドワーカー数
}

// AnswerConfig は回答生成設定
type AnswerConfig struct {
	MaxContextTokens int // コンテキストのトークン上限
	MaxResults       int // 検索結果数のデフォルト値
}

// StorageConfig はファイル保存先設定
type StorageConfig struct {
	RawDir       string // アップロードされた元ファイルの保存先
	ProcessedDir string // 抽出画像などの派生物の保存先
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "docrag"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "docrag"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 1536),
			LLMModel:           getEnv("OPENAI_LLM_MODEL", "gpt-4o-mini"),
			VisionModel:        getEnv("OPENAI_VISION_MODEL", "gpt-4o"),
			Temperature:        getEnvAsFloat("OPENAI_TEMPERATURE", 0.2),
			MaxTokens:          getEnvAsInt("OPENAI_MAX_TOKENS", 1024),
		},
		Ingest: IngestConfig{
			ChunkSize:    getEnvAsInt("INGEST_CHUNK_SIZE", 1000),
			ChunkOverlap: getEnvAsInt("INGEST_CHUNK_OVERLAP", 200),
			Workers:      getEnvAsInt("INGEST_WORKERS", 4),
		},
		Answer: AnswerConfig{
			MaxContextTokens: getEnvAsInt("ANSWER_MAX_CONTEXT_TOKENS", 6000),
			MaxResults:       getEnvAsInt("ANSWER_MAX_RESULTS", 5),
		},
		Storage: StorageConfig{
			RawDir:       getEnv("RAW_DOCUMENTS_DIR", "/var/lib/doc-rag/raw"),
			ProcessedDir: getEnv("PROCESSED_DOCUMENTS_DIR", "/var/lib/doc-rag/processed"),
		},
	}

	return cfg, nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
