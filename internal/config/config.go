package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by SCOUT_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("SCOUT_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func AnthropicAPIKey() string {
	return os.Getenv("ANTHROPIC_API_KEY")
}

// ReasonerProvider returns the configured reasoning provider.
// Valid values: openai, anthropic, mock. Defaults to "openai".
func ReasonerProvider() string {
	p := os.Getenv("REASONER_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// ReasonerAPIKey returns the API key for the configured reasoning provider.
func ReasonerAPIKey() string {
	switch ReasonerProvider() {
	case "anthropic":
		return AnthropicAPIKey()
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// SearchProvider returns the configured evidence-gathering provider.
// Valid values: websearch, mock. Defaults to "websearch".
func SearchProvider() string {
	p := os.Getenv("SEARCH_PROVIDER")
	if p == "" {
		return "websearch"
	}
	return p
}

func SearchEndpoint() string {
	return os.Getenv("SEARCH_ENDPOINT")
}

func SearchAPIKey() string {
	return os.Getenv("SEARCH_API_KEY")
}

// EmbeddingProvider returns the configured embedding provider.
// Valid values: openai, mock. Defaults to "mock".
func EmbeddingProvider() string {
	p := os.Getenv("EMBEDDING_PROVIDER")
	if p == "" {
		return "mock"
	}
	return p
}

// EmbeddingModel returns the embedding model name. Empty selects the
// provider's default.
func EmbeddingModel() string {
	return os.Getenv("EMBEDDING_MODEL")
}

func EmbeddingAPIKey() string {
	switch EmbeddingProvider() {
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// MaxPasses returns the default pass cap per discovery session.
func MaxPasses() int {
	n, err := strconv.Atoi(os.Getenv("MAX_PASSES"))
	if err != nil || n <= 0 {
		return 5
	}
	return n
}

// TopK returns how many ranked hypotheses each pass dispatches.
func TopK() int {
	n, err := strconv.Atoi(os.Getenv("PASS_TOP_K"))
	if err != nil || n <= 0 {
		return 6
	}
	return n
}

// PassConcurrency returns the worker pool size within one pass.
func PassConcurrency() int {
	n, err := strconv.Atoi(os.Getenv("PASS_CONCURRENCY"))
	if err != nil || n <= 0 {
		return 4
	}
	return n
}

// PassCallBudget returns the collaborator call cap per pass.
func PassCallBudget() int {
	n, err := strconv.Atoi(os.Getenv("PASS_CALL_BUDGET"))
	if err != nil || n <= 0 {
		return 64
	}
	return n
}

// CollaboratorTimeout returns the per-call timeout for collaborator calls.
func CollaboratorTimeout() time.Duration {
	secs, err := strconv.Atoi(os.Getenv("COLLABORATOR_TIMEOUT_SECONDS"))
	if err != nil || secs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(secs) * time.Second
}

// SessionTimeout returns the overall session timeout. Zero disables it.
func SessionTimeout() time.Duration {
	secs, err := strconv.Atoi(os.Getenv("SESSION_TIMEOUT_SECONDS"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// CategoryTablePath returns the optional YAML category valuation table path.
func CategoryTablePath() string {
	return os.Getenv("CATEGORY_TABLE_PATH")
}

// RateLimitRPS returns requests per second limit for the HTTP surface.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
