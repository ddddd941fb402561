package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config aggregates every setting the service needs.
type Config struct {
	Server  ServerConfig
	Log     LogConfig
	Auth    AuthConfig
	Storage StorageConfig
	AI      AIConfig
	Upload  UploadConfig
}

// Load reads configuration from the environment, layered over the optional TOML file
// named by AURA_CONFIG_FILE.
func Load() (*Config, error) {
	file, err := loadFile(strings.TrimSpace(os.Getenv("AURA_CONFIG_FILE")))
	if err != nil {
		return nil, err
	}

	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	auth, err := loadAuthConfig()
	if err != nil {
		return nil, err
	}

	storage, err := loadStorageConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig(file.AI)
	if err != nil {
		return nil, err
	}

	upload, err := loadUploadConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		Log:     loadLogConfig(),
		Auth:    auth,
		Storage: storage,
		AI:      ai,
		Upload:  upload,
	}, nil
}

// fileConfig holds the settings that are awkward to pass through the environment.
type fileConfig struct {
	AI fileAIConfig `toml:"ai"`
}

type fileAIConfig struct {
	SystemPrompt string   `toml:"system_prompt"`
	Fallbacks    []string `toml:"fallbacks"`
}

func loadFile(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fc, fmt.Errorf("invalid config file %q: %w", path, err)
	}
	return fc, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "5001"
	}

	origins := splitCSV(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173"))

	if strings.Contains(port, ":") {
		// Accept ":5001" or "127.0.0.1:5001" as-is.
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Mode     string
	Redact   bool
	HashSalt string
}

func loadLogConfig() LogConfig {
	redact, err := parseBoolEnv("LOG_REDACTION_ENABLED", true)
	if err != nil {
		redact = true
	}
	return LogConfig{
		Mode:     getEnvOrDefault("LOG_MODE", "development"),
		Redact:   redact,
		HashSalt: strings.TrimSpace(os.Getenv("LOG_HASH_SALT")),
	}
}

// AuthConfig describes how request tokens are verified.
type AuthConfig struct {
	JWTSecret  string
	CookieName string
}

func loadAuthConfig() (AuthConfig, error) {
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		return AuthConfig{}, fmt.Errorf("JWT_SECRET is required")
	}
	return AuthConfig{
		JWTSecret:  secret,
		CookieName: getEnvOrDefault("JWT_COOKIE_NAME", "jwt"),
	}, nil
}

// Storage drivers understood by the storage package.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// StorageConfig selects and addresses the chat document store.
type StorageConfig struct {
	Driver   string
	DSN      string
	Database string
}

func loadStorageConfig() (StorageConfig, error) {
	driver := strings.ToLower(getEnvOrDefault("STORAGE_DRIVER", DriverSQLite))
	dsn := strings.TrimSpace(os.Getenv("STORAGE_DSN"))

	switch driver {
	case DriverMemory:
	case DriverSQLite:
		if dsn == "" {
			dsn = "aura.db"
		}
	case DriverPostgres, DriverMongo:
		if dsn == "" {
			return StorageConfig{}, fmt.Errorf("STORAGE_DSN is required for driver %q", driver)
		}
	default:
		return StorageConfig{}, fmt.Errorf("invalid STORAGE_DRIVER value: %q", driver)
	}

	return StorageConfig{
		Driver:   driver,
		DSN:      dsn,
		Database: getEnvOrDefault("STORAGE_DATABASE", "aura"),
	}, nil
}

// Providers understood by the ai package.
const (
	ProviderNone      = "none"
	ProviderArk       = "ark"
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// AIConfig describes the response-generation collaborator.
type AIConfig struct {
	Provider     string
	APIKey       string
	AccessKey    string
	SecretKey    string
	Model        string
	BaseURL      string
	Region       string
	Temperature  *float64
	TopP         *float64
	MaxTokens    *int
	Timeout      time.Duration
	HistoryLimit int
	SystemPrompt string
	Fallbacks    []string
}

// Enabled reports whether a provider is selected and has what it needs to authenticate.
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderArk:
		return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic:
		return c.APIKey != ""
	case ProviderOllama:
		return c.Model != ""
	default:
		return false
	}
}

func loadAIConfig(file fileAIConfig) (AIConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("AI_PROVIDER", ProviderGemini))
	switch provider {
	case ProviderNone, ProviderArk, ProviderGemini, ProviderOpenAI, ProviderAnthropic, ProviderOllama:
	default:
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value: %q", provider)
	}

	temperature, err := parseOptionalFloatEnv("AI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("AI_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("AI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	timeout := 20 * time.Second
	if raw := strings.TrimSpace(os.Getenv("AI_TIMEOUT")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return AIConfig{}, fmt.Errorf("invalid AI_TIMEOUT value %q", raw)
		}
		timeout = d
	}

	historyLimit := 10
	if override, err := parseOptionalIntEnv("AI_HISTORY_LIMIT"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		if *override < 0 {
			historyLimit = 0
		} else {
			historyLimit = *override
		}
	}

	apiKey := strings.TrimSpace(os.Getenv("AI_API_KEY"))
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv(providerKeyEnv(provider)))
	}

	return AIConfig{
		Provider:     provider,
		APIKey:       apiKey,
		AccessKey:    strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:    strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:        getEnvOrDefault("AI_MODEL", defaultModel(provider)),
		BaseURL:      strings.TrimSpace(os.Getenv("AI_BASE_URL")),
		Region:       getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:  temperature,
		TopP:         topP,
		MaxTokens:    maxTokens,
		Timeout:      timeout,
		HistoryLimit: historyLimit,
		SystemPrompt: file.SystemPrompt,
		Fallbacks:    file.Fallbacks,
	}, nil
}

func providerKeyEnv(provider string) string {
	switch provider {
	case ProviderArk:
		return "ARK_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return ""
	}
}

func defaultModel(provider string) string {
	switch provider {
	case ProviderGemini:
		return "gemini-1.5-flash"
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderAnthropic:
		return "claude-sonnet-4-5-20250929"
	case ProviderOllama:
		return "llama3.1"
	default:
		return ""
	}
}

// UploadConfig holds the ImageKit credentials used to sign client-side uploads.
type UploadConfig struct {
	PublicKey   string
	PrivateKey  string
	URLEndpoint string
	TokenTTL    time.Duration
}

// Enabled reports whether upload signing is configured.
func (c UploadConfig) Enabled() bool {
	return c.PrivateKey != ""
}

func loadUploadConfig() (UploadConfig, error) {
	ttl := 30 * time.Minute
	if minutes, err := parseOptionalIntEnv("IMAGE_KIT_TOKEN_TTL_MINUTES"); err != nil {
		return UploadConfig{}, err
	} else if minutes != nil {
		// ImageKit rejects signatures that expire more than an hour ahead.
		if *minutes < 1 || *minutes > 59 {
			return UploadConfig{}, fmt.Errorf("invalid IMAGE_KIT_TOKEN_TTL_MINUTES value: %d", *minutes)
		}
		ttl = time.Duration(*minutes) * time.Minute
	}

	return UploadConfig{
		PublicKey:   strings.TrimSpace(os.Getenv("IMAGE_KIT_PUBLIC_KEY")),
		PrivateKey:  strings.TrimSpace(os.Getenv("IMAGE_KIT_PRIVATE_KEY")),
		URLEndpoint: strings.TrimSpace(os.Getenv("IMAGE_KIT_ENDPOINT")),
		TokenTTL:    ttl,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitCSV(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
