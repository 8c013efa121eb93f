package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissing indica que uma variável obrigatória não foi definida
var ErrMissing = errors.New("missing required configuration")

// ErrInvalid indica que uma variável tem um valor que não pode ser usado
var ErrInvalid = errors.New("invalid configuration")

// Provedores de LLM suportados
const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Neo4jConfig contém os parâmetros de conexão com o banco de grafos
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

// LLMConfig contém as credenciais e o modelo do provedor de LLM
type LLMConfig struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// HTTPConfig contém os parâmetros do servidor HTTP
type HTTPConfig struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration // zero desativa o timeout por requisição
}

// QueryConfig controla o motor de consultas ao grafo
type QueryConfig struct {
	MaxRows    int
	Synthesize bool
}

// MCPConfig descreve um servidor MCP remoto opcional
type MCPConfig struct {
	Endpoint string
	Token    string
}

// Config agrega toda a configuração do processo
type Config struct {
	Neo4j          Neo4jConfig
	LLM            LLMConfig
	HTTP           HTTPConfig
	Query          QueryConfig
	MCP            MCPConfig
	SessionIdleTTL time.Duration
	LogLevel       string
}

// Load lê a configuração das variáveis de ambiente e a valida.
// O .env, se existir, deve ter sido carregado antes pelo main.
func Load() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Neo4j: Neo4jConfig{
			URI:      getenv("NEO4J_URI"),
			Username: getenv("NEO4J_USERNAME"),
			Password: getenv("NEO4J_PASSWORD"),
			Database: getenv("NEO4J_DATABASE"),
		},
		LLM: LLMConfig{
			Provider: strings.ToLower(valueOr(getenv("LLM_PROVIDER"), ProviderGroq)),
			Model:    getenv("LLM_MODEL"),
			BaseURL:  getenv("LLM_BASE_URL"),
		},
		HTTP: HTTPConfig{
			Addr:        valueOr(getenv("HTTP_ADDR"), ":8000"),
			ReadTimeout: 15 * time.Second,
			IdleTimeout: 60 * time.Second,
		},
		MCP: MCPConfig{
			Endpoint: getenv("MCP_ENDPOINT"),
			Token:    getenv("MCP_TOKEN"),
		},
		LogLevel: valueOr(getenv("LOG_LEVEL"), "info"),
	}

	switch cfg.LLM.Provider {
	case ProviderGroq:
		cfg.LLM.APIKey = getenv("GROQ_KEY")
	case ProviderOpenAI:
		cfg.LLM.APIKey = getenv("OPENAI_API_KEY")
	case ProviderGemini:
		cfg.LLM.APIKey = getenv("GOOGLE_API_KEY")
	default:
		return nil, fmt.Errorf("%w: LLM_PROVIDER %q", ErrInvalid, cfg.LLM.Provider)
	}

	var err error
	if cfg.HTTP.RequestTimeout, err = parseDuration(getenv, "REQUEST_TIMEOUT", 0); err != nil {
		return nil, err
	}
	if cfg.SessionIdleTTL, err = parseDuration(getenv, "SESSION_IDLE_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Query.MaxRows, err = parseInt(getenv, "QUERY_MAX_ROWS", 100); err != nil {
		return nil, err
	}
	if cfg.Query.Synthesize, err = parseBool(getenv, "QUERY_SYNTHESIZE", true); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate verifica se todos os campos obrigatórios estão presentes
func (c *Config) Validate() error {
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"NEO4J_URI", c.Neo4j.URI},
		{"NEO4J_USERNAME", c.Neo4j.Username},
		{"NEO4J_PASSWORD", c.Neo4j.Password},
		{"NEO4J_DATABASE", c.Neo4j.Database},
		{apiKeyVar(c.LLM.Provider), c.LLM.APIKey},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}

	if c.Query.MaxRows <= 0 {
		return fmt.Errorf("%w: QUERY_MAX_ROWS must be positive", ErrInvalid)
	}
	if c.HTTP.RequestTimeout < 0 || c.SessionIdleTTL < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalid)
	}
	return nil
}

func apiKeyVar(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGemini:
		return "GOOGLE_API_KEY"
	default:
		return "GROQ_KEY"
	}
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func parseDuration(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	return d, nil
}

func parseInt(getenv func(string) string, key string, def int) (int, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	return n, nil
}

func parseBool(getenv func(string) string, key string, def bool) (bool, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	return b, nil
}
