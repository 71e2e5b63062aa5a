package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed patterns.yaml
var patternsYAML []byte

type Config struct {
	Server      ServerConfig
	Recognition RecognitionConfig
	Attendance  AttendanceConfig
	Buzzer      BuzzerConfig
	Embedding   EmbeddingConfig
	Database    DatabaseConfig
	Faculty     FacultyConfig
	Roster      RosterConfig
	Patterns    PatternsConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type RecognitionConfig struct {
	Tolerance float64 // maximum face distance accepted as a match (default 0.6)
}

type AttendanceConfig struct {
	CooldownSeconds int    // minimum seconds between ledger events per student (default 120)
	DataDir         string // directory for JSON stores (default "data")
}

type BuzzerConfig struct {
	BaseURL        string // ESP32 base URL, e.g. http://192.168.4.1 (empty disables the buzzer)
	TimeoutSeconds int    // HTTP timeout for buzzer calls (default 2)
}

type EmbeddingConfig struct {
	URL string // face embedding service, defaults to http://localhost:8000
	Dim int    // defaults to 128
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL (empty selects the JSON file store)
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type FacultyConfig struct {
	Username string // default admin user seeded at startup
	Password string
	ResetKey string // key required by the password reset endpoint
}

type RosterConfig struct {
	DatabaseURL string // MariaDB DSN of the school management database
}

// PatternsConfig maps decision outcomes to buzzer pattern names
// understood by the ESP32 firmware.
type PatternsConfig struct {
	Outcomes map[string]string `yaml:"outcomes"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envString reads an environment variable with a fallback default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var patterns PatternsConfig
	if err := yaml.Unmarshal(patternsYAML, &patterns); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded patterns.yaml: " + err.Error())
	}

	return &Config{
		Server: ServerConfig{
			Host: envString("SERVER_HOST", "0.0.0.0"),
			Port: envInt("SERVER_PORT", 8080),
		},
		Recognition: RecognitionConfig{
			Tolerance: envFloat("FACE_TOLERANCE", 0.6),
		},
		Attendance: AttendanceConfig{
			CooldownSeconds: envInt("COOLDOWN_SECONDS", 120),
			DataDir:         envString("DATA_DIR", "data"),
		},
		Buzzer: BuzzerConfig{
			BaseURL:        os.Getenv("ESP32_BASE_URL"),
			TimeoutSeconds: envInt("ESP32_TIMEOUT_SECONDS", 2),
		},
		Embedding: EmbeddingConfig{
			URL: envString("EMBEDDING_URL", "http://localhost:8000"),
			Dim: envInt("EMBEDDING_DIM", 128),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Faculty: FacultyConfig{
			Username: envString("FACULTY_USERNAME", "admin"),
			Password: os.Getenv("FACULTY_PASSWORD"),
			ResetKey: os.Getenv("FACULTY_RESET_KEY"),
		},
		Roster: RosterConfig{
			DatabaseURL: os.Getenv("ROSTER_DATABASE_URL"),
		},
		Patterns: patterns,
	}
}

// PatternFor returns the buzzer pattern name for an outcome kind,
// falling back to the outcome name itself when not configured.
func (c *Config) PatternFor(outcome string) string {
	if p, ok := c.Patterns.Outcomes[outcome]; ok {
		return p
	}
	return outcome
}
