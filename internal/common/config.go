package common

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/invoice-batch/constants"
)

// Config holds all application configuration
type Config struct {
	Paths    PathsConfig    `yaml:"paths"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	OCR      OCRConfig      `yaml:"ocr"`
	LLM      LLMConfig      `yaml:"llm"`
}

// PathsConfig holds the folder layout of a run
type PathsConfig struct {
	WorkDir         string `yaml:"work_dir"`
	InputDir        string `yaml:"input_dir"`  // default <work_dir>/zu_verarbeiten
	OutputDir       string `yaml:"output_dir"` // default <work_dir>
	LedgerFile      string `yaml:"ledger_file"`
	UnitMappingFile string `yaml:"unit_mapping_file"`
	ErrorLogFile    string `yaml:"error_log_file"`
}

// PipelineConfig holds the knobs of the per-file control loop and the enricher
type PipelineConfig struct {
	FlushInterval       int      `yaml:"flush_interval"`
	MaxFiles            int      `yaml:"max_files"`
	MinTextChars        int      `yaml:"min_text_chars"`
	RejectPatterns      []string `yaml:"reject_patterns"`
	ClassifyChars       int      `yaml:"classify_chars"`
	ExtractChars        int      `yaml:"extract_chars"`
	KnownSuppliers      []string `yaml:"known_suppliers"`
	Subsidiaries        []string `yaml:"subsidiaries"`
	CategorizeBatchSize int      `yaml:"categorize_batch_size"`
}

// LedgerConfig selects and configures the processed-file ledger
type LedgerConfig struct {
	Backend         string        `yaml:"backend"` // xlsx | sql
	DSN             string        `yaml:"dsn"`     // sqlite path or postgres:// url
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// OCRConfig holds text-layer and rendering configuration
type OCRConfig struct {
	Backend   string `yaml:"backend"` // fitz | poppler
	DPI       int    `yaml:"dpi"`
	Pdftotext string `yaml:"pdftotext"`
	Pdftoppm  string `yaml:"pdftoppm"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"-"`
	BaseURL     string        `yaml:"base_url"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
}

const (
	LedgerBackendXLSX = "xlsx"
	LedgerBackendSQL  = "sql"

	OCRBackendFitz    = "fitz"
	OCRBackendPoppler = "poppler"
)

var (
	defaultKnownSuppliers = []string{"Matthäi", "Eurovia", "Bauzentrum", "Remondis", "Kuhlmann", "BHK"}
	defaultSubsidiaries   = []string{"Wähler", "Kuhlmann", "BHK", "Mudcon", "Seier"}
)

// LoadConfig loads configuration from a .env file (if present) and environment variables
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Paths: PathsConfig{
			WorkDir:         getEnv("WORK_DIR", "."),
			InputDir:        getEnv("INPUT_DIR", ""),
			OutputDir:       getEnv("OUTPUT_DIR", ""),
			LedgerFile:      getEnv("LEDGER_FILE", constants.DefaultLedgerFile),
			UnitMappingFile: getEnv("UNIT_MAPPING_FILE", constants.DefaultUnitMappingFile),
			ErrorLogFile:    getEnv("ERROR_LOG_FILE", constants.DefaultErrorLogFile),
		},
		Pipeline: PipelineConfig{
			FlushInterval:       getEnvAsInt("FLUSH_INTERVAL", 20),
			MaxFiles:            getEnvAsInt("MAX_FILES", 1000),
			MinTextChars:        getEnvAsInt("MIN_TEXT_CHARS", 80),
			RejectPatterns:      getEnvAsList("REJECT_PATTERNS", []string{`^VL<\?LHH`}),
			ClassifyChars:       getEnvAsInt("CLASSIFY_CHARS", 3000),
			ExtractChars:        getEnvAsInt("EXTRACT_CHARS", 4000),
			KnownSuppliers:      getEnvAsList("KNOWN_SUPPLIERS", defaultKnownSuppliers),
			Subsidiaries:        getEnvAsList("SUBSIDIARIES", defaultSubsidiaries),
			CategorizeBatchSize: getEnvAsInt("CATEGORIZE_BATCH_SIZE", 0),
		},
		Ledger: LedgerConfig{
			Backend:         getEnv("LEDGER_BACKEND", LedgerBackendXLSX),
			DSN:             getEnv("LEDGER_DSN", ""),
			MaxConns:        getEnvAsInt32("LEDGER_MAX_CONNS", 4),
			MinConns:        getEnvAsInt32("LEDGER_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("LEDGER_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("LEDGER_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("LEDGER_DIAL_TIMEOUT", 3*time.Second),
		},
		OCR: OCRConfig{
			Backend:   getEnv("OCR_BACKEND", OCRBackendFitz),
			DPI:       getEnvAsInt("OCR_DPI", 150),
			Pdftotext: getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:  getEnv("PDFTOPPM_BIN", "pdftoppm"),
		},
		LLM: LLMConfig{
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", ""),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 60*time.Second),
			MaxRetries:  getEnvAsInt("OPENAI_MAX_RETRIES", 3),
		},
	}
}

// ApplyFile overlays a YAML file on top of the loaded configuration.
// Keys missing from the file keep their current values.
func (c *Config) ApplyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return NewAppError("CONFIG_ERROR", "parse config file "+path, err)
	}
	return nil
}

// InputPath returns the folder scanned for new documents.
func (p PathsConfig) InputPath() string {
	if p.InputDir != "" {
		return p.InputDir
	}
	return filepath.Join(p.WorkDir, constants.DefaultInputDirName)
}

// OutputPath returns the folder holding outcome folders and spreadsheet artifacts.
func (p PathsConfig) OutputPath() string {
	if p.OutputDir != "" {
		return p.OutputDir
	}
	return p.WorkDir
}

// Resolve joins a relative artifact name onto the output folder.
func (p PathsConfig) Resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.OutputPath(), name)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("WORK_DIR", c.Paths.WorkDir, Required)
	v.Field("LEDGER_BACKEND", c.Ledger.Backend, OneOf(LedgerBackendXLSX, LedgerBackendSQL))
	v.Field("OCR_BACKEND", c.OCR.Backend, OneOf(OCRBackendFitz, OCRBackendPoppler))
	v.Field("FLUSH_INTERVAL", c.Pipeline.FlushInterval, Positive)
	v.Field("MAX_FILES", c.Pipeline.MaxFiles, Positive)
	v.Field("MIN_TEXT_CHARS", c.Pipeline.MinTextChars, Positive)
	v.Field("OPENAI_TIMEOUT", c.LLM.Timeout, Positive)
	if c.Ledger.Backend == LedgerBackendSQL {
		v.Field("LEDGER_DSN", c.Ledger.DSN, Required)
	}
	for _, p := range c.Pipeline.RejectPatterns {
		v.Field("REJECT_PATTERNS", p, Regexp)
	}
	return ValidateAndReturnError(v)
}

// RequireLLM reports a configuration error when no API key is available.
func (c *Config) RequireLLM() error {
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	return nil
}

// CompiledRejectPatterns compiles the readability reject patterns.
func (c *Config) CompiledRejectPatterns() ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(c.Pipeline.RejectPatterns))
	for _, p := range c.Pipeline.RejectPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, WrapError(err, "compile reject pattern "+p)
		}
		out = append(out, re)
	}
	return out, nil
}
