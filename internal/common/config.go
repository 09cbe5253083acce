package common

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/text-extractor/constants"
)

// Config holds all application configuration
type Config struct {
	VaultRoot string         `yaml:"vault_root"`
	Cache     CacheConfig    `yaml:"cache"`
	Database  DatabaseConfig `yaml:"database"`
	Queue     QueueConfig    `yaml:"queue"`
	Pool      PoolConfig     `yaml:"pool"`
	OCR       OCRConfig      `yaml:"ocr"`
	Server    ServerConfig   `yaml:"server"`
	Jobs      JobsConfig     `yaml:"jobs"`
	Log       LogConfig      `yaml:"log"`
}

// CacheConfig selects and configures the extracted-text cache backend
type CacheConfig struct {
	Driver string      `yaml:"driver"` // fs | memory | sql | redis | s3
	Dir    string      `yaml:"dir"`
	Redis  RedisConfig `yaml:"redis"`
	S3     S3Config    `yaml:"s3"`
}

// RedisConfig holds Redis connection settings for the cache
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Prefix   string `yaml:"prefix"`
}

// S3Config holds bucket settings for the cache
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string        `yaml:"driver"` // sqlite | postgres
	SQLitePath       string        `yaml:"sqlite_path"`
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// QueueConfig holds the extraction concurrency limit
type QueueConfig struct {
	Concurrency int  `yaml:"concurrency"`
	Shared      bool `yaml:"shared"` // one queue across PDF and image extraction
}

// PoolConfig holds worker settings
type PoolConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	PacingDelay   time.Duration `yaml:"pacing_delay"`
	WorkerCommand string        `yaml:"worker_command"` // empty -> this executable
	WorkerArgs    []string      `yaml:"worker_args"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	PDFEngine   string   `yaml:"pdf_engine"` // fitz | pdftotext
	OCREngine   string   `yaml:"ocr_engine"` // gosseract | tesseract
	Pdftotext   string   `yaml:"pdftotext"`
	Tesseract   string   `yaml:"tesseract"`
	TessdataDir string   `yaml:"tessdata_dir"`
	PSM         int      `yaml:"psm"`
	OEM         int      `yaml:"oem"`
	MaxPages    int      `yaml:"max_pages"`
	Languages   []string `yaml:"languages"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr    string        `yaml:"grpc_addr"`
	HTTPAddr    string        `yaml:"http_addr"`
	Watch       bool          `yaml:"watch"`
	InitialScan bool          `yaml:"initial_scan"`
	SkipHidden  bool          `yaml:"skip_hidden"`
	Debounce    time.Duration `yaml:"debounce"`
}

// JobsConfig toggles the extract_job ledger
type JobsConfig struct {
	Record bool `yaml:"record"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | text
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() *Config {
	return &Config{
		VaultRoot: ".",
		Cache: CacheConfig{
			Driver: "fs",
			Dir:    ".text-extractor/cache",
			Redis:  RedisConfig{Addr: "localhost:6379", PoolSize: 10, Prefix: "textextract:"},
			S3:     S3Config{Region: "us-east-2", Prefix: "text-cache/"},
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			SQLitePath:      ".text-extractor/text-extractor.db",
			MaxConns:        20,
			MinConns:        5,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Queue: QueueConfig{Concurrency: defaultConcurrency()},
		Pool:  PoolConfig{Timeout: 2 * time.Minute},
		OCR: OCRConfig{
			PDFEngine: "fitz",
			OCREngine: "gosseract",
			Pdftotext: "pdftotext",
			Tesseract: "tesseract",
			Languages: []string{constants.DefaultLanguage},
		},
		Server: ServerConfig{
			GRPCAddr:   ":8080",
			HTTPAddr:   ":8081",
			SkipHidden: true,
			Debounce:   500 * time.Millisecond,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// roughly 70% of the cores, never below one
func defaultConcurrency() int {
	n := int(float64(runtime.NumCPU()) * 0.7)
	if n < 1 {
		return 1
	}
	return n
}

// LoadConfig loads defaults, then the optional YAML file at path, then .env and
// environment variables, in increasing precedence.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if len(cfg.OCR.Languages) == 0 {
		cfg.OCR.Languages = []string{constants.DefaultLanguage}
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.VaultRoot = getEnv("VAULT_ROOT", c.VaultRoot)

	c.Cache.Driver = getEnv("CACHE_DRIVER", c.Cache.Driver)
	c.Cache.Dir = getEnv("CACHE_DIR", c.Cache.Dir)
	c.Cache.Redis.Addr = getEnv("REDIS_ADDR", c.Cache.Redis.Addr)
	c.Cache.Redis.Password = getEnv("REDIS_PASSWORD", c.Cache.Redis.Password)
	c.Cache.Redis.DB = getEnvAsInt("REDIS_DB", c.Cache.Redis.DB)
	c.Cache.Redis.Prefix = getEnv("REDIS_PREFIX", c.Cache.Redis.Prefix)
	c.Cache.S3.Bucket = getEnv("S3_BUCKET", c.Cache.S3.Bucket)
	c.Cache.S3.Region = getEnv("AWS_REGION", c.Cache.S3.Region)
	c.Cache.S3.Prefix = getEnv("S3_PREFIX", c.Cache.S3.Prefix)
	c.Cache.S3.Endpoint = getEnv("S3_ENDPOINT", c.Cache.S3.Endpoint)
	c.Cache.S3.AccessKey = getEnv("AWS_ACCESS_KEY", c.Cache.S3.AccessKey)
	c.Cache.S3.SecretKey = getEnv("AWS_SECRET_KEY", c.Cache.S3.SecretKey)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.SQLitePath = getEnv("SQLITE_PATH", c.Database.SQLitePath)
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)
	c.Database.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Database.StatementTimeout)

	c.Queue.Concurrency = getEnvAsInt("QUEUE_CONCURRENCY", c.Queue.Concurrency)
	c.Queue.Shared = getEnvAsBool("QUEUE_SHARED", c.Queue.Shared)

	c.Pool.Timeout = getEnvAsDuration("WORKER_TIMEOUT", c.Pool.Timeout)
	c.Pool.PacingDelay = getEnvAsDuration("WORKER_PACING_DELAY", c.Pool.PacingDelay)
	c.Pool.WorkerCommand = getEnv("WORKER_COMMAND", c.Pool.WorkerCommand)

	c.OCR.PDFEngine = getEnv("PDF_ENGINE", c.OCR.PDFEngine)
	c.OCR.OCREngine = getEnv("OCR_ENGINE", c.OCR.OCREngine)
	c.OCR.Pdftotext = getEnv("PDFTOTEXT_BIN", c.OCR.Pdftotext)
	c.OCR.Tesseract = getEnv("TESSERACT_BIN", c.OCR.Tesseract)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.PSM = getEnvAsInt("TESSERACT_PSM", c.OCR.PSM)
	c.OCR.OEM = getEnvAsInt("TESSERACT_OEM", c.OCR.OEM)
	c.OCR.MaxPages = getEnvAsInt("PDF_MAX_PAGES", c.OCR.MaxPages)
	c.OCR.Languages = getEnvAsList("OCR_LANGUAGES", c.OCR.Languages)

	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.Watch = getEnvAsBool("WATCH_VAULT", c.Server.Watch)

	c.Jobs.Record = getEnvAsBool("JOBS_RECORD", c.Jobs.Record)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("vault_root", c.VaultRoot, Required).
		Field("cache.driver", c.Cache.Driver, OneOf("fs", "memory", "sql", "redis", "s3")).
		Field("queue.concurrency", c.Queue.Concurrency, Positive).
		Field("pool.timeout", c.Pool.Timeout, Positive).
		Field("ocr.pdf_engine", c.OCR.PDFEngine, OneOf("fitz", "pdftotext")).
		Field("ocr.ocr_engine", c.OCR.OCREngine, OneOf("gosseract", "tesseract")).
		Field("ocr.languages", c.OCR.Languages, Required).
		Field("log.format", c.Log.Format, OneOf("json", "text"))

	if c.Pool.PacingDelay < 0 {
		v.Field("pool.pacing_delay", c.Pool.PacingDelay, Positive)
	}
	switch c.Cache.Driver {
	case "fs":
		v.Field("cache.dir", c.Cache.Dir, Required)
	case "redis":
		v.Field("cache.redis.addr", c.Cache.Redis.Addr, Required)
	case "s3":
		v.Field("cache.s3.bucket", c.Cache.S3.Bucket, Required)
	}
	if c.Cache.Driver == "sql" || c.Jobs.Record {
		v.Field("database.driver", c.Database.Driver, OneOf("sqlite", "postgres"))
		switch c.Database.Driver {
		case "sqlite":
			v.Field("database.sqlite_path", c.Database.SQLitePath, Required)
		case "postgres":
			v.Field("database.dsn", c.Database.DSN, Required)
		}
	}

	if v.HasErrors() {
		return NewAppError(CodeConfig, v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}

// UsesDatabase reports whether any component needs the SQL database.
func (c *Config) UsesDatabase() bool {
	return c.Cache.Driver == "sql" || c.Jobs.Record
}
