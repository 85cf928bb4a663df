package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Address         string
		DebugHost       string
		Host            string
		ShutdownTimeout time.Duration
		BodyLimit       string
	}

	DatabaseConfig struct {
		Engine string // sqlite | postgres
		Path   string // sqlite file
		URL    string // postgres DSN
	}

	SessionConfig struct {
		Name   string
		Dir    string
		Key    string
		MaxAge time.Duration
		Secure bool
	}

	StorageConfig struct {
		Backend        string // local | minio
		UploadDir      string
		MinioEndpoint  string
		MinioAccessKey string
		MinioSecretKey string
		MinioBucket    string
		MinioSecure    bool
	}

	HuggingFaceConfig struct {
		APIKey         string
		BaseURL        string
		WhisperModel   string
		GrammarModel   string
		Timeout        time.Duration
		GrammarEnabled bool
	}

	Config struct {
		AppName          string
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		RollbarToken     string
		WorkDir          string
		DefaultFromEmail mail.Address
		SendgridAPIKey   string

		Server      ServerConfig
		Database    DatabaseConfig
		Session     SessionConfig
		Storage     StorageConfig
		HuggingFace HuggingFaceConfig
	}
)

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("app_name", "Lectern")
	v.SetDefault("build", "develop")
	v.SetDefault("rollbar_token", "")

	v.SetDefault("email.default_from", "noreply@localhost")
	v.SetDefault("email.sendgrid_api_key", "")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debug_host", ":4000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.body_limit", "16M")

	v.SetDefault("database.engine", "sqlite")
	v.SetDefault("database.path", filepath.Join("instance", "portal.db"))
	v.SetDefault("database.url", "")

	v.SetDefault("session.name", "lectern_session")
	v.SetDefault("session.dir", filepath.Join("instance", "sessions"))
	v.SetDefault("session.key", "")
	v.SetDefault("session.max_age", 12*time.Hour)
	v.SetDefault("session.secure", false)

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.upload_dir", "uploads")
	v.SetDefault("storage.minio_endpoint", "")
	v.SetDefault("storage.minio_access_key", "")
	v.SetDefault("storage.minio_secret_key", "")
	v.SetDefault("storage.minio_bucket", "lecture-audio")
	v.SetDefault("storage.minio_secure", false)

	v.SetDefault("hf.api_key", "")
	v.SetDefault("hf.base_url", "https://api-inference.huggingface.co")
	v.SetDefault("hf.whisper_model", "openai/whisper-medium")
	v.SetDefault("hf.grammar_model", "prithivida/grammar_error_correcter_v1")
	v.SetDefault("hf.timeout", 60*time.Second)
	v.SetDefault("grammar.enabled", true)
}

// NewConfig loads the config/.env.<env> file (if any) then reads the environment.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd(): %v", err)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := &Config{
		AppName:          v.GetString("app_name"),
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         env == "TEST",
		RollbarToken:     v.GetString("rollbar_token"),
		WorkDir:          wd,
		DefaultFromEmail: mail.Address{Name: v.GetString("app_name"), Address: v.GetString("email.default_from")},
		SendgridAPIKey:   v.GetString("email.sendgrid_api_key"),
		Server: ServerConfig{
			Address:         v.GetString("server.address"),
			DebugHost:       v.GetString("server.debug_host"),
			Host:            v.GetString("server.host"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			BodyLimit:       v.GetString("server.body_limit"),
		},
		Database: DatabaseConfig{
			Engine: strings.ToLower(v.GetString("database.engine")),
			Path:   v.GetString("database.path"),
			URL:    v.GetString("database.url"),
		},
		Session: SessionConfig{
			Name:   v.GetString("session.name"),
			Dir:    v.GetString("session.dir"),
			Key:    v.GetString("session.key"),
			MaxAge: v.GetDuration("session.max_age"),
			Secure: v.GetBool("session.secure"),
		},
		Storage: StorageConfig{
			Backend:        strings.ToLower(v.GetString("storage.backend")),
			UploadDir:      v.GetString("storage.upload_dir"),
			MinioEndpoint:  v.GetString("storage.minio_endpoint"),
			MinioAccessKey: v.GetString("storage.minio_access_key"),
			MinioSecretKey: v.GetString("storage.minio_secret_key"),
			MinioBucket:    v.GetString("storage.minio_bucket"),
			MinioSecure:    v.GetBool("storage.minio_secure"),
		},
		HuggingFace: HuggingFaceConfig{
			APIKey:         v.GetString("hf.api_key"),
			BaseURL:        strings.TrimRight(v.GetString("hf.base_url"), "/"),
			WhisperModel:   v.GetString("hf.whisper_model"),
			GrammarModel:   v.GetString("hf.grammar_model"),
			Timeout:        v.GetDuration("hf.timeout"),
			GrammarEnabled: v.GetBool("grammar.enabled"),
		},
	}
	if conf.TestMode {
		conf.Debug = false
	}
	return conf
}
