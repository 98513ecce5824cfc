package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// StoreBackend selects the object store implementation.
type StoreBackend string

const (
	BackendS3     StoreBackend = "s3"
	BackendGCS    StoreBackend = "gcs"
	BackendMemory StoreBackend = "memory"
)

// CredentialSource selects where S3 credentials come from.
type CredentialSource string

const (
	// CredentialsEnv reads AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN
	// from the process environment each time credentials are requested.
	CredentialsEnv    CredentialSource = "env"
	CredentialsStatic CredentialSource = "static"
	CredentialsIAM    CredentialSource = "iam"
)

// ErrorPolicy decides how a failed conversion is reported to the runtime.
type ErrorPolicy string

const (
	// ErrorPolicyAbort returns the failure so the invocation is marked failed.
	ErrorPolicyAbort ErrorPolicy = "abort"
	// ErrorPolicyLogAndExit logs the failure and completes the invocation.
	ErrorPolicyLogAndExit ErrorPolicy = "log-and-exit"
)

// S3Config holds the explicit region and credential settings for the S3 backend.
type S3Config struct {
	Region           string
	Endpoint         string
	UseSSL           bool
	CredentialSource CredentialSource
	AccessKeyID      string
	SecretAccessKey  string
	SessionToken     string
}

// GCSConfig holds settings for the Cloud Storage backend.
type GCSConfig struct {
	// CredentialsFile is optional; application default credentials are used when empty.
	CredentialsFile string
}

// RecorderConfig enables the Firestore conversion record when Collection is set.
type RecorderConfig struct {
	ProjectID  string
	Collection string
}

// Enabled reports whether conversion records should be written.
func (r RecorderConfig) Enabled() bool {
	return r.Collection != ""
}

// Config is the complete configuration of the conversion function.
type Config struct {
	StoreBackend      StoreBackend
	S3                S3Config
	GCS               GCSConfig
	Recorder          RecorderConfig
	ErrorPolicy       ErrorPolicy
	ValidateStructure bool
	LogLevel          string
}

// Load reads configuration from the environment, with an optional .env file for local runs.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("STORE_BACKEND", string(BackendS3))
	v.SetDefault("AWS_REGION", "")
	v.SetDefault("AWS_DEFAULT_REGION", "")
	v.SetDefault("S3_ENDPOINT", "s3.amazonaws.com")
	v.SetDefault("S3_USE_SSL", true)
	v.SetDefault("CREDENTIAL_SOURCE", string(CredentialsEnv))
	v.SetDefault("AWS_ACCESS_KEY_ID", "")
	v.SetDefault("AWS_SECRET_ACCESS_KEY", "")
	v.SetDefault("AWS_SESSION_TOKEN", "")
	v.SetDefault("GCS_CREDENTIALS_FILE", "")
	v.SetDefault("PROJECT_ID", "")
	v.SetDefault("FIRESTORE_COLLECTION", "")
	v.SetDefault("ERROR_POLICY", string(ErrorPolicyAbort))
	v.SetDefault("VALIDATE_PDF", true)
	v.SetDefault("LOG_LEVEL", "info")
	v.AutomaticEnv()

	region := v.GetString("AWS_REGION")
	if region == "" {
		region = v.GetString("AWS_DEFAULT_REGION")
	}

	cfg := &Config{
		StoreBackend: StoreBackend(strings.ToLower(v.GetString("STORE_BACKEND"))),
		S3: S3Config{
			Region:           region,
			Endpoint:         v.GetString("S3_ENDPOINT"),
			UseSSL:           v.GetBool("S3_USE_SSL"),
			CredentialSource: CredentialSource(strings.ToLower(v.GetString("CREDENTIAL_SOURCE"))),
			AccessKeyID:      v.GetString("AWS_ACCESS_KEY_ID"),
			SecretAccessKey:  v.GetString("AWS_SECRET_ACCESS_KEY"),
			SessionToken:     v.GetString("AWS_SESSION_TOKEN"),
		},
		GCS: GCSConfig{
			CredentialsFile: v.GetString("GCS_CREDENTIALS_FILE"),
		},
		Recorder: RecorderConfig{
			ProjectID:  v.GetString("PROJECT_ID"),
			Collection: v.GetString("FIRESTORE_COLLECTION"),
		},
		ErrorPolicy:       ErrorPolicy(strings.ToLower(v.GetString("ERROR_POLICY"))),
		ValidateStructure: v.GetBool("VALIDATE_PDF"),
		LogLevel:          v.GetString("LOG_LEVEL"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every value the selected backend needs is present.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendS3:
		if c.S3.Region == "" {
			return fmt.Errorf("AWS_REGION environment variable must be set for the s3 backend")
		}
		if c.S3.Endpoint == "" {
			return fmt.Errorf("S3_ENDPOINT must not be empty")
		}
		switch c.S3.CredentialSource {
		case CredentialsEnv, CredentialsIAM:
		case CredentialsStatic:
			if c.S3.AccessKeyID == "" || c.S3.SecretAccessKey == "" {
				return fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set for static credentials")
			}
		default:
			return fmt.Errorf("unknown CREDENTIAL_SOURCE %q", c.S3.CredentialSource)
		}
	case BackendGCS, BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.ErrorPolicy {
	case ErrorPolicyAbort, ErrorPolicyLogAndExit:
	default:
		return fmt.Errorf("unknown ERROR_POLICY %q", c.ErrorPolicy)
	}

	if c.Recorder.Enabled() && c.Recorder.ProjectID == "" {
		return fmt.Errorf("PROJECT_ID environment variable must be set when FIRESTORE_COLLECTION is set")
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
