package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joshnies/datadoc/constants"
	"github.com/joshnies/datadoc/lib/console"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

const (
	StorageProviderS3    = "s3"
	StorageProviderStorj = "storj"

	SigningEncodingPEM   = "pem"
	SigningEncodingPlain = "plain"
)

type DocumentConfig struct {
	// Amount of shards documented in parallel.
	PoolSize int `yaml:"pool_size" validate:"min=1"`
	// Glob matched against file names in the input directory.
	Pattern string `yaml:"pattern" validate:"required"`
}

type SigningConfig struct {
	// PEM file holding the RSA private key.
	KeyPath string `yaml:"key_path,omitempty"`
	// PEM file holding the certificate chain embedded into PEM signatures.
	CertPath string `yaml:"cert_path,omitempty"`
	Encoding string `yaml:"encoding" validate:"oneof=pem plain"`
}

type StorageConfig struct {
	Provider string `yaml:"provider" validate:"oneof=s3 storj"`
	Bucket   string `yaml:"bucket,omitempty"`
	// Key prefix for published objects.
	Prefix string `yaml:"prefix,omitempty"`
	// Custom S3-compatible endpoint. Enables path-style addressing.
	Endpoint        string `yaml:"endpoint,omitempty"`
	Region          string `yaml:"region,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	// Serialized Storj access grant.
	StorjAccessGrant string `yaml:"storj_access_grant,omitempty"`
	// Multipart upload part size.
	PartSize int64 `yaml:"part_size" validate:"min=5242880"`
	// Workerpool size for parallel part uploads.
	UploadPoolSize int `yaml:"upload_pool_size" validate:"min=1"`
	// Max object uploads started per second.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gt=0"`
	// Upload manifests zstd-compressed.
	Compress bool `yaml:"compress"`
}

type Config struct {
	// Whether or not to print verbose output.
	Verbose  bool           `yaml:"verbose"`
	Document DocumentConfig `yaml:"document"`
	Signing  SigningConfig  `yaml:"signing"`
	Storage  StorageConfig  `yaml:"storage"`
	//
	// [Internal]
	//
	// Rate limiter for uploads to storage.
	RateLimiter *rate.Limiter `yaml:"-" validate:"-"`
}

// Singleton CLI config instance.
var I Config

// Returns path to the global config file.
// `DATADOC_CONFIG` overrides the default location.
func GetConfigPath() string {
	if p := os.Getenv(constants.ConfigPathEnvVar); p != "" {
		return p
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatal(err)
	}

	return filepath.Join(homeDir, constants.ConfigDirName, constants.ConfigFileName)
}

// Config written on first run.
func DefaultConfig() Config {
	return Config{
		Document: DocumentConfig{
			PoolSize: 4,
			Pattern:  "*" + constants.ShardExt,
		},
		Signing: SigningConfig{
			Encoding: SigningEncodingPEM,
		},
		Storage: StorageConfig{
			Provider:          StorageProviderS3,
			PartSize:          64 * 1024 * 1024, // 64 MB
			UploadPoolSize:    8,
			RequestsPerSecond: 10,
		},
	}
}

// Load config from path, creating it with defaults if it doesn't exist yet.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		// Create directories if they don't exist
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return Config{}, fmt.Errorf("create config dir: %w", err)
		}

		cYaml, err := yaml.Marshal(cfg)
		if err != nil {
			return Config{}, err
		}

		if err := os.WriteFile(path, cYaml, 0644); err != nil {
			return Config{}, fmt.Errorf("write default config: %w", err)
		}
	} else {
		cBytes, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}

		// Missing fields keep their defaults
		if err := yaml.Unmarshal(cBytes, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	SetInternalConfigFields(&cfg)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate a config.
func Validate(cfg Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Initialize the CLI config.
func InitConfig() Config {
	cfg, err := Load(GetConfigPath())
	if err != nil {
		log.Fatal(err)
	}

	I = cfg
	console.SetVerbose(I.Verbose)

	if I.Verbose {
		// Print config, without secrets
		redacted := I
		OmitSecrets(&redacted)
		cfgYaml, err := yaml.Marshal(redacted)
		if err != nil {
			log.Fatal(err)
		}

		console.Verbose("Config:")
		console.Verbose(string(cfgYaml))
	}

	return I
}

// Set internal config fields.
func SetInternalConfigFields(config *Config) {
	if os.Getenv(constants.VerboseEnvVar) == "1" {
		config.Verbose = true
	}

	rps := config.Storage.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultConfig().Storage.RequestsPerSecond
	}
	config.RateLimiter = rate.NewLimiter(rate.Limit(rps), 1)
}

// Blank out credentials before printing a config.
func OmitSecrets(config *Config) {
	if config.Storage.SecretAccessKey != "" {
		config.Storage.SecretAccessKey = "***"
	}
	if config.Storage.StorjAccessGrant != "" {
		config.Storage.StorjAccessGrant = "***"
	}
}
