package xmtpcore

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/opd-ai/xmtpcore/content"
	"github.com/opd-ai/xmtpcore/interfaces"
	"github.com/opd-ai/xmtpcore/limits"
)

var (
	// ErrInvalidEnvironment is returned for an environment name the engine
	// does not know.
	ErrInvalidEnvironment = errors.New("invalid environment")

	// ErrInvalidEncryptionKey is returned when the database key is not
	// exactly 32 bytes.
	ErrInvalidEncryptionKey = errors.New("database encryption key must be 32 bytes")
)

// DBEncryptionKeySize is the required length of Options.DBEncryptionKey.
const DBEncryptionKeySize = 32

// Options contains configuration for a Registry and the clients it creates.
type Options struct {
	Environment     string
	AppVersion      string
	DBPath          string
	DBEncryptionKey []byte
	EnableAlphaMLS  bool

	// Compression is "none", "deflate" or "gzip"
	Compression          string
	CompressionThreshold int

	// OutboxPath enables the persistent outbox when set
	OutboxPath string

	// AttachmentDir receives encrypted and decrypted attachment files; empty
	// means the system temp directory
	AttachmentDir string

	UseSimulation bool
	LogLevel      string
}

// NewOptions creates Options with default values.
func NewOptions() *Options {
	return &Options{
		Environment:          interfaces.EnvironmentDev,
		Compression:          "none",
		CompressionThreshold: limits.DefaultCompressionThreshold,
		LogLevel:             "info",
	}
}

// fileOptions is the YAML shape of Options. The database key is hex.
type fileOptions struct {
	Environment          *string `yaml:"environment"`
	AppVersion           *string `yaml:"app_version"`
	DBPath               *string `yaml:"db_path"`
	DBEncryptionKey      *string `yaml:"db_encryption_key"`
	EnableAlphaMLS       *bool   `yaml:"enable_alpha_mls"`
	Compression          *string `yaml:"compression"`
	CompressionThreshold *int    `yaml:"compression_threshold"`
	OutboxPath           *string `yaml:"outbox_path"`
	AttachmentDir        *string `yaml:"attachment_dir"`
	UseSimulation        *bool   `yaml:"use_simulation"`
	LogLevel             *string `yaml:"log_level"`
}

// LoadOptions reads a YAML file over the defaults, then applies XMTPCORE_*
// environment overrides. Fields missing from the file keep their defaults.
func LoadOptions(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read options file: %w", err)
	}

	var file fileOptions
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse options file %s: %w", path, err)
	}

	options := NewOptions()
	if err := file.apply(options); err != nil {
		return nil, fmt.Errorf("options file %s: %w", path, err)
	}
	applyEnvironmentOverrides(options)

	logrus.WithFields(logrus.Fields{
		"function":    "LoadOptions",
		"path":        path,
		"environment": options.Environment,
		"compression": options.Compression,
		"outbox":      options.OutboxPath != "",
	}).Info("Loaded options")

	return options, nil
}

func (f *fileOptions) apply(o *Options) error {
	setString(&o.Environment, f.Environment)
	setString(&o.AppVersion, f.AppVersion)
	setString(&o.DBPath, f.DBPath)
	setString(&o.Compression, f.Compression)
	setString(&o.OutboxPath, f.OutboxPath)
	setString(&o.AttachmentDir, f.AttachmentDir)
	setString(&o.LogLevel, f.LogLevel)
	if f.EnableAlphaMLS != nil {
		o.EnableAlphaMLS = *f.EnableAlphaMLS
	}
	if f.UseSimulation != nil {
		o.UseSimulation = *f.UseSimulation
	}
	if f.CompressionThreshold != nil {
		o.CompressionThreshold = *f.CompressionThreshold
	}
	if f.DBEncryptionKey != nil {
		key, err := hex.DecodeString(strings.TrimPrefix(*f.DBEncryptionKey, "0x"))
		if err != nil {
			return fmt.Errorf("db_encryption_key: %w", err)
		}
		o.DBEncryptionKey = key
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// applyEnvironmentOverrides updates options from XMTPCORE_* environment
// variables. Values are validated later by Validate.
func applyEnvironmentOverrides(o *Options) {
	overrides := []struct {
		env string
		dst *string
	}{
		{"XMTPCORE_ENV", &o.Environment},
		{"XMTPCORE_APP_VERSION", &o.AppVersion},
		{"XMTPCORE_DB_PATH", &o.DBPath},
		{"XMTPCORE_COMPRESSION", &o.Compression},
		{"XMTPCORE_OUTBOX_PATH", &o.OutboxPath},
		{"XMTPCORE_LOG_LEVEL", &o.LogLevel},
	}
	for _, ov := range overrides {
		if value := os.Getenv(ov.env); value != "" {
			logrus.WithFields(logrus.Fields{
				"function": "applyEnvironmentOverrides",
				"env_var":  ov.env,
			}).Debug("Applying environment override")
			*ov.dst = value
		}
	}
}

// Validate checks the environment name, the database key, the compression
// name and the log level.
func (o *Options) Validate() error {
	switch o.Environment {
	case interfaces.EnvironmentLocal, interfaces.EnvironmentDev, interfaces.EnvironmentProduction:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidEnvironment, o.Environment)
	}
	if o.DBEncryptionKey != nil && len(o.DBEncryptionKey) != DBEncryptionKeySize {
		return fmt.Errorf("%w: got %d", ErrInvalidEncryptionKey, len(o.DBEncryptionKey))
	}
	if _, err := content.ParseCompression(o.Compression); err != nil {
		return err
	}
	if o.CompressionThreshold < 0 {
		return fmt.Errorf("compression threshold cannot be negative")
	}
	if _, err := o.logLevel(); err != nil {
		return err
	}
	return nil
}

func (o *Options) logLevel() (logrus.Level, error) {
	if o.LogLevel == "" {
		return logrus.InfoLevel, nil
	}
	level, err := logrus.ParseLevel(o.LogLevel)
	if err != nil {
		return 0, fmt.Errorf("invalid log level: %w", err)
	}
	return level, nil
}

// authOptions shapes the identity call arguments. A key is only sent when
// one is configured.
func (o *Options) authOptions() interfaces.AuthOptions {
	return interfaces.AuthOptions{
		Environment:     o.Environment,
		AppVersion:      o.AppVersion,
		EnableAlphaMLS:  o.EnableAlphaMLS,
		DBEncryptionKey: append([]byte(nil), o.DBEncryptionKey...),
		DBPath:          o.DBPath,
	}
}

// pipeline builds the content pipeline the options describe.
func (o *Options) pipeline(registry *content.Registry) (*content.Pipeline, error) {
	compression, err := content.ParseCompression(o.Compression)
	if err != nil {
		return nil, err
	}
	if compression == nil {
		return content.NewPipeline(registry), nil
	}
	return content.NewPipeline(registry, content.WithCompression(*compression, o.CompressionThreshold)), nil
}
