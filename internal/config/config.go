// Package config loads settings for the ema-live demo from flags, EMA_LIVE_*
// environment variables, .env files and an optional ema-live.yaml.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/koscakluka/ema-live/core/credentials"
	"github.com/koscakluka/ema-live/core/transport/websocket"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix      = "EMA_LIVE"
	configName     = "ema-live"
	DefaultModel   = "gemini-2.0-flash-live-001"
	DefaultVoice   = "Puck"
	DefaultBackend = BackendMiniaudio
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Backend string

const (
	BackendMiniaudio Backend = "miniaudio"
	// BackendPortaudio captures through PortAudio and plays through
	// miniaudio.
	BackendPortaudio Backend = "portaudio"
)

type Config struct {
	Endpoint           string        `mapstructure:"endpoint"`
	CredentialVariable string        `mapstructure:"credential_variable"`
	HandshakeTimeout   time.Duration `mapstructure:"handshake_timeout"`

	Model             string `mapstructure:"model"`
	Voice             string `mapstructure:"voice"`
	SystemInstruction string `mapstructure:"system_instruction"`
	EndSessionTool    bool   `mapstructure:"end_session_tool"`

	Backend          Backend       `mapstructure:"backend"`
	SilenceThreshold float64       `mapstructure:"silence_threshold"`
	SilenceTimeout   time.Duration `mapstructure:"silence_timeout"`
}

func (c Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendMiniaudio, BackendPortaudio:
	default:
		errs = append(errs, fmt.Errorf("unknown audio backend %q", c.Backend))
	}
	if c.Model == "" {
		errs = append(errs, errors.New("model is required"))
	}
	if c.SilenceThreshold <= 0 || c.SilenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("silence threshold %v is outside (0, 1]", c.SilenceThreshold))
	}
	if c.SilenceTimeout <= 0 {
		errs = append(errs, errors.New("silence timeout must be positive"))
	}
	if c.HandshakeTimeout <= 0 {
		errs = append(errs, errors.New("handshake timeout must be positive"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// flagBindings maps command line flags to configuration keys.
var flagBindings = map[string]string{
	"endpoint":          "endpoint",
	"model":             "model",
	"voice":             "voice",
	"instruction":       "system_instruction",
	"backend":           "backend",
	"silence-threshold": "silence_threshold",
	"silence-timeout":   "silence_timeout",
	"end-session-tool":  "end_session_tool",
}

// Load resolves the configuration. Flags win over environment variables,
// which win over the config file, which wins over defaults. Variables from
// .env files never override ones already set in the environment.
func Load(args []string, output io.Writer) (*Config, error) {
	flags := pflag.NewFlagSet(configName, pflag.ContinueOnError)
	flags.SetOutput(output)
	configFile := flags.StringP("config", "c", "", "path to the config file (default ./ema-live.yaml)")
	envFiles := flags.StringSlice("env-file", []string{".env"}, ".env files to load")
	flags.String("endpoint", websocket.DefaultEndpoint, "websocket endpoint of the live API")
	flags.StringP("model", "m", DefaultModel, "model to talk to")
	flags.String("voice", DefaultVoice, "prebuilt voice for the assistant")
	flags.String("instruction", "", "system instruction for the assistant")
	flags.String("backend", string(DefaultBackend), "audio backend: miniaudio or portaudio")
	flags.Float64("silence-threshold", 0.01, "peak amplitude above which the user counts as speaking")
	flags.Duration("silence-timeout", 2500*time.Millisecond, "silence after which the user stops counting as speaking")
	flags.Bool("end-session-tool", true, "let the assistant end the call")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if err := loadEnvFiles(*envFiles); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	if *configFile != "" {
		v.SetConfigFile(*configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for flagName, key := range flagBindings {
		if err := v.BindPFlag(key, flags.Lookup(flagName)); err != nil {
			return nil, fmt.Errorf("failed to bind flag %q: %w", flagName, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("endpoint", websocket.DefaultEndpoint)
	v.SetDefault("credential_variable", credentials.DefaultVariable)
	v.SetDefault("handshake_timeout", websocket.DefaultHandshakeTimeout)
	v.SetDefault("model", DefaultModel)
	v.SetDefault("voice", DefaultVoice)
	v.SetDefault("system_instruction", "")
	v.SetDefault("end_session_tool", true)
	v.SetDefault("backend", string(DefaultBackend))
	v.SetDefault("silence_threshold", 0.01)
	v.SetDefault("silence_timeout", 2500*time.Millisecond)
}

func loadEnvFiles(paths []string) error {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}
