// Package config loads the client configuration from command-line flags,
// environment variables and an optional JSON config file.
// Priority: flags > environment > JSON file > defaults.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all runtime settings of the studytrack client.
type Config struct {
	// APIBaseURL is the base URL of the study-tracking backend.
	APIBaseURL string `env:"API_BASE_URL" json:"api_base_url" validate:"url"`

	// SessionFileName is the path of the JSON file mirroring the session
	// across process restarts.
	SessionFileName string `env:"SESSION_FILE_PATH" json:"session_file_path" validate:"filepath"`

	// LogLevel is the zap logging level.
	LogLevel string `env:"LOG_LEVEL" json:"log_level" validate:"loglevel"`

	// RequestTimeout bounds every HTTP call to the backend.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" json:"request_timeout"`

	// Args holds the positional arguments left after global flag parsing,
	// meaning the subcommand and its own flags.
	Args []string `env:"-" json:"-"`
}

var defaultConfig = Config{
	APIBaseURL:      "http://localhost:8080",
	SessionFileName: "session.json",
	LogLevel:        "info",
	RequestTimeout:  10 * time.Second,
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug":   true,
		"info":    true,
		"warning": true,
		"error":   true,
		"fatal":   true,
	}

	return allowedLogLevels[value]
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}

// InitOption customizes the behavior of New.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing disables command-line flag parsing, which is
// necessary in tests where the flag set is already consumed.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

func applyDefaults(values *Config, defaults Config) {
	*values = defaults
}

func applyJSONFile(values *Config, fileName string) error {
	if fileName == "" {
		fileName = os.Getenv("CONFIG")
	}
	if fileName == "" {
		return nil
	}

	data, err := os.ReadFile(fileName)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, values)
}

func applyEnv(values *Config) error {
	valuesFromEnv := Config{}
	err := env.Parse(&valuesFromEnv)
	if err != nil {
		return err
	}

	if valuesFromEnv.APIBaseURL != "" {
		values.APIBaseURL = valuesFromEnv.APIBaseURL
	}

	if valuesFromEnv.SessionFileName != "" {
		values.SessionFileName = valuesFromEnv.SessionFileName
	}

	if valuesFromEnv.LogLevel != "" {
		values.LogLevel = valuesFromEnv.LogLevel
	}

	if valuesFromEnv.RequestTimeout != 0 {
		values.RequestTimeout = valuesFromEnv.RequestTimeout
	}

	return nil
}

// New builds the configuration from all sources and validates it.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	flagsValues := Config{}
	configFileName := ""
	if !options.disableFlagsParsing {
		flags := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
		flags.StringVar(&flagsValues.APIBaseURL, "b", "", "base URL of the study-tracking backend")
		flags.StringVar(&flagsValues.SessionFileName, "f", "", "JSON file name with the persisted session")
		flags.StringVar(&flagsValues.LogLevel, "l", "", "logger level")
		flags.DurationVar(&flagsValues.RequestTimeout, "t", 0, "HTTP request timeout")
		flags.StringVar(&configFileName, "c", "", "JSON config file name")
		err = flags.Parse(os.Args[1:])
		if err != nil {
			return nil, err
		}
		values.Args = flags.Args()
	}

	err = applyJSONFile(values, configFileName)
	if err != nil {
		return nil, err
	}

	err = applyEnv(values)
	if err != nil {
		return nil, err
	}

	if flagsValues.APIBaseURL != "" {
		values.APIBaseURL = flagsValues.APIBaseURL
	}

	if flagsValues.SessionFileName != "" {
		values.SessionFileName = flagsValues.SessionFileName
	}

	if flagsValues.LogLevel != "" {
		values.LogLevel = flagsValues.LogLevel
	}

	if flagsValues.RequestTimeout != 0 {
		values.RequestTimeout = flagsValues.RequestTimeout
	}

	return values, values.validate()
}
