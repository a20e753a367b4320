package store

import (
	"fmt"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config carries everything needed to open the persisted store and reach the
// language-model backend.
type Config interface {
	BasePath() string
	BackendURL() string
	BackendAPIKey() string
	BackendModel() string
	RetryAttempts() int
}

// LoadConfig reads .haven.yaml from the working directory, falling back to
// HAVEN_* environment variables and defaults.
func LoadConfig() (Config, error) {
	v := viper.New()
	v.SetDefault("path", "~/.haven.db")
	v.SetDefault("backend.url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("backend.model", "gemini-2.5-flash")
	v.SetDefault("retry.attempts", 3)
	v.SetConfigName(".haven") // .yaml is implicit
	v.SetEnvPrefix("HAVEN")
	v.AutomaticEnv()
	v.AddConfigPath("./")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("store: read config: %w", err)
		}
	}

	path, err := homedir.Expand(v.GetString("path"))
	if err != nil {
		return nil, fmt.Errorf("store: expand base path: %w", err)
	}

	return &fileConfig{
		path:     path,
		url:      v.GetString("backend.url"),
		apiKey:   v.GetString("backend.api_key"),
		model:    v.GetString("backend.model"),
		attempts: v.GetInt("retry.attempts"),
	}, nil
}

type fileConfig struct {
	path     string
	url      string
	apiKey   string
	model    string
	attempts int
}

func (f *fileConfig) BasePath() string      { return f.path }
func (f *fileConfig) BackendURL() string    { return f.url }
func (f *fileConfig) BackendAPIKey() string { return f.apiKey }
func (f *fileConfig) BackendModel() string  { return f.model }
func (f *fileConfig) RetryAttempts() int    { return f.attempts }
