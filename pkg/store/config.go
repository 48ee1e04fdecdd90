package store

import (
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"tableflip.dev/teamviz/pkg/config"
)

// Config locates the store on disk.
type Config interface {
	BasePath() string
}

// LoadConfig reads the store path from the shared configuration.
func LoadConfig() (Config, error) {
	if err := config.Read(); err != nil {
		return nil, err
	}
	path, err := homedir.Expand(viper.GetString("store.path"))
	if err != nil {
		return nil, err
	}
	return &fileConfig{Path: path}, nil
}

// NewConfig returns a Config for a fixed path.
func NewConfig(path string) Config {
	return &fileConfig{Path: path}
}

type fileConfig struct {
	Path string `json:"path"`
}

func (f *fileConfig) BasePath() string {
	return f.Path
}
