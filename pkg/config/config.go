// Package config locates and reads the shared teamviz configuration file.
package config

import (
	"os"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, e.g. TEAMVIZ_STORE_PATH.
	EnvPrefix = "TEAMVIZ"

	// PathEnv names an extra directory searched for .teamviz.yaml.
	PathEnv = "TEAMVIZ_CONFIG_PATH"
)

var (
	once    sync.Once
	readErr error
)

// Read loads .teamviz.yaml once per process. A missing file is not an error.
func Read() error {
	once.Do(func() {
		readErr = read(viper.GetViper())
	})
	return readErr
}

func read(v *viper.Viper) error {
	v.SetDefault("store.path", "~/.teamviz.db")
	v.SetDefault("serve.addr", "127.0.0.1:8087")
	v.SetConfigName(".teamviz") // .yaml is implicit
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if override := os.Getenv(PathEnv); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")
	v.AddConfigPath("$HOME")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}
	return nil
}
