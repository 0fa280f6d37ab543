package cli

import "github.com/kelseyhightower/envconfig"

// Config holds environment-variable defaults for flags, under the VEXPRESS_
// prefix: VEXPRESS_ENGINE, VEXPRESS_VERBOSE, VEXPRESS_SANDBOX. Flags given
// on the command line win.
type Config struct {
	Engine  string `envconfig:"ENGINE" default:"lua"`
	Verbose bool   `envconfig:"VERBOSE"`
	Sandbox bool   `envconfig:"SANDBOX"`
}

// LoadConfig reads the environment defaults.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("vexpress", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
