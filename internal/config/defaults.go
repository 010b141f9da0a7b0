package config

const (
	defaultDataDir  = "~/.local/share/storyboard"
	defaultBind     = "127.0.0.1:8080"
	defaultLogLevel = "info"
	defaultFormat   = "console"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			Bind:    defaultBind,
		},
		Logging: Logging{
			Format: defaultFormat,
			Level:  defaultLogLevel,
		},
	}
}
