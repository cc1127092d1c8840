package config

type Config interface {
	EnvConfig
	AuthConfig
	StoreConfig
	SessionConfig
}

type mainConfig struct {
	EnvVars
	Auth
	Store
	Session
}

func New() Config {
	return mainConfig{}
}
