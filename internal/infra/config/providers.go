package config

// ProviderConfig is the static per-provider surface: which model serves
// each tier and which environment variables hold fallback keys. Map keys
// are tier names.
type ProviderConfig struct {
	Models         map[string]string `mapstructure:"models" validate:"required,dive,keys,tier,endkeys,required"`
	EnvCredentials map[string]string `mapstructure:"env_credentials" validate:"omitempty,dive,keys,tier,endkeys,required"`
}
