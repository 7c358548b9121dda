package types

// AppConfig represents the complete application configuration
type AppConfig struct {
	Verbose   bool            `mapstructure:"verbose"`
	Config    string          `mapstructure:"config"`
	Project   ProjectConfig   `mapstructure:"project" validate:"required"`
	Data      DataConfig      `mapstructure:"data" validate:"required"`
	Backend   BackendConfig   `mapstructure:"backend" validate:"required"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ProjectConfig holds project-related settings
type ProjectConfig struct {
	RootDir string `mapstructure:"rootDir" validate:"required"`
	DataDir string `mapstructure:"dataDir" validate:"required"`
	// Owner is the default owner id attached to new frames and conversations.
	Owner string `mapstructure:"owner"`
	// ProjectID optionally scopes frames and conversations to a project.
	ProjectID string `mapstructure:"projectId"`
}

// DataConfig holds local snapshot storage configuration
type DataConfig struct {
	File   string `mapstructure:"file" validate:"required"`
	Format string `mapstructure:"format" validate:"required,oneof=json yaml toml"`
}

// BackendConfig holds the connection settings for the Framer backend, which
// hosts both the frame record store and the conversation coach.
type BackendConfig struct {
	BaseURL string `mapstructure:"baseUrl" validate:"required,url"`
	APIKey  string `mapstructure:"apiKey"`
	// Language is forwarded on message calls so the coach answers in the
	// caller's language. Empty means backend default.
	Language string `mapstructure:"language"`
	// RequestTimeoutSeconds controls the HTTP client timeout for backend calls
	RequestTimeoutSeconds int  `mapstructure:"requestTimeoutSeconds" validate:"omitempty,min=5,max=600"`
	Debug                 bool `mapstructure:"debug"`
}

// TelemetryConfig holds anonymous usage telemetry settings.
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	APIKey      string `mapstructure:"apiKey"`
	Endpoint    string `mapstructure:"endpoint"`
	AnonymousID string `mapstructure:"anonymousId"`
}
