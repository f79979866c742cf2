package config

// Config represents the main reqtap configuration
type Config struct {
	// Request log (audit trail) settings
	RequestLog RequestLogConfig `json:"request_log" mapstructure:"request_log"`

	// Logging (application log, not the audit trail)
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// RequestLogConfig controls the request/response audit trail.
// An empty Dir disables audit logging entirely.
type RequestLogConfig struct {
	Dir string `json:"dir" mapstructure:"dir"`
}

// LoggingConfig holds application logger configuration
type LoggingConfig struct {
	Level   string `json:"level" mapstructure:"level"`     // debug, info, warn, error
	File    string `json:"file" mapstructure:"file"`       // log file path
	Console bool   `json:"console" mapstructure:"console"` // enable console output
	Pretty  bool   `json:"pretty" mapstructure:"pretty"`   // pretty format for console
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Pretty:  true,
		},
	}
}
