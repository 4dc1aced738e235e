package server

import "time"

// Config holds configuration for the HTTP server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API.
	ApiKey string `mapstructure:"api_key" default:""`
	// ReadTimeoutSeconds bounds reading a request.
	ReadTimeoutSeconds int `mapstructure:"read_timeout_seconds" default:"15"`
	// WriteTimeoutSeconds bounds writing a response. A sync pass runs inside the
	// request, so this must cover the longest expected pass.
	WriteTimeoutSeconds int `mapstructure:"write_timeout_seconds" default:"300"`
}

// Address returns the listen address for Port.
func (c Config) Address() string {
	return ":" + c.Port
}

// ReadTimeout returns ReadTimeoutSeconds as a duration.
func (c Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns WriteTimeoutSeconds as a duration.
func (c Config) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

// AuthEnabled reports whether requests must carry the API key.
func (c Config) AuthEnabled() bool {
	return c.ApiKey != ""
}
