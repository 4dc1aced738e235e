package audit

// Config holds configuration for archiving pass reports.
type Config struct {
	// Enabled turns on uploading of every pass report to object storage.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// Prefix is the object key prefix under which reports are written.
	Prefix string `mapstructure:"prefix" default:"audit/sync"`
}
