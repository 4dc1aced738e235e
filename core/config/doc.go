// Package config provides configuration management for directory-sync.
//
// It utilizes Viper for loading configuration from a .env file, an optional
// config.yaml and environment variables. Defaults come from the `default`
// struct tags of each partial configuration.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP trigger settings (port, API key)
//   - Log: Logging level and format
//   - Storage: S3/MinIO credentials and bucket settings
//   - Source: HR database connection and user table layout
//   - Target: directory backend (database or storage) and its location
//   - Sync: identifier, field mappings, dry run default and worker count
//   - Audit: report archiving
//
// Map settings such as sync.field_mappings are written as comma separated
// key=value pairs, e.g. SYNC_FIELD_MAPPINGS="givenName=first_name,mail=email".
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Sync.Identifier)
package config
