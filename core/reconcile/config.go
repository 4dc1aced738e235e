package reconcile

import (
	"fmt"
	"time"
)

// Config holds the reconciliation settings.
type Config struct {
	// Identifier names the user field used to look users up in the target.
	Identifier string `mapstructure:"identifier" default:"sam_account_name"`
	// FieldMappings maps comparison keys to user fields, e.g. "mail=email".
	FieldMappings map[string]string `mapstructure:"field_mappings" default:"givenName=first_name,sn=last_name,mail=email"`
	// DryRun is the default mode of the sync command.
	DryRun bool `mapstructure:"dry_run" default:"true"`
	// Workers is the number of users reconciled concurrently (1 = sequential).
	Workers int `mapstructure:"workers" default:"1"`
	// IsolateFailures keeps a pass running when a single user fails to resolve or persist.
	IsolateFailures bool `mapstructure:"isolate_failures" default:"false"`
	// StrictMapping rejects mappings or identifiers naming unknown fields.
	StrictMapping bool `mapstructure:"strict_mapping" default:"false"`
	// ReportTTLSeconds is how long a dry-run report is reused by the HTTP trigger.
	ReportTTLSeconds int `mapstructure:"report_ttl_seconds" default:"0"`
}

// Options returns the engine options for this configuration.
func (c Config) Options() Options {
	return Options{Workers: c.Workers, IsolateFailures: c.IsolateFailures}
}

// ReportTTL returns ReportTTLSeconds as a duration.
func (c Config) ReportTTL() time.Duration {
	return time.Duration(c.ReportTTLSeconds) * time.Second
}

// Compile builds the field mapping and identifier selector. Unresolved mapping
// entries are returned for the caller to log; with StrictMapping they are an error,
// as is an unknown identifier.
func (c Config) Compile() (mapping *FieldMapping, selector Selector, unresolved []string, err error) {
	selector = NewSelector(c.Identifier)
	if c.StrictMapping {
		if !selector.Resolvable() {
			return nil, Selector{}, nil, fmt.Errorf("%w: unknown identifier field %q", ErrInvalidMapping, c.Identifier)
		}
		mapping, err = CompileMappingStrict(c.FieldMappings)
		if err != nil {
			return nil, Selector{}, nil, err
		}
		return mapping, selector, nil, nil
	}
	mapping, unresolved = CompileMapping(c.FieldMappings)
	return mapping, selector, unresolved, nil
}
