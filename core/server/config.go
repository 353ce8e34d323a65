package server

// Config holds configuration for the HTTP server and the process role.
type Config struct {
	// Port is the port where the admin HTTP server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API. Empty disables the check.
	ApiKey string `mapstructure:"api_key" default:""`
	// Role selects which pipeline side this process runs (ingest, aggregate, all).
	Role string `mapstructure:"role" default:"all"`
}

const (
	RoleIngest    = "ingest"
	RoleAggregate = "aggregate"
	RoleAll       = "all"
)

// IsValidRole checks if the configured role is valid.
func (c Config) IsValidRole() bool {
	switch c.Role {
	case RoleIngest, RoleAggregate, RoleAll:
		return true
	default:
		return false
	}
}

// RunsIngest reports whether the storage-event side should start.
func (c Config) RunsIngest() bool {
	return c.Role == RoleIngest || c.Role == RoleAll
}

// RunsAggregate reports whether the aggregation and reconciliation side should start.
func (c Config) RunsAggregate() bool {
	return c.Role == RoleAggregate || c.Role == RoleAll
}
