package config

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL           string
	MaxOpenConns  int
	MaxIdleConns  int
	RunMigrations bool
}

// GetConnectionString returns the PostgreSQL connection string
func (c *DatabaseConfig) GetConnectionString() string {
	return c.URL
}
