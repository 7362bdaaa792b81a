package datasource

// ConnectionConfig is the dialect-neutral description of the datasource and
// its pool. Each adapter translates it into its own Config.
type ConnectionConfig struct {
	Host     string
	Port     int // 0 selects the dialect default
	Database string
	Username string
	Password string

	Encrypt                bool
	TrustServerCertificate bool
	SSLMode                string
	ConnectionTimeout      int // seconds

	MaxOpenConns int
	MinIdleConns int
}
