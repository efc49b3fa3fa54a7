package database

// Driver names accepted by Connect.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds database connection settings.
// The sqlite driver uses Path; the postgres driver uses the host/port/user
// fields. Driver selection and validation happen at configuration time.
type Config struct {
	Driver string `yaml:"driver" envconfig:"DB_DRIVER"`

	// Path locates the sqlite store file (must carry a store-file suffix).
	Path string `yaml:"path" envconfig:"DB_NAME"`

	Host     string `yaml:"host" envconfig:"DB_HOST"`
	Port     string `yaml:"port" envconfig:"DB_PORT"`
	User     string `yaml:"user" envconfig:"DB_USER"`
	Password string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name     string `yaml:"name" envconfig:"DB_DATABASE"`
	SSLMode  string `yaml:"sslmode" envconfig:"DB_SSLMODE"`

	MaxConnections int `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}
