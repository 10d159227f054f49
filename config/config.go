package config

type AppConfig struct {
	APIPort string `env:"PORT" envDefault:"11000"`
	APIKey  string `env:"API_KEY,required"`
}

type DatabaseConfig struct {
	Host            string `env:"POSTGRES_HOST,required"`
	Port            string `env:"POSTGRES_PORT,required"`
	User            string `env:"POSTGRES_USER,required"`
	DBName          string `env:"POSTGRES_DB_NAME,required"`
	Password        string `env:"POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"POSTGRES_DB_MAX_CONN"`
	MaxIdleConn     int    `env:"POSTGRES_DB_MAX_IDLE_CONN"`
	ConnMaxLifetime int    `env:"POSTGRES_DB_CONN_MAX_LIFETIME"`
	LogLevel        string `env:"POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
}

// StorageConfig selects where materialized attachment content lives.
// Backend is one of "local", "s3", "r2".
type StorageConfig struct {
	Backend   string `env:"STORAGE_BACKEND" envDefault:"local"`
	LocalPath string `env:"STORAGE_LOCAL_PATH" envDefault:"downloads"`

	AWSRegion          string `env:"AWS_REGION"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSAccessKeySecret string `env:"AWS_ACCESS_KEY_SECRET"`

	R2AccountID       string `env:"CLOUDFLARE_R2_ACCOUNT_ID"`
	R2AccessKeyID     string `env:"CLOUDFLARE_R2_ACCESS_KEY_ID"`
	R2AccessKeySecret string `env:"CLOUDFLARE_R2_ACCESS_KEY_SECRET"`

	AttachmentBucket string `env:"BUCKET_NAME_ATTACHMENT" envDefault:"attachments"`
}
