package oracle

// Config contains HTTP price oracle settings.
type Config struct {
	BaseURL string `env:"ORACLE_BASE_URL"`
	APIKey  string `env:"ORACLE_API_KEY"`
	Timeout int    `env:"ORACLE_TIMEOUT"  envDefault:"10"` // seconds
}
