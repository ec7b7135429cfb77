package config

type App struct {
	Port           string  `env:"APP_PORT" default:"8080"`
	DatabaseURL    string  `env:"DATABASE_URL,required"`
	JWTSecret      string  `env:"JWT_SECRET,required"`
	LateFeePerDay  float64 `env:"LATE_FEE_PER_DAY" default:"0.5"`
	AccrueInterval string  `env:"FEE_ACCRUE_INTERVAL" default:"1h"`
	Env            string  `env:"APP_ENV" default:"dev"`
}
