package config

// App holds process-wide settings.
type App struct {
	Env         string `env:"APP_ENV" envDefault:"development"`
	Name        string `env:"APP_NAME" envDefault:"churchly"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	CatalogPath string `env:"CATALOG_PATH" envDefault:"config/catalog.yaml"`
}

// IsProduction reports whether APP_ENV is "production".
func (a App) IsProduction() bool {
	return a.Env == "production"
}
