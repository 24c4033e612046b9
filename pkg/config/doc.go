// Package config loads typed configuration from environment variables with
// caarlos0/env, reading a .env file through godotenv when one exists.
//
//	var app config.App
//	if err := config.Load(&app); err != nil {
//		return err
//	}
//
// Every component declares its own struct with env tags (pg.Config,
// redis.Config, tenant.Config and so on). Load caches one value per type so
// repeated calls are cheap and consistent.
package config
