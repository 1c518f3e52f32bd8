// Package config provides type-safe environment variable loading with
// per-type caching. It loads .env files into the process environment on
// first use and parses env tags via the caarlos0/env library.
//
//	type ServerConfig struct {
//		Addr     string        `env:"SERVER_ADDR" envDefault:":8080"`
//		Shutdown time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
//	}
//
//	var cfg ServerConfig
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
// Each configuration type is parsed once per process; later loads of the
// same type return the cached value.
package config
