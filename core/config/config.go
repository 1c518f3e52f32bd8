package config

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	loadDotenvOnce sync.Once

	// cache holds one parsed value per configuration type.
	cache sync.Map // reflect.Type -> any
)

// Load populates cfg from environment variables using its env tags. The
// first call of any Load loads .env files into the process environment; a
// missing .env file is not an error. Each configuration type is parsed once
// and cached, so repeated loads of the same type see identical values.
func Load(cfg any) error {
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("config: Load expects a non-nil pointer, got %T", cfg)
	}

	loadDotenvOnce.Do(func() {
		_ = godotenv.Load()
	})

	t := v.Elem().Type()
	if cached, ok := cache.Load(t); ok {
		v.Elem().Set(reflect.ValueOf(cached))
		return nil
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("config: failed to parse %s: %w", t, err)
	}

	// First writer wins so concurrent loads of one type stay consistent.
	actual, _ := cache.LoadOrStore(t, v.Elem().Interface())
	v.Elem().Set(reflect.ValueOf(actual))
	return nil
}

// MustLoad is Load but panics on failure. Intended for application startup.
func MustLoad(cfg any) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}
