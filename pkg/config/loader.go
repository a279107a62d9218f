package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type entry struct {
	once  sync.Once
	value any
	err   error
}

var (
	cache   sync.Map // reflect.Type -> *entry
	dotenv  sync.Once
	envFile = ".env"
)

// Load fills v from the process environment. Each config type is parsed once
// per process and later calls receive a copy of the cached value, including a
// cached failure. A .env file in the working directory is applied first when
// present; variables already set in the environment win.
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	dotenv.Do(func() { _ = godotenv.Load(envFile) })

	key := reflect.TypeFor[T]()
	e, _ := cache.LoadOrStore(key, &entry{})
	ent := e.(*entry)
	ent.once.Do(func() {
		var parsed T
		if err := env.Parse(&parsed); err != nil {
			ent.err = errors.Join(ErrParsingConfig, err)
			return
		}
		ent.value = parsed
	})

	if ent.err != nil {
		return ent.err
	}
	*v = ent.value.(T)
	return nil
}

// MustLoad is Load that panics on failure. Use it for configuration the
// process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: failed to load %s: %v", reflect.TypeFor[T](), err))
	}
}

// Parse reads T from environ without touching the process environment or the
// cache. Useful for tests and for loading a second copy with a prefix.
func Parse[T any](environ map[string]string, prefix string) (T, error) {
	var v T
	opts := env.Options{Environment: environ, Prefix: prefix}
	if err := env.ParseWithOptions(&v, opts); err != nil {
		return v, errors.Join(ErrParsingConfig, err)
	}
	return v, nil
}
