package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrNilPointer    = errors.New("config.errors.nil_pointer")
	ErrParsingConfig = errors.New("config.errors.parsing_config")
)

var (
	mu     sync.Mutex
	cache  = make(map[string]any)
	dotenv sync.Once
)

// Load parses environment variables into v. The first call for a given
// struct type does the actual parse; later calls return the cached
// value, so every package sees the same configuration regardless of
// when the environment changes underneath the process.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	dotenv.Do(func() {
		// The .env file is a local development convenience; missing is fine.
		_ = godotenv.Load()
	})

	key := typeName[T]()

	mu.Lock()
	defer mu.Unlock()

	if cached, ok := cache[key]; ok {
		*v = cached.(T)
		return nil
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	// Store a copy so callers mutating their struct do not poison the cache.
	cache[key] = *v
	return nil
}

// MustLoad works like Load but panics on failure. Used at startup for
// configuration the process cannot run without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: failed to load %s: %v", typeName[T](), err))
	}
}

func typeName[T any]() string {
	var zero T
	if t := reflect.TypeOf(zero); t != nil {
		return t.String()
	}
	return fmt.Sprintf("%T", *new(T))
}
