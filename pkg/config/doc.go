// Package config loads environment driven configuration structs.
//
// Structs declare their variables with caarlos0/env tags:
//
//	type Config struct {
//		Addr string `env:"HTTP_ADDR" envDefault:":8080"`
//	}
//
// Load parses a type once per process and caches it; Parse reads from an
// explicit map and is meant for tests.
package config
