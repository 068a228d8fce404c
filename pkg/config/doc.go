// Package config loads typed configuration structs from environment
// variables, with an optional .env file for local development.
//
// Each struct type is parsed once per process and cached, so packages
// can call Load for their own config without coordinating:
//
//	type Config struct {
//		Port int `env:"PORT" envDefault:"8080"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//		...
//	}
package config
