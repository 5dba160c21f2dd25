// Package config loads travelog settings from YAML and validates them
// against an embedded CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/travelog/internal/recordstore"
)

//go:embed schema.cue
var schemaCUE string

// Backend names accepted in Config.Backend.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config is the full set of settings. yaml tags name the file keys, json
// tags name the fields in the CUE schema.
type Config struct {
	Backend   string `yaml:"backend" json:"backend"`
	Key       string `yaml:"key" json:"key"`
	OnCorrupt string `yaml:"on_corrupt" json:"on_corrupt"`
	Notify    bool   `yaml:"notify" json:"notify"`

	SQLite SQLiteConfig `yaml:"sqlite" json:"sqlite"`
	File   FileConfig   `yaml:"file" json:"file"`
	Redis  RedisConfig  `yaml:"redis" json:"redis"`
}

// SQLiteConfig configures the sqlite backend.
type SQLiteConfig struct {
	Path string `yaml:"path" json:"path"`
}

// FileConfig configures the file backend.
type FileConfig struct {
	Dir string `yaml:"dir" json:"dir"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	Prefix   string `yaml:"prefix" json:"prefix"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Backend:   BackendSQLite,
		Key:       recordstore.DefaultKey,
		OnCorrupt: recordstore.PolicyFail.String(),
		Notify:    true,
		SQLite:    SQLiteConfig{Path: "travelog.db"},
		File:      FileConfig{Dir: "travelog-data"},
		Redis:     RedisConfig{Addr: "localhost:6379"},
	}
}

// Load reads path over Default. Keys missing from the file keep their
// default. Unknown keys are rejected. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks c against the schema.
func (c Config) Validate() error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	value := def.Unify(ctx.Encode(c))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return err
	}
	return nil
}
