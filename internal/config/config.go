// Package config loads the server's optional TOML configuration file,
// mirroring the teacher's BurntSushi/toml-based schema parser
// (internal/parser/toml) but for a tiny, flat server config rather than a
// database schema. Flags set on cmd/bongod always override a value loaded
// from file, matching the teacher's own flags-over-file layering.
package config

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/bongodb/bongo/internal/bongoerr"
)

// Config is the server's full configuration, whether it came from a TOML
// file, flags, or the defaults below.
type Config struct {
	Root      string `toml:"root"`
	Addr      string `toml:"addr"`
	CreateDB  bool   `toml:"create_db"`
	AutoFlush bool   `toml:"auto_flush"`
}

// Default returns the configuration used when no file and no flags
// override anything.
func Default() Config {
	return Config{
		Root:      "./bongo-data",
		Addr:      "127.0.0.1:7500",
		CreateDB:  false,
		AutoFlush: false,
	}
}

// Load reads a TOML config file at path on top of Default(). A missing
// file is not an error: the caller gets the defaults back.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, bongoerr.ReadFile("parsing config file %s: %s", path, err)
	}
	return cfg, nil
}
