package project

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/psilLang/vmtranslator/pkg/translator"
	"gopkg.in/yaml.v3"
)

// ConfigFile is the optional project file of a program directory.
const ConfigFile = "vmproject.yaml"

// Config holds project settings. Zero values mean "use the default".
type Config struct {
	Entry     string   `yaml:"entry"`
	Modules   []string `yaml:"modules"`
	Bootstrap string   `yaml:"bootstrap"`
	StackBase int      `yaml:"stackBase"`
	Annotate  *bool    `yaml:"annotate"`
}

// LoadConfig reads dir/vmproject.yaml. A missing file is not an error.
func LoadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig decodes a project file, rejecting unknown keys.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", ConfigFile, err)
	}
	if _, err := translator.ParseBootstrapMode(cfg.Bootstrap); err != nil {
		return nil, fmt.Errorf("%s: %w", ConfigFile, err)
	}
	if cfg.StackBase < 0 || cfg.StackBase > 0x7FFF {
		return nil, fmt.Errorf("%s: stackBase %d out of range", ConfigFile, cfg.StackBase)
	}
	return &cfg, nil
}

// Options converts the config into translator options.
func (c *Config) Options() []translator.Option {
	var opts []translator.Option
	if c.Entry != "" {
		opts = append(opts, translator.WithEntry(c.Entry))
	}
	if mode, err := translator.ParseBootstrapMode(c.Bootstrap); err == nil && c.Bootstrap != "" {
		opts = append(opts, translator.WithBootstrap(mode))
	}
	if c.StackBase != 0 {
		opts = append(opts, translator.WithStackBase(c.StackBase))
	}
	if c.Annotate != nil {
		opts = append(opts, translator.WithAnnotations(*c.Annotate))
	}
	return opts
}
