package source

import (
	"errors"
	"fmt"
	"os"

	"github.com/YuCat-OVO/DApi/common"
	sreCommon "github.com/devopsext/sre/common"
	"github.com/devopsext/utils"
	"gopkg.in/yaml.v2"
)

type ConfigEndpoint struct {
	URL      string `yaml:"url"`
	Disabled bool   `yaml:"disabled"`
}

type ConfigFile struct {
	Endpoints []*ConfigEndpoint `yaml:"endpoints"`
}

type ConfigOptions struct {
	Path  string
	Rules *common.EndpointRules
}

// Config loads seed endpoints from a YAML document, either a file path or
// inline content.
type Config struct {
	options *ConfigOptions
	logger  sreCommon.Logger
}

const SourceConfigName = "Config"

// Config

func (cs *Config) Name() string {
	return SourceConfigName
}

func (cs *Config) loadYaml(file string) (*ConfigFile, error) {

	if utils.IsEmpty(file) {
		return nil, nil
	}

	raw := ""

	if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
		raw = file
	} else {
		r, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		raw = string(r)
	}

	if utils.IsEmpty(raw) {
		return nil, nil
	}

	config := &ConfigFile{}

	err := yaml.Unmarshal([]byte(raw), config)
	if err != nil {
		return nil, err
	}
	return config, nil
}

func (cs *Config) Load() (*common.SourceResult, error) {

	config, err := cs.loadYaml(cs.options.Path)
	if err != nil {
		return nil, fmt.Errorf("Config cannot read from file %s, error: %s", cs.options.Path, err)
	}

	r := &common.SourceResult{
		Source: cs,
	}

	if config == nil {
		return r, nil
	}

	for _, ce := range config.Endpoints {

		if ce == nil || ce.Disabled {
			continue
		}

		e, err := common.ParseEndpoint(ce.URL, cs.options.Rules)
		if err != nil {
			cs.logger.Warn("Config skipped endpoint %s: %s", ce.URL, err)
			continue
		}
		r.Endpoints.Add(e)
	}

	cs.logger.Debug("Config loaded %d endpoints from %s", r.Endpoints.Len(), cs.options.Path)
	return r, nil
}

func NewConfig(options *ConfigOptions, observability *common.Observability) *Config {

	logger := observability.Logs()
	if utils.IsEmpty(options.Path) {
		logger.Debug("Config path is not defined. Skipped.")
		return nil
	}

	return &Config{
		options: options,
		logger:  logger,
	}
}
