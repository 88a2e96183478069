/*
 * Copyright (c) 2024, The Graphbolt Authors. All rights reserved.
 */
package shell

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const dfltConfigFile = "~/.gbolt/config.yml"

// fileConfig is the optional shell configuration file; flags override it.
type fileConfig struct {
	Output   string `yaml:"output,omitempty"`
	Width    string `yaml:"width,omitempty"`
	Histfile string `yaml:"histfile,omitempty"`
	Username string `yaml:"username,omitempty"`
}

// loadConfig reads the YAML configuration; a missing file is not an error.
func loadConfig(path string) (*fileConfig, error) {
	fc := &fileConfig{}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fc, nil
		}
		return nil, errors.Wrapf(err, "failed to read %q", path)
	}
	if err := yaml.Unmarshal(b, fc); err != nil {
		return nil, errors.Wrapf(err, "invalid configuration in %q", path)
	}
	return fc, nil
}

func (fc *fileConfig) apply(st *shellState) error {
	if fc.Output != "" {
		if err := evalOutput(st, fc.Output); err != nil {
			return err
		}
	}
	if fc.Width != "" {
		if err := evalWidth(st, fc.Width); err != nil {
			return err
		}
	}
	if fc.Histfile != "" {
		st.histfile = fc.Histfile
	}
	return nil
}
