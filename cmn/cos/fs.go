// Package cos provides common low-level types and utilities for all graphbolt packages
/*
 * Copyright (c) 2024, The Graphbolt Authors. All rights reserved.
 */
package cos

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const configDirMode = os.FileMode(0o755)

// CreateDir creates directory if does not exist. Does not return error when
// directory already exists.
func CreateDir(dir string) error {
	return os.MkdirAll(dir, configDirMode)
}

// CreateParent creates the parent directory of a file path on demand, e.g.
// for a history file under a not-yet-existing dot directory.
func CreateParent(fqn string) error {
	parent := filepath.Dir(fqn)
	if parent == "." || parent == string(filepath.Separator) {
		return nil
	}
	if err := CreateDir(parent); err != nil {
		return errors.Wrapf(err, "failed to create %q", parent)
	}
	return nil
}

// Expand replaces a leading "~" with the user's home directory.
func Expand(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

func IsTerminal(f *os.File) bool {
	st, err := f.Stat()
	if err != nil {
		return false
	}
	return st.Mode()&os.ModeCharDevice != 0
}
