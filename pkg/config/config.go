// Copyright (C) 2022  The reqsrc authors
//
// SPDX-License-Identifier: Apache-2.0

// Package config loads per-project settings from an optional "reqsrc.yml"
// file in the working directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"github.com/reqsrc/reqsrc/pkg/scaffold"
)

// Filename is the name of the per-project configuration file, relative to
// the working directory.
const Filename = "reqsrc.yml"

type Config struct {
	// LockFile is the path of the cross-process lock that serializes
	// source file mutation.
	LockFile string `yaml:"lockfile"`
	// SourceDir is the subdirectory of the working directory that
	// requirement source files live in.
	SourceDir string `yaml:"source_dir"`
	// Extension is the file extension of requirement source files.
	Extension string `yaml:"extension"`

	IndexURL       string   `yaml:"index_url"`
	ExtraIndexURLs []string `yaml:"extra_index_urls"`
}

// Default returns the built-in configuration.
func Default() Config {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	return Config{
		LockFile:  filepath.Join(cacheDir, "reqsrc", ".lock"),
		SourceDir: scaffold.DefaultPrefix,
		Extension: scaffold.DefaultExtension,
	}
}

// Load returns Default() overlaid with whatever the working directory's
// Filename sets.  A missing file is not an error; a malformed one is.
func Load(workingDirectory string) (Config, error) {
	cfg := Default()

	content, err := os.ReadFile(filepath.Join(workingDirectory, Filename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.UnmarshalStrict(content, &cfg); err != nil {
		return cfg, fmt.Errorf("config.Load: %q: %w", Filename, err)
	}
	return cfg, nil
}
