// Copyright (C) 2022  The reqsrc authors
//
// SPDX-License-Identifier: Apache-2.0

package scaffold

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/reqsrc/reqsrc/pkg/ordered"
)

const (
	// DefaultExtension is the file extension of requirement source
	// files.
	DefaultExtension = ".in"
	// DefaultPrefix is the subdirectory of the working directory that
	// source files live in.
	DefaultPrefix = "src"
)

// BuildFilename constructs the path to a tagged requirement source file:
// workingDirectory/prefix/tagName+extension.  It is a pure function; the
// path need not exist.  Empty extension and prefix fall back to
// DefaultExtension and DefaultPrefix.
func BuildFilename(workingDirectory, tagName, extension, prefix string) string {
	if extension == "" {
		extension = DefaultExtension
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return filepath.Join(workingDirectory, prefix, tagName+extension)
}

type InitDirOptions struct {
	// Mode defaults to 0o777 (before umask).
	Mode fs.FileMode
	// CreateParents also creates missing parent directories.
	CreateParents bool
	// ExistOK swallows the error when the directory already exists.
	ExistOK bool
	// Name defaults to DefaultPrefix.
	Name string
}

// InitSourceDir creates the requirements source subdirectory under
// workingDirectory and returns its path.  With ExistOK it is idempotent.
func InitSourceDir(workingDirectory string, opts InitDirOptions) (string, error) {
	name := opts.Name
	if name == "" {
		name = DefaultPrefix
	}
	mode := opts.Mode
	if mode == 0 {
		mode = 0o777
	}
	dir := filepath.Join(workingDirectory, name)

	var err error
	if _, statErr := os.Stat(dir); statErr == nil {
		// os.MkdirAll reports success on an existing directory, but
		// creating a source dir that is already there must still be
		// an error unless ExistOK says otherwise.
		err = &fs.PathError{Op: "mkdir", Path: dir, Err: fs.ErrExist}
	} else if opts.CreateParents {
		err = os.MkdirAll(dir, mode)
	} else {
		err = os.Mkdir(dir, mode)
	}
	if err != nil && !(opts.ExistOK && errors.Is(err, fs.ErrExist)) {
		return "", err
	}
	return dir, nil
}

type InitFileOptions struct {
	// Extension defaults to DefaultExtension, Prefix to DefaultPrefix.
	Extension string
	Prefix    string

	IndexURL       string
	ExtraIndexURLs []string

	// Mode defaults to 0o666 (before umask).
	Mode fs.FileMode
	// Overwrite truncates and re-stamps an already existing file.
	Overwrite bool
}

// InitSourceFile creates an empty, header-stamped requirement source file
// and returns its path.  If the file already exists the call fails, unless
// Overwrite is set, in which case the file's prior contents are replaced
// with a fresh header.  Nothing is written when creation is refused.
func InitSourceFile(workingDirectory, tagName string, opts InitFileOptions) (string, error) {
	mode := opts.Mode
	if mode == 0 {
		mode = 0o666
	}
	filename := BuildFilename(workingDirectory, tagName, opts.Extension, opts.Prefix)

	file, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		if !(opts.Overwrite && errors.Is(err, fs.ErrExist)) {
			return "", err
		}
	} else if err := file.Close(); err != nil {
		return "", err
	}

	header, err := BuildSourceHeader(HeaderOptions{
		IndexURL:       opts.IndexURL,
		ExtraIndexURLs: ordered.NewStringSet(opts.ExtraIndexURLs...),
	})
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filename, []byte(header), mode); err != nil {
		return "", err
	}
	return filename, nil
}
