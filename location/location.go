//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of cupofmud.
//
// cupofmud is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// cupofmud is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with cupofmud. If not, see https://www.gnu.org/licenses/.

package location

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Package location resolves where the flow reads its input and publishes its
// output: a local path or an S3 object.

// Location is a readable source and a publishable destination.
type Location interface {
	// String returns the location as the user wrote it.
	String() string
	// Open returns the content for reading.
	Open(ctx context.Context) (io.ReadCloser, error)
	// StagingDir is the directory in which output should be staged before
	// Publish, so that a local publish is a same-filesystem rename.
	StagingDir() string
	// Publish moves a fully written staged file to the location. The staged
	// file no longer exists afterwards on success.
	Publish(ctx context.Context, stagedPath string) error
}

const s3Scheme = "s3://"

// IsS3 reports whether uri names an S3 object.
func IsS3(uri string) bool {
	return strings.HasPrefix(uri, s3Scheme)
}

// Parse resolves uri to a Location. S3 URIs need a client; a nil client is an
// error for them.
func Parse(uri string, client S3API) (Location, error) {
	if uri == "" {
		return nil, fmt.Errorf("empty location")
	}
	if !IsS3(uri) {
		return FileLocation{Path: uri}, nil
	}

	rest := strings.TrimPrefix(uri, s3Scheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return nil, fmt.Errorf("invalid s3 location %q: want s3://bucket/key", uri)
	}
	if client == nil {
		return nil, fmt.Errorf("s3 location %q requires an s3 client", uri)
	}
	return S3Location{Bucket: bucket, Key: key, Client: client}, nil
}

// FileLocation is a path on the local filesystem.
type FileLocation struct {
	Path string
}

func (f FileLocation) String() string { return f.Path }

// Open opens the file for reading.
func (f FileLocation) Open(ctx context.Context) (io.ReadCloser, error) {
	return os.Open(f.Path)
}

// StagingDir returns the directory holding the path.
func (f FileLocation) StagingDir() string {
	return filepath.Dir(f.Path)
}

// Publish renames the staged file over the path.
func (f FileLocation) Publish(ctx context.Context, stagedPath string) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", f.Path, err)
	}
	if err := os.Rename(stagedPath, f.Path); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", stagedPath, f.Path, err)
	}
	return nil
}
