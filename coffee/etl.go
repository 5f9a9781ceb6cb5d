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

package coffee

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/apache/arrow/go/v12/parquet/compress"

	"github.com/aaronlmathis/cupofmud/core"
	"github.com/aaronlmathis/cupofmud/location"
	"github.com/aaronlmathis/cupofmud/readers"
	"github.com/aaronlmathis/cupofmud/schema"
	"github.com/aaronlmathis/cupofmud/transform"
	"github.com/aaronlmathis/cupofmud/writers"
)

// Package coffee implements the arabica coffee-quality ETL: a typed CSV
// extract, the production-weight transform and a columnar load.

// Output formats accepted by Load.
const (
	FormatParquet = "parquet"
	FormatArrow   = "arrow"
)

// stagingPattern names the temporary files Load writes before publishing.
const stagingPattern = ".cupofmud-*.tmp"

// Extract reads the arabica CSV from src against InputSchema. The returned
// table has exactly the declared columns, in declared order. src is closed.
func Extract(ctx context.Context, src io.ReadCloser) (*core.Table, error) {
	table, _, err := extract(ctx, src)
	return table, err
}

func extract(ctx context.Context, src io.ReadCloser) (*core.Table, readers.CSVReaderStats, error) {
	defer src.Close()

	reader, err := readers.NewCSVReader(src, readers.WithCSVSchema(InputSchema))
	if err != nil {
		return nil, readers.CSVReaderStats{}, err
	}

	table, err := readers.ReadTable(ctx, reader)
	if err != nil {
		return nil, reader.Stats(), err
	}
	return table, reader.Stats(), nil
}

// Transform derives Bag Weight Normalized and Total Production Weight,
// projects the seven output columns and stably sorts the rows by Country of
// Origin, descending. The input table is not modified.
func Transform(ctx context.Context, table *core.Table) (*core.Table, error) {
	for _, col := range []string{ColNumberOfBags, ColBagWeight, ColCountry} {
		if !table.HasColumn(col) {
			return nil, &core.SchemaMismatchError{Column: col, Err: errors.New("column missing from transform input")}
		}
	}

	projected, err := transform.ApplyTable(ctx, table, OutputColumns(),
		transform.ParseUnit(ColBagWeight, BagWeightSuffix, ColBagWeightNormalized),
		transform.Multiply(ColNumberOfBags, ColBagWeightNormalized, ColTotalProductionWeight),
		transform.Select(OutputColumns()...),
	)
	if err != nil {
		return nil, err
	}

	sorted, err := transform.SortTable(projected, ColCountry, transform.Descending)
	if err != nil {
		return nil, fmt.Errorf("sort: %w", err)
	}
	return sorted, nil
}

// LoadOptions configures the columnar output.
type LoadOptions struct {
	Format       string               // FormatParquet (default) or FormatArrow
	Schema       *schema.Schema       // Output schema, OutputSchema when nil
	Compression  compress.Compression // Parquet only; the zero value is uncompressed
	RowGroupSize int64                // Parquet only, library default when zero
	Metadata     map[string]string    // File key/value metadata
}

// Load writes table to dest. The file is written to a temporary path in the
// destination's staging directory and only published once complete, so a
// failed load never leaves a partial file at dest. Every failure is an
// *core.IOWriteError.
func Load(ctx context.Context, table *core.Table, dest location.Location, opts LoadOptions) error {
	if opts.Schema == nil {
		opts.Schema = OutputSchema
	}
	if opts.Format == "" {
		opts.Format = FormatParquet
	}
	target := dest.String()

	dir := dest.StagingDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &core.IOWriteError{Op: "stage", Path: target, Err: err}
	}
	staged, err := os.CreateTemp(dir, stagingPattern)
	if err != nil {
		return &core.IOWriteError{Op: "stage", Path: target, Err: err}
	}
	stagedPath := staged.Name()
	staged.Close()

	published := false
	defer func() {
		if !published {
			os.Remove(stagedPath)
		}
	}()

	sink, err := newSink(stagedPath, opts)
	if err != nil {
		return &core.IOWriteError{Op: "open", Path: target, Err: err}
	}
	if err := writers.WriteTable(ctx, sink, table); err != nil {
		sink.Close()
		return &core.IOWriteError{Op: "encode", Path: target, Err: err}
	}
	if err := sink.Close(); err != nil {
		return &core.IOWriteError{Op: "encode", Path: target, Err: err}
	}
	if err := os.Chmod(stagedPath, outputMode(dest)); err != nil {
		return &core.IOWriteError{Op: "stage", Path: target, Err: err}
	}

	if err := dest.Publish(ctx, stagedPath); err != nil {
		return &core.IOWriteError{Op: "publish", Path: target, Err: err}
	}
	published = true
	return nil
}

// outputMode keeps the permissions of a local file being replaced and
// defaults to 0644 otherwise.
func outputMode(dest location.Location) os.FileMode {
	if fl, ok := dest.(location.FileLocation); ok {
		if info, err := os.Stat(fl.Path); err == nil && info.Mode().IsRegular() {
			return info.Mode().Perm()
		}
	}
	return 0o644
}

func newSink(path string, opts LoadOptions) (core.DataSink, error) {
	arrowSchema := opts.Schema.Arrow(nil)
	common := []writers.WriterOption{
		writers.WithSchema(arrowSchema),
		writers.WithMetadata(opts.Metadata),
	}

	switch opts.Format {
	case FormatParquet:
		options := append(common,
			writers.WithCompression(opts.Compression),
			writers.WithDictionary(categoricalColumns(opts.Schema)...),
		)
		if opts.RowGroupSize > 0 {
			options = append(options, writers.WithRowGroupSize(opts.RowGroupSize))
		}
		return writers.NewParquetWriter(path, options...)
	case FormatArrow:
		return writers.NewIPCWriter(path, common...)
	default:
		return nil, fmt.Errorf("unknown output format %q", opts.Format)
	}
}

// CleanupStaged removes temporary files left in dir by interrupted loads and
// returns how many were removed.
func CleanupStaged(dir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, stagingPattern))
	if err != nil {
		return 0, err
	}
	removed := 0
	var errs []error
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
