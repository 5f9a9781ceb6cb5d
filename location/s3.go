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

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Error provides structured error information for S3 operations.
type S3Error struct {
	Op     string // Operation that failed (e.g., "get_object", "put_object")
	Bucket string
	Key    string
	Err    error
}

func (e *S3Error) Error() string {
	return fmt.Sprintf("s3 %s s3://%s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *S3Error) Unwrap() error {
	return e.Err
}

// S3API is the subset of the S3 client the locations use. *s3.Client
// satisfies it.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures the S3 client.
type S3Options struct {
	Region         string          // AWS region
	Profile        string          // Shared config profile
	Credentials    aws.Credentials // Explicit credentials, used when AccessKeyID is set
	EndpointURL    string          // Custom endpoint (for S3-compatible services)
	ForcePathStyle bool            // Use path-style addressing
}

// NewS3Client builds an S3 client from the default AWS config chain and opts.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	configOpts := []func(*config.LoadOptions) error{}

	if opts.Region != "" {
		configOpts = append(configOpts, config.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		configOpts = append(configOpts, config.WithSharedConfigProfile(opts.Profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, &S3Error{Op: "load_config", Err: err}
	}

	if opts.Credentials.AccessKeyID != "" {
		cfg.Credentials = aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(
				opts.Credentials.AccessKeyID,
				opts.Credentials.SecretAccessKey,
				opts.Credentials.SessionToken,
			),
		)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.EndpointURL != "" {
			o.BaseEndpoint = aws.String(opts.EndpointURL)
		}
		o.UsePathStyle = opts.ForcePathStyle
	}), nil
}

// S3Location is an object in an S3 bucket.
type S3Location struct {
	Bucket string
	Key    string
	Client S3API
}

func (l S3Location) String() string { return s3Scheme + l.Bucket + "/" + l.Key }

// Open streams the object body.
func (l S3Location) Open(ctx context.Context) (io.ReadCloser, error) {
	out, err := l.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.Bucket),
		Key:    aws.String(l.Key),
	})
	if err != nil {
		return nil, &S3Error{Op: "get_object", Bucket: l.Bucket, Key: l.Key, Err: err}
	}
	return out.Body, nil
}

// StagingDir returns a directory under the system temp directory that is
// private to this process and object; S3 output is uploaded from there.
func (l S3Location) StagingDir() string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(l.String()))
	return filepath.Join(os.TempDir(), fmt.Sprintf("cupofmud-%d-%s", os.Getpid(), id))
}

// Publish uploads the staged file and removes it.
func (l S3Location) Publish(ctx context.Context, stagedPath string) error {
	file, err := os.Open(stagedPath)
	if err != nil {
		return &S3Error{Op: "open_staged", Bucket: l.Bucket, Key: l.Key, Err: err}
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return &S3Error{Op: "stat_staged", Bucket: l.Bucket, Key: l.Key, Err: err}
	}

	_, err = l.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(l.Bucket),
		Key:           aws.String(l.Key),
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return &S3Error{Op: "put_object", Bucket: l.Bucket, Key: l.Key, Err: err}
	}

	file.Close()
	os.Remove(stagedPath)
	// Only succeeds once the directory is empty.
	os.Remove(l.StagingDir())
	return nil
}
