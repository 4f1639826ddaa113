// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package archive

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSUploader mirrors archived reports into a Cloud Storage bucket.
type GCSUploader struct {
	client *storage.Client
	bucket string
}

// NewGCSUploader creates an uploader for the given bucket. An empty
// credentialsFile falls back to application default credentials.
func NewGCSUploader(ctx context.Context, bucket, credentialsFile string) (*GCSUploader, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCSUploader{client: client, bucket: bucket}, nil
}

// Upload writes data to the given object path in the bucket.
func (u *GCSUploader) Upload(ctx context.Context, objectPath string, data []byte) error {
	w := u.client.Bucket(u.bucket).Object(objectPath).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write object %s: %w", objectPath, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize object %s: %w", objectPath, err)
	}

	return nil
}

// Close releases the underlying client.
func (u *GCSUploader) Close() error {
	return u.client.Close()
}
