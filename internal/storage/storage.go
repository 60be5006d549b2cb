// Package storage abstracts the blob store export archives are uploaded to.
package storage

import (
	"context"
	"errors"
	"time"
)

// Common errors for storage operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrUploadFailed   = errors.New("upload failed")
	ErrDeleteFailed   = errors.New("delete failed")
)

// ObjectStorage abstracts the archive store. Implementations cover S3 and a
// local filesystem used by tests and single-node deployments.
type ObjectStorage interface {
	// Upload copies the local file at localPath to objectPath.
	Upload(ctx context.Context, localPath, objectPath string) error

	// Exists checks if an object exists in storage.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// PresignDownload returns a link that downloads the object without
	// further authentication, valid for expires.
	PresignDownload(ctx context.Context, objectPath string, expires time.Duration) (string, error)

	// Delete removes an object from storage.
	Delete(ctx context.Context, objectPath string) error
}
