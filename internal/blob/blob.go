// Package blob re-exports the blob storage abstractions and selects a backend
// from the environment.
package blob

import (
	"context"
	"fmt"
	"os"

	"github.com/tytell/fishdb/internal/blob/core"
	"github.com/tytell/fishdb/internal/infra/blob/fs"
	"github.com/tytell/fishdb/internal/infra/blob/memory"
	"github.com/tytell/fishdb/internal/infra/blob/s3"
)

// Aliases keeping call sites on a single import.
type (
	// Store is an alias of core.Store.
	Store = core.Store
	// Driver is an alias of core.Driver.
	Driver = core.Driver
	// Info is an alias of core.Info.
	Info = core.Info
	// PutOptions is an alias of core.PutOptions.
	PutOptions = core.PutOptions
	// SignedURLOptions is an alias of core.SignedURLOptions.
	SignedURLOptions = core.SignedURLOptions
)

const (
	// DriverFilesystem selects the local filesystem backend.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 selects the S3 / MinIO backend.
	DriverS3 = core.DriverS3
	// DriverMemory selects the in-memory backend.
	DriverMemory = core.DriverMemory
)

// ErrUnsupported is an alias of core.ErrUnsupported.
var ErrUnsupported = core.ErrUnsupported

// NewMemory returns an in-memory blob store.
func NewMemory() Store { return memory.New() }

// NewFilesystem returns a filesystem blob store rooted at path.
func NewFilesystem(root string) (Store, error) { return fs.New(root) }

// Open selects a blob Store implementation using environment variables.
//
//	FISHDB_BLOB_DRIVER: fs|s3|memory (default fs)
//	FISHDB_BLOB_FS_ROOT: directory root when driver=fs (default ./blobdata)
//	(S3 specific variables documented in the s3 package)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("FISHDB_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return fs.New(os.Getenv("FISHDB_BLOB_FS_ROOT"))
	case DriverS3:
		return s3.OpenFromEnv(ctx)
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
