// Package storage abstracts the object store that holds uploaded logo files.
package storage

import "context"

type ObjectStorage interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	Remove(ctx context.Context, path string) error
	PublicURL(path string) string
}
