// Package storage archives classified clips to an object store. Archiving is
// best-effort: the prediction pipeline never fails because an upload did.
package storage

import (
	"context"
	"io"
)

type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedURL string, err error)
}
