// Package omero talks to an OMERO server's annotation store. The rest
// of the application consumes the narrow Gateway interface below; the
// HTTP client in this package is one implementation of it. Sessions are
// stateful on the server side, so callers must Close the gateway on
// every exit path.
package omero

import "context"

// Object types addressable through the gateway.
const (
	TypeScreen = "Screen"
	TypePlate  = "Plate"
	TypeWell   = "Well"
)

// MapAnnotation is a flat key/value annotation tagged with a namespace.
// Pairs keep their server-side order; keys may repeat.
type MapAnnotation struct {
	ID        int64
	Namespace string
	Pairs     [][2]string
}

// Object is a remote Screen, Plate or Well.
type Object interface {
	ID() int64
	Name() string
	// Row and Column are zero-based plate coordinates; they are only
	// meaningful for wells and return -1 otherwise.
	Row() int
	Column() int
	// ListChildren enumerates the object's children: a Screen's plates
	// or a Plate's wells.
	ListChildren(ctx context.Context) ([]Object, error)
	// ListAnnotations returns the map annotations linked to the object.
	ListAnnotations(ctx context.Context) ([]MapAnnotation, error)
}

// Gateway is the connection-scoped annotation API consumed by the sync
// layer. GetObject returns (nil, nil) when the object does not exist;
// absence is a caller-level condition, not a transport failure.
type Gateway interface {
	GetObject(ctx context.Context, objType string, id int64) (Object, error)
	// CreateMapAnnotation creates one annotation carrying the given
	// pairs under the namespace and links it to the object. Returns the
	// new annotation's ID.
	CreateMapAnnotation(ctx context.Context, objType string, id int64, pairs [][2]string, namespace string) (int64, error)
	// DeleteAnnotations removes every annotation on the object whose
	// namespace starts with nsPrefix (all of them when nsPrefix is
	// empty) and reports how many were removed. Deleting zero is not an
	// error, and a missing object counts as zero.
	DeleteAnnotations(ctx context.Context, objType string, id int64, nsPrefix string) (int, error)
	// Close releases the server-side session.
	Close() error
}
