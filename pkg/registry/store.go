// pkg/registry/store.go

// Package registry is the settings-store facility: typed values addressed by
// (path, name), with get/set/delete semantics. Plans address values by path
// and name, so "already in desired state" checks stay exact across re-runs.
package registry

import (
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_io"
	cerr "github.com/cockroachdb/errors"
)

// Kind enumerates value types a key can hold.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindBool   Kind = "bool"
)

// Value is one typed datum stored under (path, name).
type Value struct {
	Kind Kind   `yaml:"kind"`
	Data string `yaml:"data"`
}

// ErrNotFound is returned when a key path or value name does not exist.
var ErrNotFound = cerr.New("registry: not found")

// Store is the narrow interface steps and checkers consume.
type Store interface {
	// Get returns the value stored at (path, name), or ErrNotFound.
	Get(rc *iaso_io.RuntimeContext, path, name string) (Value, error)
	// Set writes a typed value at (path, name), creating the path if needed.
	Set(rc *iaso_io.RuntimeContext, path, name string, value Value) error
	// Delete removes the named value. Deleting a missing value is not an
	// error; idempotent re-runs depend on that.
	Delete(rc *iaso_io.RuntimeContext, path, name string) error
	// DeleteKey removes an entire key path and every value under it.
	DeleteKey(rc *iaso_io.RuntimeContext, path string) error
	// KeyExists reports whether the key path holds any values.
	KeyExists(rc *iaso_io.RuntimeContext, path string) (bool, error)
}
