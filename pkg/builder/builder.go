// Package builder defines the contract the parser engine uses to construct
// target values incrementally, and ships a default implementation driven
// entirely by reflection so callers can parse straight into ordinary Go
// structs without writing a builder themselves.
package builder

import "github.com/parsehive/tagstream/pkg/schema"

// Handle is an opaque reference to a value under construction. Builders are
// free to use whatever representation suits them (a pointer, an index into
// a slice of pending values); the engine never inspects a Handle, only
// passes it back.
type Handle any

// Builder is the bridge between the parser's state machine and whatever
// representation the caller wants filled in. Every call is synchronous and
// side-effecting: there is no rollback. The engine is responsible for
// honoring the sticky-field invariant (first write wins) before ever
// calling SetField a second time for the same field in the same frame.
type Builder interface {
	// NewRecord allocates a new value of the given record type and returns
	// a handle to it.
	NewRecord(node *schema.Node) (Handle, error)

	// SetField assigns value to the named field of the record referenced
	// by handle. value is either a scalar (string/int64/float64/bool/nil)
	// or another Handle produced by NewRecord/NewContainer.
	SetField(handle Handle, field schema.Field, value any) error

	// NewContainer allocates a new container (sequence, set, mapping, or
	// tuple) of the given type and returns a handle to it.
	NewContainer(node *schema.Node) (Handle, error)

	// Append adds value to the end of a sequence or set container.
	Append(handle Handle, value any) error

	// Insert adds a key/value pair to a mapping container. Re-inserting an
	// existing key overwrites it, last-write-wins.
	Insert(handle Handle, key, value any) error

	// TupleSet assigns value to the fixed-arity tuple container at index.
	TupleSet(handle Handle, index int, value any) error

	// Finalize converts handle into its final resting form once the
	// parser has determined the value is complete: for most builders this
	// is a no-op returning handle itself, but it is the hook a builder
	// needs to, say, freeze a mutable accumulator into an immutable value.
	Finalize(handle Handle) (any, error)
}

// RootBinder is an optional capability: a Builder that implements it can
// construct the root handle directly on top of memory the caller already
// owns, instead of allocating a fresh value the way NewRecord does. This
// is what makes the parser's partial-view reads "live": the caller's own
// pointer is mutated in place as fields are set, so reading through it at
// any point sees the value as of the most recent successful write.
type RootBinder interface {
	// BindRoot returns a handle backed by target, which must be a pointer
	// to a value matching node's shape.
	BindRoot(node *schema.Node, target any) (Handle, error)
}
