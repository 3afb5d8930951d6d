// Package arena provides append-only storage with dense integer ids.
//
// Key concepts:
//   - Each value gets a unique ID when stored in the arena
//   - IDs are indices; they stay valid for the arena's lifetime
//   - Names map to IDs through an Index that remembers definition order
//
// An arena is populated during a single-threaded build phase and is
// read-only afterwards; concurrent readers need no synchronization then.
package arena

import "fmt"

// ID is a unique identifier of a value in an arena
type ID uint32

// None marks the absence of an ID
const None = ID(^uint32(0))

// Arena stores values of one kind by ID
type Arena[T any] struct {
	items []T
}

// New creates an empty arena
func New[T any]() *Arena[T] {
	return &Arena[T]{}
}

// Alloc stores a value and returns its ID
func (a *Arena[T]) Alloc(v T) ID {
	id := ID(len(a.items))
	a.items = append(a.items, v)
	return id
}

// Get retrieves a value by ID
func (a *Arena[T]) Get(id ID) (T, error) {
	if int(id) >= len(a.items) {
		var zero T
		return zero, fmt.Errorf("arena id %d out of range", id)
	}
	return a.items[id], nil
}

// Set replaces the value stored under an existing ID
func (a *Arena[T]) Set(id ID, v T) error {
	if int(id) >= len(a.items) {
		return fmt.Errorf("arena id %d out of range", id)
	}
	a.items[id] = v
	return nil
}

// Len returns the number of stored values
func (a *Arena[T]) Len() int {
	return len(a.items)
}

// Each calls fn for every value in allocation order until fn returns false
func (a *Arena[T]) Each(fn func(ID, T) bool) {
	for i, v := range a.items {
		if !fn(ID(i), v) {
			return
		}
	}
}

// Index maps names to IDs and remembers definition order
type Index struct {
	ids   map[string]ID
	names []string
}

// NewIndex creates an empty index
func NewIndex() *Index {
	return &Index{ids: make(map[string]ID)}
}

// Define binds name to id. It returns an error if name is already bound.
func (x *Index) Define(name string, id ID) error {
	if _, exists := x.ids[name]; exists {
		return fmt.Errorf("name %q already defined", name)
	}
	x.ids[name] = id
	x.names = append(x.names, name)
	return nil
}

// Lookup returns the ID bound to name
func (x *Index) Lookup(name string) (ID, bool) {
	id, ok := x.ids[name]
	return id, ok
}

// Names returns the bound names in definition order
func (x *Index) Names() []string {
	result := make([]string, len(x.names))
	copy(result, x.names)
	return result
}

// Len returns the number of bound names
func (x *Index) Len() int {
	return len(x.names)
}
