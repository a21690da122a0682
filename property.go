package watchable

// Path names one property of an owner type and binds typed accessors to
// it. Paths are values; copies are independent.
type Path[O any, V any] struct {
	name string
	get  func(*O) V
	set  func(*O, V)
}

// NewPath creates a read-only path for the named property.
func NewPath[O any, V any](name string, get func(*O) V) Path[O, V] {
	if name == "" {
		panic("watchable: path name must not be empty")
	}
	if get == nil {
		panic("watchable: path getter must not be nil")
	}
	return Path[O, V]{name: name, get: get}
}

// WithSetter returns a copy of the path that can also write the property.
func (p Path[O, V]) WithSetter(set func(*O, V)) Path[O, V] {
	p.set = set
	return p
}

// Name returns the property name.
func (p Path[O, V]) Name() string { return p.name }

// EventID returns the identifier carried by change events for this path.
func (p Path[O, V]) EventID() EventID { return PropertyID(p.name) }

// Get reads the property from owner.
func (p Path[O, V]) Get(owner *O) V { return p.get(owner) }

// CanSet reports whether the path carries a setter.
func (p Path[O, V]) CanSet() bool { return p.set != nil }

// Set writes the property. Calling Set on a read-only path is a
// programming error and panics.
func (p Path[O, V]) Set(owner *O, value V) {
	if p.set == nil {
		panic("watchable: path " + p.name + " has no setter")
	}
	p.set(owner, value)
}
