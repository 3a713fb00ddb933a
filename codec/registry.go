package codec

import "fmt"

// A Registry maps codec IDs to codecs. IDs are assigned sequentially as
// codecs are added; the zero value is not ready for use, call [NewRegistry].
type Registry struct {
	codecs []Codec
}

// NewRegistry returns a registry with the built-in codecs registered in
// their fixed order: [Int]=0, [Float]=1, [String]=2, [Bool]=3.
func NewRegistry() *Registry {
	r := new(Registry)
	r.Add(NewInt())
	r.Add(NewFloat())
	r.Add(NewString())
	r.Add(NewBool())
	return r
}

// Add appends c to the registry and returns its assigned ID, equal to the
// registry's length before the insertion.
func (r *Registry) Add(c Codec) ID {
	id := ID(len(r.codecs))
	r.codecs = append(r.codecs, c)
	return id
}

// Lookup returns the codec registered under id, or nil if none exists.
func (r *Registry) Lookup(id ID) Codec {
	if int(id) < 0 || int(id) >= len(r.codecs) {
		return nil
	}
	return r.codecs[id]
}

// MustLookup is like Lookup but panics if id is not registered. It is
// meant for call sites that have already validated id, such as the
// built-in ID constants.
func (r *Registry) MustLookup(id ID) Codec {
	c := r.Lookup(id)
	if c == nil {
		panic(fmt.Sprintf("codec: id %d not registered", id))
	}
	return c
}
