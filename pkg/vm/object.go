package vm

// Object is a mutable bag of own properties that remembers insertion order.
type Object struct {
	keys  []string
	props map[string]Value

	// errorLike marks objects constructed by NewError.
	errorLike bool
}

// Prop is a key/value pair used to build objects.
type Prop struct {
	Key   string
	Value Value
}

// NewObject returns an object holding props in order.
func NewObject(props ...Prop) *Object {
	o := &Object{props: make(map[string]Value, len(props))}
	for _, p := range props {
		o.Set(p.Key, p.Value)
	}
	return o
}

// NewError returns an error object with name and message properties.
func NewError(name, message string) *Object {
	o := NewObject(Prop{"name", String(name)}, Prop{"message", String(message)})
	o.errorLike = true
	return o
}

// Set assigns an own property. A new key is appended to the key order.
func (o *Object) Set(key string, v Value) {
	if _, ok := o.props[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.props[key] = v
}

// Get returns an own property.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.props[key]
	return v, ok
}

// Has reports whether key is an own property.
func (o *Object) Has(key string) bool {
	_, ok := o.props[key]
	return ok
}

// Delete removes an own property.
func (o *Object) Delete(key string) {
	if _, ok := o.props[key]; !ok {
		return
	}
	delete(o.props, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Keys returns own property names in insertion order.
func (o *Object) Keys() []string {
	return append([]string(nil), o.keys...)
}

// Len returns the number of own properties.
func (o *Object) Len() int {
	return len(o.keys)
}

// IsError reports whether o was built by NewError.
func (o *Object) IsError() bool {
	return o.errorLike
}
