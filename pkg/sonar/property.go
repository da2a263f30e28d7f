package sonar

import "sort"

const (
	propertyKeyMaxLength   = 64
	propertyValueMaxLength = 128
)

// PropertyKey is a lowercase ASCII string of up to 64 characters drawn
// from [a-z0-9._/-].
type PropertyKey string

// ParsePropertyKey validates and returns a PropertyKey.
func ParsePropertyKey(s string) (PropertyKey, error) {
	if len(s) == 0 {
		return "", NewError(ErrInvalid, "property key is empty")
	}
	if len(s) > propertyKeyMaxLength {
		return "", NewError(ErrInvalid, "property key is too long")
	}
	for i := 0; i < len(s); i++ {
		if !isPropertyKeyChar(s[i]) {
			return "", Errorf(ErrInvalid, "property key %q contains invalid characters", s)
		}
	}
	return PropertyKey(s), nil
}

// MustPropertyKey parses a key known to be valid at compile time.
func MustPropertyKey(s string) PropertyKey {
	k, err := ParsePropertyKey(s)
	if err != nil {
		panic(err)
	}
	return k
}

func (k PropertyKey) String() string { return string(k) }

func isPropertyKeyChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '-', c == '_', c == '/', c == '.':
		return true
	}
	return false
}

// PropertyValue is an ASCII string of up to 128 characters.
type PropertyValue string

// ParsePropertyValue validates and returns a PropertyValue.
func ParsePropertyValue(s string) (PropertyValue, error) {
	if len(s) > propertyValueMaxLength {
		return "", NewError(ErrInvalid, "property value is too long")
	}
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return "", Errorf(ErrInvalid, "property value %q is not ASCII", s)
		}
	}
	return PropertyValue(s), nil
}

// MustPropertyValue parses a value known to be valid at compile time.
func MustPropertyValue(s string) PropertyValue {
	v, err := ParsePropertyValue(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v PropertyValue) String() string { return string(v) }

// Properties is a set of key/value pairs attached to a catalog entity.
type Properties map[PropertyKey]PropertyValue

// Keys returns the keys in sorted order.
func (p Properties) Keys() []PropertyKey {
	keys := make([]PropertyKey, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Clone returns a copy safe to mutate.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge copies entries from other, keeping existing keys.
func (p Properties) Merge(other Properties) {
	for k, v := range other {
		if _, ok := p[k]; !ok {
			p[k] = v
		}
	}
}

// PropertyUpdateAction says what a PropertyUpdate does to its key.
type PropertyUpdateAction int

const (
	PropertySet PropertyUpdateAction = iota
	PropertyRemove
)

// PropertyUpdate is a single mutation of an entity's properties.
type PropertyUpdate struct {
	Key    PropertyKey
	Action PropertyUpdateAction
	Value  PropertyValue
}

// SetProperty builds a set update.
func SetProperty(key PropertyKey, value PropertyValue) PropertyUpdate {
	return PropertyUpdate{Key: key, Action: PropertySet, Value: value}
}

// RemoveProperty builds a remove update.
func RemoveProperty(key PropertyKey) PropertyUpdate {
	return PropertyUpdate{Key: key, Action: PropertyRemove}
}

// Apply folds the updates into the property set.
func (p Properties) Apply(updates []PropertyUpdate) {
	for _, u := range updates {
		switch u.Action {
		case PropertySet:
			p[u.Key] = u.Value
		case PropertyRemove:
			delete(p, u.Key)
		}
	}
}
