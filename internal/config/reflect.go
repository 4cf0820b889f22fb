package config

import (
	"fmt"
	"reflect"
)

// newTargetFor allocates a zero value of the struct target's pointee points
// to (target must be a non-nil *T where T is itself a struct pointer type,
// e.g. **BrokerConfig), returning the new *T as an interface{} plus a
// closure that assigns it back into *target. Kept separate from loader.go
// since reflection-based plumbing is the one piece of this package with no
// third-party-library counterpart in the teacher's stack.
func newTargetFor(target interface{}) (assign func(interface{}), newInstance interface{}, err error) {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return nil, nil, fmt.Errorf("config: target must be a non-nil pointer, got %T", target)
	}
	elem := rv.Elem()
	if elem.Kind() != reflect.Ptr {
		return nil, nil, fmt.Errorf("config: target must point to a pointer type, got %T", target)
	}

	structType := elem.Type().Elem()
	instance := reflect.New(structType)

	return func(v interface{}) {
		elem.Set(reflect.ValueOf(v))
	}, instance.Interface(), nil
}
