// Package utils holds small helpers shared by the hub packages.
package utils

import (
	"reflect"

	"github.com/pkg/errors"
)

// TypeStr returns the name of the type parameter, including for interface types.
func TypeStr[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

// NewUnexpectedTypeError is used when there is a type mismatch.
func NewUnexpectedTypeError[ExpectedT any](actual interface{}) error {
	return errors.Errorf("expected %s but got %T", TypeStr[ExpectedT](), actual)
}

// AssertType returns `from` as a T, or an unexpected type error naming both types.
func AssertType[T any](from interface{}) (T, error) {
	asserted, ok := from.(T)
	if !ok {
		var zero T
		return zero, NewUnexpectedTypeError[T](from)
	}
	return asserted, nil
}
