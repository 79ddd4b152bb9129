package util

import "fmt"

// FindFirst returns the first element matching predicate.
func FindFirst[T any](s []T, predicate func(T) bool) (T, bool) {
	for _, v := range s {
		if predicate(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// GetOne returns the single element of s. It fails on empty or multi-element slices.
func GetOne[T any](s []T) (T, error) {
	var zero T
	switch len(s) {
	case 0:
		return zero, fmt.Errorf("no element found")
	case 1:
		return s[0], nil
	default:
		return zero, fmt.Errorf("multiple elements found")
	}
}
