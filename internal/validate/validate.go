// Package validate checks `range:"min,max"` struct tags on numeric fields.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/reflectwalk"
)

// ErrOutOfRange is wrapped by every range violation.
var ErrOutOfRange = errors.New("value out of range")

// ErrBadTag is returned for malformed range tags.
var ErrBadTag = errors.New("bad range tag")

// Struct walks v (a struct or a pointer to one, nested structs included) and
// returns every range violation joined in one error, or nil.
func Struct(v interface{}) error {
	w := &rangeWalker{}
	if err := reflectwalk.Walk(v, w); err != nil {
		return err
	}
	return errors.Join(w.errs...)
}

type rangeWalker struct {
	path    []string
	pending string
	errs    []error
}

func (w *rangeWalker) Enter(l reflectwalk.Location) error {
	if l == reflectwalk.StructField {
		w.path = append(w.path, w.pending)
	}
	return nil
}

func (w *rangeWalker) Exit(l reflectwalk.Location) error {
	if l == reflectwalk.StructField && len(w.path) > 0 {
		w.path = w.path[:len(w.path)-1]
	}
	return nil
}

func (w *rangeWalker) Struct(reflect.Value) error { return nil }

func (w *rangeWalker) StructField(f reflect.StructField, v reflect.Value) error {
	if f.PkgPath != "" { // unexported
		return reflectwalk.SkipEntry
	}
	w.pending = f.Name
	tag, ok := f.Tag.Lookup("range")
	if !ok {
		return nil
	}
	name := strings.Join(append(append([]string(nil), w.path...), f.Name), ".")
	lo, hi, err := parseRange(tag)
	if err != nil {
		return fmt.Errorf("%w: %s: %q", ErrBadTag, name, tag)
	}
	x, ok := number(reflect.Indirect(v))
	if !ok {
		return fmt.Errorf("%w: %s is not numeric", ErrBadTag, name)
	}
	if x < lo || x > hi {
		w.errs = append(w.errs, fmt.Errorf("%w: %s = %v, want [%v, %v]", ErrOutOfRange, name, x, lo, hi))
	}
	return nil
}

func parseRange(tag string) (lo, hi float64, err error) {
	parts := strings.Split(tag, ",")
	if len(parts) != 2 {
		return 0, 0, ErrBadTag
	}
	if lo, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err != nil {
		return 0, 0, err
	}
	if hi, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err != nil {
		return 0, 0, err
	}
	return lo, hi, nil
}

func number(v reflect.Value) (float64, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	default:
		return 0, false
	}
}
