package sandbox

import (
	"fmt"
	"math"
	"reflect"
)

type Variable struct {
	Name   string
	Values []float64
}

// Variables reads the slot's declared log variables from the controller.
// A declared name with no matching field reads as NaN.
func (s *Sandbox) Variables(sl *Slot) ([]Variable, error) {
	if len(sl.vars) == 0 {
		return nil, nil
	}
	out := make([]Variable, 0, len(sl.vars))
	err := protect(func() error {
		root, err := structOf(sl.ctrl)
		if err != nil {
			return err
		}
		for _, name := range sl.vars {
			f, ok := lookupField(root, name)
			if !ok {
				out = append(out, Variable{Name: name, Values: []float64{math.NaN()}})
				continue
			}
			vals, err := flatten(f, nil)
			if err != nil {
				return fmt.Errorf("log variable %q: %w", name, err)
			}
			out = append(out, Variable{Name: name, Values: vals})
		}
		return nil
	})
	if err != nil {
		return nil, &Failure{Kind: LoggingFault, Stage: StageLog, Reason: err.Error(), Err: err}
	}
	return out, nil
}

func structOf(v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Value{}, fmt.Errorf("controller is nil")
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("controller of type %s has no fields to log", rv.Type())
	}
	return rv, nil
}

// lookupField resolves a `log:"name"` tag first, then an exported field
// name, following promoted fields of embedded structs.
func lookupField(root reflect.Value, name string) (reflect.Value, bool) {
	var byName []int
	for _, sf := range reflect.VisibleFields(root.Type()) {
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		if sf.Tag.Get("log") == name {
			return fieldAt(root, sf.Index)
		}
		if sf.Name == name && byName == nil {
			byName = sf.Index
		}
	}
	if byName == nil {
		return reflect.Value{}, false
	}
	return fieldAt(root, byName)
}

func fieldAt(root reflect.Value, index []int) (reflect.Value, bool) {
	f, err := root.FieldByIndexErr(index)
	if err != nil {
		return reflect.Value{}, false
	}
	return f, true
}

func flatten(v reflect.Value, out []float64) ([]float64, error) {
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return append(out, 1), nil
		}
		return append(out, 0), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return append(out, float64(v.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return append(out, float64(v.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return append(out, v.Float()), nil
	case reflect.Array, reflect.Slice:
		var err error
		for i := 0; i < v.Len(); i++ {
			if out, err = flatten(v.Index(i), out); err != nil {
				return nil, err
			}
		}
		return out, nil
	case reflect.Struct:
		var err error
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			if out, err = flatten(v.Field(i), out); err != nil {
				return nil, err
			}
		}
		return out, nil
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil, fmt.Errorf("nil %s", v.Type())
		}
		return flatten(v.Elem(), out)
	default:
		return nil, fmt.Errorf("cannot log value of type %s", v.Type())
	}
}
