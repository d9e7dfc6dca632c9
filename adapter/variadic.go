package adapter

import (
	"fmt"
	"reflect"

	"github.com/goliatone/go-adapter-cache/synth"
)

// collapseVariadic folds trailing captures into one slice when the
// implementation ends in a slice parameter and there are more captures than
// fixed parameters. A last capture that already is that slice is left alone.
func collapseVariadic(impl synth.Signature, captures []any) ([]any, error) {
	n := impl.Arity()
	if n == 0 || len(captures) <= n-1 {
		return captures, nil
	}
	last := impl.In[n-1]
	if last.Kind() != reflect.Slice {
		return captures, nil
	}
	if c := captures[len(captures)-1]; c != nil && reflect.TypeOf(c).AssignableTo(last) {
		return captures, nil
	}

	tail := captures[n-1:]
	elem := last.Elem()
	packed := reflect.MakeSlice(last, len(tail), len(tail))
	for i, c := range tail {
		if c == nil {
			if !nilable(elem) {
				return nil, invalidElement(n-1+i, "nil", elem)
			}
			continue
		}
		v := reflect.ValueOf(c)
		switch {
		case v.Type().AssignableTo(elem):
			packed.Index(i).Set(v)
		case synth.SameFamily(v.Type(), elem) && v.Type().ConvertibleTo(elem):
			packed.Index(i).Set(v.Convert(elem))
		default:
			return nil, invalidElement(n-1+i, v.Type().String(), elem)
		}
	}

	out := make([]any, 0, n)
	out = append(out, captures[:n-1]...)
	return append(out, packed.Interface()), nil
}

func invalidElement(index int, got string, elem reflect.Type) error {
	return synth.NewInvalidCaptureError(
		fmt.Sprintf("capture %d is %s, cannot be collected into []%s", index, got, elem),
		map[string]any{"index": index, "expected": elem.String()})
}

func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}
