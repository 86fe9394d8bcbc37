package silo

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sort"
	"strconv"
)

// Kind is the shape of a node, fixed when the node is created.
type Kind int

const (
	Primitive Kind = iota
	Object
	Array
)

func (k Kind) String() string {
	switch k {
	case Primitive:
		return "PRIMITIVE"
	case Object:
		return "OBJECT"
	case Array:
		return "ARRAY"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// element is one child-to-be of a composite value: its key (object key or
// decimal index) and its raw value.
type element struct {
	key   string
	value any
}

// classify reports the kind of v and, for composites, its elements in
// decomposition order. Objects are ordered by key; arrays by index.
func classify(v any) (Kind, []element) {
	switch t := v.(type) {
	case nil, bool, string, json.Number, []byte,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return Primitive, nil
	case map[string]any:
		elems := make([]element, 0, len(t))
		for _, key := range slices.Sorted(maps.Keys(t)) {
			elems = append(elems, element{key: key, value: t[key]})
		}
		return Object, elems
	case []any:
		elems := make([]element, len(t))
		for i, val := range t {
			elems[i] = element{key: strconv.Itoa(i), value: val}
		}
		return Array, elems
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		elems := make([]element, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			elems = append(elems, element{key: fmt.Sprint(iter.Key().Interface()), value: iter.Value().Interface()})
		}
		sort.Slice(elems, func(i, j int) bool { return elems[i].key < elems[j].key })
		return Object, elems
	case reflect.Slice, reflect.Array:
		elems := make([]element, rv.Len())
		for i := range rv.Len() {
			elems[i] = element{key: strconv.Itoa(i), value: rv.Index(i).Interface()}
		}
		return Array, elems
	default:
		return Primitive, nil
	}
}

// KindOf reports the kind a value would decompose to.
func KindOf(v any) Kind {
	kind, _ := classify(v)
	return kind
}
