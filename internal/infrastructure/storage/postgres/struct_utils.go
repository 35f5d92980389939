package postgres

import (
	"reflect"
	"sort"
	"sync"
)

// ExtractDBColumns returns the "db" tag names of T in field order.
// Fields tagged "-" or untagged are skipped; embedded structs are flattened.
//
//	columns := ExtractDBColumns[sale.Item]()
//	// ["id", "sale_id", "product_id", "quantity", "selling_price"]
func ExtractDBColumns[T any]() []string {
	var zero T
	meta := metadataFor(reflect.TypeOf(zero))
	cols := make([]string, 0, len(meta.fields))
	for _, fi := range meta.fields {
		cols = append(cols, fi.dbTag)
	}
	return cols
}

type fieldInfo struct {
	index []int
	dbTag string
}

type typeMetadata struct {
	fields []fieldInfo
}

var typeCache sync.Map // map[reflect.Type]*typeMetadata

func metadataFor(t reflect.Type) *typeMetadata {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := typeCache.Load(t); ok {
		return cached.(*typeMetadata)
	}

	meta := &typeMetadata{}
	if t.Kind() == reflect.Struct {
		collectFields(t, nil, meta)
	}
	typeCache.Store(t, meta)
	return meta
}

func collectFields(t reflect.Type, prefix []int, meta *typeMetadata) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		index := append(append([]int{}, prefix...), i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			collectFields(field.Type, index, meta)
			continue
		}

		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		meta.fields = append(meta.fields, fieldInfo{index: index, dbTag: tag})
	}
}

// StructToMap converts a struct to column/value pairs using "db" tags.
// Type metadata is computed once per type and cached.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	meta := metadataFor(rv.Type())
	res := make(map[string]any, len(meta.fields))
	for _, fi := range meta.fields {
		res[fi.dbTag] = rv.FieldByIndex(fi.index).Interface()
	}
	return res
}

// SortedColumns returns the keys of data in lexical order, without the excluded ones.
func SortedColumns(data map[string]any, exclude ...string) []string {
	cols := make([]string, 0, len(data))
	for col := range data {
		skip := false
		for _, ex := range exclude {
			if col == ex {
				skip = true
				break
			}
		}
		if !skip {
			cols = append(cols, col)
		}
	}
	sort.Strings(cols)
	return cols
}
