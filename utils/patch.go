package utils

import (
	"reflect"
	"strconv"
	"strings"
)

// PatchUpdates builds a column->value map from a pointer-field DTO, keyed by
// each field's json name. Nil fields are left out so a partial update only
// touches what the client sent.
func PatchUpdates(dto any) map[string]any {
	updates := make(map[string]any)
	v := reflect.ValueOf(dto)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return updates
	}
	s := v.Elem()
	t := s.Type()
	for i := 0; i < t.NumField(); i++ {
		fv := s.Field(i)
		if fv.Kind() != reflect.Ptr || fv.IsNil() {
			continue
		}
		name := strings.Split(t.Field(i).Tag.Get("json"), ",")[0]
		if name == "" || name == "-" {
			continue
		}
		updates[name] = fv.Elem().Interface()
	}
	return updates
}

// ParseIntDefault reads a non-negative integer query value, falling back to
// def on anything unparsable.
func ParseIntDefault(s string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && v >= 0 {
		return v
	}
	return def
}
