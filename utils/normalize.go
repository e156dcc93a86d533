package utils

import (
	"reflect"
	"strings"

	"github.com/shopspring/decimal"
)

var decimalType = reflect.TypeOf(decimal.Decimal{})

// NormalizeDTO trims string fields and rounds decimal.Decimal fields to 2 dp
// on a pointer-to-struct DTO.
func NormalizeDTO(dto any) {
	v := reflect.ValueOf(dto)
	if v.Kind() != reflect.Ptr {
		return
	}
	s := v.Elem()
	if s.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < s.NumField(); i++ {
		f := s.Field(i)
		if !f.CanSet() {
			continue
		}
		switch {
		case f.Kind() == reflect.String:
			f.SetString(strings.TrimSpace(f.String()))
		case f.Type() == decimalType:
			d := f.Interface().(decimal.Decimal)
			f.Set(reflect.ValueOf(d.Round(2)))
		}
	}
}

// NormalizePtrDTO is the pointer-field variant used by PATCH-style DTOs.
// Only non-nil pointer fields are touched; nils stay nil so GORM won't
// update them.
func NormalizePtrDTO(dto any) {
	v := reflect.ValueOf(dto)
	if v.Kind() != reflect.Ptr {
		return
	}
	s := v.Elem()
	if s.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < s.NumField(); i++ {
		f := s.Field(i)
		if f.Kind() != reflect.Ptr || f.IsNil() {
			continue
		}
		ef := f.Elem()
		switch {
		case ef.Kind() == reflect.String:
			ef.SetString(strings.TrimSpace(ef.String()))
		case ef.Type() == decimalType:
			d := ef.Interface().(decimal.Decimal)
			ef.Set(reflect.ValueOf(d.Round(2)))
		}
	}
}
