package builtins

import (
	"fmt"

	"github.com/corewald/tera/value"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	upperCaser = cases.Upper(language.Und)
	lowerCaser = cases.Lower(language.Und)
	titleCaser = cases.Title(language.Und)
)

func filterUpper(v value.Value, _ map[string]value.Value) (value.Value, error) {
	s, ok := v.AsString()
	if !ok {
		return value.Value{}, fmt.Errorf("upper: value is not a string")
	}
	return value.String(upperCaser.String(s)), nil
}

func filterLower(v value.Value, _ map[string]value.Value) (value.Value, error) {
	s, ok := v.AsString()
	if !ok {
		return value.Value{}, fmt.Errorf("lower: value is not a string")
	}
	return value.String(lowerCaser.String(s)), nil
}

func filterTitle(v value.Value, _ map[string]value.Value) (value.Value, error) {
	s, ok := v.AsString()
	if !ok {
		return value.Value{}, fmt.Errorf("title: value is not a string")
	}
	return value.String(titleCaser.String(s)), nil
}
