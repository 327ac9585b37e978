// Package validation holds the request validators shared by the document
// endpoints. Validators never fail fast: each returns the errors it found
// and the caller merges them into one response.
package validation

import (
	"fmt"
	"reflect"
	"strings"
)

// Fields is a decoded JSON document body, used by validators that need to
// tell an absent field from a zero value.
type Fields map[string]any

type unset struct{}

// Unset marks a field that was explicitly left out of a programmatic payload.
var Unset = unset{}

// IsMissing reports whether v counts as not provided: nil, Unset, an empty
// string or an empty sequence.
func IsMissing(v any) bool {
	switch val := v.(type) {
	case nil, unset:
		return true
	case string:
		return val == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer:
		return rv.IsNil()
	}
	return false
}

// CheckRequiredFields emits a Required error for every field in fields that
// is missing from doc. Names may address one nested level ("geometry.geom");
// a nested field is only checked when its parent object is present.
func CheckRequiredFields(doc Fields, fields []string, updating bool) *Errors {
	errs := &Errors{}
	for _, field := range fields {
		parent, child, nested := strings.Cut(field, ".")
		if !nested {
			if updating && (field == "geometry" || field == "locales") {
				// both may be left empty on update
				continue
			}
			if IsMissing(doc[field]) {
				errs.Add(LocationBody, field, "Required")
			}
			continue
		}

		if field == "locales.title" {
			// checked per locale when the body is decoded
			continue
		}
		attr, ok := asMap(doc[parent])
		if !ok || len(attr) == 0 {
			continue
		}
		if IsMissing(attr[child]) {
			errs.Add(LocationBody, field, "Required")
		}
	}
	return errs
}

// CheckDuplicateLocales reports the first language that appears twice in
// the locales list. Later duplicates are not reported.
func CheckDuplicateLocales(doc Fields) *Errors {
	errs := &Errors{}
	locales, ok := asSlice(doc["locales"])
	if !ok {
		return errs
	}
	seen := make(map[string]bool, len(locales))
	for _, raw := range locales {
		locale, _ := asMap(raw)
		lang := localeLang(locale)
		if seen[lang] {
			errs.Add(LocationBody, "locales", fmt.Sprintf("lang %q is given twice", lang))
			return errs
		}
		seen[lang] = true
	}
	return errs
}

// CheckLocaleTitles reports every locale in the body that has no title,
// keyed by its position ("locales.1.title").
func CheckLocaleTitles(doc Fields) *Errors {
	errs := &Errors{}
	locales, _ := asSlice(doc["locales"])
	for i, raw := range locales {
		locale, _ := asMap(raw)
		if IsMissing(locale["title"]) {
			errs.Add(LocationBody, fmt.Sprintf("locales.%d.title", i), "Required")
		}
	}
	return errs
}

// ValidateDocument runs the generic document checks.
func ValidateDocument(doc Fields, required []string, updating bool) *Errors {
	errs := CheckRequiredFields(doc, required, updating)
	errs.Merge(CheckDuplicateLocales(doc))
	return errs
}

func localeLang(locale map[string]any) string {
	for _, key := range []string{"lang", "culture"} {
		if v, ok := locale[key]; ok && v != nil {
			return fmt.Sprint(v)
		}
	}
	return ""
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Fields:
		return m, true
	}
	return nil, false
}

func asSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []map[string]any:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, true
	case []Fields:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, true
	}
	return nil, false
}
