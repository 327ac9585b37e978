package validation

import (
	"net/url"
	"slices"
	"strconv"

	"golang.org/x/text/language"
)

const (
	DefaultLimit = 30
	MaxLimit     = 100
)

// Langs are the languages documents can be written in.
var Langs = []string{"fr", "it", "de", "en", "es", "ca", "eu", "sl", "zh"}

// ImageSizes are the size suffixes served by the image host.
var ImageSizes = []string{"SI", "MI", "BI"}

type Pagination struct {
	Offset int
	Limit  int
}

func ValidateID(raw string) (int64, *Errors) {
	errs := &Errors{}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		errs.Add(LocationURL, "id", "invalid id")
	}
	return id, errs
}

func ValidatePagination(query url.Values) (Pagination, *Errors) {
	errs := &Errors{}
	p := Pagination{Offset: 0, Limit: DefaultLimit}

	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			errs.Add(LocationQueryString, "offset", "invalid offset")
		} else {
			p.Offset = offset
		}
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			errs.Add(LocationQueryString, "limit", "invalid limit")
		} else {
			p.Limit = min(limit, MaxLimit)
		}
	}
	return p, errs
}

// ValidateLangParam checks an optional language query parameter such as
// "l" or "pl". An absent parameter yields "".
func ValidateLangParam(query url.Values, key string) (string, *Errors) {
	errs := &Errors{}
	raw := query.Get(key)
	if raw == "" {
		return "", errs
	}
	if !isLang(raw) {
		errs.Add(LocationQueryString, key, "invalid lang")
		return "", errs
	}
	return raw, errs
}

// ValidateLang checks a mandatory language taken from the path.
func ValidateLang(raw string) (string, *Errors) {
	errs := &Errors{}
	if !isLang(raw) {
		errs.Add(LocationURL, "lang", "invalid lang")
		return "", errs
	}
	return raw, errs
}

// ValidateSize accepts an absent size or one of ImageSizes.
func ValidateSize(query url.Values) (string, *Errors) {
	errs := &Errors{}
	if !query.Has("size") {
		return "", errs
	}
	size := query.Get("size")
	if !slices.Contains(ImageSizes, size) {
		errs.Add(LocationQueryString, "size", "invalid size")
		return "", errs
	}
	return size, errs
}

func isLang(raw string) bool {
	base, err := language.ParseBase(raw)
	if err != nil {
		return false
	}
	return base.String() == raw && slices.Contains(Langs, raw)
}
