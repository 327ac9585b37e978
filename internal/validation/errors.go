package validation

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	LocationBody        = "body"
	LocationURL         = "url"
	LocationQueryString = "querystring"
)

type FieldError struct {
	Location    string `json:"location"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Errors accumulates field errors across validators. The zero value and a
// nil *Errors are both empty and ready to use.
type Errors struct {
	items []FieldError
}

func (e *Errors) Add(location, name, description string) {
	e.items = append(e.items, FieldError{Location: location, Name: name, Description: description})
}

func (e *Errors) Merge(other *Errors) {
	if other == nil {
		return
	}
	e.items = append(e.items, other.items...)
}

func (e *Errors) Empty() bool { return e == nil || len(e.items) == 0 }

func (e *Errors) Len() int {
	if e == nil {
		return 0
	}
	return len(e.items)
}

func (e *Errors) Items() []FieldError {
	if e == nil {
		return nil
	}
	return e.items
}

// Err returns e as an error, or nil when nothing was collected.
func (e *Errors) Err() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *Errors) Error() string {
	parts := make([]string, 0, e.Len())
	for _, item := range e.Items() {
		parts = append(parts, fmt.Sprintf("%s.%s: %s", item.Location, item.Name, item.Description))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *Errors) MarshalJSON() ([]byte, error) {
	items := e.Items()
	if items == nil {
		items = []FieldError{}
	}
	return json.Marshal(struct {
		Status string       `json:"status"`
		Errors []FieldError `json:"errors"`
	}{Status: "error", Errors: items})
}
