package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"task-manager/internal/service"
)

// dueDateLayouts are the accepted due_date encodings, tried in order.
var dueDateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"}

var jsonNull = []byte("null")

// decodeTaskInput reads a task body, telling an explicit null apart from an
// absent key so updates can clear nullable fields.
func decodeTaskInput(w http.ResponseWriter, r *http.Request) (service.TaskInput, bool) {
	var raw map[string]json.RawMessage
	if !decodeJSON(w, r, &raw) {
		return service.TaskInput{}, false
	}
	in, err := parseTaskFields(raw)
	if err != nil {
		writeError(w, err, "Task")
		return service.TaskInput{}, false
	}
	return in, true
}

func parseTaskFields(raw map[string]json.RawMessage) (service.TaskInput, error) {
	var in service.TaskInput
	v := &service.ValidationError{}

	in.Title = stringField(raw, "title", v)
	in.Status = stringField(raw, "status", v)
	in.Priority = stringField(raw, "priority", v)
	in.Description, in.ClearDesc = nullableString(raw, "description", v)

	if msg, ok := raw["due_date"]; ok {
		if isNull(msg) {
			in.ClearDueDate = true
		} else if due, ok := parseDueDate(msg); ok {
			in.DueDate = &due
		} else {
			v.Add("due_date", "The due date is not a valid date.")
		}
	}

	if msg, ok := raw["category_id"]; ok {
		if isNull(msg) {
			in.ClearCategory = true
		} else {
			var id uint
			if err := json.Unmarshal(msg, &id); err != nil || id == 0 {
				v.Add("category_id", "The selected category id is invalid.")
			} else {
				in.CategoryID = &id
			}
		}
	}

	return in, v.Err()
}

// decodeCategoryInput reads a category body; null clears description or color.
func decodeCategoryInput(w http.ResponseWriter, r *http.Request) (service.CategoryInput, bool) {
	var raw map[string]json.RawMessage
	if !decodeJSON(w, r, &raw) {
		return service.CategoryInput{}, false
	}
	in, err := parseCategoryFields(raw)
	if err != nil {
		writeError(w, err, "Category")
		return service.CategoryInput{}, false
	}
	return in, true
}

func parseCategoryFields(raw map[string]json.RawMessage) (service.CategoryInput, error) {
	var in service.CategoryInput
	v := &service.ValidationError{}
	in.Name = stringField(raw, "name", v)
	in.Description, in.ClearDescription = nullableString(raw, "description", v)
	in.Color, in.ClearColor = nullableString(raw, "color", v)
	return in, v.Err()
}

// stringField returns the string under key, nil when the key is absent. A
// null yields an empty string so required checks reject it.
func stringField(raw map[string]json.RawMessage, key string, v *service.ValidationError) *string {
	msg, ok := raw[key]
	if !ok {
		return nil
	}
	var s string
	if isNull(msg) {
		return &s
	}
	if err := json.Unmarshal(msg, &s); err != nil {
		v.Add(key, "The "+label(key)+" must be a string.")
		return nil
	}
	return &s
}

// nullableString is stringField for optional columns: a null reports clear.
func nullableString(raw map[string]json.RawMessage, key string, v *service.ValidationError) (*string, bool) {
	if msg, ok := raw[key]; ok && isNull(msg) {
		return nil, true
	}
	return stringField(raw, key, v), false
}

func parseDueDate(msg json.RawMessage) (time.Time, bool) {
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func isNull(msg json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(msg), jsonNull)
}

func label(key string) string {
	return strings.ReplaceAll(key, "_", " ")
}
