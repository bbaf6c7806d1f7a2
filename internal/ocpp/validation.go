package ocpp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"gopkg.in/go-playground/validator.v9"
)

var jsonUnmarshalerType = reflect.TypeOf((*json.Unmarshaler)(nil)).Elem()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _ := jsonFieldName(fld)
		return name
	})
	return v
}

// jsonFieldName returns the wire name of fld and whether the field must be present on
// the wire. Every field without omitempty is mandatory.
func jsonFieldName(fld reflect.StructField) (string, bool) {
	parts := strings.Split(fld.Tag.Get("json"), ",")
	name := parts[0]
	if name == "-" {
		return "", false
	}
	if name == "" {
		name = fld.Name
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			return name, false
		}
	}
	return name, true
}

// decodePayload fills target from raw and validates it. Structural problems map to
// FormationViolation, bad values to PropertyConstraintViolation.
func (c *Codec) decodePayload(raw json.RawMessage, target any, uniqueId string) *Error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return NewError(FormationViolation, uniqueId, "payload is not a JSON object")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		var typeErr *json.UnmarshalTypeError
		var dateErr *DateTimeError
		switch {
		case errors.As(err, &typeErr):
			return NewError(PropertyConstraintViolation, uniqueId,
				fmt.Sprintf("field '%s' cannot hold %s", typeErr.Field, typeErr.Value))
		case errors.As(err, &dateErr):
			return NewError(PropertyConstraintViolation, uniqueId, dateErr.Error())
		default:
			return NewError(FormationViolation, uniqueId, err.Error())
		}
	}

	// A zero number decodes the same as an absent one, so presence is read off the raw object.
	missing := missingFields(trimmed, reflect.TypeOf(target), "")

	var verrs validator.ValidationErrors
	if err := c.validate.Struct(target); err != nil && !errors.As(err, &verrs) {
		return NewError(InternalError, uniqueId, err.Error())
	}
	return classifyViolations(verrs, missing, uniqueId)
}

// missingFields lists the mandatory keys absent from (or null in) the JSON object raw,
// descending into nested objects and arrays of objects. raw has already decoded into t.
func missingFields(raw json.RawMessage, t reflect.Type, prefix string) []string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct || reflect.PointerTo(t).Implements(jsonUnmarshalerType) {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}

	var missing []string
	for i := 0; i < t.NumField(); i++ {
		fld := t.Field(i)
		if fld.PkgPath != "" {
			continue
		}
		name, mandatory := jsonFieldName(fld)
		if name == "" {
			continue
		}
		value, ok := fields[name]
		if !ok || bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			if mandatory {
				missing = append(missing, prefix+name)
			}
			continue
		}

		ft := fld.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		switch ft.Kind() {
		case reflect.Struct:
			missing = append(missing, missingFields(value, ft, prefix+name+".")...)
		case reflect.Slice:
			if ft.Elem().Kind() != reflect.Struct && ft.Elem().Kind() != reflect.Pointer {
				continue
			}
			var items []json.RawMessage
			if err := json.Unmarshal(value, &items); err != nil {
				continue
			}
			for j, item := range items {
				missing = append(missing, missingFields(item, ft.Elem(), fmt.Sprintf("%s%s[%d].", prefix, name, j))...)
			}
		}
	}
	return missing
}

// A value that is present but wrong outranks a missing field. A mandatory field that is
// present with an empty value is a bad value, not a missing one.
func classifyViolations(verrs validator.ValidationErrors, missing []string, uniqueId string) *Error {
	var invalid, empty []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			empty = append(empty, fmt.Sprintf("%s must not be empty", fe.Field()))
			continue
		}
		constraint := fe.Tag()
		if fe.Param() != "" {
			constraint += "=" + fe.Param()
		}
		invalid = append(invalid, fmt.Sprintf("%s violates %s", fe.Field(), constraint))
	}
	switch {
	case len(invalid) > 0:
		return NewError(PropertyConstraintViolation, uniqueId, strings.Join(invalid, "; "))
	case len(missing) > 0:
		return NewError(FormationViolation, uniqueId, "missing required field(s): "+strings.Join(missing, ", "))
	case len(empty) > 0:
		return NewError(PropertyConstraintViolation, uniqueId, strings.Join(empty, "; "))
	}
	return nil
}
