package runner

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"time"

	v1 "github.com/infracollect/epubfold/apis/v1"
	"github.com/infracollect/epubfold/internal/engine"
)

// BuildVariables returns the variables available to job templates: the
// built-in JOB_* values plus every environment variable in allowedEnv.
// Each allowed variable must be set.
func BuildVariables(job v1.ConvertJob, allowedEnv []string) (map[string]string, error) {
	date := time.Now().UTC()
	variables := map[string]string{
		"JOB_NAME":         job.Metadata.Name,
		"JOB_DATE_ISO8601": date.Format(engine.ISO8601Basic),
		"JOB_DATE_RFC3339": date.Format(time.RFC3339),
	}

	var errs error
	for _, envName := range allowedEnv {
		val, ok := os.LookupEnv(envName)
		if !ok {
			errs = errors.Join(errs, fmt.Errorf("environment variable %q is not set", envName))
			continue
		}
		variables[envName] = val
	}

	if errs != nil {
		return nil, errs
	}

	return variables, nil
}

// ExpandTemplates expands ${VAR} references in place in the struct pointed to
// by in. Only string and *string fields tagged `template` are expanded
// (`template:"-"` opts out); struct and *struct fields are always explored.
func ExpandTemplates[T any](in *T, variables map[string]string) error {
	if in == nil {
		return nil
	}
	v := reflect.ValueOf(in).Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("ExpandTemplates expects *struct; got *%s", v.Type())
	}
	return expandStruct(v, variables)
}

func expandStruct(v reflect.Value, variables map[string]string) error {
	typ := v.Type()
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag, tagged := sf.Tag.Lookup("template")
		expandable := tagged && tag != "-"
		field := v.Field(i)

		switch field.Kind() {
		case reflect.String:
			if !expandable {
				continue
			}
			expanded, err := Expand(field.String(), variables)
			if err != nil {
				return fmt.Errorf("%s: %w", sf.Name, err)
			}
			field.SetString(expanded)

		case reflect.Struct:
			if err := expandStruct(field, variables); err != nil {
				return err
			}

		case reflect.Ptr:
			if field.IsNil() {
				continue
			}
			elem := field.Elem()
			switch {
			case elem.Kind() == reflect.Struct:
				if err := expandStruct(elem, variables); err != nil {
					return err
				}
			case elem.Kind() == reflect.String && expandable:
				expanded, err := Expand(elem.String(), variables)
				if err != nil {
					return fmt.Errorf("%s: %w", sf.Name, err)
				}
				// Replace the pointer so a string shared with the caller is left untouched.
				ptr := reflect.New(elem.Type())
				ptr.Elem().SetString(expanded)
				field.Set(ptr)
			}
		}
	}
	return nil
}

// Expand replaces ${VAR} references in the input string using the provided variables map.
// Returns an error if any referenced variable is not in the variables map.
func Expand(value string, variables map[string]string) (string, error) {
	var errs error

	result := os.Expand(value, func(key string) string {
		if val, ok := variables[key]; ok {
			return val
		}
		errs = errors.Join(errs, fmt.Errorf("environment variable %q is not in the allowed list", key))
		return ""
	})

	if errs != nil {
		return "", errs
	}

	return result, nil
}
