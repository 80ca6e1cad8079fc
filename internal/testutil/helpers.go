// internal/testutil/helpers.go
package testutil

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// AssertEqual verifica que dos valores sean iguales.
func AssertEqual[T comparable](t *testing.T, got, want T, msg string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %v, want %v", msg, got, want)
	}
}

// AssertDeepEqual compara slices, maps y structs.
func AssertDeepEqual(t *testing.T, got, want any, msg string) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("%s:\n got  %#v\n want %#v", msg, got, want)
	}
}

// AssertNil trata como nil también los punteros/maps/slices nil tipados.
func AssertNil(t *testing.T, got any, msg string) {
	t.Helper()
	if !isNil(got) {
		t.Errorf("%s: expected nil, got %v", msg, got)
	}
}

func AssertNotNil(t *testing.T, got any, msg string) {
	t.Helper()
	if isNil(got) {
		t.Errorf("%s: expected non-nil value", msg)
	}
}

func AssertError(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Errorf("%s: expected error, got nil", msg)
	}
}

func AssertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Errorf("%s: unexpected error: %v", msg, err)
	}
}

// RequireNoError aborta el test.
func RequireNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", msg, err)
	}
}

func AssertTrue(t *testing.T, condition bool, msg string) {
	t.Helper()
	if !condition {
		t.Errorf("%s: expected true, got false", msg)
	}
}

func AssertFalse(t *testing.T, condition bool, msg string) {
	t.Helper()
	if condition {
		t.Errorf("%s: expected false, got true", msg)
	}
}

// AssertContains acepta un string o un []string.
func AssertContains(t *testing.T, container any, element string, msg string) {
	t.Helper()
	switch v := container.(type) {
	case []string:
		for _, item := range v {
			if item == element {
				return
			}
		}
		t.Errorf("%s: slice %v does not contain %q", msg, v, element)
	case string:
		if !strings.Contains(v, element) {
			t.Errorf("%s: string %q does not contain %q", msg, v, element)
		}
	default:
		t.Errorf("%s: unsupported type %T for AssertContains", msg, container)
	}
}

// WriteFile crea dir/name con content y devuelve la ruta.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
