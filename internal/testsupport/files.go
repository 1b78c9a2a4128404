package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// EntityXML returns a minimal entity descriptor for entityID. The extra string
// is placed inside the root so callers can vary content without changing the
// identifier.
func EntityXML(entityID, extra string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<md:EntityDescriptor xmlns:md="urn:oasis:names:tc:SAML:2.0:metadata" entityID="%s">
  <md:SPSSODescriptor protocolSupportEnumeration="urn:oasis:names:tc:SAML:2.0:protocol"/>%s
</md:EntityDescriptor>
`, entityID, extra)
}

// WriteEntity writes an entity descriptor named name into dir and returns its path.
func WriteEntity(t testing.TB, dir, name, entityID, extra string) string {
	t.Helper()
	return WriteRaw(t, dir, name, EntityXML(entityID, extra))
}

// WriteRaw writes content verbatim into dir/name.
func WriteRaw(t testing.TB, dir, name, content string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// ReadFile returns the content of path, failing the test when it is unreadable.
func ReadFile(t testing.TB, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// Exists reports whether path exists.
func Exists(t testing.TB, path string) bool {
	t.Helper()

	_, err := os.Stat(path)
	if err == nil {
		return true
	}
	if !os.IsNotExist(err) {
		t.Fatalf("stat %s: %v", path, err)
	}
	return false
}
