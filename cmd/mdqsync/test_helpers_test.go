package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"mdqsync/internal/fingerprint"
	"mdqsync/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	mdq        *stubMDQ
}

// stubMDQ answers signed document requests for the registered entity IDs.
type stubMDQ struct {
	mu       sync.Mutex
	entities map[string]string
	status   int
	fetches  int
}

func (s *stubMDQ) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	s.fetches++
	if s.status != 0 {
		w.WriteHeader(s.status)
		return
	}
	id, ok := s.entities[strings.TrimPrefix(r.URL.Path, "/entities/{sha1}")]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write([]byte(testsupport.EntityXML(id, "<ds:Signature/>")))
}

func (s *stubMDQ) setStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func (s *stubMDQ) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func setupCLITestEnv(t *testing.T, entityIDs ...string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	stub := &stubMDQ{entities: map[string]string{}}
	for _, id := range entityIDs {
		stub.entities[fingerprint.DigestIdentifier(id)] = id
	}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	env := &cliTestEnv{
		baseDir:    filepath.Join(base, "mirror"),
		configPath: filepath.Join(base, "config.toml"),
		mdq:        stub,
	}
	writeTestConfig(t, env.configPath, env.baseDir, srv.URL)
	return env
}

func (e *cliTestEnv) incomingDir() string {
	return filepath.Join(e.baseDir, "incoming_metadata")
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path, baseDir, serviceURL string) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
base_dir = %q

[mdq]
service_url = %q
request_timeout = 5

[schedule]
runs_per_hour = 1
min_per_run = 5

[logging]
level = "error"
`, baseDir, serviceURL)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
