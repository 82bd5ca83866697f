package e2e

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)
	api := startAPI(t)

	env := []string{
		"HOME=" + home,
		"OFS_SECRETS_BACKEND=file",
		"OFS_API_BASE_URL=" + api.URL,
		"OFS_AUTH_TOKEN_URL=" + api.URL + "/token",
	}

	_, stderr, err := runOFS(t, binaryPath, env, "login", "password", "--username", "ada", "--password", "hunter2")
	require.NoError(t, err, "stderr: %s", stderr)

	stdout, stderr, err := runOFS(t, binaryPath, env, "items", "list")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Groceries")

	api.Close()

	stdout, stderr, err = runOFS(t, binaryPath, env, "items", "list")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "offline: served from cache")
	assert.Contains(t, stdout, "Groceries")

	stdout, stderr, err = runOFS(t, binaryPath, env, "whoami")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "ada@example.org")
}

func startAPI(t *testing.T) *httptest.Server {
	t.Helper()

	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"user-1","email":"ada@example.org","name":"Ada"}`))
	accessToken := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`)) + "." + payload + ".c2ln"

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"` + accessToken + `","refresh_token":"rt","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/items", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"1","title":"Groceries"}]`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "ofs-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/ofs")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build ofs binary: %s", string(output))
	return binaryPath
}

func runOFS(t *testing.T, binaryPath string, env []string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), env...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}
