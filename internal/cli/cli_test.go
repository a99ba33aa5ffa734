package cli

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/example/wordsync/internal/excel"
	"github.com/example/wordsync/internal/server"
)

const testSecret = "cli-secret"

// writeConfig writes a config file for one device and returns its path
func writeConfig(t *testing.T, baseURL, token string) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`env: development
user_id: u1
db:
  type: sqlite
  path: %s
remote:
  base_url: %q
  token: %q
  timeout: 5s
sync:
  debounce: 1h
server:
  addr: "127.0.0.1:0"
  jwt_secret: %s
log:
  level: error
`, filepath.Join(dir, "wordsync.db"), baseURL, token, testSecret)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", configPath}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_Offline(t *testing.T) {
	cfg := writeConfig(t, "", "")

	out, err := run(t, cfg, "practice", "cat", "cet4", "--wrong", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "cat: 1 correct, 1 wrong")

	out, err = run(t, cfg, "review", "due", "-n", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to review")

	out, err = run(t, cfg, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "never")

	_, err = run(t, cfg, "sync")
	assert.ErrorIs(t, err, errNoRemote)

	_, err = run(t, cfg, "sync", "sideways")
	assert.Error(t, err)
}

func TestCLI_Token(t *testing.T) {
	cfg := writeConfig(t, "", "")

	out, err := run(t, cfg, "token", "u1", "--ttl", "1h")
	require.NoError(t, err)

	claims, err := server.NewAuth(testSecret).ParseToken(string(bytes.TrimSpace([]byte(out))))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}

func TestCLI_ImportRequiresDict(t *testing.T) {
	cfg := writeConfig(t, "", "")
	path := filepath.Join(t.TempDir(), "words.csv")
	require.NoError(t, os.WriteFile(path, []byte("word\ncat\n"), 0o644))

	_, err := run(t, cfg, "import", path)
	assert.Error(t, err)

	out, err := run(t, cfg, "import", path, "--dict", "cet4")
	require.NoError(t, err)
	assert.Contains(t, out, "1 scheduled")

	out, err = run(t, cfg, "review", "due")
	require.NoError(t, err)
	assert.Contains(t, out, "cat")
}

// Two devices of the same user meet through the reference server
func TestCLI_TwoDevices(t *testing.T) {
	auth := server.NewAuth(testSecret)
	srv := httptest.NewServer(server.New(auth, nil, zap.NewNop()).Handler())
	defer srv.Close()

	token, err := auth.GenerateToken("u1", time.Hour)
	require.NoError(t, err)
	phone := writeConfig(t, srv.URL, token)
	laptop := writeConfig(t, srv.URL, token)

	_, err = run(t, phone, "practice", "cat", "cet4", "--wrong", "2")
	require.NoError(t, err)

	out, err := run(t, laptop, "sync", "download")
	require.NoError(t, err)
	assert.Contains(t, out, "Merge report")

	out, err = run(t, laptop, "status")
	require.NoError(t, err)
	assert.NotContains(t, out, "Last error")

	xlsx := filepath.Join(t.TempDir(), "laptop.xlsx")
	_, err = run(t, laptop, "export", xlsx)
	require.NoError(t, err)

	f, err := excelize.OpenFile(xlsx)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(excel.ScheduleSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "cat", rows[1][0])

	_, err = run(t, writeConfig(t, srv.URL, "garbage"), "sync")
	assert.Error(t, err)
}
