package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	t.Setenv("LW_TEST_PASS", "hunter2")
	t.Setenv("LW_TEST_EMPTY", "")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr string
	}{
		{"literal", "plain", "plain", ""},
		{"reference", "${LW_TEST_PASS}", "hunter2", ""},
		{"embedded", "pre-${LW_TEST_PASS}-post", "pre-hunter2-post", ""},
		{"fallback used", "${LW_TEST_UNSET:-guest}", "guest", ""},
		{"empty fallback", "${LW_TEST_UNSET:-}", "", ""},
		{"fallback ignored", "${LW_TEST_PASS:-guest}", "hunter2", ""},
		{"empty counts as missing", "${LW_TEST_EMPTY}", "", "LW_TEST_EMPTY"},
		{"missing named once", "${LW_TEST_UNSET}${LW_TEST_UNSET}", "", "missing environment variable(s): LW_TEST_UNSET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expand(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.NotContains(t, err.Error(), "hunter2")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func writeSecret(t *testing.T, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
	require.NoError(t, os.Chmod(path, mode))
	return path
}

func TestReadFile(t *testing.T) {
	t.Run("trims trailing newlines", func(t *testing.T) {
		got, err := ReadFile(writeSecret(t, " s3cret \r\n", 0o600))
		require.NoError(t, err)
		assert.Equal(t, " s3cret ", got)
	})

	t.Run("permissive mode still reads", func(t *testing.T) {
		got, err := ReadFile(writeSecret(t, "s3cret", 0o644))
		require.NoError(t, err)
		assert.Equal(t, "s3cret", got)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ReadFile(writeSecret(t, "\n", 0o600))
		require.Error(t, err)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := ReadFile(filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
	})

	t.Run("directory", func(t *testing.T) {
		_, err := ReadFile(t.TempDir())
		require.Error(t, err)
	})

	t.Run("too large", func(t *testing.T) {
		big := make([]byte, maxFileSize+1)
		for i := range big {
			big[i] = 'x'
		}
		_, err := ReadFile(writeSecret(t, string(big), 0o600))
		require.Error(t, err)
	})
}

func TestResolve(t *testing.T) {
	t.Setenv("LW_TEST_PASS", "from-env")
	file := writeSecret(t, "from-file\n", 0o600)

	got, err := Resolve(file, "${LW_TEST_PASS}")
	require.NoError(t, err)
	assert.Equal(t, "from-file", got, "file wins over value")

	got, err = Resolve("", "${LW_TEST_PASS}")
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)

	got, err = Resolve("", "")
	require.NoError(t, err)
	assert.Empty(t, got)
}
