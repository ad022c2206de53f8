package utils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/clinsight-cli/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeWriteFileCreatesParents(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out", "report.md")
	require.NoError(t, utils.SafeWriteFile(p, []byte("hello")))
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
	_, err = os.Stat(p + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestPrettyJSONKeepsText(t *testing.T) {
	b, err := utils.PrettyJSON(map[string]string{"dx": "<肺腺癌>"})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"dx\": \"<肺腺癌>\"\n}", string(b))
}
