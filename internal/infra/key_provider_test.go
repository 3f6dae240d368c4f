package infra

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryKeyFile(t *testing.T) {
	tests := []struct {
		name   string
		testFn func(t *testing.T, f *HistoryKeyFile)
	}{
		{
			name: "missing file",
			testFn: func(t *testing.T, f *HistoryKeyFile) {
				assert.False(t, f.KeyExists())
				_, err := f.GetKey()
				assert.Error(t, err)
			},
		},
		{
			name: "stored hex encoded and owner only",
			testFn: func(t *testing.T, f *HistoryKeyFile) {
				key, err := GenerateKey()
				require.NoError(t, err)
				require.NoError(t, f.StoreKey(key))

				raw, err := os.ReadFile(f.path)
				require.NoError(t, err)
				assert.Len(t, strings.TrimSpace(string(raw)), 2*historyKeyLen)

				info, err := os.Stat(f.path)
				require.NoError(t, err)
				assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

				got, err := f.GetKey()
				require.NoError(t, err)
				assert.Equal(t, key, got)
			},
		},
		{
			name: "hand edited file with whitespace",
			testFn: func(t *testing.T, f *HistoryKeyFile) {
				hexKey := strings.Repeat("ab", historyKeyLen)
				require.NoError(t, os.WriteFile(f.path, []byte("  "+hexKey+"\n\n"), 0600))

				got, err := f.GetKey()
				require.NoError(t, err)
				assert.Len(t, got, historyKeyLen)
			},
		},
		{
			name: "rejects garbage and short keys",
			testFn: func(t *testing.T, f *HistoryKeyFile) {
				require.NoError(t, os.WriteFile(f.path, []byte("not hex!"), 0600))
				_, err := f.GetKey()
				assert.Error(t, err)

				require.NoError(t, os.WriteFile(f.path, []byte("abcd"), 0600))
				_, err = f.GetKey()
				assert.ErrorContains(t, err, "want 32")

				assert.Error(t, f.StoreKey([]byte("tooshort")))
			},
		},
		{
			name: "creates parent directories",
			testFn: func(t *testing.T, f *HistoryKeyFile) {
				f.path = filepath.Join(filepath.Dir(f.path), "sub", "dir", "history.key")

				key, err := GenerateKey()
				require.NoError(t, err)
				require.NoError(t, f.StoreKey(key))
				assert.True(t, f.KeyExists())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.testFn(t, NewHistoryKeyFile(filepath.Join(t.TempDir(), "history.key")))
		})
	}
}

func TestGenerateKey_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := GenerateKey()
		require.NoError(t, err)
		assert.Len(t, key, historyKeyLen)
		assert.False(t, seen[string(key)], "duplicate key generated")
		seen[string(key)] = true
	}
}

func TestEnsureKey(t *testing.T) {
	f := NewHistoryKeyFile(filepath.Join(t.TempDir(), "history.key"))

	first, err := EnsureKey(f)
	require.NoError(t, err)
	assert.True(t, f.KeyExists())

	again, err := EnsureKey(f)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}
