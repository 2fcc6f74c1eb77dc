package storagesvc

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanName(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain", in: "avatar.png", want: "avatar.png"},
		{name: "traversal", in: "../../etc/passwd", wantErr: true},
		{name: "nested", in: "a/b.png", wantErr: true},
		{name: "backslash parent", in: `..\secret.png`, want: "secret.png"},
		{name: "empty", in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cleanName(tt.in)
			if tt.wantErr {
				assert.Equal(t, ErrInvalidName, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "uploads")
	s, err := NewLocalStorage(dir, "/uploads/")
	require.NoError(t, err)

	url, err := s.Save(ctx, "u1.png", strings.NewReader("img"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/u1.png", url)

	content, err := os.ReadFile(filepath.Join(dir, "u1.png"))
	require.NoError(t, err)
	assert.Equal(t, "img", string(content))

	require.NoError(t, s.Delete(ctx, url))
	_, err = os.Stat(filepath.Join(dir, "u1.png"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, s.Delete(ctx, url), "deleting twice")
	assert.NoError(t, s.Delete(ctx, "https://cdn.example.com/u1.png"), "foreign url")
}

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage("/uploads")

	url, err := s.Save(ctx, "u1.png", strings.NewReader("img"))
	require.NoError(t, err)
	content, ok := s.Get(url)
	require.True(t, ok)
	assert.Equal(t, "img", string(content))

	require.NoError(t, s.Delete(ctx, url))
	_, ok = s.Get(url)
	assert.False(t, ok)
}
