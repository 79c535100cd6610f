package store

import (
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/mybeats/internal/infra/config"
)

type failingBackend struct{}

func (failingBackend) Get(string) ([]byte, error) { return nil, errors.New("disk on fire") }
func (failingBackend) Put(string, []byte) error   { return errors.New("quota exceeded") }
func (failingBackend) Delete(string) error        { return errors.New("read-only") }
func (failingBackend) Clear() error               { return errors.New("read-only") }
func (failingBackend) Close() error               { return nil }

func newBackends(t *testing.T) map[string]Backend {
	t.Helper()

	fileBackend, err := NewFile(afero.NewMemMapFs(), "/data/store")
	require.NoError(t, err)

	sqliteBackend, err := NewSQLite(filepath.Join(t.TempDir(), "mybeats.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteBackend.Close() })

	return map[string]Backend{
		"file":   fileBackend,
		"sqlite": sqliteBackend,
	}
}

func TestBackends(t *testing.T) {
	for name, backend := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := backend.Get(KeyQueue)
			assert.True(t, errors.Is(err, ErrNotFound))

			require.NoError(t, backend.Put(KeyQueue, []byte(`[1]`)))
			require.NoError(t, backend.Put(KeyQueue, []byte(`[1,2]`)))
			require.NoError(t, backend.Put(KeyFavoriteSongs, []byte(`["a"]`)))

			data, err := backend.Get(KeyQueue)
			require.NoError(t, err)
			assert.Equal(t, `[1,2]`, string(data))

			require.NoError(t, backend.Delete(KeyQueue))
			require.NoError(t, backend.Delete(KeyQueue))
			_, err = backend.Get(KeyQueue)
			assert.True(t, errors.Is(err, ErrNotFound))

			require.NoError(t, backend.Clear())
			_, err = backend.Get(KeyFavoriteSongs)
			assert.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestStore_SaveLoad(t *testing.T) {
	type entry struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}

	for name, backend := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(backend)

			assert.True(t, s.Save(KeyRecentlyPlayed, []entry{{ID: "1", Title: "Intro"}}))

			var loaded []entry
			require.True(t, s.Load(KeyRecentlyPlayed, &loaded))
			assert.Equal(t, []entry{{ID: "1", Title: "Intro"}}, loaded)

			assert.True(t, s.Remove(KeyRecentlyPlayed))
			fallback := []entry{{ID: "default"}}
			assert.False(t, s.Load(KeyRecentlyPlayed, &fallback))
			assert.Equal(t, []entry{{ID: "default"}}, fallback)

			assert.True(t, s.Clear())
		})
	}
}

func TestStore_CorruptValueKeepsDefault(t *testing.T) {
	backend, err := NewFile(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)
	require.NoError(t, backend.Put(KeyFavoriteArtists, []byte(`{not json`)))

	s := New(backend)
	favorites := []string{"keep"}
	assert.False(t, s.Load(KeyFavoriteArtists, &favorites))
	assert.Equal(t, []string{"keep"}, favorites)
}

func TestStore_BackendFailures(t *testing.T) {
	s := New(failingBackend{})

	assert.False(t, s.Save(KeyQueue, []string{"a"}))
	assert.False(t, s.Save(KeyQueue, make(chan int)))

	var v []string
	assert.False(t, s.Load(KeyQueue, &v))
	assert.Nil(t, v)

	assert.False(t, s.Remove(KeyQueue))
	assert.False(t, s.Clear())
}

func TestSQLite_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "mybeats.db")

	first, err := NewSQLite(path, true)
	require.NoError(t, err)
	require.True(t, New(first).Save(KeyPlaylists, []string{"p1"}))
	require.NoError(t, first.Close())

	_, err = first.Get(KeyPlaylists)
	assert.Error(t, err)

	second, err := NewSQLite(path, true)
	require.NoError(t, err)
	defer second.Close()

	var playlists []string
	require.True(t, New(second).Load(KeyPlaylists, &playlists))
	assert.Equal(t, []string{"p1"}, playlists)
}

func TestFile_Clear_SkipsForeignFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	backend, err := NewFile(fs, "/data")
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, "/data/README", []byte("keep"), 0o644))
	require.NoError(t, backend.Put(KeyQueue, []byte(`[]`)))
	require.NoError(t, backend.Clear())

	exists, err := afero.Exists(fs, "/data/README")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     config.StorageConfig
		wantErr bool
	}{
		{
			name: "sqlite with path",
			cfg: config.StorageConfig{
				Driver:   "sqlite",
				Settings: map[string]any{"path": filepath.Join(dir, "a.db"), "wal": "true"},
			},
		},
		{
			name: "file with dir",
			cfg: config.StorageConfig{
				Driver:   "file",
				Settings: map[string]any{"dir": filepath.Join(dir, "store")},
			},
		},
		{
			name:    "unknown driver",
			cfg:     config.StorageConfig{Driver: "redis"},
			wantErr: true,
		},
		{
			name: "bad settings type",
			cfg: config.StorageConfig{
				Driver:   "file",
				Settings: map[string]any{"dir": []string{"a", "b"}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, s.Save(KeyThemeColor, "dark"))
			require.NoError(t, s.Close())
		})
	}
}
