package queue

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/mybeats/internal/app/notification"
	"github.com/osa030/mybeats/internal/domain/song"
	"github.com/osa030/mybeats/internal/infra/store"
)

type toastRecorder struct {
	messages []string
}

func (r *toastRecorder) Toast(_ notification.ToastType, message string) {
	r.messages = append(r.messages, message)
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	backend, err := store.NewFile(afero.NewMemMapFs(), "/store")
	require.NoError(t, err)
	return store.New(backend)
}

func ids(songs []song.Song) []string {
	out := make([]string, len(songs))
	for i, s := range songs {
		out[i] = s.ID
	}
	return out
}

var (
	a = song.Song{ID: "a", Title: "Alpha"}
	b = song.Song{ID: "b", Title: "Bravo"}
	c = song.Song{ID: "c", Title: "Charlie"}
	d = song.Song{ID: "d", Title: "Delta"}
)

func TestQueue_FIFO(t *testing.T) {
	q := New(newStore(t))
	q.Add(a)
	q.Add(b)

	next, ok := q.Next()
	require.True(t, ok)
	assert.Equal(t, a, next)

	next, ok = q.Next()
	require.True(t, ok)
	assert.Equal(t, b, next)

	_, ok = q.Next()
	assert.False(t, ok)
}

func TestQueue_AddAt(t *testing.T) {
	tests := []struct {
		name     string
		position int
		expected []string
	}{
		{name: "front", position: 0, expected: []string{"d", "a", "b", "c"}},
		{name: "middle", position: 2, expected: []string{"a", "b", "d", "c"}},
		{name: "end", position: 3, expected: []string{"a", "b", "c", "d"}},
		{name: "past end appends", position: 99, expected: []string{"a", "b", "c", "d"}},
		{name: "negative counts from end", position: -1, expected: []string{"a", "b", "d", "c"}},
		{name: "very negative inserts at front", position: -99, expected: []string{"d", "a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New(newStore(t))
			q.Replace([]song.Song{a, b, c})
			q.AddAt(d, tt.position)
			assert.Equal(t, tt.expected, ids(q.Items()))
		})
	}
}

func TestQueue_Remove(t *testing.T) {
	q := New(newStore(t))
	q.Replace([]song.Song{a, b, c})

	removed, ok := q.Remove(1)
	require.True(t, ok)
	assert.Equal(t, b, removed)
	assert.Equal(t, []string{"a", "c"}, ids(q.Items()))

	_, ok = q.Remove(-1)
	assert.False(t, ok)
	_, ok = q.Remove(2)
	assert.False(t, ok)
	assert.Equal(t, 2, q.Len())
}

func TestQueue_AllowsDuplicates(t *testing.T) {
	q := New(newStore(t))
	q.Add(a)
	q.Add(a)
	assert.Equal(t, []string{"a", "a"}, ids(q.Items()))
}

func TestQueue_SnapshotIsDetached(t *testing.T) {
	q := New(newStore(t))
	q.Add(a)

	items := q.Items()
	items[0].Title = "changed"
	assert.Equal(t, "Alpha", q.Items()[0].Title)
}

func TestQueue_PersistsEveryMutation(t *testing.T) {
	st := newStore(t)
	q := New(st)

	q.Add(a)
	q.AddAt(b, 0)

	restored := New(st)
	restored.Load()
	assert.Equal(t, []string{"b", "a"}, ids(restored.Items()))

	q.Clear()
	restored.Load()
	assert.Empty(t, restored.Items())

	var raw []song.Song
	require.True(t, st.Load(store.KeyQueue, &raw))
	assert.NotNil(t, raw)
}

func TestQueue_Observers(t *testing.T) {
	var sizes []int
	toasts := &toastRecorder{}
	q := New(newStore(t), WithChangeHandler(func(n int) { sizes = append(sizes, n) }), WithToaster(toasts))

	q.Add(a)
	q.AddAt(b, 0)
	q.Next()
	q.Remove(5)
	q.Clear()

	assert.Equal(t, []int{1, 2, 1, 0}, sizes)
	assert.Equal(t, []string{`Added "Alpha" to queue`, `Added "Bravo" to queue`}, toasts.messages)
}
