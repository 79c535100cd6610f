package playback

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/mybeats/internal/app/catalog"
	"github.com/osa030/mybeats/internal/app/history"
	"github.com/osa030/mybeats/internal/app/loader"
	"github.com/osa030/mybeats/internal/app/queue"
	"github.com/osa030/mybeats/internal/domain/song"
	"github.com/osa030/mybeats/internal/infra/audio"
	"github.com/osa030/mybeats/internal/infra/audio/audiotest"
	"github.com/osa030/mybeats/internal/infra/store"
)

const testLibrary = `
artists:
  - artist: X
    albums:
      - album: Y
        songs:
          - {id: "y-1", title: "First Light", duration: "3:20"}
          - {id: "y-2", title: "Second Wind", duration: "2:45"}
          - {id: "y-3", title: "Third Rail", duration: "4:05"}
      - album: Solo
        songs:
          - {id: "s-1", title: "Only One", duration: "1:30"}
  - artist: Z
    albums:
      - album: Elsewhere
        songs:
          - {id: "e-1", title: "Far Away", duration: "5:00"}
`

type fixture struct {
	engine  *Engine
	element *audiotest.Element
	queue   *queue.Queue
	history *history.History
	catalog *catalog.Catalog
}

func newFixture(t *testing.T, config Config) *fixture {
	t.Helper()

	backend, err := store.NewFile(afero.NewMemMapFs(), "/store")
	require.NoError(t, err)
	st := store.New(backend)

	cat, err := catalog.Parse([]byte(testLibrary), catalog.Options{ArtworkBaseURL: "https://cdn.example.com/covers"})
	require.NoError(t, err)

	el := audiotest.NewElement()
	q := queue.New(st)
	h := history.New(st, 50, 20)
	l := loader.New("https://cdn.example.com/audio", []string{"mp3", "ogg", "m4a"})

	e := NewEngine(el, l, q, h, cat, config)
	t.Cleanup(e.Close)

	return &fixture{engine: e, element: el, queue: q, history: h, catalog: cat}
}

func (f *fixture) album(t *testing.T, artist, album string) []song.Song {
	t.Helper()
	songs, ok := f.catalog.AlbumSongs(artist, album)
	require.True(t, ok)
	return songs
}

func currentID(e *Engine) string {
	st := e.Snapshot()
	if st.Song == nil {
		return ""
	}
	return st.Song.ID
}

func drainEvents(e *Engine) []Event {
	var events []Event
	for {
		select {
		case ev := <-e.Events():
			events = append(events, ev)
		default:
			return events
		}
	}
}

func historyIDs(h *history.History) []string {
	var ids []string
	for _, s := range h.Items() {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestRepeatMode(t *testing.T) {
	assert.Equal(t, RepeatAll, RepeatOff.Next())
	assert.Equal(t, RepeatOne, RepeatAll.Next())
	assert.Equal(t, RepeatOff, RepeatOne.Next())

	for _, mode := range []RepeatMode{RepeatOff, RepeatAll, RepeatOne} {
		parsed, err := ParseRepeatMode(strings.ToUpper(mode.String()))
		require.NoError(t, err)
		assert.Equal(t, mode, parsed)
	}
	_, err := ParseRepeatMode("twice")
	assert.Error(t, err)
}

func TestEngine_PlaySong(t *testing.T) {
	f := newFixture(t, Config{})
	songs := f.album(t, "X", "Y")
	ctx := context.Background()

	require.NoError(t, f.engine.PlaySong(ctx, songs[1]))

	st := f.engine.Snapshot()
	require.NotNil(t, st.Song)
	assert.Equal(t, "y-2", st.Song.ID)
	assert.Equal(t, "X", st.Artist)
	assert.Equal(t, "Y", st.Album)
	assert.Equal(t, StatusPlaying, st.Status)
	assert.True(t, st.IsPlaying)
	assert.Equal(t, 200.0, st.Duration)
	assert.Equal(t, 1, st.CurrentIndex)
	assert.Equal(t, []string{"https://cdn.example.com/audio/secondwind.mp3"}, f.element.Loads())
	assert.Empty(t, f.history.Items())
}

func TestEngine_PlaySongInvalid(t *testing.T) {
	f := newFixture(t, Config{})

	err := f.engine.PlaySong(context.Background(), song.Song{ID: "x"})
	assert.True(t, errors.Is(err, song.ErrInvalidSong))
	assert.Nil(t, f.engine.Snapshot().Song)
	assert.Empty(t, f.element.Loads())
}

func TestEngine_FallbackFormats(t *testing.T) {
	f := newFixture(t, Config{})
	f.element.LoadHook = audiotest.FailFormats("mp3", "ogg")
	songs := f.album(t, "X", "Y")

	require.NoError(t, f.engine.PlaySong(context.Background(), songs[0]))

	assert.Equal(t, []string{
		"https://cdn.example.com/audio/firstlight.mp3",
		"https://cdn.example.com/audio/firstlight.ogg",
		"https://cdn.example.com/audio/firstlight.m4a",
	}, f.element.Loads())
	assert.True(t, f.engine.Snapshot().IsPlaying)
}

func TestEngine_LoadFailureKeepsSong(t *testing.T) {
	f := newFixture(t, Config{})
	f.element.LoadHook = audiotest.FailFormats("mp3", "ogg", "m4a")
	songs := f.album(t, "X", "Y")

	require.NoError(t, f.engine.PlaySong(context.Background(), songs[0]))

	st := f.engine.Snapshot()
	require.NotNil(t, st.Song)
	assert.Equal(t, "y-1", st.Song.ID)
	assert.False(t, st.IsPlaying)
	assert.Equal(t, StatusPaused, st.Status)

	var types []EventType
	for len(f.engine.Events()) > 0 {
		types = append(types, (<-f.engine.Events()).Type)
	}
	assert.Equal(t, []EventType{EventSongChanged, EventLoadFailed}, types)
}

func TestEngine_DurationFallsBackToCatalog(t *testing.T) {
	f := newFixture(t, Config{})
	f.element.DefaultDuration = 0
	songs := f.album(t, "X", "Y")

	require.NoError(t, f.engine.PlaySong(context.Background(), songs[0]))
	assert.Equal(t, 200.0, f.engine.Snapshot().Duration)
}

// Scenario: sequential next stops at the end of the album.
func TestEngine_NextSequential(t *testing.T) {
	f := newFixture(t, Config{})
	songs := f.album(t, "X", "Y")
	ctx := context.Background()

	require.NoError(t, f.engine.PlaySong(ctx, songs[0]))
	require.NoError(t, f.engine.Next(ctx))
	assert.Equal(t, "y-2", currentID(f.engine))
	require.NoError(t, f.engine.Next(ctx))
	assert.Equal(t, "y-3", currentID(f.engine))

	err := f.engine.Next(ctx)
	assert.True(t, errors.Is(err, ErrNoNextSong))
	assert.Equal(t, "y-3", currentID(f.engine))
	assert.Equal(t, []string{"y-2", "y-1"}, historyIDs(f.history))
}

// Scenario: repeat all wraps to the first song.
func TestEngine_NextRepeatAll(t *testing.T) {
	f := newFixture(t, Config{})
	f.engine.SetRepeat(RepeatAll)
	songs := f.album(t, "X", "Y")
	ctx := context.Background()

	require.NoError(t, f.engine.PlaySong(ctx, songs[0]))
	require.NoError(t, f.engine.Next(ctx))
	require.NoError(t, f.engine.Next(ctx))
	require.NoError(t, f.engine.Next(ctx))
	assert.Equal(t, "y-1", currentID(f.engine))
}

func TestEngine_NextPrefersQueue(t *testing.T) {
	f := newFixture(t, Config{})
	songs := f.album(t, "X", "Y")
	far := f.album(t, "Z", "Elsewhere")[0]
	ctx := context.Background()

	require.NoError(t, f.engine.PlaySong(ctx, songs[0]))
	f.queue.Add(far)

	require.NoError(t, f.engine.Next(ctx))
	assert.Equal(t, "e-1", currentID(f.engine))
	assert.Equal(t, 0, f.queue.Len())

	// album navigation continues from the queued song's own album
	f.engine.SetRepeat(RepeatAll)
	require.NoError(t, f.engine.Next(ctx))
	assert.Equal(t, "e-1", currentID(f.engine))
}

func TestEngine_NextWithoutSong(t *testing.T) {
	f := newFixture(t, Config{})
	assert.True(t, errors.Is(f.engine.Next(context.Background()), ErrNoNextSong))
}

func TestEngine_NextMissingAlbum(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	orphan := song.Song{ID: "o-1", Title: "Orphan", Artist: "Nobody", Album: "Lost"}

	require.NoError(t, f.engine.PlaySong(ctx, orphan))
	assert.True(t, errors.Is(f.engine.Next(ctx), ErrNoNextSong))
	assert.Equal(t, "o-1", currentID(f.engine))
	assert.Equal(t, -1, f.engine.Snapshot().CurrentIndex)
}

func TestEngine_ShuffleBounds(t *testing.T) {
	for _, pick := range []int{0, 1, 2} {
		f := newFixture(t, Config{Intn: func(n int) int {
			require.Equal(t, 3, n)
			return pick
		}})
		f.engine.SetShuffle(true)
		songs := f.album(t, "X", "Y")
		ctx := context.Background()

		require.NoError(t, f.engine.PlaySong(ctx, songs[2]))
		require.NoError(t, f.engine.Next(ctx))
		assert.Equal(t, songs[pick].ID, currentID(f.engine))
	}
}

// Scenario: previous within the restart threshold pops History.
func TestEngine_PreviousPopsHistory(t *testing.T) {
	f := newFixture(t, Config{})
	songs := f.album(t, "X", "Y")
	ctx := context.Background()

	require.NoError(t, f.engine.PlaySong(ctx, songs[0]))
	require.NoError(t, f.engine.PlaySong(ctx, songs[1]))
	assert.Equal(t, []string{"y-1"}, historyIDs(f.history))

	f.element.Advance(2 * time.Second)
	require.NoError(t, f.engine.Previous(ctx))

	assert.Equal(t, "y-1", currentID(f.engine))
	assert.Empty(t, f.history.Items())
}

func TestEngine_PreviousRestartsPastThreshold(t *testing.T) {
	f := newFixture(t, Config{})
	songs := f.album(t, "X", "Y")
	ctx := context.Background()

	require.NoError(t, f.engine.PlaySong(ctx, songs[0]))
	require.NoError(t, f.engine.PlaySong(ctx, songs[1]))
	f.element.Advance(10 * time.Second)

	require.NoError(t, f.engine.Previous(ctx))

	assert.Equal(t, "y-2", currentID(f.engine))
	assert.Equal(t, time.Duration(0), f.element.CurrentTime())
	assert.Equal(t, []string{"y-1"}, historyIDs(f.history))
}

func TestEngine_PreviousFallsBackToAlbum(t *testing.T) {
	f := newFixture(t, Config{})
	songs := f.album(t, "X", "Y")
	ctx := context.Background()

	require.NoError(t, f.engine.PlaySong(ctx, songs[0]))
	require.NoError(t, f.engine.Previous(ctx))
	// wraps around to the last song of the album
	assert.Equal(t, "y-3", currentID(f.engine))
	assert.Equal(t, []string{"y-1"}, historyIDs(f.history))

	empty := newFixture(t, Config{})
	assert.True(t, errors.Is(empty.engine.Previous(ctx), ErrNoPreviousSong))
}

func TestEngine_HistoryNeverHoldsCurrent(t *testing.T) {
	f := newFixture(t, Config{})
	songs := f.album(t, "X", "Y")
	ctx := context.Background()

	sequence := []song.Song{songs[0], songs[1], songs[1], songs[2], songs[0], songs[0], songs[1]}
	for _, s := range sequence {
		require.NoError(t, f.engine.PlaySong(ctx, s))
		front, ok := f.history.Front()
		if ok {
			assert.NotEqual(t, currentID(f.engine), front.ID)
		}
	}
}

func TestEngine_SeekTo(t *testing.T) {
	f := newFixture(t, Config{})
	songs := f.album(t, "X", "Y")

	assert.False(t, f.engine.SeekTo(10), "no song loaded")

	require.NoError(t, f.engine.PlaySong(context.Background(), songs[0]))
	require.Equal(t, 200.0, f.engine.Snapshot().Duration)

	tests := []struct {
		name  string
		input float64
		ok    bool
		want  time.Duration
	}{
		{name: "in range", input: 42, ok: true, want: 42 * time.Second},
		{name: "negative clamps to zero", input: -5, ok: true, want: 0},
		{name: "past end clamps to duration", input: 9999, ok: true, want: 200 * time.Second},
		{name: "NaN is ignored", input: math.NaN(), ok: false, want: 200 * time.Second},
		{name: "infinity is ignored", input: math.Inf(1), ok: false, want: 200 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, f.engine.SeekTo(tt.input))
			assert.Equal(t, tt.want, f.element.CurrentTime())
		})
	}
}

func TestEngine_Skip(t *testing.T) {
	f := newFixture(t, Config{})
	songs := f.album(t, "X", "Y")
	require.NoError(t, f.engine.PlaySong(context.Background(), songs[0]))

	f.element.Advance(20 * time.Second)
	assert.True(t, f.engine.Skip(10))
	assert.Equal(t, 30*time.Second, f.element.CurrentTime())
	assert.True(t, f.engine.Skip(-45))
	assert.Equal(t, time.Duration(0), f.element.CurrentTime())
}

func TestEngine_PlayPauseStop(t *testing.T) {
	f := newFixture(t, Config{})
	songs := f.album(t, "X", "Y")
	ctx := context.Background()

	assert.ErrorIs(t, f.engine.Play(), ErrNoTrack)
	assert.ErrorIs(t, f.engine.Pause(), ErrNoTrack)
	assert.ErrorIs(t, f.engine.Stop(), ErrNoTrack)

	require.NoError(t, f.engine.PlaySong(ctx, songs[0]))

	require.NoError(t, f.engine.Pause())
	assert.True(t, f.element.Paused())
	assert.False(t, f.engine.Snapshot().IsPlaying)
	assert.Equal(t, StatusPaused, f.engine.Snapshot().Status)

	require.NoError(t, f.engine.TogglePlay())
	assert.False(t, f.element.Paused())
	assert.True(t, f.engine.Snapshot().IsPlaying)
	assert.Equal(t, StatusPlaying, f.engine.Snapshot().Status)

	f.element.Advance(30 * time.Second)
	require.NoError(t, f.engine.Stop())
	assert.True(t, f.element.Paused())
	assert.Equal(t, time.Duration(0), f.element.CurrentTime())
	assert.Equal(t, StatusIdle, f.engine.Snapshot().Status)
	assert.Equal(t, "y-1", currentID(f.engine))
}

func TestEngine_TogglePlayWithoutElementEvents(t *testing.T) {
	f := newFixture(t, Config{})
	songs := f.album(t, "X", "Y")
	require.NoError(t, f.engine.PlaySong(context.Background(), songs[0]))
	require.True(t, f.engine.Snapshot().IsPlaying)

	tests := []struct {
		name        string
		wantPlaying bool
		wantStatus  Status
	}{
		{name: "first toggle pauses", wantPlaying: false, wantStatus: StatusPaused},
		{name: "second toggle resumes", wantPlaying: true, wantStatus: StatusPlaying},
		{name: "third toggle pauses again", wantPlaying: false, wantStatus: StatusPaused},
	}

	// Run is not started, so only the control calls move the state.
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, f.engine.TogglePlay())
			st := f.engine.Snapshot()
			assert.Equal(t, tt.wantPlaying, st.IsPlaying)
			assert.Equal(t, tt.wantPlaying, !f.element.Paused())
			assert.Equal(t, tt.wantStatus, st.Status)
		})
	}
}

func TestEngine_PauseSendsStateChanged(t *testing.T) {
	f := newFixture(t, Config{})
	songs := f.album(t, "X", "Y")
	require.NoError(t, f.engine.PlaySong(context.Background(), songs[0]))
	drainEvents(f.engine)

	require.NoError(t, f.engine.Pause())
	select {
	case ev := <-f.engine.Events():
		assert.Equal(t, EventStateChanged, ev.Type)
		assert.False(t, ev.State.IsPlaying)
	default:
		t.Fatal("no state change event")
	}

	// Pausing again changes nothing.
	require.NoError(t, f.engine.Pause())
	assert.Empty(t, drainEvents(f.engine))
}

func TestEngine_TimeUpdatesKeepRoomForStateChanges(t *testing.T) {
	f := newFixture(t, Config{})
	songs := f.album(t, "X", "Y")
	require.NoError(t, f.engine.PlaySong(context.Background(), songs[0]))
	drainEvents(f.engine)

	for i := 0; i < eventBufferSize*2; i++ {
		f.engine.SeekTo(float64(i))
	}
	require.NoError(t, f.engine.Pause())

	events := drainEvents(f.engine)
	assert.Len(t, events, eventBufferSize/2+1)
	assert.Equal(t, EventStateChanged, events[len(events)-1].Type)
}

func TestEngine_SeekToWithUnknownLength(t *testing.T) {
	f := newFixture(t, Config{})
	f.element.DefaultDuration = 0
	require.NoError(t, f.engine.PlaySong(context.Background(), song.Song{ID: "u-1", Artist: "U", Album: "V", Title: "Untimed"}))
	require.Zero(t, f.engine.Snapshot().Length())

	assert.True(t, f.engine.SeekTo(500))
	assert.Equal(t, 500*time.Second, f.element.CurrentTime(), "unknown length leaves the upper bound open")
}

func TestEngine_SeekToClampsToCatalogLength(t *testing.T) {
	f := newFixture(t, Config{})
	f.element.DefaultDuration = 0
	songs := f.album(t, "X", "Y")
	require.NoError(t, f.engine.PlaySong(context.Background(), songs[0]))

	st := f.engine.Snapshot()
	require.Zero(t, st.TotalTime)
	assert.Equal(t, 200.0, st.Length())

	assert.True(t, f.engine.SeekTo(9999))
	assert.Equal(t, 200*time.Second, f.element.CurrentTime())
}

func TestEngine_PlayFailureIsLogged(t *testing.T) {
	f := newFixture(t, Config{})
	songs := f.album(t, "X", "Y")
	require.NoError(t, f.engine.PlaySong(context.Background(), songs[0]))
	require.NoError(t, f.engine.Pause())

	f.element.PlayErr = errors.New("autoplay blocked")
	assert.NoError(t, f.engine.Play())
	assert.True(t, f.element.Paused())
}

func TestEngine_EndedAdvances(t *testing.T) {
	f := newFixture(t, Config{})
	songs := f.album(t, "X", "Y")
	ctx := context.Background()

	require.NoError(t, f.engine.PlaySong(ctx, songs[0]))
	f.element.End()
	f.engine.handleElementEvent(ctx, audio.Event{Type: audio.EventEnded, Src: f.element.Source()})

	assert.Equal(t, "y-2", currentID(f.engine))
	assert.Equal(t, []string{"y-1"}, historyIDs(f.history))
}

func TestEngine_EndedRepeatOne(t *testing.T) {
	f := newFixture(t, Config{})
	f.engine.SetRepeat(RepeatOne)
	songs := f.album(t, "X", "Y")
	ctx := context.Background()

	require.NoError(t, f.engine.PlaySong(ctx, songs[1]))
	f.element.End()
	require.Equal(t, 200*time.Second, f.element.CurrentTime())

	f.engine.handleElementEvent(ctx, audio.Event{Type: audio.EventEnded, Src: f.element.Source()})

	assert.Equal(t, "y-2", currentID(f.engine))
	assert.Equal(t, time.Duration(0), f.element.CurrentTime())
	assert.False(t, f.element.Paused())
	assert.Empty(t, f.history.Items())
	assert.Len(t, f.element.Loads(), 1)
}

func TestEngine_IgnoresStaleElementEvents(t *testing.T) {
	f := newFixture(t, Config{})
	songs := f.album(t, "X", "Y")
	ctx := context.Background()

	require.NoError(t, f.engine.PlaySong(ctx, songs[0]))
	f.engine.handleElementEvent(ctx, audio.Event{Type: audio.EventEnded, Src: "https://cdn.example.com/audio/old.mp3"})

	assert.Equal(t, "y-1", currentID(f.engine))
	assert.Equal(t, StatusPlaying, f.engine.Snapshot().Status)
}

func TestEngine_SupersededLoadIsDiscarded(t *testing.T) {
	f := newFixture(t, Config{})
	songs := f.album(t, "X", "Y")
	ctx := context.Background()

	started := make(chan struct{})
	var once sync.Once
	f.element.LoadHook = func(ctx context.Context, src string) error {
		if strings.Contains(src, "firstlight") {
			once.Do(func() { close(started) })
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- f.engine.PlaySong(ctx, songs[0]) }()
	<-started

	require.NoError(t, f.engine.PlaySong(ctx, songs[1]))
	require.NoError(t, <-done)

	st := f.engine.Snapshot()
	assert.Equal(t, "y-2", st.Song.ID)
	assert.True(t, st.IsPlaying)
	assert.Equal(t, StatusPlaying, st.Status)
	assert.Equal(t, "https://cdn.example.com/audio/secondwind.mp3", f.element.Source())
	// the abandoned load never tried its other formats
	assert.Equal(t, []string{
		"https://cdn.example.com/audio/firstlight.mp3",
		"https://cdn.example.com/audio/secondwind.mp3",
	}, f.element.Loads())
}

func TestEngine_Modes(t *testing.T) {
	f := newFixture(t, Config{})

	assert.True(t, f.engine.ToggleShuffle())
	assert.False(t, f.engine.ToggleShuffle())
	assert.Equal(t, RepeatAll, f.engine.CycleRepeat())
	assert.Equal(t, RepeatOne, f.engine.CycleRepeat())
	assert.Equal(t, RepeatOff, f.engine.CycleRepeat())

	var modeEvents int
	for len(f.engine.Events()) > 0 {
		if (<-f.engine.Events()).Type == EventModeChanged {
			modeEvents++
		}
	}
	assert.Equal(t, 5, modeEvents)
}

func TestEngine_PlayCollection(t *testing.T) {
	f := newFixture(t, Config{})
	songs := f.album(t, "X", "Y")
	ctx := context.Background()

	f.queue.Add(f.album(t, "Z", "Elsewhere")[0])
	assert.ErrorIs(t, f.engine.PlayCollection(ctx, nil), ErrEmptyCollection)

	require.NoError(t, f.engine.PlayCollection(ctx, songs))
	assert.Equal(t, "y-1", currentID(f.engine))
	assert.Equal(t, 2, f.queue.Len())

	require.NoError(t, f.engine.Next(ctx))
	assert.Equal(t, "y-2", currentID(f.engine))
}

func TestEngine_RunConsumesElementEvents(t *testing.T) {
	f := newFixture(t, Config{})
	songs := f.album(t, "X", "Y")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.engine.Run(ctx)

	require.NoError(t, f.engine.PlaySong(ctx, songs[0]))
	f.element.End()

	assert.Eventually(t, func() bool {
		return currentID(f.engine) == "y-2"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEngine_Close(t *testing.T) {
	f := newFixture(t, Config{})
	f.engine.Close()
	f.engine.Close()

	err := f.engine.PlaySong(context.Background(), song.Song{ID: "1", Title: "Late"})
	assert.ErrorIs(t, err, ErrEngineClosed)

	_, open := <-f.engine.Events()
	assert.False(t, open)
}
