// Package player assembles the playback engine with its collaborators and
// owns their lifecycle.
package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/samber/lo/mutable"

	"github.com/osa030/mybeats/internal/app/catalog"
	"github.com/osa030/mybeats/internal/app/favorites"
	"github.com/osa030/mybeats/internal/app/history"
	"github.com/osa030/mybeats/internal/app/mediasession"
	"github.com/osa030/mybeats/internal/app/notification"
	"github.com/osa030/mybeats/internal/app/playback"
	"github.com/osa030/mybeats/internal/app/playlists"
	"github.com/osa030/mybeats/internal/app/queue"
	"github.com/osa030/mybeats/internal/domain/song"
	"github.com/osa030/mybeats/internal/infra/audio"
	"github.com/osa030/mybeats/internal/infra/config"
	"github.com/osa030/mybeats/internal/infra/store"
)

var (
	ErrNotInitialized = errors.New("player is not initialized")
	ErrAlreadyRunning = errors.New("player is already running")
)

// Deps are the external resources a Manager drives.
type Deps struct {
	Catalog *catalog.Catalog
	Store   *store.Store
	Element audio.Element
	Loader  playback.SongLoader
	Surface mediasession.Surface // nil disables the media session
	Intn    func(n int) int      // Shuffle source, nil for math/rand
}

// Manager is the application state: the engine plus the queue, history,
// favorites and playlists it works with.
type Manager struct {
	mu sync.Mutex

	// Components
	catalog      *catalog.Catalog
	store        *store.Store
	notification *notification.Manager
	queue        *queue.Queue
	history      *history.History
	favorites    *favorites.Favorites
	playlists    *playlists.Manager
	searches     *catalog.RecentSearches
	engine       *playback.Engine
	bridge       *mediasession.Bridge

	initialized bool
	running     bool
}

// New wires a Manager. Call Initialize before Run.
func New(cfg *config.Config, deps Deps) *Manager {
	notifier := notification.NewManager()

	q := queue.New(deps.Store,
		queue.WithToaster(notifier),
		queue.WithChangeHandler(notifier.QueueChanged),
	)
	h := history.New(deps.Store, cfg.Playback.HistoryMax, cfg.Playback.HistoryPersisted)

	restart := time.Duration(cfg.Playback.RestartThresholdSec * float64(time.Second))
	engine := playback.NewEngine(deps.Element, deps.Loader, q, h, deps.Catalog, playback.Config{
		RestartThreshold: restart,
		Intn:             deps.Intn,
	})

	bridge := mediasession.NewBridge(deps.Surface, engine, deps.Catalog, mediasession.Config{
		SyncInterval:     cfg.PositionSyncInterval(),
		SeekOffset:       cfg.Playback.SeekOffsetSec,
		RestartThreshold: cfg.Playback.RestartThresholdSec,
	})

	return &Manager{
		catalog:      deps.Catalog,
		store:        deps.Store,
		notification: notifier,
		queue:        q,
		history:      h,
		favorites:    favorites.New(deps.Store, notifier),
		playlists:    playlists.NewManager(deps.Store, notifier),
		searches:     catalog.NewRecentSearches(deps.Store),
		engine:       engine,
		bridge:       bridge,
	}
}

// Initialize restores persisted state. Missing or unreadable entries leave
// the defaults in place.
func (m *Manager) Initialize() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initialized {
		return
	}

	m.queue.Load()
	m.history.Load()
	m.favorites.Load()
	m.playlists.Load()
	m.searches.Load()
	m.initialized = true

	zlog.Info().Msgf("player: initialized queue=%d history=%d playlists=%d",
		m.queue.Len(), m.history.Len(), len(m.playlists.List()))
}

// Run drives the engine and fans its events out until ctx is done or the
// engine is closed.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		return ErrNotInitialized
	}
	if m.running {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	m.running = true
	m.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.bridge.Setup(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.engine.Run(ctx)
	}()

	m.eventLoop(ctx)
	cancel()
	wg.Wait()

	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
	return nil
}

// eventLoop forwards engine events to the media session and subscribers.
func (m *Manager) eventLoop(ctx context.Context) {
	events := m.engine.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			m.handleEvent(ev)
		}
	}
}

func (m *Manager) handleEvent(ev playback.Event) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("player: event handler panicked: type=%s: %v", ev.Type, r)
		}
	}()

	if ev.Type != playback.EventTimeUpdate {
		zlog.Debug().Msgf("player: event %s", ev.Type)
	}
	m.bridge.HandleEvent(ev)
	m.notification.StateChanged(PlayerState(ev.State))
}

// Close releases the engine, the media session and all subscribers.
func (m *Manager) Close() {
	m.engine.Close()
	m.bridge.Close()
	m.notification.Close()
}

// PlayerState converts an engine snapshot to the notification payload.
func PlayerState(st playback.State) notification.PlayerState {
	ps := notification.PlayerState{
		Artist:      st.Artist,
		Album:       st.Album,
		IsPlaying:   st.IsPlaying,
		Duration:    st.Duration,
		CurrentTime: st.CurrentTime,
		TotalTime:   st.TotalTime,
		Shuffle:     st.Shuffle,
		Repeat:      st.Repeat.String(),
	}
	if st.Song != nil {
		ps.Song = st.Song.Title
		ps.SongID = st.Song.ID
		ps.Cover = st.Song.Cover
	}
	return ps
}

// Status returns the current player state.
func (m *Manager) Status() notification.PlayerState {
	return PlayerState(m.engine.Snapshot())
}

// ToggleShuffle flips shuffle and announces the new mode.
func (m *Manager) ToggleShuffle() bool {
	on := m.engine.ToggleShuffle()
	m.notification.Toast(notification.ToastInfo, fmt.Sprintf("Shuffle %s", lo.Ternary(on, "enabled", "disabled")))
	return on
}

// CycleRepeat advances the repeat mode and announces it.
func (m *Manager) CycleRepeat() playback.RepeatMode {
	mode := m.engine.CycleRepeat()
	var text string
	switch mode {
	case playback.RepeatAll:
		text = "all songs"
	case playback.RepeatOne:
		text = "current song"
	default:
		text = "disabled"
	}
	m.notification.Toast(notification.ToastInfo, "Repeat "+text)
	return mode
}

// ShuffleAll plays the whole library in random order with shuffle on.
func (m *Manager) ShuffleAll(ctx context.Context) error {
	songs := m.catalog.AllSongs()
	if len(songs) == 0 {
		m.notification.Toast(notification.ToastWarning, "No songs found")
		return playback.ErrEmptyCollection
	}
	mutable.Shuffle(songs)

	if err := m.engine.PlayCollection(ctx, songs); err != nil {
		return err
	}
	m.engine.SetShuffle(true)
	m.notification.Toast(notification.ToastInfo, "Playing all songs shuffled")
	return nil
}

// PlayArtist plays every song of an artist in catalog order.
func (m *Manager) PlayArtist(ctx context.Context, artist string) error {
	songs := m.catalog.ArtistSongs(artist)
	if len(songs) == 0 {
		m.notification.Toast(notification.ToastWarning, "No songs found")
		return errors.Wrapf(catalog.ErrNotFound, "artist %q", artist)
	}
	if err := m.engine.PlayCollection(ctx, songs); err != nil {
		return err
	}
	m.notification.Toast(notification.ToastSuccess, fmt.Sprintf("Playing artist %q", artist))
	return nil
}

// PlayAlbum plays an album from its first song.
func (m *Manager) PlayAlbum(ctx context.Context, artist, album string) error {
	songs, ok := m.catalog.AlbumSongs(artist, album)
	if !ok || len(songs) == 0 {
		m.notification.Toast(notification.ToastWarning, "No songs found in this album")
		return errors.Wrapf(catalog.ErrNotFound, "album %q of %q", album, artist)
	}
	if err := m.engine.PlayCollection(ctx, songs); err != nil {
		return err
	}
	m.notification.Toast(notification.ToastSuccess, fmt.Sprintf("Playing album %q", album))
	return nil
}

// PlayPlaylist plays a playlist from its first song.
func (m *Manager) PlayPlaylist(ctx context.Context, id string) error {
	p, err := m.playlists.Get(id)
	if err != nil || len(p.Songs) == 0 {
		m.notification.Toast(notification.ToastWarning, "Playlist is empty")
		if err != nil {
			return err
		}
		return playback.ErrEmptyCollection
	}
	if err := m.engine.PlayCollection(ctx, p.Songs); err != nil {
		return err
	}
	m.notification.Toast(notification.ToastSuccess, fmt.Sprintf("Playing playlist %q", p.Name))
	return nil
}

// PlayFavorites plays the favorite songs in the order they were added.
func (m *Manager) PlayFavorites(ctx context.Context) error {
	songs := m.FavoriteSongs()
	if len(songs) == 0 {
		m.notification.Toast(notification.ToastWarning, "No songs found")
		return playback.ErrEmptyCollection
	}
	if err := m.engine.PlayCollection(ctx, songs); err != nil {
		return err
	}
	m.notification.Toast(notification.ToastSuccess, "Playing all favorite songs")
	return nil
}

// FavoriteSongs resolves the favorite song IDs against the catalog.
// IDs no longer in the catalog are skipped.
func (m *Manager) FavoriteSongs() []song.Song {
	byID := make(map[string]song.Song)
	for _, s := range m.catalog.AllSongs() {
		if _, dup := byID[s.ID]; !dup {
			byID[s.ID] = s
		}
	}
	return lo.FilterMap(m.favorites.List(favorites.Songs), func(id string, _ int) (song.Song, bool) {
		s, ok := byID[id]
		return s, ok
	})
}

// Search searches the catalog and remembers non-empty queries.
func (m *Manager) Search(query string) catalog.Results {
	results := m.catalog.Search(query)
	if !results.Empty() {
		m.searches.Remember(query)
	}
	return results
}

// Engine returns the playback engine.
func (m *Manager) Engine() *playback.Engine { return m.engine }

// Catalog returns the music library.
func (m *Manager) Catalog() *catalog.Catalog { return m.catalog }

// Queue returns the play queue.
func (m *Manager) Queue() *queue.Queue { return m.queue }

// History returns the recently-played list.
func (m *Manager) History() *history.History { return m.history }

// Favorites returns the favorite sets.
func (m *Manager) Favorites() *favorites.Favorites { return m.favorites }

// Playlists returns the playlist manager.
func (m *Manager) Playlists() *playlists.Manager { return m.playlists }

// RecentSearches returns the remembered search terms.
func (m *Manager) RecentSearches() *catalog.RecentSearches { return m.searches }

// Notifications returns the notification manager.
func (m *Manager) Notifications() *notification.Manager { return m.notification }
