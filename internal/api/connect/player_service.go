package connect

import (
	"context"
	"net/http"
	"sync"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/mybeats/internal/app/catalog"
	"github.com/osa030/mybeats/internal/app/favorites"
	"github.com/osa030/mybeats/internal/app/notification"
	"github.com/osa030/mybeats/internal/app/playback"
	"github.com/osa030/mybeats/internal/app/player"
	"github.com/osa030/mybeats/internal/app/playlists"
	"github.com/osa030/mybeats/internal/domain/playlist"
	"github.com/osa030/mybeats/internal/domain/song"
)

// ServicePath is the mount path of PlayerService.
const ServicePath = "/mybeats.v1.PlayerService/"

// Procedure paths.
const (
	ProcedureStatus         = ServicePath + "Status"
	ProcedurePlay           = ServicePath + "Play"
	ProcedurePause          = ServicePath + "Pause"
	ProcedureStop           = ServicePath + "Stop"
	ProcedureNext           = ServicePath + "Next"
	ProcedurePrevious       = ServicePath + "Previous"
	ProcedureSeek           = ServicePath + "Seek"
	ProcedureSkip           = ServicePath + "Skip"
	ProcedureToggleShuffle  = ServicePath + "ToggleShuffle"
	ProcedureCycleRepeat    = ServicePath + "CycleRepeat"
	ProcedureDispatch       = ServicePath + "Dispatch"
	ProcedurePlayCollection = ServicePath + "PlayCollection"
	ProcedureListQueue      = ServicePath + "ListQueue"
	ProcedureClearQueue     = ServicePath + "ClearQueue"
	ProcedureListHistory    = ServicePath + "ListHistory"
	ProcedureListFavorites  = ServicePath + "ListFavorites"
	ProcedureToggleFavorite = ServicePath + "ToggleFavorite"
	ProcedureListPlaylists  = ServicePath + "ListPlaylists"
	ProcedureCreatePlaylist = ServicePath + "CreatePlaylist"
	ProcedureDeletePlaylist = ServicePath + "DeletePlaylist"
	ProcedureSearch         = ServicePath + "Search"
	ProcedureSubscribe      = ServicePath + "Subscribe"
)

// PlayerService implements the remote-control RPC.
type PlayerService struct {
	player *player.Manager

	done      chan struct{}
	closeOnce sync.Once
}

// NewPlayerService creates a new PlayerService.
func NewPlayerService(p *player.Manager) *PlayerService {
	return &PlayerService{
		player: p,
		done:   make(chan struct{}),
	}
}

// Handler returns the mount path and handler serving every procedure.
func (s *PlayerService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(ProcedureStatus, connect.NewUnaryHandler(ProcedureStatus, s.Status, opts...))
	mux.Handle(ProcedurePlay, connect.NewUnaryHandler(ProcedurePlay, s.Play, opts...))
	mux.Handle(ProcedurePause, connect.NewUnaryHandler(ProcedurePause, s.Pause, opts...))
	mux.Handle(ProcedureStop, connect.NewUnaryHandler(ProcedureStop, s.Stop, opts...))
	mux.Handle(ProcedureNext, connect.NewUnaryHandler(ProcedureNext, s.Next, opts...))
	mux.Handle(ProcedurePrevious, connect.NewUnaryHandler(ProcedurePrevious, s.Previous, opts...))
	mux.Handle(ProcedureSeek, connect.NewUnaryHandler(ProcedureSeek, s.Seek, opts...))
	mux.Handle(ProcedureSkip, connect.NewUnaryHandler(ProcedureSkip, s.Skip, opts...))
	mux.Handle(ProcedureToggleShuffle, connect.NewUnaryHandler(ProcedureToggleShuffle, s.ToggleShuffle, opts...))
	mux.Handle(ProcedureCycleRepeat, connect.NewUnaryHandler(ProcedureCycleRepeat, s.CycleRepeat, opts...))
	mux.Handle(ProcedureDispatch, connect.NewUnaryHandler(ProcedureDispatch, s.Dispatch, opts...))
	mux.Handle(ProcedurePlayCollection, connect.NewUnaryHandler(ProcedurePlayCollection, s.PlayCollection, opts...))
	mux.Handle(ProcedureListQueue, connect.NewUnaryHandler(ProcedureListQueue, s.ListQueue, opts...))
	mux.Handle(ProcedureClearQueue, connect.NewUnaryHandler(ProcedureClearQueue, s.ClearQueue, opts...))
	mux.Handle(ProcedureListHistory, connect.NewUnaryHandler(ProcedureListHistory, s.ListHistory, opts...))
	mux.Handle(ProcedureListFavorites, connect.NewUnaryHandler(ProcedureListFavorites, s.ListFavorites, opts...))
	mux.Handle(ProcedureToggleFavorite, connect.NewUnaryHandler(ProcedureToggleFavorite, s.ToggleFavorite, opts...))
	mux.Handle(ProcedureListPlaylists, connect.NewUnaryHandler(ProcedureListPlaylists, s.ListPlaylists, opts...))
	mux.Handle(ProcedureCreatePlaylist, connect.NewUnaryHandler(ProcedureCreatePlaylist, s.CreatePlaylist, opts...))
	mux.Handle(ProcedureDeletePlaylist, connect.NewUnaryHandler(ProcedureDeletePlaylist, s.DeletePlaylist, opts...))
	mux.Handle(ProcedureSearch, connect.NewUnaryHandler(ProcedureSearch, s.Search, opts...))
	mux.Handle(ProcedureSubscribe, connect.NewServerStreamHandler(ProcedureSubscribe, s.Subscribe, opts...))
	return ServicePath, mux
}

// Close ends open subscriptions.
func (s *PlayerService) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Status returns the current player status.
func (s *PlayerService) Status(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[StatusResponse], error) {
	return connect.NewResponse(&StatusResponse{
		State:       s.player.Status(),
		QueueSize:   s.player.Queue().Len(),
		HistorySize: s.player.History().Len(),
	}), nil
}

// Play resumes playback.
func (s *PlayerService) Play(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[ControlResponse], error) {
	return s.control(s.player.Engine().Play(), "Playing"), nil
}

// Pause pauses playback.
func (s *PlayerService) Pause(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[ControlResponse], error) {
	return s.control(s.player.Engine().Pause(), "Paused"), nil
}

// Stop pauses playback and rewinds to the start.
func (s *PlayerService) Stop(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[ControlResponse], error) {
	return s.control(s.player.Engine().Stop(), "Stopped"), nil
}

// Next advances to the next song.
func (s *PlayerService) Next(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[ControlResponse], error) {
	return s.control(s.player.Engine().Next(ctx), "Skipped to next song"), nil
}

// Previous goes back to the previous song, or restarts the current one.
func (s *PlayerService) Previous(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[ControlResponse], error) {
	return s.control(s.player.Engine().Previous(ctx), "Went to previous song"), nil
}

// Seek moves to an absolute position.
func (s *PlayerService) Seek(
	ctx context.Context,
	req *connect.Request[SeekRequest],
) (*connect.Response[ControlResponse], error) {
	return s.seek(s.player.Engine().SeekTo(req.Msg.Seconds)), nil
}

// Skip moves by a relative offset.
func (s *PlayerService) Skip(
	ctx context.Context,
	req *connect.Request[SeekRequest],
) (*connect.Response[ControlResponse], error) {
	return s.seek(s.player.Engine().Skip(req.Msg.Seconds)), nil
}

// ToggleShuffle flips shuffle.
func (s *PlayerService) ToggleShuffle(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[ShuffleResponse], error) {
	return connect.NewResponse(&ShuffleResponse{Shuffle: s.player.ToggleShuffle()}), nil
}

// CycleRepeat advances the repeat mode.
func (s *PlayerService) CycleRepeat(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[RepeatResponse], error) {
	return connect.NewResponse(&RepeatResponse{Repeat: s.player.CycleRepeat().String()}), nil
}

// Dispatch performs a song action.
func (s *PlayerService) Dispatch(
	ctx context.Context,
	req *connect.Request[DispatchRequest],
) (*connect.Response[ControlResponse], error) {
	kind, err := player.ParseActionKind(req.Msg.Action)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	sg, err := s.resolveSong(req.Msg.Song)
	if err != nil {
		return nil, toConnectError(err)
	}

	err = s.player.Dispatch(ctx, player.Action{
		Kind:       kind,
		Song:       sg,
		QueueIndex: req.Msg.QueueIndex,
		PlaylistID: req.Msg.PlaylistID,
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ControlResponse{Success: true, State: s.player.Status()}), nil
}

// PlayCollection plays the whole library, an artist, an album, a playlist
// or the favorite songs.
func (s *PlayerService) PlayCollection(
	ctx context.Context,
	req *connect.Request[PlayCollectionRequest],
) (*connect.Response[ControlResponse], error) {
	var err error
	switch req.Msg.Kind {
	case CollectionAll:
		err = s.player.ShuffleAll(ctx)
	case CollectionArtist:
		err = s.player.PlayArtist(ctx, req.Msg.Artist)
	case CollectionAlbum:
		err = s.player.PlayAlbum(ctx, req.Msg.Artist, req.Msg.Album)
	case CollectionPlaylist:
		err = s.player.PlayPlaylist(ctx, req.Msg.PlaylistID)
	case CollectionFavorites:
		err = s.player.PlayFavorites(ctx)
	default:
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.Newf("unknown collection %q", req.Msg.Kind))
	}
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ControlResponse{Success: true, State: s.player.Status()}), nil
}

// ListQueue returns the queued songs.
func (s *PlayerService) ListQueue(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[SongsResponse], error) {
	return connect.NewResponse(&SongsResponse{Songs: s.player.Queue().Items()}), nil
}

// ClearQueue empties the queue.
func (s *PlayerService) ClearQueue(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[Empty], error) {
	s.player.Queue().Clear()
	return connect.NewResponse(&Empty{}), nil
}

// ListHistory returns the recently played songs, most recent first.
func (s *PlayerService) ListHistory(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[SongsResponse], error) {
	return connect.NewResponse(&SongsResponse{Songs: s.player.History().Items()}), nil
}

// ListFavorites returns one favorites set.
func (s *PlayerService) ListFavorites(
	ctx context.Context,
	req *connect.Request[FavoritesRequest],
) (*connect.Response[FavoritesResponse], error) {
	t, err := favorites.ParseType(req.Msg.Type)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return connect.NewResponse(&FavoritesResponse{
		Type: t.String(),
		IDs:  s.player.Favorites().List(t),
	}), nil
}

// ToggleFavorite flips one favorite.
func (s *PlayerService) ToggleFavorite(
	ctx context.Context,
	req *connect.Request[FavoritesRequest],
) (*connect.Response[FavoritesResponse], error) {
	t, err := favorites.ParseType(req.Msg.Type)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if req.Msg.ID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("id is required"))
	}
	favorite, err := s.player.Favorites().Toggle(t, req.Msg.ID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return connect.NewResponse(&FavoritesResponse{
		Type:     t.String(),
		IDs:      s.player.Favorites().List(t),
		Favorite: favorite,
	}), nil
}

// ListPlaylists returns every playlist.
func (s *PlayerService) ListPlaylists(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[PlaylistsResponse], error) {
	return connect.NewResponse(&PlaylistsResponse{Playlists: s.player.Playlists().List()}), nil
}

// CreatePlaylist creates an empty playlist.
func (s *PlayerService) CreatePlaylist(
	ctx context.Context,
	req *connect.Request[PlaylistRequest],
) (*connect.Response[PlaylistsResponse], error) {
	p, err := s.player.Playlists().Create(req.Msg.Name, req.Msg.Description)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&PlaylistsResponse{Playlists: []playlist.Playlist{p}}), nil
}

// DeletePlaylist deletes a playlist. The request must be confirmed.
func (s *PlayerService) DeletePlaylist(
	ctx context.Context,
	req *connect.Request[PlaylistRequest],
) (*connect.Response[Empty], error) {
	if err := s.player.Playlists().Delete(req.Msg.ID, req.Msg.Confirmed); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&Empty{}), nil
}

// Search searches the catalog.
func (s *PlayerService) Search(
	ctx context.Context,
	req *connect.Request[SearchRequest],
) (*connect.Response[SearchResponse], error) {
	results := s.player.Search(req.Msg.Query)
	return connect.NewResponse(&SearchResponse{
		Results: results,
		Recent:  s.player.RecentSearches().List(),
	}), nil
}

// Subscribe streams notifications, starting with the current state.
func (s *PlayerService) Subscribe(
	ctx context.Context,
	req *connect.Request[Empty],
	stream *connect.ServerStream[notification.Notification],
) error {
	notifManager := s.player.Notifications()

	state := s.player.Status()
	initial := &notification.Notification{
		SequenceNo: notifManager.NextSequenceNo(),
		Type:       notification.TypeInitialState,
		State:      &state,
		QueueSize:  s.player.Queue().Len(),
	}
	if err := stream.Send(initial); err != nil {
		return err
	}

	adapter := &notificationStreamAdapter{stream: stream}
	subscriptionID := notifManager.Subscribe(adapter)
	zlog.Debug().Str("subscription", subscriptionID).Msg("Remote subscriber connected")
	defer adapter.close()

	select {
	case <-ctx.Done():
	case <-s.done:
	case <-notifManager.Done(subscriptionID):
		zlog.Info().Str("subscription", subscriptionID).Msg("Remote subscriber fell behind, closing stream")
		return connect.NewError(connect.CodeUnavailable, errors.New("subscriber fell behind"))
	}

	notifManager.Unsubscribe(subscriptionID)
	return nil
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
// A send that outlives the delivery timeout may overlap the next one.
type notificationStreamAdapter struct {
	mu     sync.Mutex
	closed bool
	stream *connect.ServerStream[notification.Notification]
}

func (a *notificationStreamAdapter) Send(n *notification.Notification) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return errors.New("stream closed")
	}
	return a.stream.Send(n)
}

// close stops further sends once the handler has returned.
func (a *notificationStreamAdapter) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
}

func (s *PlayerService) control(err error, message string) *connect.Response[ControlResponse] {
	resp := &ControlResponse{Success: err == nil, Message: message, State: s.player.Status()}
	if err != nil {
		resp.Message = err.Error()
	}
	return connect.NewResponse(resp)
}

func (s *PlayerService) seek(moved bool) *connect.Response[ControlResponse] {
	resp := &ControlResponse{Success: moved, State: s.player.Status()}
	if !moved {
		resp.Message = "Seek ignored"
	}
	return connect.NewResponse(resp)
}

// resolveSong looks a reference up in the catalog. References without an
// artist and album only carry the ID.
func (s *PlayerService) resolveSong(ref SongRef) (song.Song, error) {
	if ref.Artist == "" && ref.Album == "" {
		return song.Song{ID: ref.ID}, nil
	}
	return s.player.Catalog().Song(ref.Artist, ref.Album, ref.ID)
}

// toConnectError maps domain errors onto RPC codes.
func toConnectError(err error) error {
	var code connect.Code
	switch {
	case errors.Is(err, song.ErrInvalidSong),
		errors.Is(err, player.ErrUnknownAction),
		errors.Is(err, player.ErrQueueIndex),
		errors.Is(err, playlists.ErrEmptyName):
		code = connect.CodeInvalidArgument
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, playlists.ErrNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, playlist.ErrDuplicateSong):
		code = connect.CodeAlreadyExists
	case errors.Is(err, playback.ErrNoTrack),
		errors.Is(err, playback.ErrNoNextSong),
		errors.Is(err, playback.ErrNoPreviousSong),
		errors.Is(err, playback.ErrEmptyCollection),
		errors.Is(err, playlists.ErrNotConfirmed):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, context.Canceled):
		code = connect.CodeCanceled
	default:
		code = connect.CodeInternal
	}
	return connect.NewError(code, err)
}
