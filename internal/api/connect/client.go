package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/osa030/mybeats/internal/app/notification"
)

// Client calls PlayerService.
type Client struct {
	status         *connect.Client[Empty, StatusResponse]
	play           *connect.Client[Empty, ControlResponse]
	pause          *connect.Client[Empty, ControlResponse]
	stop           *connect.Client[Empty, ControlResponse]
	next           *connect.Client[Empty, ControlResponse]
	previous       *connect.Client[Empty, ControlResponse]
	seek           *connect.Client[SeekRequest, ControlResponse]
	skip           *connect.Client[SeekRequest, ControlResponse]
	toggleShuffle  *connect.Client[Empty, ShuffleResponse]
	cycleRepeat    *connect.Client[Empty, RepeatResponse]
	dispatch       *connect.Client[DispatchRequest, ControlResponse]
	playCollection *connect.Client[PlayCollectionRequest, ControlResponse]
	listQueue      *connect.Client[Empty, SongsResponse]
	clearQueue     *connect.Client[Empty, Empty]
	listHistory    *connect.Client[Empty, SongsResponse]
	listFavorites  *connect.Client[FavoritesRequest, FavoritesResponse]
	toggleFavorite *connect.Client[FavoritesRequest, FavoritesResponse]
	listPlaylists  *connect.Client[Empty, PlaylistsResponse]
	createPlaylist *connect.Client[PlaylistRequest, PlaylistsResponse]
	deletePlaylist *connect.Client[PlaylistRequest, Empty]
	search         *connect.Client[SearchRequest, SearchResponse]
	subscribe      *connect.Client[Empty, notification.Notification]
}

// NewClient creates a client for the server at baseURL. A non-empty token
// is sent with every call.
func NewClient(httpClient connect.HTTPClient, baseURL, token string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	if token != "" {
		opts = append(opts, connect.WithInterceptors(NewTokenInterceptor(token)))
	}

	return &Client{
		status:         connect.NewClient[Empty, StatusResponse](httpClient, baseURL+ProcedureStatus, opts...),
		play:           connect.NewClient[Empty, ControlResponse](httpClient, baseURL+ProcedurePlay, opts...),
		pause:          connect.NewClient[Empty, ControlResponse](httpClient, baseURL+ProcedurePause, opts...),
		stop:           connect.NewClient[Empty, ControlResponse](httpClient, baseURL+ProcedureStop, opts...),
		next:           connect.NewClient[Empty, ControlResponse](httpClient, baseURL+ProcedureNext, opts...),
		previous:       connect.NewClient[Empty, ControlResponse](httpClient, baseURL+ProcedurePrevious, opts...),
		seek:           connect.NewClient[SeekRequest, ControlResponse](httpClient, baseURL+ProcedureSeek, opts...),
		skip:           connect.NewClient[SeekRequest, ControlResponse](httpClient, baseURL+ProcedureSkip, opts...),
		toggleShuffle:  connect.NewClient[Empty, ShuffleResponse](httpClient, baseURL+ProcedureToggleShuffle, opts...),
		cycleRepeat:    connect.NewClient[Empty, RepeatResponse](httpClient, baseURL+ProcedureCycleRepeat, opts...),
		dispatch:       connect.NewClient[DispatchRequest, ControlResponse](httpClient, baseURL+ProcedureDispatch, opts...),
		playCollection: connect.NewClient[PlayCollectionRequest, ControlResponse](httpClient, baseURL+ProcedurePlayCollection, opts...),
		listQueue:      connect.NewClient[Empty, SongsResponse](httpClient, baseURL+ProcedureListQueue, opts...),
		clearQueue:     connect.NewClient[Empty, Empty](httpClient, baseURL+ProcedureClearQueue, opts...),
		listHistory:    connect.NewClient[Empty, SongsResponse](httpClient, baseURL+ProcedureListHistory, opts...),
		listFavorites:  connect.NewClient[FavoritesRequest, FavoritesResponse](httpClient, baseURL+ProcedureListFavorites, opts...),
		toggleFavorite: connect.NewClient[FavoritesRequest, FavoritesResponse](httpClient, baseURL+ProcedureToggleFavorite, opts...),
		listPlaylists:  connect.NewClient[Empty, PlaylistsResponse](httpClient, baseURL+ProcedureListPlaylists, opts...),
		createPlaylist: connect.NewClient[PlaylistRequest, PlaylistsResponse](httpClient, baseURL+ProcedureCreatePlaylist, opts...),
		deletePlaylist: connect.NewClient[PlaylistRequest, Empty](httpClient, baseURL+ProcedureDeletePlaylist, opts...),
		search:         connect.NewClient[SearchRequest, SearchResponse](httpClient, baseURL+ProcedureSearch, opts...),
		subscribe:      connect.NewClient[Empty, notification.Notification](httpClient, baseURL+ProcedureSubscribe, opts...),
	}
}

func unary[Req, Res any](ctx context.Context, c *connect.Client[Req, Res], msg *Req) (*Res, error) {
	resp, err := c.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	return unary(ctx, c.status, &Empty{})
}

func (c *Client) Play(ctx context.Context) (*ControlResponse, error) {
	return unary(ctx, c.play, &Empty{})
}

func (c *Client) Pause(ctx context.Context) (*ControlResponse, error) {
	return unary(ctx, c.pause, &Empty{})
}

func (c *Client) Stop(ctx context.Context) (*ControlResponse, error) {
	return unary(ctx, c.stop, &Empty{})
}

func (c *Client) Next(ctx context.Context) (*ControlResponse, error) {
	return unary(ctx, c.next, &Empty{})
}

func (c *Client) Previous(ctx context.Context) (*ControlResponse, error) {
	return unary(ctx, c.previous, &Empty{})
}

func (c *Client) Seek(ctx context.Context, seconds float64) (*ControlResponse, error) {
	return unary(ctx, c.seek, &SeekRequest{Seconds: seconds})
}

func (c *Client) Skip(ctx context.Context, seconds float64) (*ControlResponse, error) {
	return unary(ctx, c.skip, &SeekRequest{Seconds: seconds})
}

func (c *Client) ToggleShuffle(ctx context.Context) (*ShuffleResponse, error) {
	return unary(ctx, c.toggleShuffle, &Empty{})
}

func (c *Client) CycleRepeat(ctx context.Context) (*RepeatResponse, error) {
	return unary(ctx, c.cycleRepeat, &Empty{})
}

func (c *Client) Dispatch(ctx context.Context, req *DispatchRequest) (*ControlResponse, error) {
	return unary(ctx, c.dispatch, req)
}

func (c *Client) PlayCollection(ctx context.Context, req *PlayCollectionRequest) (*ControlResponse, error) {
	return unary(ctx, c.playCollection, req)
}

func (c *Client) ListQueue(ctx context.Context) (*SongsResponse, error) {
	return unary(ctx, c.listQueue, &Empty{})
}

func (c *Client) ClearQueue(ctx context.Context) error {
	_, err := unary(ctx, c.clearQueue, &Empty{})
	return err
}

func (c *Client) ListHistory(ctx context.Context) (*SongsResponse, error) {
	return unary(ctx, c.listHistory, &Empty{})
}

func (c *Client) ListFavorites(ctx context.Context, kind string) (*FavoritesResponse, error) {
	return unary(ctx, c.listFavorites, &FavoritesRequest{Type: kind})
}

func (c *Client) ToggleFavorite(ctx context.Context, kind, id string) (*FavoritesResponse, error) {
	return unary(ctx, c.toggleFavorite, &FavoritesRequest{Type: kind, ID: id})
}

func (c *Client) ListPlaylists(ctx context.Context) (*PlaylistsResponse, error) {
	return unary(ctx, c.listPlaylists, &Empty{})
}

func (c *Client) CreatePlaylist(ctx context.Context, name, description string) (*PlaylistsResponse, error) {
	return unary(ctx, c.createPlaylist, &PlaylistRequest{Name: name, Description: description})
}

func (c *Client) DeletePlaylist(ctx context.Context, id string, confirmed bool) error {
	_, err := unary(ctx, c.deletePlaylist, &PlaylistRequest{ID: id, Confirmed: confirmed})
	return err
}

func (c *Client) Search(ctx context.Context, query string) (*SearchResponse, error) {
	return unary(ctx, c.search, &SearchRequest{Query: query})
}

// Subscribe calls fn for every notification until ctx is done, the stream
// ends or fn returns an error.
func (c *Client) Subscribe(ctx context.Context, fn func(*notification.Notification) error) error {
	stream, err := c.subscribe.CallServerStream(ctx, connect.NewRequest(&Empty{}))
	if err != nil {
		return err
	}
	defer stream.Close()

	for stream.Receive() {
		if err := fn(stream.Msg()); err != nil {
			return err
		}
	}
	return stream.Err()
}
