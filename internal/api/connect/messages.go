package connect

import (
	"github.com/osa030/mybeats/internal/app/catalog"
	"github.com/osa030/mybeats/internal/app/notification"
	"github.com/osa030/mybeats/internal/domain/playlist"
	"github.com/osa030/mybeats/internal/domain/song"
)

// Empty is used where a procedure takes or returns nothing.
type Empty struct{}

// StatusResponse describes the player.
type StatusResponse struct {
	State       notification.PlayerState `json:"state"`
	QueueSize   int                      `json:"queue_size"`
	HistorySize int                      `json:"history_size"`
}

// ControlResponse is returned by transport controls.
type ControlResponse struct {
	Success bool                     `json:"success"`
	Message string                   `json:"message,omitempty"`
	State   notification.PlayerState `json:"state"`
}

// SeekRequest carries an absolute position or a relative offset in seconds.
type SeekRequest struct {
	Seconds float64 `json:"seconds"`
}

// ShuffleResponse reports the shuffle mode after a toggle.
type ShuffleResponse struct {
	Shuffle bool `json:"shuffle"`
}

// RepeatResponse reports the repeat mode after a cycle.
type RepeatResponse struct {
	Repeat string `json:"repeat"`
}

// SongRef identifies a catalog song. A reference without artist and album
// only carries an ID, which is enough for removals.
type SongRef struct {
	Artist string `json:"artist,omitempty"`
	Album  string `json:"album,omitempty"`
	ID     string `json:"id"`
}

// DispatchRequest performs a song action.
type DispatchRequest struct {
	Action     string  `json:"action"`
	Song       SongRef `json:"song"`
	QueueIndex int     `json:"queue_index,omitempty"`
	PlaylistID string  `json:"playlist_id,omitempty"`
}

// Collection kinds accepted by PlayCollection.
const (
	CollectionAll       = "all"
	CollectionArtist    = "artist"
	CollectionAlbum     = "album"
	CollectionPlaylist  = "playlist"
	CollectionFavorites = "favorites"
)

// PlayCollectionRequest plays a whole collection.
type PlayCollectionRequest struct {
	Kind       string `json:"kind"`
	Artist     string `json:"artist,omitempty"`
	Album      string `json:"album,omitempty"`
	PlaylistID string `json:"playlist_id,omitempty"`
}

// SongsResponse is a list of songs.
type SongsResponse struct {
	Songs []song.Song `json:"songs"`
}

// FavoritesRequest names a favorites set, and a member for toggles.
type FavoritesRequest struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// FavoritesResponse lists a favorites set.
type FavoritesResponse struct {
	Type     string   `json:"type"`
	IDs      []string `json:"ids"`
	Favorite bool     `json:"favorite,omitempty"`
}

// PlaylistRequest creates, deletes or edits a playlist.
type PlaylistRequest struct {
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name,omitempty"`
	Description string  `json:"description,omitempty"`
	Confirmed   bool    `json:"confirmed,omitempty"`
	Song        SongRef `json:"song"`
}

// PlaylistsResponse lists playlists.
type PlaylistsResponse struct {
	Playlists []playlist.Playlist `json:"playlists"`
}

// SearchRequest searches the catalog.
type SearchRequest struct {
	Query string `json:"query"`
}

// SearchResponse holds catalog hits and the remembered queries.
type SearchResponse struct {
	Results catalog.Results `json:"results"`
	Recent  []string        `json:"recent"`
}
