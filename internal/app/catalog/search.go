package catalog

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"

	"github.com/osa030/mybeats/internal/domain/song"
)

// Result limits per category.
const (
	MaxSongResults   = 10
	MaxArtistResults = 5
	MaxAlbumResults  = 8
)

// AlbumResult is an album hit with its artist.
type AlbumResult struct {
	Artist string `json:"artist"`
	Album  string `json:"album"`
	Year   string `json:"year,omitempty"`
	Cover  string `json:"cover"`
}

// Results holds search hits per category.
type Results struct {
	Songs   []song.Song   `json:"songs"`
	Artists []string      `json:"artists"`
	Albums  []AlbumResult `json:"albums"`
}

// Empty reports whether nothing matched.
func (r Results) Empty() bool {
	return len(r.Songs) == 0 && len(r.Artists) == 0 && len(r.Albums) == 0
}

// Search matches the query case-insensitively against artist names, album
// names and song titles. Substring hits come first, followed by fuzzy hits.
func (c *Catalog) Search(query string) Results {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Results{}
	}

	var (
		artists      []string
		fuzzyArtists []string
		albums       []AlbumResult
		fuzzyAlbums  []AlbumResult
		songs        []song.Song
		fuzzySongs   []song.Song
	)

	for _, a := range c.library() {
		switch matchKind(q, a.Artist) {
		case substringMatch:
			artists = append(artists, a.Artist)
		case fuzzyMatch:
			fuzzyArtists = append(fuzzyArtists, a.Artist)
		}

		for _, al := range a.Albums {
			hit := AlbumResult{Artist: a.Artist, Album: al.Album, Year: al.Year, Cover: c.CoverURL(al.Album)}
			switch matchKind(q, al.Album) {
			case substringMatch:
				albums = append(albums, hit)
			case fuzzyMatch:
				fuzzyAlbums = append(fuzzyAlbums, hit)
			}

			for _, s := range c.songsOf(a.Artist, al) {
				switch matchKind(q, s.Title) {
				case substringMatch:
					songs = append(songs, s)
				case fuzzyMatch:
					fuzzySongs = append(fuzzySongs, s)
				}
			}
		}
	}

	return Results{
		Songs:   limit(append(songs, fuzzySongs...), MaxSongResults),
		Artists: limit(append(artists, fuzzyArtists...), MaxArtistResults),
		Albums:  limit(append(albums, fuzzyAlbums...), MaxAlbumResults),
	}
}

type matchResult int

const (
	noMatch matchResult = iota
	substringMatch
	fuzzyMatch
)

func matchKind(query, target string) matchResult {
	lower := strings.ToLower(target)
	if strings.Contains(lower, query) {
		return substringMatch
	}
	// single letters fuzzy-match nearly everything
	if len(query) > 2 && fuzzy.Match(query, lower) {
		return fuzzyMatch
	}
	return noMatch
}

func limit[T any](items []T, n int) []T {
	return lo.Slice(items, 0, n)
}
