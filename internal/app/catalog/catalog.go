// Package catalog provides read-only access to the artist, album and song
// library, including cover art resolution and album-relative navigation data.
package catalog

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/osa030/mybeats/internal/domain/song"
)

// ErrNotFound is returned when a catalog lookup finds no entry.
var ErrNotFound = errors.New("catalog entry not found")

// DefaultCoverURL is used when no album name or default URL is available.
const DefaultCoverURL = "https://via.placeholder.com/512x512/4a5568/ffffff?text=Music"

// artworkSizes are the square sizes advertised to the media session.
var artworkSizes = []int{96, 128, 192, 256, 384, 512}

// Options configures cover art resolution.
type Options struct {
	ArtworkBaseURL string
	DefaultCover   string
}

// Artwork describes one cover art image.
type Artwork struct {
	Src   string `json:"src"`
	Sizes string `json:"sizes"`
	Type  string `json:"type"`
}

type library struct {
	Artists []song.Artist `yaml:"artists" validate:"dive"`
}

// Catalog is an in-memory view over the music library. The artist list is
// only ever swapped whole, so readers always see one consistent library.
type Catalog struct {
	mu      sync.RWMutex
	artists []song.Artist
	opts    Options
}

// Load reads a YAML library file.
func Load(path string, opts Options) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read catalog file")
	}
	return Parse(data, opts)
}

// Parse parses a YAML library document.
func Parse(data []byte, opts Options) (*Catalog, error) {
	var lib library
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return nil, errors.Wrap(err, "failed to parse catalog")
	}
	return New(lib.Artists, opts)
}

// New validates the artists and builds a catalog over them.
// Song IDs must be unique within an album.
func New(artists []song.Artist, opts Options) (*Catalog, error) {
	lib := library{Artists: artists}
	if err := validator.New().Struct(lib); err != nil {
		return nil, errors.Wrap(err, "catalog validation failed")
	}

	for _, a := range artists {
		for _, al := range a.Albums {
			dup := lo.FindDuplicatesBy(al.Songs, func(t song.Track) string { return t.ID })
			if len(dup) > 0 {
				return nil, errors.Newf("duplicate song id %q in %s / %s", dup[0].ID, a.Artist, al.Album)
			}
		}
	}

	if opts.DefaultCover == "" {
		opts.DefaultCover = DefaultCoverURL
	}
	opts.ArtworkBaseURL = strings.TrimRight(opts.ArtworkBaseURL, "/")

	return &Catalog{artists: artists, opts: opts}, nil
}

// Artists returns all artists in catalog order.
func (c *Catalog) Artists() []song.Artist {
	return append([]song.Artist(nil), c.library()...)
}

// Artist looks up an artist by exact name.
func (c *Catalog) Artist(name string) (song.Artist, bool) {
	return lo.Find(c.library(), func(a song.Artist) bool { return a.Artist == name })
}

// Album looks up an album of an artist by exact name.
func (c *Catalog) Album(artist, album string) (song.Album, bool) {
	a, ok := c.Artist(artist)
	if !ok {
		return song.Album{}, false
	}
	return lo.Find(a.Albums, func(al song.Album) bool { return al.Album == album })
}

// AlbumSongs returns the album's songs in order, denormalized.
func (c *Catalog) AlbumSongs(artist, album string) ([]song.Song, bool) {
	al, ok := c.Album(artist, album)
	if !ok {
		return nil, false
	}
	return c.songsOf(artist, al), true
}

// Song looks up a single song.
func (c *Catalog) Song(artist, album, id string) (song.Song, error) {
	songs, ok := c.AlbumSongs(artist, album)
	if !ok {
		return song.Song{}, errors.Wrapf(ErrNotFound, "album %s / %s", artist, album)
	}
	s, ok := lo.Find(songs, func(s song.Song) bool { return s.ID == id })
	if !ok {
		return song.Song{}, errors.Wrapf(ErrNotFound, "song %s in %s / %s", id, artist, album)
	}
	return s, nil
}

// ArtistSongs returns every song of an artist, album by album.
func (c *Catalog) ArtistSongs(artist string) []song.Song {
	a, ok := c.Artist(artist)
	if !ok {
		return nil
	}
	return lo.FlatMap(a.Albums, func(al song.Album, _ int) []song.Song {
		return c.songsOf(a.Artist, al)
	})
}

// AllSongs returns every song in the catalog.
func (c *Catalog) AllSongs() []song.Song {
	return lo.FlatMap(c.library(), func(a song.Artist, _ int) []song.Song {
		return c.ArtistSongs(a.Artist)
	})
}

// Replace swaps in the library of next. Songs already handed out are
// detached copies and are not affected.
func (c *Catalog) Replace(next *Catalog) {
	artists := next.library()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.artists = artists
}

func (c *Catalog) library() []song.Artist {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.artists
}

func (c *Catalog) songsOf(artist string, al song.Album) []song.Song {
	cover := c.CoverURL(al.Album)
	return lo.Map(al.Songs, func(t song.Track, _ int) song.Song {
		return song.Song{
			ID:       t.ID,
			Title:    t.Title,
			Duration: t.Duration,
			Artist:   artist,
			Album:    al.Album,
			Cover:    cover,
		}
	})
}

// CoverURL resolves the cover art of an album.
func (c *Catalog) CoverURL(album string) string {
	name := song.NormalizeAlbum(album)
	if name == "" || c.opts.ArtworkBaseURL == "" {
		return c.opts.DefaultCover
	}
	return c.opts.ArtworkBaseURL + "/" + name + ".png"
}

// Artwork returns the cover art of an album at every advertised size.
func (c *Catalog) Artwork(album string) []Artwork {
	return ArtworkFor(c.CoverURL(album))
}

// ArtworkFor lists src at every advertised size. An empty src has no artwork.
func ArtworkFor(src string) []Artwork {
	if src == "" {
		return nil
	}
	return lo.Map(artworkSizes, func(size int, _ int) Artwork {
		return Artwork{Src: src, Sizes: sizeLabel(size), Type: "image/png"}
	})
}

func sizeLabel(size int) string {
	s := strconv.Itoa(size)
	return s + "x" + s
}
