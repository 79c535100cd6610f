// Package song provides the Song, Album and Artist domain entities.
package song

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrInvalidSong is returned when a song lacks the fields playback needs.
var ErrInvalidSong = errors.New("invalid song")

// Song represents a playable song. It is a value type: copies held by the
// queue, history or favorites are detached from the catalog entry.
type Song struct {
	ID       string `json:"id"`       // Catalog song ID (unique within an album)
	Title    string `json:"title"`    // Song title
	Duration string `json:"duration"` // Display duration, "m:ss"
	Artist   string `json:"artist"`   // Artist name (denormalized)
	Album    string `json:"album"`    // Album name (denormalized)
	Cover    string `json:"cover"`    // Resolved cover art URL (denormalized)
}

// Track is the catalog form of a song, nested inside an Album.
type Track struct {
	ID       string `yaml:"id" json:"id" validate:"required"`
	Title    string `yaml:"title" json:"title" validate:"required"`
	Duration string `yaml:"duration" json:"duration"`
}

// Album represents an album of an artist.
type Album struct {
	Album string  `yaml:"album" json:"album" validate:"required"`
	Year  string  `yaml:"year,omitempty" json:"year,omitempty"`
	Songs []Track `yaml:"songs" json:"songs" validate:"dive"`
}

// Artist represents a catalog artist.
type Artist struct {
	Artist string  `yaml:"artist" json:"artist" validate:"required"`
	Genre  string  `yaml:"genre,omitempty" json:"genre,omitempty"`
	Albums []Album `yaml:"albums" json:"albums" validate:"dive"`
}

// Validate checks that the song can be handed to the playback engine.
func (s Song) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return errors.Wrap(ErrInvalidSong, "empty title")
	}
	if s.ID == "" {
		return errors.Wrapf(ErrInvalidSong, "empty id for %q", s.Title)
	}
	return nil
}

// Seconds returns the display duration in seconds, 0 if it is malformed.
func (s Song) Seconds() float64 {
	return ParseDuration(s.Duration)
}

var (
	whitespaceRe   = regexp.MustCompile(`\s+`)
	nonWordRe      = regexp.MustCompile(`[^\w]`)
	nonAlbumCharRe = regexp.MustCompile(`[^\w.-]`)
)

// NormalizeTitle derives the audio file base name of a song title.
// "Hello, World!" becomes "helloworld".
func NormalizeTitle(title string) string {
	s := whitespaceRe.ReplaceAllString(strings.ToLower(title), "")
	return nonWordRe.ReplaceAllString(s, "")
}

// NormalizeAlbum derives the cover art base name of an album name.
// Periods and hyphens are kept.
func NormalizeAlbum(album string) string {
	s := whitespaceRe.ReplaceAllString(strings.ToLower(album), "")
	return nonAlbumCharRe.ReplaceAllString(s, "")
}

// ParseDuration converts "m:ss" into seconds. Malformed input yields 0.
func ParseDuration(d string) float64 {
	parts := strings.Split(strings.TrimSpace(d), ":")
	if len(parts) != 2 {
		return 0
	}
	minutes, err := strconv.Atoi(parts[0])
	if err != nil || minutes < 0 {
		return 0
	}
	seconds, err := strconv.Atoi(parts[1])
	if err != nil || seconds < 0 {
		return 0
	}
	return float64(minutes*60 + seconds)
}

// FormatTime renders seconds as "m:ss". Invalid input renders "0:00".
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "0:00"
	}
	total := int(math.Floor(seconds))
	return strconv.Itoa(total/60) + ":" + pad2(total%60)
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
