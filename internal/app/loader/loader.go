// Package loader resolves a playable audio resource for a song by trying
// each configured format in order.
package loader

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/mybeats/internal/domain/song"
	"github.com/osa030/mybeats/internal/infra/audio"
)

// Errors
var (
	ErrEmptyFilename    = errors.New("song title has no usable characters")
	ErrAllFormatsFailed = errors.New("all audio formats failed")
)

// DefaultFormats is the candidate order used when none is configured.
var DefaultFormats = []string{"mp3", "ogg", "m4a"}

// Result describes one load.
type Result struct {
	Attempts []string // Candidate URLs in the order they were tried
	URL      string   // URL that loaded, empty on failure
	Format   string   // Format that loaded, empty on failure
	Err      error
}

// OK reports whether a candidate loaded and started playing.
func (r Result) OK() bool {
	return r.Err == nil
}

// Loader resolves {baseURL}/{normalizedTitle}.{format} candidates.
type Loader struct {
	baseURL string
	formats []string
}

// New creates a loader. An empty format list falls back to DefaultFormats.
func New(baseURL string, formats []string) *Loader {
	if len(formats) == 0 {
		formats = DefaultFormats
	}
	return &Loader{
		baseURL: strings.TrimRight(baseURL, "/"),
		formats: append([]string(nil), formats...),
	}
}

// Formats returns the candidate formats in order.
func (l *Loader) Formats() []string {
	return append([]string(nil), l.formats...)
}

// URL returns the candidate URL for a title and format, or "" when the
// title normalizes to nothing.
func (l *Loader) URL(title, format string) string {
	name := song.NormalizeTitle(title)
	if name == "" {
		return ""
	}
	return l.baseURL + "/" + name + "." + format
}

// Load tries each candidate on el until one buffers, then starts playback.
// A canceled ctx stops before the next candidate.
func (l *Loader) Load(ctx context.Context, el audio.Element, s song.Song) Result {
	var result Result

	if song.NormalizeTitle(s.Title) == "" {
		result.Err = errors.Wrapf(ErrEmptyFilename, "title %q", s.Title)
		return result
	}

	for _, format := range l.formats {
		if err := ctx.Err(); err != nil {
			result.Err = errors.Wrap(err, "load abandoned")
			return result
		}

		url := l.URL(s.Title, format)
		result.Attempts = append(result.Attempts, url)

		el.SetSource(url)
		if err := el.Load(ctx); err != nil {
			if errors.Is(err, audio.ErrSourceChanged) || ctx.Err() != nil {
				result.Err = errors.Wrap(err, "load abandoned")
				return result
			}
			zlog.Warn().Err(err).Msgf("loader: candidate failed: song=%s format=%s", s.Title, format)
			continue
		}

		if err := el.Play(); err != nil {
			zlog.Warn().Err(err).Msgf("loader: play rejected: song=%s format=%s", s.Title, format)
			continue
		}

		zlog.Debug().Msgf("loader: loaded song=%s url=%s attempts=%d", s.Title, url, len(result.Attempts))
		result.URL = url
		result.Format = format
		return result
	}

	result.Err = errors.Wrapf(ErrAllFormatsFailed, "song %q (%d candidates)", s.Title, len(result.Attempts))
	zlog.Error().Err(result.Err).Msg("loader: unable to load audio")
	return result
}
