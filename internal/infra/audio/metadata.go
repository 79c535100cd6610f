package audio

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2/mp3"
)

// headerDuration reads an X-Content-Duration header given in seconds.
func headerDuration(h http.Header) time.Duration {
	v := strings.TrimSpace(h.Get("X-Content-Duration"))
	if v == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

func isMP3(src, contentType string) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		if mt == "audio/mpeg" || mt == "audio/mp3" {
			return true
		}
	}
	p := src
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return strings.EqualFold(path.Ext(p), ".mp3")
}

// acceptableContentType rejects responses that are clearly not media.
func acceptableContentType(contentType string) bool {
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mt, "audio/") || mt == "application/octet-stream" || mt == "video/mp4"
}

// mp3Duration decodes frame headers to compute the length of an mp3 stream.
func mp3Duration(data []byte) (time.Duration, error) {
	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return 0, errors.Wrap(err, "failed to decode mp3")
	}
	defer streamer.Close()
	return format.SampleRate.D(streamer.Len()), nil
}

// mediaDuration derives the media duration. The header wins when present;
// otherwise mp3 streams are measured. Other formats report 0.
func mediaDuration(src string, resp *http.Response, data []byte) (time.Duration, error) {
	if d := headerDuration(resp.Header); d > 0 {
		return d, nil
	}
	if isMP3(src, resp.Header.Get("Content-Type")) {
		return mp3Duration(data)
	}
	return 0, nil
}
