package ytdlp

import (
	"bytes"
	"strings"
)

// streamWriter tees process output into buffer and hands complete lines to callback.
// Progress output rewrites the console line with \r, so both \r and \n end a line.
type streamWriter struct {
	stream   string
	callback func(stream string, line string)
	buffer   *bytes.Buffer
	pending  []byte
}

func (w *streamWriter) Write(p []byte) (int, error) {
	if w.buffer != nil {
		w.buffer.Write(p)
	}
	w.pending = append(w.pending, p...)

	for {
		idx := bytes.IndexAny(w.pending, "\r\n")
		if idx < 0 {
			break
		}
		line := string(w.pending[:idx])

		consume := 1
		if w.pending[idx] == '\r' && idx+1 < len(w.pending) && w.pending[idx+1] == '\n' {
			consume = 2
		}
		w.pending = w.pending[idx+consume:]

		if w.callback != nil {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				w.callback(w.stream, trimmed)
			}
		}
	}
	return len(p), nil
}
