package acquire

import (
	"fmt"
	"os"

	"github.com/h2non/filetype"
)

// SniffVideo inspects the header of an uploaded file. It rejects files that are
// recognisably something other than video; unknown types pass through for
// ffprobe to judge.
func SniffVideo(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, 261)
	n, err := f.Read(head)
	if n == 0 {
		if err == nil {
			err = fmt.Errorf("%s is empty", path)
		}
		return "", err
	}
	kind, _ := filetype.Match(head[:n])
	if kind == filetype.Unknown {
		return "", nil
	}
	if !filetype.IsVideo(head[:n]) {
		return kind.MIME.Value, fmt.Errorf("uploaded file is %s, not a video", kind.MIME.Value)
	}
	return kind.MIME.Value, nil
}
