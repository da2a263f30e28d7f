package library

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/sonarhq/sonar/pkg/sonar"
)

// Canonical audio format for externally downloaded tracks: MP3,
// 48 kHz, stereo, 320 kbit/s, container metadata stripped.
const (
	transcodeSampleRate = "48000"
	transcodeBitrate    = "320k"
	transcodeMime       = "audio/mpeg"
)

// transcode shells out to the external codec process to normalize
// input into the canonical format, returning the output path. The
// subprocess runs under the configured per-call timeout; partial
// output is purged on any failure.
func (c *Context) transcode(ctx context.Context, input string) (string, error) {
	output := filepath.Join(os.TempDir(), "sonar-transcode-"+uuid.NewString()+".mp3")

	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.cfg.FFmpegPath,
		"-y",
		"-i", input,
		"-map_metadata", "-1",
		"-ar", transcodeSampleRate,
		"-ac", "2",
		"-b:a", transcodeBitrate,
		"-f", "mp3",
		output,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(output)
		return "", sonar.WrapInternal(fmt.Sprintf("transcode failed: %s", firstLine(out)), err)
	}
	return output, nil
}

func firstLine(b []byte) string {
	for i, c := range b {
		if c == '\n' {
			return string(b[:i])
		}
	}
	return string(b)
}
