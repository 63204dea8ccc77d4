package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

type VideoMeta struct {
	Width    int
	Height   int
	Duration int // Whole seconds
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeVideo runs ffprobe over a local file and returns the dimensions
// of the first video stream plus the container duration. Streamless
// containers still report a duration
func ProbeVideo(ctx context.Context, p string) (*VideoMeta, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	zap.L().Debug("Running FFprobe to extract video metadata", zap.String("path", p))

	cmd := exec.CommandContext(ctx, "ffprobe", "-v", "error", "-print_format", "json", "-show_format", "-show_streams", "-i", p)

	var stdOut, stdErr bytes.Buffer
	cmd.Stdout = &stdOut
	cmd.Stderr = &stdErr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed, %w (%s)", err, stdErr.String())
	}

	var out ffprobeOutput
	if err := json.Unmarshal(stdOut.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("malformed ffprobe output, %w", err)
	}

	meta := &VideoMeta{}

	for _, s := range out.Streams {
		if s.CodecType == "video" {
			meta.Width = s.Width
			meta.Height = s.Height
			break
		}
	}

	if out.Format.Duration != "" {
		d, err := strconv.ParseFloat(out.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed duration, %w", err)
		}

		meta.Duration = int(d)
	}

	return meta, nil
}

// ImageDimensions decodes just enough of an image to learn its
// orientation-corrected size
func ImageDimensions(p string) (w, h int, err error) {
	img, err := imaging.Open(p, imaging.AutoOrientation(true))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image, %w", err)
	}

	b := img.Bounds()
	return b.Dx(), b.Dy(), nil
}

// imageDimensionsFromReader is ImageDimensions for an in-flight upload
func imageDimensionsFromReader(r io.ReadSeeker) (w, h int, err error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, 0, err
	}

	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image, %w", err)
	}

	b := img.Bounds()
	return b.Dx(), b.Dy(), nil
}
