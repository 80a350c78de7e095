package media

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ClipInfo describes a media file's video stream.
type ClipInfo struct {
	Width    int
	Height   int
	Duration time.Duration
}

// Probe inspects a media file with ffprobe.
func Probe(path string) (ClipInfo, error) {
	info, err := probe(path)
	if err != nil {
		return ClipInfo{}, err
	}
	return ClipInfo{Width: info.width, Height: info.height, Duration: info.duration}, nil
}

// clipInfo is the subset of ffprobe output the player needs.
type clipInfo struct {
	width    int
	height   int
	duration time.Duration
}

// probe runs ffprobe against a media file.
func probe(path string) (clipInfo, error) {
	out, err := exec.Command("ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height:format=duration",
		"-of", "csv=p=0",
		path,
	).Output()
	if err != nil {
		return clipInfo{}, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}
	return parseProbeOutput(string(out))
}

// parseProbeOutput parses ffprobe csv output: one "width,height" line
// for the video stream followed by a duration line for the container.
func parseProbeOutput(out string) (clipInfo, error) {
	var info clipInfo
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, ","))
		if line == "" {
			continue
		}
		if strings.Contains(line, ",") {
			parts := strings.SplitN(line, ",", 2)
			w, errW := strconv.Atoi(strings.TrimSpace(parts[0]))
			h, errH := strconv.Atoi(strings.TrimSpace(parts[1]))
			if errW != nil || errH != nil {
				return info, fmt.Errorf("unparseable stream line %q", line)
			}
			info.width, info.height = w, h
			continue
		}
		secs, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return info, fmt.Errorf("unparseable duration %q", line)
		}
		info.duration = time.Duration(secs * float64(time.Second))
	}
	if info.width <= 0 || info.height <= 0 {
		return info, fmt.Errorf("no video stream dimensions in probe output")
	}
	if info.duration <= 0 {
		return info, fmt.Errorf("no duration in probe output")
	}
	return info, nil
}
