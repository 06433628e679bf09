package parse

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ffprobeJSON runs ffprobe with JSON output for format and streams.
func ffprobeJSON(ctx context.Context, filePath string, timeout time.Duration) (map[string]interface{}, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed: %s %s",
			truncate([]byte(stderr.String()), 200), truncate([]byte(stdout.String()), 200))
	}
	var meta map[string]interface{}
	if err := json.Unmarshal([]byte(stdout.String()), &meta); err != nil {
		return map[string]interface{}{}, nil
	}
	return meta, nil
}

func ffprobeStreams(meta map[string]interface{}) []map[string]interface{} {
	raw, _ := meta["streams"].([]interface{})
	var streams []map[string]interface{}
	for _, s := range raw {
		if m, ok := s.(map[string]interface{}); ok {
			streams = append(streams, m)
		}
	}
	return streams
}

func streamInt(s map[string]interface{}, key string) int {
	switch v := s[key].(type) {
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}

func streamFloat(s map[string]interface{}, key string) (float64, bool) {
	switch v := s[key].(type) {
	case float64:
		return v, true
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// firstVideoResolution returns width and height of the first video stream.
func firstVideoResolution(meta map[string]interface{}) (int, int) {
	for _, s := range ffprobeStreams(meta) {
		if s["codec_type"] == "video" {
			return streamInt(s, "width"), streamInt(s, "height")
		}
	}
	return 0, 0
}

// mediaDuration prefers the container duration and falls back to the longest
// stream.
func mediaDuration(meta map[string]interface{}) float64 {
	if fmtMap, ok := meta["format"].(map[string]interface{}); ok {
		if d, ok := streamFloat(fmtMap, "duration"); ok {
			return d
		}
	}
	maxD := 0.0
	for _, s := range ffprobeStreams(meta) {
		if d, ok := streamFloat(s, "duration"); ok && d > maxD {
			maxD = d
		}
	}
	return maxD
}
