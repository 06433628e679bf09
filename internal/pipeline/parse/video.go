package parse

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

type VideoMetaResult struct {
	Duration  float64 `json:"duration"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	SizeBytes int64   `json:"size_bytes"`
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// VideoFfprobeAndStore probes the video and records a video_metadata row.
// The probe timeout scales with file size at 20 KB/s.
func (a *Activities) VideoFfprobeAndStore(ctx context.Context, params VideoMetaParams) (VideoMetaResult, error) {
	sizeBytes := fileSize(params.FilePath)
	a.Log.Info("Running ffprobe for video", "file_path", params.FilePath)

	timeout := time.Duration(90+int(math.Ceil(float64(sizeBytes)/20_000))) * time.Second
	meta, err := ffprobeJSON(ctx, params.FilePath, timeout)
	if err != nil {
		return VideoMetaResult{}, err
	}
	width, height := firstVideoResolution(meta)
	duration := mediaDuration(meta)

	payload, err := json.Marshal(map[string]interface{}{
		"ffprobe":          meta,
		"duration_seconds": duration,
		"width":            width,
		"height":           height,
	})
	if err != nil {
		payload = []byte("{}")
	}
	batch, err := a.CH.Conn.PrepareBatch(ctx,
		"INSERT INTO video_metadata (collection_dataset, hash, video_metadata_json, processed_at)")
	if err != nil {
		return VideoMetaResult{}, err
	}
	if err := batch.Append(params.CollectionDataset, params.VideoHash, string(payload), time.Now().UTC()); err != nil {
		return VideoMetaResult{}, err
	}
	if err := batch.Send(); err != nil {
		return VideoMetaResult{}, fmt.Errorf("insert video_metadata: %w", err)
	}
	return VideoMetaResult{Duration: duration, Width: width, Height: height, SizeBytes: sizeBytes}, nil
}

// VideoExtractFramesAndSubtitles extracts one frame every 4 seconds plus any
// subtitle streams into a scratch directory for a recursive scan. ffmpeg
// failures are tolerated; whatever was produced gets scanned.
func (a *Activities) VideoExtractFramesAndSubtitles(ctx context.Context, params VideoExtractParams) (TempDirResult, error) {
	sizeBytes := fileSize(params.FilePath)
	a.Log.Info("Extracting video frames and subtitles", "file_path", params.FilePath)

	timeout := time.Duration(120+int(math.Ceil(float64(sizeBytes)/10_000))) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	outDir, err := MakeTempDir(params.CollectionDataset, "video", params.VideoHash)
	if err != nil {
		return TempDirResult{}, err
	}

	framesDir := filepath.Join(outDir, "frames")
	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		return TempDirResult{}, err
	}
	framePattern := filepath.Join(framesDir, "frame_%06d.jpg")
	_ = exec.CommandContext(runCtx, "ffmpeg", "-y",
		"-i", params.FilePath,
		"-vf", "fps=1/4",
		"-qscale:v", "2",
		framePattern).Run()

	probe, err := ffprobeJSON(runCtx, params.FilePath, timeout)
	if err != nil {
		probe = map[string]interface{}{}
	}
	var subtitleIndices []int
	for _, s := range ffprobeStreams(probe) {
		if s["codec_type"] == "subtitle" {
			subtitleIndices = append(subtitleIndices, streamInt(s, "index"))
		}
	}
	if len(subtitleIndices) > 0 {
		subsDir := filepath.Join(outDir, "subtitles")
		if err := os.MkdirAll(subsDir, 0o755); err != nil {
			return TempDirResult{}, err
		}
		for i, idx := range subtitleIndices {
			outSrt := filepath.Join(subsDir, fmt.Sprintf("subtitle_%d.srt", i+1))
			_ = exec.CommandContext(runCtx, "ffmpeg", "-y",
				"-i", params.FilePath,
				"-map", fmt.Sprintf("0:%d", idx),
				outSrt).Run()
		}
	}
	return TempDirResult{OutDir: outDir}, nil
}

// VideoProcessingAndScan stores video metadata, extracts frames and
// subtitles, scans them as container children, then cleans up.
func VideoProcessingAndScan(ctx workflow.Context, params VideoProcessingWorkflowParams) (string, error) {
	actx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Duration(params.TimeoutSeconds) * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})

	if err := workflow.ExecuteActivity(actx, VideoFfprobeAndStoreActivity, VideoMetaParams{
		CollectionDataset: params.CollectionDataset,
		VideoHash:         params.VideoHash,
		FilePath:          params.FilePath,
	}).Get(ctx, nil); err != nil {
		return "", err
	}

	var res TempDirResult
	if err := workflow.ExecuteActivity(actx, VideoExtractFramesAndSubtitlesActivity, VideoExtractParams{
		CollectionDataset: params.CollectionDataset,
		VideoHash:         params.VideoHash,
		FilePath:          params.FilePath,
	}).Get(ctx, &res); err != nil {
		return "", err
	}

	if res.OutDir != "" {
		recordCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
			StartToCloseTimeout: 10 * time.Minute,
			RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
		})
		if err := workflow.ExecuteActivity(recordCtx, RecordArchiveContainerActivity, RecordArchiveContainerParams{
			CollectionDataset: params.CollectionDataset,
			ArchiveHash:       params.VideoHash,
			ArchiveTypes:      []string{"video"},
		}).Get(ctx, nil); err != nil {
			return "", err
		}

		if err := scanTempDirAsContainer(ctx, params.CollectionDataset, res.OutDir, params.VideoHash,
			fmt.Sprintf("scan-video-%s-%s", params.CollectionDataset, params.VideoHash)); err != nil {
			return "", err
		}

		if err := workflow.ExecuteActivity(actx, CleanupTempDirActivity,
			CleanupTempDirParams{OutDir: res.OutDir}).Get(ctx, nil); err != nil {
			return "", err
		}
	}
	return "video_ok", nil
}
