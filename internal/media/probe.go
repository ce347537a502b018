// SPDX-License-Identifier: MIT

package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const probeTimeout = 15 * time.Second

// probeResult mirrors the ffprobe -of json output we care about.
type probeResult struct {
	Streams []struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
	} `json:"streams"`
}

// Probe asks ffprobe for the dimensions and frame rate of the first video
// stream. The FPS is reported as probed; clamping is the chunker's job.
func Probe(ctx context.Context, ffprobeBin, url string, rtspTCP bool) (StreamProps, error) {
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	args := []string{"-v", "error"}
	if rtspTCP && strings.HasPrefix(url, "rtsp://") {
		args = append(args, "-rtsp_transport", "tcp")
	}
	args = append(args,
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,avg_frame_rate,r_frame_rate",
		"-of", "json",
		url,
	)

	out, err := exec.CommandContext(ctx, ffprobeBin, args...).Output()
	if err != nil {
		return StreamProps{}, fmt.Errorf("ffprobe %s: %w", url, err)
	}

	var res probeResult
	if err := json.Unmarshal(out, &res); err != nil {
		return StreamProps{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(res.Streams) == 0 {
		return StreamProps{}, fmt.Errorf("ffprobe %s: no video stream", url)
	}

	s := res.Streams[0]
	fps := parseRate(s.AvgFrameRate)
	if fps <= 0 {
		fps = parseRate(s.RFrameRate)
	}
	return StreamProps{Width: s.Width, Height: s.Height, FPS: fps}, nil
}

// parseRate parses ffprobe's "num/den" rational frame rate. Returns 0 on
// anything unusable ("0/0", empty, malformed).
func parseRate(r string) float64 {
	if r == "" {
		return 0
	}
	num, den, ok := strings.Cut(r, "/")
	if !ok {
		v, err := strconv.ParseFloat(r, 64)
		if err != nil {
			return 0
		}
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}
