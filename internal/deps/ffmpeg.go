package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// RequiredEncoders are the ffmpeg encoders the transcode template names.
var RequiredEncoders = []string{"libx264", "aac"}

const encoderProbeTimeout = 10 * time.Second

// CheckFFmpeg verifies the binary exists and was built with every encoder in
// RequiredEncoders.
func CheckFFmpeg(ctx context.Context, binary string) Status {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	result := CheckBinaries([]Requirement{{
		Name:        "FFmpeg",
		Command:     binary,
		Description: "Required to transcode adaptive video",
	}})[0]
	if !result.Available {
		return result
	}

	probeCtx, cancel := context.WithTimeout(ctx, encoderProbeTimeout)
	defer cancel()
	output, err := exec.CommandContext(probeCtx, result.Command, "-hide_banner", "-encoders").Output()
	if err != nil {
		result.Available = false
		result.Detail = fmt.Sprintf("encoder probe failed: %v", err)
		return result
	}
	if missing := missingEncoders(string(output)); len(missing) > 0 {
		result.Available = false
		result.Detail = fmt.Sprintf("missing encoders: %s", strings.Join(missing, ", "))
	}
	return result
}

// missingEncoders scans `ffmpeg -encoders` output, whose rows look like
// " V....D libx264   libx264 H.264 / AVC ...".
func missingEncoders(output string) []string {
	available := make(map[string]bool)
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || len(fields[0]) != 6 {
			continue
		}
		available[fields[1]] = true
	}
	var missing []string
	for _, name := range RequiredEncoders {
		if !available[name] {
			missing = append(missing, name)
		}
	}
	return missing
}
