package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"feedrelay/internal/config"
	"feedrelay/internal/deps"
)

const feedCheckTimeout = 30 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFFmpeg verifies the configured ffmpeg binary and its encoders.
func CheckFFmpeg(ctx context.Context, cfg *config.Config) Result {
	status := deps.CheckFFmpeg(ctx, cfg.FFmpegBinary())
	if !status.Available {
		return Result{Name: status.Name, Detail: status.Detail}
	}
	return Result{Name: status.Name, Passed: true, Detail: fmt.Sprintf("%s (libx264, aac)", status.Command)}
}

// CheckDelivery verifies a Discord channel is configured.
func CheckDelivery(cfg *config.Config) Result {
	const name = "Discord"
	if err := cfg.ValidateDelivery(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if cfg.Discord.WebhookURL != "" {
		return Result{Name: name, Passed: true, Detail: "webhook configured"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("bot configured for channel %s", cfg.Discord.ChannelID)}
}

// CheckFeed authenticates against the feed API by looking up one source.
// A single attempt is made.
func CheckFeed(ctx context.Context, checker SourceChecker, source string) Result {
	const name = "Reddit API"
	if source == "" {
		return Result{Name: name, Detail: "no source configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, feedCheckTimeout)
	defer cancel()

	ok, err := checker.SourceExists(checkCtx, source)
	switch {
	case err != nil:
		return Result{Name: name, Detail: summarizeFeedError(err)}
	case !ok:
		return Result{Name: name, Detail: fmt.Sprintf("r/%s not found", source)}
	default:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("authenticated, r/%s reachable", source)}
	}
}

func summarizeFeedError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (Reddit API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (Reddit API unreachable)"
	}
	return err.Error()
}
