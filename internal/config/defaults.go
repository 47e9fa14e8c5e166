package config

import "feedrelay/internal/feed"

const (
	defaultConfigPath     = "~/.config/feedrelay/config.toml"
	defaultWorkDir        = "~/.cache/feedrelay/work"
	defaultLogDir         = "~/.local/share/feedrelay/logs"
	defaultStateDir       = "~/.local/share/feedrelay"
	historyFileName       = "history.db"
	defaultRedditBaseURL  = "https://oauth.reddit.com"
	defaultRedditTokenURL = "https://www.reddit.com/api/v1/access_token"
	defaultUserAgent      = "feedrelay/dev"
	defaultRedditTimeout  = 30
	defaultMaxPosts       = 5
	defaultFilter         = "hot"
	defaultTimeRange      = "day"
	defaultFetchTimeout   = 120
	defaultFFmpegBinary   = "ffmpeg"
	defaultCRF            = 25
	defaultNtfyTimeout    = 10
	defaultLogFormat      = "auto"
	defaultLogLevel       = "info"
	defaultLogRetention   = 14
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:  defaultWorkDir,
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Reddit: Reddit{
			UserAgent:      defaultUserAgent,
			BaseURL:        defaultRedditBaseURL,
			TokenURL:       defaultRedditTokenURL,
			RequestTimeout: defaultRedditTimeout,
		},
		Feed: Feed{
			Sources:          feed.DefaultSourceNames(),
			MaxPosts:         defaultMaxPosts,
			DefaultFilter:    defaultFilter,
			DefaultTimeRange: defaultTimeRange,
		},
		Fetch: Fetch{
			TimeoutSeconds: defaultFetchTimeout,
		},
		Transcode: Transcode{
			FFmpegBinary: defaultFFmpegBinary,
			CRF:          defaultCRF,
		},
		History: History{
			Enabled: true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
			Batch:          true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetention,
		},
	}
}
