package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Buckets struct {
	RawVideo           string
	ProcessedVideo     string
	RawThumbnail       string
	ProcessedThumbnail string
}

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	RedisAddr   string
	QueuePrefix string
	Workers     int

	ScratchRoot string
	Buckets     Buckets

	// Target heights, one transcode per entry.
	VideoHeights    []int
	ThumbnailWidth  int
	ThumbnailHeight int
	FFmpegBin       string

	TransformTimeout      time.Duration
	ReleaseClaimOnFailure bool
	SignedURLTTL          time.Duration

	// Claims older than this are returned to the queue by the reaper.
	ReaperStaleAfter time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		HTTPAddr:    envOr("HTTP_ADDR", ":8080"),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		RedisAddr:   envOr("REDIS_ADDR", ""),
		QueuePrefix: envOr("QUEUE_PREFIX", "media:queue"),
		Workers:     envIntOr("WORKERS", 4),
		ScratchRoot: envOr("SCRATCH_ROOT", "."),
		Buckets: Buckets{
			RawVideo:           envOr("RAW_VIDEO_BUCKET", "raw-videos-yt"),
			ProcessedVideo:     envOr("PROCESSED_VIDEO_BUCKET", "processed-videos-yt"),
			RawThumbnail:       envOr("RAW_THUMBNAIL_BUCKET", "thumbnail-bucket-yt"),
			ProcessedThumbnail: envOr("PROCESSED_THUMBNAIL_BUCKET", "processed-thumbnails-yt"),
		},
		FFmpegBin:             envOr("FFMPEG_BIN", "ffmpeg"),
		TransformTimeout:      envDurationOr("TRANSFORM_TIMEOUT", 0),
		ReleaseClaimOnFailure: envBoolOr("RELEASE_CLAIM_ON_FAILURE", false),
		ReaperStaleAfter:      envDurationOr("REAPER_STALE_AFTER", time.Hour),
		SignedURLTTL:          envDurationOr("SIGNED_URL_TTL", 15*time.Minute),
		LogLevel:              envOr("LOG_LEVEL", "info"),
		LogFormat:             envOr("LOG_FORMAT", "json"),
	}

	if cfg.PostgresDSN == "" {
		return nil, errors.New("missing env: POSTGRES_DSN")
	}

	heights, err := parseHeights(envOr("VIDEO_RESOLUTIONS", "360,720"))
	if err != nil {
		return nil, fmt.Errorf("VIDEO_RESOLUTIONS: %w", err)
	}
	cfg.VideoHeights = heights

	w, h, err := parseSize(envOr("THUMBNAIL_SIZE", "1280x720"))
	if err != nil {
		return nil, fmt.Errorf("THUMBNAIL_SIZE: %w", err)
	}
	cfg.ThumbnailWidth, cfg.ThumbnailHeight = w, h

	// a job still inside its timeout must not be redelivered
	if cfg.TransformTimeout > 0 && cfg.ReaperStaleAfter <= cfg.TransformTimeout {
		cfg.ReaperStaleAfter = cfg.TransformTimeout + time.Minute
	}

	return cfg, nil
}

func parseHeights(raw string) ([]int, error) {
	var out []int
	seen := make(map[int]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSuffix(strings.TrimSpace(part), "p")
		if part == "" {
			continue
		}
		h, err := strconv.Atoi(part)
		if err != nil || h <= 0 {
			return nil, fmt.Errorf("invalid height %q", part)
		}
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	if len(out) == 0 {
		return nil, errors.New("at least one height is required")
	}
	return out, nil
}

func parseSize(raw string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(raw)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("expected WxH, got %q", raw)
	}
	w, err := strconv.Atoi(ws)
	if err != nil || w <= 0 {
		return 0, 0, fmt.Errorf("invalid width %q", ws)
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h <= 0 {
		return 0, 0, fmt.Errorf("invalid height %q", hs)
	}
	return w, h, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func envBoolOr(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDurationOr(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

var dsnPassword = regexp.MustCompile(`://([^:/?#]+):([^@/]+)@`)

// RedactDSN masks the password of a URL-style DSN (user:pass@ -> user:****@).
func RedactDSN(dsn string) string {
	return dsnPassword.ReplaceAllString(dsn, `://$1:****@`)
}
