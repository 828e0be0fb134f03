// Package fetch downloads .osu charts by beatmap id into a local cache.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/levigross/grequests"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://osu.ppy.sh/osu/"

	rateLimit             = 30
	cooldown              = time.Minute
	maxConcurrentRequests = 2
	maxRetries            = 3
)

var (
	ErrNotFound    = errors.New("beatmap not found")
	ErrRateLimited = errors.New("rate limited")
	ErrNotChart    = errors.New("response is not an .osu chart")
)

type Client struct {
	BaseURL    string
	CacheDir   string
	UserAgent  string
	MaxRetries int
	Limiter    *Limiter
	Logger     *zap.Logger
}

func New(cacheDir string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		BaseURL:    DefaultBaseURL,
		CacheDir:   cacheDir,
		UserAgent:  "ppbind",
		MaxRetries: maxRetries,
		Limiter:    NewLimiter(rateLimit, cooldown, maxConcurrentRequests),
		Logger:     logger,
	}
}

// Path is where the chart of a beatmap id is cached.
func (c *Client) Path(id int) string {
	return filepath.Join(c.CacheDir, strconv.Itoa(id)+".osu")
}

// Fetch returns the local path of the chart, downloading it first when it
// is not cached yet.
func (c *Client) Fetch(ctx context.Context, id int) (string, error) {
	if id <= 0 {
		return "", fmt.Errorf("invalid beatmap id %d", id)
	}
	path := c.Path(id)
	if _, err := os.Stat(path); err == nil {
		c.Logger.Debug("chart cached", zap.Int("beatmap_id", id), zap.String("path", path))
		return path, nil
	}

	data, err := c.download(ctx, id)
	if err != nil {
		return "", fmt.Errorf("fetch beatmap %d: %w", id, err)
	}
	if err := os.MkdirAll(c.CacheDir, 0o755); err != nil {
		return "", err
	}
	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", err
	}
	c.Logger.Info("downloaded chart",
		zap.Int("beatmap_id", id),
		zap.String("size", humanize.Bytes(uint64(len(data)))),
		zap.String("path", path),
	)
	return path, nil
}

func (c *Client) download(ctx context.Context, id int) ([]byte, error) {
	release, err := c.Limiter.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	url := c.BaseURL + strconv.Itoa(id)
	for attempt := 0; ; attempt++ {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := grequests.Get(url, &grequests.RequestOptions{
			UserAgent:      c.UserAgent,
			RequestTimeout: time.Minute,
			Context:        ctx,
		})
		if err != nil {
			if attempt < c.MaxRetries && strings.Contains(err.Error(), "connection refused") {
				if err := c.pause(ctx, id, "connection refused"); err != nil {
					return nil, err
				}
				continue
			}
			return nil, err
		}
		body := resp.Bytes()
		status := resp.StatusCode
		ok := resp.Ok
		resp.Close()

		switch {
		case status == http.StatusTooManyRequests || bytes.Contains(body, []byte("Slow down, play more.")):
			if attempt >= c.MaxRetries {
				return nil, ErrRateLimited
			}
			if err := c.pause(ctx, id, "slow down"); err != nil {
				return nil, err
			}
			continue
		case status == http.StatusNotFound:
			return nil, ErrNotFound
		case !ok:
			return nil, fmt.Errorf("unexpected status %d", status)
		}
		c.Limiter.Recovered()

		// the endpoint answers unknown ids with an empty 200
		if len(bytes.TrimSpace(body)) == 0 {
			return nil, ErrNotFound
		}
		if !bytes.Contains(body[:min(len(body), 64)], []byte("osu file format")) {
			return nil, ErrNotChart
		}
		return body, nil
	}
}

func (c *Client) pause(ctx context.Context, id int, reason string) error {
	wait := c.Limiter.Backoff()
	c.Logger.Warn("server pushed back, waiting",
		zap.Int("beatmap_id", id),
		zap.String("reason", reason),
		zap.Duration("wait", wait),
	)
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
