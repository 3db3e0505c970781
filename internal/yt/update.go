package yt

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// SelfUpdate runs `yt-dlp -U` and returns its report. Extractors break often
// enough that operators need this without redeploying.
func (c *Client) SelfUpdate(ctx context.Context) (string, error) {
	c.log.Info("checking for yt-dlp update")
	stdout, stderr, err := c.run(ctx, c.path, "-U")
	report := strings.TrimSpace(string(stdout) + "\n" + string(stderr))
	if err != nil {
		c.log.Warn("yt-dlp update failed", zap.String("output", report), zap.Error(err))
		return report, errors.Wrap(err, "yt-dlp -U")
	}
	c.log.Info("yt-dlp update finished", zap.String("output", report))
	return report, nil
}

// Version returns the output of `yt-dlp --version`.
func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := c.exec(ctx, []string{"--version"})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
