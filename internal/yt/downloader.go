package yt

import (
	"context"
	"os"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// Download fetches url into opts.OutputDir and returns the path of the final
// (merged) file.
func (c *Client) Download(ctx context.Context, url string, opts Options) (string, error) {
	if opts.OutputDir != "" {
		if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
			return "", errors.Wrap(err, "create output dir")
		}
	}

	out, err := c.exec(ctx, downloadArgs(url, opts))
	if err != nil {
		return "", errors.Wrap(err, "download")
	}

	path := lastLine(out)
	if path == "" {
		return "", errors.New("yt-dlp did not report an output file")
	}
	st, err := os.Stat(path)
	if err != nil {
		return "", errors.Wrapf(err, "stat %s", path)
	}
	if st.IsDir() {
		return "", errors.Errorf("%s is a directory", path)
	}

	c.log.Info("download finished", zap.String("url", url), zap.String("file", path), zap.Int64("size", st.Size()))
	return path, nil
}
