package yt

import (
	"bytes"
	"context"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// Options is the configuration bag handed to yt-dlp. It is built once per
// request and not modified afterwards.
type Options struct {
	// Headers are sent with every request yt-dlp makes (User-Agent mostly).
	Headers map[string]string
	// PlayerClients selects the YouTube client variants yt-dlp impersonates.
	// Empty leaves yt-dlp's own choice.
	PlayerClients []string
	// CookiesFile is a Netscape cookie file; empty means no cookies.
	CookiesFile string
	// Retries is passed as --retries in download mode. Zero keeps yt-dlp's default.
	Retries int
	// OutputDir and OutputTemplate form the -o argument in download mode.
	OutputDir      string
	OutputTemplate string
	// Format is the stream selector; the part after "/" is the fallback when
	// separate video and audio cannot be muxed.
	Format            string
	MergeOutputFormat string
}

func DefaultOptions() Options {
	return Options{
		Headers:           map[string]string{},
		OutputTemplate:    "%(title)s.%(ext)s",
		Format:            "bestvideo+bestaudio/best",
		MergeOutputFormat: "mp4",
	}
}

// Runner executes a command and returns stdout and stderr separately.
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Client wraps the yt-dlp binary.
type Client struct {
	path string
	run  Runner
	log  *zap.Logger
}

func NewClient(path string, log *zap.Logger) *Client {
	if path == "" {
		path = "yt-dlp"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{path: path, run: execRunner, log: log.Named("yt-dlp")}
}

// WithRunner replaces the process runner, used by tests.
func (c *Client) WithRunner(r Runner) *Client {
	c.run = r
	return c
}

func (c *Client) exec(ctx context.Context, args []string) ([]byte, error) {
	stdout, stderr, err := c.run(ctx, c.path, args...)
	if err != nil {
		c.log.Warn("yt-dlp failed",
			zap.Strings("args", redactArgs(args)),
			zap.ByteString("stderr", stderr),
			zap.Error(err))
		msg := lastLine(stderr)
		if msg == "" {
			return nil, errors.Wrap(err, "run yt-dlp")
		}
		return nil, errors.Wrapf(err, "run yt-dlp: %s", msg)
	}
	return stdout, nil
}

func commonArgs(opts Options) []string {
	args := []string{"--no-playlist", "--no-warnings", "--no-progress"}

	keys := make([]string, 0, len(opts.Headers))
	for k := range opts.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if opts.Headers[k] == "" {
			continue
		}
		args = append(args, "--add-header", k+":"+opts.Headers[k])
	}

	if len(opts.PlayerClients) > 0 {
		args = append(args, "--extractor-args", "youtube:player_client="+strings.Join(opts.PlayerClients, ","))
	}
	if opts.CookiesFile != "" {
		args = append(args, "--cookies", opts.CookiesFile)
	}
	return args
}

func infoArgs(url string, opts Options) []string {
	args := append(commonArgs(opts), "--skip-download", "--dump-single-json")
	return append(args, "--", url)
}

func downloadArgs(url string, opts Options) []string {
	args := commonArgs(opts)
	if opts.Format != "" {
		args = append(args, "-f", opts.Format)
	}
	if opts.MergeOutputFormat != "" {
		args = append(args, "--merge-output-format", opts.MergeOutputFormat)
	}
	if opts.Retries > 0 {
		args = append(args, "--retries", strconv.Itoa(opts.Retries))
	}
	args = append(args,
		"-o", outputPath(opts),
		"--print", "after_move:filepath",
		"--", url,
	)
	return args
}

func outputPath(opts Options) string {
	tmpl := opts.OutputTemplate
	if tmpl == "" {
		tmpl = "%(title)s.%(ext)s"
	}
	if opts.OutputDir == "" {
		return tmpl
	}
	return strings.TrimSuffix(opts.OutputDir, "/") + "/" + tmpl
}

func redactArgs(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 0; i < len(out)-1; i++ {
		if out[i] == "--add-header" && strings.HasPrefix(strings.ToLower(out[i+1]), "cookie:") {
			out[i+1] = "Cookie:<redacted>"
		}
	}
	return out
}

func lastLine(b []byte) string {
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
