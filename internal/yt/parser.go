package yt

import (
	"context"
	"encoding/json"
	"regexp"

	"github.com/go-faster/errors"
)

const (
	PlatformYouTube   = "YouTube"
	PlatformTikTok    = "TikTok"
	PlatformInstagram = "Instagram"
	PlatformFacebook  = "Facebook"
	PlatformOther     = "Other"
)

var (
	ytURLRegexp    = regexp.MustCompile(`((?:https?:)?\/\/)?((?:www|m|music)\.)?((?:youtube\.com|youtu\.be))(\/(?:[\w\-]+\?v=|embed\/|v\/|shorts\/)?)([\w\-]+)(\S+)?`)
	ttURLRegexp    = regexp.MustCompile(`((http(s)?:\/\/)?(www\.|m\.|vm\.|vt\.)?tiktok\.com\/((h5\/share\/usr\/|v\/|@[A-Za-z0-9_\-\.]+\/video\/|embed\/|trending\?shareId=|share\/user\/)?[A-Za-z0-9_\-]+\/?))`)
	instaURLRegexp = regexp.MustCompile(`https?:\/\/(www\.)?instagram\.com\/(reel|reels|p|tv|stories)\/[A-Za-z0-9_\-\.]+`)
	fbURLRegexp    = regexp.MustCompile(`https?:\/\/((www|m|web)\.)?(facebook\.com|fb\.watch)\/\S+`)
)

// VideoInfo is the subset of yt-dlp's JSON we use.
type VideoInfo struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Thumbnail    string  `json:"thumbnail"`
	ExtractorKey string  `json:"extractor_key"`
	WebpageURL   string  `json:"webpage_url"`
	Duration     float64 `json:"duration"`
}

func (i *VideoInfo) TitleOrDefault() string {
	if i == nil || i.Title == "" {
		return "No Title"
	}
	return i.Title
}

func (i *VideoInfo) PlatformOrDefault() string {
	if i == nil || i.ExtractorKey == "" {
		return "Unknown"
	}
	return i.ExtractorKey
}

// DetectPlatform guesses the source platform from free text. It is only a
// hint for logs and metrics; yt-dlp decides what it can handle.
func DetectPlatform(text string) string {
	switch {
	case ytURLRegexp.MatchString(text):
		return PlatformYouTube
	case ttURLRegexp.MatchString(text):
		return PlatformTikTok
	case instaURLRegexp.MatchString(text):
		return PlatformInstagram
	case fbURLRegexp.MatchString(text):
		return PlatformFacebook
	default:
		return PlatformOther
	}
}

// FetchInfo resolves metadata without downloading anything.
func (c *Client) FetchInfo(ctx context.Context, url string, opts Options) (*VideoInfo, error) {
	out, err := c.exec(ctx, infoArgs(url, opts))
	if err != nil {
		return nil, errors.Wrap(err, "fetch info")
	}
	return parseInfo(out)
}

func parseInfo(out []byte) (*VideoInfo, error) {
	var info VideoInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, errors.Wrap(err, "parse yt-dlp json")
	}
	return &info, nil
}
