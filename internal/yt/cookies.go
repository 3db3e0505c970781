package yt

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
)

const cookieFileHeader = "# Netscape HTTP Cookie File"

// WriteCookies materialises cookie text (supplied through the environment at
// deploy time) as a Netscape cookie file readable only by the bot user.
// Empty content is a no-op and returns false.
func WriteCookies(path, content string) (bool, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return false, nil
	}
	if path == "" {
		return false, errors.New("cookies file path is empty")
	}
	if !strings.HasPrefix(content, "#") {
		content = cookieFileHeader + "\n\n" + content
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return false, errors.Wrap(err, "create cookies dir")
	}
	if err := os.WriteFile(path, []byte(content+"\n"), 0o600); err != nil {
		return false, errors.Wrap(err, "write cookies")
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0o600); err != nil {
		return false, errors.Wrap(err, "chmod cookies")
	}
	return true, nil
}

// CookiesAvailable reports whether path names a readable regular file.
func CookiesAvailable(path string) bool {
	if path == "" {
		return false
	}
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}
