package actions

import (
	"io"
	"net/url"

	"github.com/pkg/browser"

	"terminator/internal/nlu"
)

func init() {
	// xdg-open chatter would end up on the console transcript.
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

// SystemBrowser opens URLs with the desktop's default browser.
type SystemBrowser struct{}

func (SystemBrowser) Open(u string) error {
	return browser.OpenURL(u)
}

var sites = map[string]string{
	"youtube":        "https://www.youtube.com",
	"google":         "https://www.google.com",
	"github":         "https://github.com",
	"gmail":          "https://mail.google.com",
	"stackoverflow":  "https://stackoverflow.com",
	"stack overflow": "https://stackoverflow.com",
	"wikipedia":      "https://www.wikipedia.org",
	"reddit":         "https://www.reddit.com",
	"twitter":        "https://twitter.com",
	"facebook":       "https://www.facebook.com",
	"instagram":      "https://www.instagram.com",
	"linkedin":       "https://www.linkedin.com",
	"amazon":         "https://www.amazon.com",
	"netflix":        "https://www.netflix.com",
	"chatgpt":        "https://chat.openai.com",
	"whatsapp":       "https://web.whatsapp.com",
	"maps":           "https://maps.google.com",
	"google maps":    "https://maps.google.com",
}

// Site returns the address of a well-known website by spoken name.
func Site(name string) (string, bool) {
	u, ok := sites[nlu.NormalizeName(name)]
	return u, ok
}

func SearchURL(query string) string {
	return "https://www.google.com/search?q=" + url.QueryEscape(query)
}

func YouTubeSearchURL(query string) string {
	return "https://www.youtube.com/results?search_query=" + url.QueryEscape(query)
}
