package monitor

import (
	"strings"

	"github.com/genricoloni/overlay/internal/domain"
)

const (
	maxTitleRunes  = 30
	maxArtistRunes = 40
	ellipsis       = "..."
)

// TrackLabel returns the title as shown in the widget
func TrackLabel(np domain.NowPlaying) string {
	if np.Title == "" {
		return "Not playing"
	}
	return truncate(np.Title, maxTitleRunes)
}

// ArtistLabel joins the artists with ", " and shortens the result
func ArtistLabel(np domain.NowPlaying) string {
	return truncate(strings.Join(np.Artists, ", "), maxArtistRunes)
}

// truncate keeps the first n runes and appends an ellipsis when s is longer
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + ellipsis
}
