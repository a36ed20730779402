package model

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Video is a bookmarked video.
type Video struct {
	ID        string    `json:"id" validate:"required"`
	URL       string    `json:"url" validate:"required,url"`
	VideoID   string    `json:"videoId,omitempty"`
	Title     string    `json:"title" validate:"max=300"`
	Category  string    `json:"category,omitempty" validate:"max=50"`
	Watched   bool      `json:"watched"`
	Notes     string    `json:"notes,omitempty" validate:"max=5000"`
	CreatedAt time.Time `json:"createdAt"`
}

var youtubeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// NewVideo creates a bookmark, extracting the YouTube id when present.
func NewVideo(rawURL, title, category string) Video {
	return Video{
		ID:        NewID(),
		URL:       rawURL,
		VideoID:   ExtractYouTubeID(rawURL),
		Title:     title,
		Category:  category,
		CreatedAt: time.Now().UTC(),
	}
}

// ExtractYouTubeID returns the video id of a YouTube URL, or "".
func ExtractYouTubeID(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}

	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	host = strings.TrimPrefix(host, "m.")

	var id string
	switch host {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com", "music.youtube.com":
		if v := u.Query().Get("v"); v != "" {
			id = v
			break
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) == 2 && (parts[0] == "shorts" || parts[0] == "embed" || parts[0] == "live") {
			id = parts[1]
		}
	}

	if !youtubeIDPattern.MatchString(id) {
		return ""
	}
	return id
}

// ThumbnailURL returns the default thumbnail for YouTube bookmarks.
func (v Video) ThumbnailURL() string {
	if v.VideoID == "" {
		return ""
	}
	return "https://img.youtube.com/vi/" + v.VideoID + "/hqdefault.jpg"
}

// SortVideos orders bookmarks newest first.
func SortVideos(videos []Video) []Video {
	sort.SliceStable(videos, func(i, j int) bool {
		return videos[i].CreatedAt.After(videos[j].CreatedAt)
	})
	return videos
}

// FindVideo returns the index of the bookmark with id, or -1.
func FindVideo(videos []Video, id string) int {
	for i := range videos {
		if videos[i].ID == id {
			return i
		}
	}
	return -1
}
