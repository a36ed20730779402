package repo

import (
	"fmt"

	"github.com/manav03panchal/personalvault/internal/errors"
	"github.com/manav03panchal/personalvault/internal/model"
	"github.com/manav03panchal/personalvault/internal/validate"
)

// Videos is the video bookmark collection.
type Videos struct {
	*Repository[[]model.Video]
}

// NewVideos creates the videos repository.
func NewVideos(deps Deps) *Videos {
	return &Videos{New(VideosDomain(), deps)}
}

// Add bookmarks rawURL. The same URL is only stored once.
func (v *Videos) Add(rawURL, title, category string) (model.Video, error) {
	if err := validate.URL(rawURL); err != nil {
		return model.Video{}, err
	}
	video := model.NewVideo(rawURL, validate.SanitizeText(title), validate.SanitizeText(category))
	if err := validate.Struct(video); err != nil {
		return model.Video{}, err
	}

	_, err := v.Mutate(func(videos []model.Video) ([]model.Video, error) {
		for _, existing := range videos {
			if existing.URL == video.URL {
				return nil, errors.NewUserErrorWithField("url", rawURL, "video already bookmarked", "")
			}
		}
		return append(videos, video), nil
	})
	if err != nil {
		return model.Video{}, err
	}
	return video, nil
}

// SetWatched marks a bookmark watched or unwatched.
func (v *Videos) SetWatched(id string, watched bool) (model.Video, error) {
	var updated model.Video
	_, err := v.Mutate(func(videos []model.Video) ([]model.Video, error) {
		i := model.FindVideo(videos, id)
		if i < 0 {
			return nil, videoNotFound(id)
		}
		videos[i].Watched = watched
		updated = videos[i]
		return videos, nil
	})
	return updated, err
}

// Delete removes a bookmark.
func (v *Videos) Delete(id string) error {
	_, err := v.Mutate(func(videos []model.Video) ([]model.Video, error) {
		i := model.FindVideo(videos, id)
		if i < 0 {
			return nil, videoNotFound(id)
		}
		return append(videos[:i], videos[i+1:]...), nil
	})
	return err
}

// List returns bookmarks newest first, optionally only unwatched ones.
func (v *Videos) List(unwatchedOnly bool) []model.Video {
	var out []model.Video
	for _, video := range v.Snapshot() {
		if unwatchedOnly && video.Watched {
			continue
		}
		out = append(out, video)
	}
	return out
}

func videoNotFound(id string) error {
	return errors.NewUserErrorWithField("id", id, fmt.Sprintf("video not found: %s", id),
		"Run 'personalvault video list' to see bookmark ids")
}
