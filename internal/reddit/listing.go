package reddit

import (
	"strings"

	"feedrelay/internal/media"
)

const permalinkHost = "https://www.reddit.com"

type listing struct {
	Kind string      `json:"kind"`
	Data listingData `json:"data"`
}

type listingData struct {
	After    string  `json:"after"`
	Children []child `json:"children"`
}

type child struct {
	Kind string    `json:"kind"`
	Data childData `json:"data"`
}

type childData struct {
	Title         string                   `json:"title"`
	Over18        bool                     `json:"over_18"`
	Permalink     string                   `json:"permalink"`
	URL           string                   `json:"url"`
	IsGallery     bool                     `json:"is_gallery"`
	GalleryData   *galleryData             `json:"gallery_data"`
	MediaMetadata map[string]mediaMetadata `json:"media_metadata"`
	Media         *postMedia               `json:"media"`
	SecureMedia   *postMedia               `json:"secure_media"`
}

type galleryData struct {
	Items []galleryItem `json:"items"`
}

type galleryItem struct {
	MediaID string `json:"media_id"`
}

type mediaMetadata struct {
	Status string `json:"status"`
	Mime   string `json:"m"`
}

type postMedia struct {
	RedditVideo *redditVideo `json:"reddit_video"`
}

type redditVideo struct {
	FallbackURL string `json:"fallback_url"`
	HLSURL      string `json:"hls_url"`
	DashURL     string `json:"dash_url"`
}

type aboutResponse struct {
	Kind string `json:"kind"`
	Data struct {
		DisplayName string `json:"display_name"`
	} `json:"data"`
}

func (d childData) toPost() media.Post {
	post := media.Post{
		Title:     strings.TrimSpace(d.Title),
		NSFW:      d.Over18,
		Permalink: absolutePermalink(d.Permalink),
		URL:       strings.TrimSpace(d.URL),
	}
	if d.IsGallery && d.GalleryData != nil {
		for _, item := range d.GalleryData.Items {
			meta := d.MediaMetadata[item.MediaID]
			post.Gallery = append(post.Gallery, media.GalleryItem{
				MediaID:  item.MediaID,
				MimeType: meta.Mime,
			})
		}
	}
	if video := d.video(); video != nil {
		post.VideoFallbackURL = strings.TrimSpace(video.FallbackURL)
		post.VideoAdaptiveURL = strings.TrimSpace(video.HLSURL)
	}
	return post
}

func (d childData) video() *redditVideo {
	if d.Media != nil && d.Media.RedditVideo != nil {
		return d.Media.RedditVideo
	}
	if d.SecureMedia != nil && d.SecureMedia.RedditVideo != nil {
		return d.SecureMedia.RedditVideo
	}
	return nil
}

func absolutePermalink(permalink string) string {
	permalink = strings.TrimSpace(permalink)
	if permalink == "" || strings.HasPrefix(permalink, "http://") || strings.HasPrefix(permalink, "https://") {
		return permalink
	}
	if !strings.HasPrefix(permalink, "/") {
		permalink = "/" + permalink
	}
	return permalinkHost + permalink
}
