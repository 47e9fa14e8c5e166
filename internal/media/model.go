package media

import "time"

const (
	// MaxPayloadBytes is the delivery channel's attachment ceiling (25 MiB).
	MaxPayloadBytes int64 = 25 * 1024 * 1024
	// TranscodeTimeout bounds a single ffmpeg invocation.
	TranscodeTimeout = 300 * time.Second
	// FetchChunkSize is the read size used while streaming bodies to disk.
	FetchChunkSize = 1024
)

// GalleryItem is one entry of a multi-item post.
type GalleryItem struct {
	MediaID  string
	MimeType string
}

// Post carries the metadata of one feed item. It is never mutated after the
// feed client builds it.
type Post struct {
	Title            string
	NSFW             bool
	Permalink        string
	URL              string
	Gallery          []GalleryItem
	VideoFallbackURL string
	VideoAdaptiveURL string
}

// Kind enumerates the media branches a post can resolve to.
type Kind int

const (
	KindNone Kind = iota
	KindImage
	KindGif
	KindDirectVideo
	KindAdaptiveVideo
	KindGallery
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindGif:
		return "gif"
	case KindDirectVideo:
		return "direct_video"
	case KindAdaptiveVideo:
		return "adaptive_video"
	case KindGallery:
		return "gallery"
	default:
		return "none"
	}
}

// Media is the classified media of a post.
//
// URL is the playable location for every kind except KindGallery, whose
// resolved first item lives in Item. FallbackURL is only set for
// KindAdaptiveVideo.
type Media struct {
	Kind        Kind
	URL         string
	FallbackURL string
	Item        *Media
}

// Resolved returns the media that should actually be fetched: the first
// gallery item for galleries, the media itself otherwise.
func (m Media) Resolved() Media {
	if m.Kind == KindGallery && m.Item != nil {
		return *m.Item
	}
	return m
}
