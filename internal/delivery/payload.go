package delivery

import (
	"strings"

	"feedrelay/internal/media"
	"feedrelay/internal/services"
	"feedrelay/internal/textutil"
)

const nsfwPrefix = "NSFW: "

// Attachment is a file on disk destined for the channel.
type Attachment struct {
	Filename string
	Path     string
	Size     int64
}

// Payload is the final delivery unit for one post.
type Payload struct {
	Caption    string
	Attachment *Attachment
}

// LinkOnly reports whether the payload carries no file.
func (p Payload) LinkOnly() bool {
	return p.Attachment == nil
}

// Request describes a post whose media resolution has finished. Path is the
// fetched or transcoded file; TooLarge marks the link-only degrade.
type Request struct {
	Post     media.Post
	Media    media.Media
	Path     string
	Size     int64
	TooLarge bool
}

// Build assembles the payload for a resolved post.
func Build(req Request) (Payload, error) {
	if req.Media.Kind == media.KindNone {
		return Payload{}, services.Wrap(services.ErrValidation, "deliver", "build payload", "post has no media", nil)
	}
	if !req.TooLarge && req.Path == "" {
		return Payload{}, services.Wrap(services.ErrValidation, "deliver", "build payload", "resolved media has no file", nil)
	}

	payload := Payload{Caption: Caption(req.Post, Link(req.Post, req.Media))}
	if req.TooLarge {
		return payload, nil
	}
	payload.Attachment = &Attachment{
		Filename: textutil.SanitizeFileName(req.Post.Title) + attachmentExtension(req.Media),
		Path:     req.Path,
		Size:     req.Size,
	}
	return payload, nil
}

// Caption renders "title\nlink", prefixed with the NSFW marker when needed.
func Caption(post media.Post, link string) string {
	caption := post.Title + "\n" + link
	if post.NSFW {
		caption = nsfwPrefix + caption
	}
	return caption
}

// Link picks the URL a caption points at: the permalink for images and gifs,
// the source for direct video, and the trimmed fallback for adaptive video.
func Link(post media.Post, m media.Media) string {
	resolved := m.Resolved()
	switch resolved.Kind {
	case media.KindImage, media.KindGif:
		if post.Permalink != "" {
			return post.Permalink
		}
		return resolved.URL
	case media.KindAdaptiveVideo:
		if resolved.FallbackURL != "" {
			return TrimTrackingSuffix(resolved.FallbackURL)
		}
		return resolved.URL
	default:
		return resolved.URL
	}
}

// TrimTrackingSuffix drops a trailing "/DASH..." rendition segment and any
// query string, leaving the shareable video URL.
func TrimTrackingSuffix(raw string) string {
	trimmed := raw
	if idx := strings.Index(trimmed, "/DASH"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	if idx := strings.IndexAny(trimmed, "?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return trimmed
}

func attachmentExtension(m media.Media) string {
	if m.Resolved().Kind == media.KindAdaptiveVideo {
		return ".mp4"
	}
	return media.Extension(m)
}
