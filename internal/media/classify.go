package media

import (
	"net/url"
	"path"
	"strings"
)

const galleryHost = "https://i.redd.it/"

// Classify decides which single media branch a post belongs to. The first
// matching rule wins:
//
//  1. non-empty gallery (first item only)
//  2. adaptive video, regardless of any other URL
//  3. fallback video when the direct URL is not an image or gif
//  4. image URL with no video
//  5. gif URL with no image or video
//
// Anything else is KindNone. Classify performs no I/O.
func Classify(post Post) Media {
	if len(post.Gallery) > 0 {
		return classifyGallery(post.Gallery[0])
	}

	image := hasSuffix(post.URL, ".jpg", ".jpeg", ".png")
	gif := hasSuffix(post.URL, ".gif")
	video := post.VideoFallbackURL != ""

	switch {
	case post.VideoAdaptiveURL != "":
		return Media{Kind: KindAdaptiveVideo, URL: post.VideoAdaptiveURL, FallbackURL: post.VideoFallbackURL}
	case video && !image && !gif:
		return Media{Kind: KindDirectVideo, URL: post.VideoFallbackURL}
	case image && !video:
		return Media{Kind: KindImage, URL: post.URL}
	case gif && !image && !video:
		return Media{Kind: KindGif, URL: post.URL}
	default:
		return Media{Kind: KindNone}
	}
}

func classifyGallery(item GalleryItem) Media {
	id := strings.TrimSpace(item.MediaID)
	if id == "" {
		return Media{Kind: KindNone}
	}
	mime := strings.ToLower(strings.TrimSpace(item.MimeType))

	var kind Kind
	switch {
	case strings.HasPrefix(mime, "image"):
		kind = KindImage
	case strings.HasPrefix(mime, "video"):
		kind = KindDirectVideo
	case strings.HasSuffix(mime, "gif"):
		kind = KindGif
	default:
		return Media{Kind: KindNone}
	}

	resolved := Media{Kind: kind, URL: galleryHost + id + "." + galleryExtension(mime)}
	return Media{Kind: KindGallery, URL: resolved.URL, Item: &resolved}
}

func galleryExtension(mime string) string {
	_, subtype, ok := strings.Cut(mime, "/")
	if !ok {
		return "jpg"
	}
	subtype, _, _ = strings.Cut(subtype, ";")
	switch strings.TrimSpace(subtype) {
	case "jpeg", "jpg", "":
		return "jpg"
	case "png":
		return "png"
	case "gif":
		return "gif"
	case "webp":
		return "webp"
	case "mp4":
		return "mp4"
	default:
		return "jpg"
	}
}

// hasSuffix matches against the URL path so query strings do not hide the
// extension.
func hasSuffix(raw string, suffixes ...string) bool {
	if raw == "" {
		return false
	}
	p := raw
	if parsed, err := url.Parse(raw); err == nil && parsed.Path != "" {
		p = parsed.Path
	}
	p = strings.ToLower(p)
	for _, s := range suffixes {
		if strings.HasSuffix(p, s) {
			return true
		}
	}
	return false
}

// Extension returns the attachment extension for a resolved media URL,
// including the leading dot.
func Extension(m Media) string {
	m = m.Resolved()
	raw := m.URL
	if parsed, err := url.Parse(raw); err == nil {
		raw = parsed.Path
	}
	ext := strings.ToLower(path.Ext(raw))
	switch m.Kind {
	case KindImage:
		if ext == ".jpg" || ext == ".jpeg" || ext == ".png" || ext == ".webp" || ext == ".gif" {
			return ext
		}
		return ".jpg"
	case KindGif:
		return ".gif"
	case KindDirectVideo:
		if ext == ".mp4" || ext == ".webm" || ext == ".mov" {
			return ext
		}
		return ".mp4"
	default:
		return ".mp4"
	}
}
