// Package media resolves the media attached to a feed post into a local file
// that can be delivered.
//
// Key pieces:
//   - Post / Media: the immutable post metadata and the classified media kind.
//   - Classify: pure metadata inspection choosing exactly one media branch.
//   - Fetcher: size-bounded streaming HTTP downloads with playlist sniffing.
//   - Transcoder: ffmpeg wrapper that flattens adaptive streams into H.264/AAC
//     MP4 under a wall-clock timeout.
//
// MaxPayloadBytes and TranscodeTimeout govern every size and time decision and
// are not configurable per post.
package media
