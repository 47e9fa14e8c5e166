package logging

import "strings"

// FormatSubject builds the "Post #N (stage)" prefix used in console output.
func FormatSubject(postIndex, stage string) string {
	postIndex = strings.TrimSpace(postIndex)
	stage = strings.TrimSpace(stage)
	switch {
	case postIndex != "" && stage != "":
		return "Post #" + postIndex + " (" + stage + ")"
	case postIndex != "":
		return "Post #" + postIndex
	default:
		return stage
	}
}
