package textutil

import "strings"

// fallbackFileName is used when a title has no characters at all.
const fallbackFileName = "post"

// fileNameReplacer maps every filesystem-unsafe character to an underscore.
var fileNameReplacer = strings.NewReplacer(
	"\\", "_",
	"/", "_",
	"*", "_",
	"?", "_",
	":", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// SanitizeFileName replaces the characters \ / * ? : " < > | with underscores.
// No other transformation is applied, so the result has the same length as the
// input. An empty name yields "post".
func SanitizeFileName(name string) string {
	if name == "" {
		return fallbackFileName
	}
	return fileNameReplacer.Replace(name)
}
