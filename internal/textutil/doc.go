// Package textutil provides the filename sanitization shared by every media
// kind before a post title is used as an attachment or temp-file name.
package textutil
