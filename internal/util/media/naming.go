package media

import (
	"strings"

	"mediakit/internal/model"
	"mediakit/internal/util"
)

// OutputBasename builds a safe, informative base filename (without extension)
// for a deliverable: title, then the quality of the primary track.
func OutputBasename(info model.MediaInfo, sel model.Selection, c model.Container) string {
	title := strings.TrimSpace(info.Title)
	if title == "" {
		title = info.ID
	}
	parts := []string{util.SanitizeFilename(title)}
	switch {
	case c == model.ContainerMP3:
		parts = append(parts, "audio")
	case sel.Video != nil && sel.Video.Quality != "":
		parts = append(parts, util.SanitizeFilename(sel.Video.Quality))
	}
	return strings.Join(parts, "_")
}

// ContentType maps a file extension (with or without the dot) onto a MIME type.
func ContentType(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "mp4":
		return "video/mp4"
	case "webm":
		return "video/webm"
	case "mkv":
		return "video/x-matroska"
	case "m4a":
		return "audio/mp4"
	case "mp3":
		return "audio/mpeg"
	case "opus", "ogg":
		return "audio/ogg"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
