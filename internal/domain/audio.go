package domain

import "strings"

// Audio file extensions treated as podcast episodes.
var audioExtensions = []string{".mp3", ".m4a", ".wav", ".ogg", ".aac", ".flac"}

var audioMIMETypes = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".aac":  "audio/aac",
	".flac": "audio/flac",
}

// IsAudioFile reports whether the file name has a known audio extension.
// The match is a case-insensitive suffix check.
func IsAudioFile(name string) bool {
	if name == "" {
		return false
	}

	lower := strings.ToLower(name)
	for _, ext := range audioExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}

	return false
}

// AudioMIMEType returns the enclosure MIME type for an audio file name,
// defaulting to audio/mpeg for unknown extensions.
func AudioMIMEType(name string) string {
	lower := strings.ToLower(name)
	for ext, mime := range audioMIMETypes {
		if strings.HasSuffix(lower, ext) {
			return mime
		}
	}

	return "audio/mpeg"
}
