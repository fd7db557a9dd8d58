package upload

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// SelectedFile is one user-chosen audio file.
type SelectedFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// NewSelectedFile builds a SelectedFile, filling in the content type from the
// extension or the content when declared is empty or generic.
func NewSelectedFile(name, declared string, data []byte) SelectedFile {
	return SelectedFile{
		Name:        name,
		ContentType: DetectContentType(name, declared, data),
		Data:        data,
	}
}

var audioExtensions = map[string]string{
	".aac":  "audio/aac",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".mp3":  "audio/mpeg",
	".oga":  "audio/ogg",
	".ogg":  "audio/ogg",
	".opus": "audio/opus",
	".wav":  "audio/wav",
	".weba": "audio/webm",
}

// DetectContentType resolves a content type: declared header, then file
// extension, then content sniffing.
func DetectContentType(name, declared string, data []byte) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	ext := strings.ToLower(filepath.Ext(name))
	if byExt, ok := audioExtensions[ext]; ok {
		return byExt
	}
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		return byExt
	}
	return http.DetectContentType(data)
}

// IsAudio reports whether the file's content type is audio/*.
func (f SelectedFile) IsAudio() bool {
	mediaType, _, err := mime.ParseMediaType(f.ContentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "audio/")
}
