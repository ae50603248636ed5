package content

import (
	"path/filepath"
	"strings"
)

// uploadTypes maps each accepted extension to the content types the sniffer
// may report for it. Legacy .doc files are OLE containers, which the sniffer
// only knows as application/octet-stream.
var uploadTypes = map[string][]string{
	".pdf":  {"application/pdf"},
	".jpg":  {"image/jpeg"},
	".jpeg": {"image/jpeg"},
	".png":  {"image/png"},
	".doc":  {"application/msword", "application/octet-stream"},
	".docx": {"application/zip", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	".txt":  {"text/plain"},
}

func allowedExtension(fileName string) bool {
	_, ok := uploadTypes[strings.ToLower(filepath.Ext(fileName))]
	return ok
}

// allowedUpload reports whether the sniffed content type agrees with the
// file extension.
func allowedUpload(fileName, mimeType string) bool {
	accepted, ok := uploadTypes[strings.ToLower(filepath.Ext(fileName))]
	if !ok {
		return false
	}
	base := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	for _, m := range accepted {
		if base == m {
			return true
		}
	}
	return false
}
