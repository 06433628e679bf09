// Package filetype maps MIME types and detector outputs onto the coarse
// categories the parse router dispatches on: archive, email, text, html,
// doc, xls, ppt, pdf, image, audio, video, other.
package filetype

import "strings"

var htmlMimes = map[string]bool{
	"text/html":              true,
	"text/xhtml+xml":         true,
	"application/xhtml+xml":  true,
	"application/xaml+xml":   true,
	"application/x-hush-pgp-encrypted-html-body":           true,
	"application/x-hush-pgp-encrypted-html-body-multipart": true,
}

var archiveMimes = map[string]bool{
	"application/zip":              true,
	"application/x-zip":            true,
	"application/x-zip-compressed": true,
	"application/x-tar":            true,
	"application/x-7z-compressed":  true,
	"application/rar":              true,
	"application/x-rar":            true,
	"application/x-rar-compressed": true,
	"application/vnd.rar":          true,
	"application/x-bzip2":          true,
	"application/x-gzip":           true,
	"application/x-lzma":           true,
	"application/x-lzip":           true,
	"application/x-xz":             true,
	"application/x-zstd":           true,
}

var docMimes = map[string]bool{
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.template": true,
	"application/vnd.ms-word.document.macroEnabled.12":                        true,
	"application/vnd.oasis.opendocument.text":                                 true,
	"application/rtf": true,
}

var xlsMimes = map[string]bool{
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":    true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.template": true,
	"application/vnd.ms-excel":                                             true,
	"application/vnd.ms-excel.template.macroEnabled.12":                    true,
	"application/vnd.ms-excel.sheet.macroEnabled.12":                       true,
	"application/vnd.oasis.opendocument.spreadsheet":                       true,
	"application/x-excel":                                                  true,
	"application/x-msexcel":                                                true,
	"application/x-ms-excel":                                               true,
	"application/x-ms-excel-macro":                                         true,
	"application/x-ms-excel-macroEnabled":                                  true,
	"application/x-ms-excel-template":                                      true,
	"application/x-ms-excel-template-macroEnabled":                         true,
	"application/x-ms-excel-template-macroEnabled.12":                      true,
}

var pptMimes = map[string]bool{
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"application/vnd.openxmlformats-officedocument.presentationml.template":     true,
	"application/vnd.ms-powerpoint":                                             true,
	"application/vnd.ms-powerpoint.template.macroEnabled.12":                    true,
	"application/vnd.ms-powerpoint.slideshow.macroEnabled.12":                   true,
	"application/vnd.oasis.opendocument.presentation":                           true,
	"application/x-powerpoint":                                                  true,
	"application/x-mspowerpoint":                                                true,
	"application/x-ms-powerpoint":                                               true,
	"application/x-ms-powerpoint-macro":                                         true,
	"application/x-ms-powerpoint-macroEnabled":                                  true,
	"application/x-ms-powerpoint-template":                                      true,
	"application/x-ms-powerpoint-template-macroEnabled":                         true,
	"application/x-ms-powerpoint-template-macroEnabled.12":                      true,
}

var emailMimes = map[string]bool{
	"message/rfc822":             true,
	"application/vnd.ms-outlook": true,
	"application/vnd.ms-exchange": true,
	"application/mbox":           true,
}

// Coarse maps a MIME type to a coarse category. Order matters: the specific
// office and container types are checked before the prefix fallbacks.
func Coarse(mimeType string) string {
	switch {
	case htmlMimes[mimeType]:
		return "html"
	case archiveMimes[mimeType] || strings.HasPrefix(mimeType, "application/x-zip"):
		return "archive"
	case docMimes[mimeType]:
		return "doc"
	case xlsMimes[mimeType]:
		return "xls"
	case pptMimes[mimeType]:
		return "ppt"
	case emailMimes[mimeType]:
		return "email"
	case strings.HasPrefix(mimeType, "image/"):
		return "image"
	case strings.HasPrefix(mimeType, "video/"):
		return "video"
	case strings.HasPrefix(mimeType, "audio/"):
		return "audio"
	case mimeType == "application/pdf":
		return "pdf"
	case strings.HasPrefix(mimeType, "text/"):
		return "text"
	}
	return "other"
}

// FromMagikaGroup remaps magika's group vocabulary onto ours.
func FromMagikaGroup(group string) string {
	switch group {
	case "document":
		return "doc"
	case "unknown", "":
		return "other"
	}
	return group
}
