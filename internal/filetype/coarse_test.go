package filetype

import "testing"

func TestCoarse(t *testing.T) {
	cases := map[string]string{
		"text/html":                   "html",
		"application/zip":             "archive",
		"application/x-zip-whatever":  "archive",
		"application/x-7z-compressed": "archive",
		"application/msword":          "doc",
		"application/vnd.ms-excel":    "xls",
		"application/vnd.ms-powerpoint": "ppt",
		"message/rfc822":              "email",
		"application/vnd.ms-outlook":  "email",
		"image/png":                   "image",
		"video/mp4":                   "video",
		"audio/mpeg":                  "audio",
		"application/pdf":             "pdf",
		"text/plain":                  "text",
		"application/octet-stream":    "other",
		"":                            "other",
	}
	for mime, want := range cases {
		if got := Coarse(mime); got != want {
			t.Errorf("Coarse(%q) = %q, want %q", mime, got, want)
		}
	}
}

func TestFromMagikaGroup(t *testing.T) {
	if got := FromMagikaGroup("document"); got != "doc" {
		t.Errorf("document mapped to %q", got)
	}
	if got := FromMagikaGroup("unknown"); got != "other" {
		t.Errorf("unknown mapped to %q", got)
	}
	if got := FromMagikaGroup(""); got != "other" {
		t.Errorf("empty mapped to %q", got)
	}
	if got := FromMagikaGroup("archive"); got != "archive" {
		t.Errorf("archive mapped to %q", got)
	}
}
