package parse

import (
	"reflect"
	"testing"
)

func TestCollectFileValuesSimple(t *testing.T) {
	got := collectFileValues("/tmp/x.bin: text/plain", false)
	if !reflect.DeepEqual(got, []string{"text/plain"}) {
		t.Fatalf("got %v", got)
	}
}

func TestCollectFileValuesKeepGoing(t *testing.T) {
	out := "/tmp/x.bin: application/zip\\012- application/octet-stream"
	got := collectFileValues(out, false)
	if !reflect.DeepEqual(got, []string{"application/zip", "application/octet-stream"}) {
		t.Fatalf("got %v", got)
	}
}

func TestCollectFileValuesInlineSplit(t *testing.T) {
	got := collectFileValues("/tmp/x: text/plain - application/json", false)
	if !reflect.DeepEqual(got, []string{"text/plain", "application/json"}) {
		t.Fatalf("got %v", got)
	}
}

func TestCollectFileValuesExtensions(t *testing.T) {
	got := collectFileValues("/tmp/x: jpeg/jpg/jpe", true)
	if !reflect.DeepEqual(got, []string{".jpeg", ".jpg", ".jpe"}) {
		t.Fatalf("got %v", got)
	}
}

func TestCollectFileValuesExtensionUnknownFiltered(t *testing.T) {
	got := collectFileValues("/tmp/x: ???", true)
	if got != nil {
		t.Fatalf("expected nil for unknown extension, got %v", got)
	}
}

func TestCollectFileValuesEmpty(t *testing.T) {
	if got := collectFileValues("   ", false); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestFilenameExtensions(t *testing.T) {
	got := filenameExtensions("/data/Archive.TAR.GZ")
	if !reflect.DeepEqual(got, []string{".gz", ".tar.gz"}) {
		t.Fatalf("got %v", got)
	}
	got = filenameExtensions("/data/notes.txt")
	if !reflect.DeepEqual(got, []string{".txt"}) {
		t.Fatalf("got %v", got)
	}
	if got := filenameExtensions("/data/README"); got != nil {
		t.Fatalf("expected nil for no extension, got %v", got)
	}
}
