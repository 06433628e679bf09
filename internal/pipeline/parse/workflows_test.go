package parse

import (
	"errors"
	"reflect"
	"testing"
)

func TestUnionDetectedTypes(t *testing.T) {
	results := []detectorResult{
		{name: "file", det: DetectedTypes{
			CoarseTypes: []string{"text", "archive"},
			MimeTypes:   []string{"text/plain"},
		}},
		{name: "magika", det: DetectedTypes{
			CoarseTypes:   []string{"text"},
			MimeTypes:     []string{"text/plain", "application/zip"},
			MimeEncodings: []string{"utf-8"},
		}},
	}
	got := unionDetectedTypes(results)
	if !reflect.DeepEqual(got.CoarseTypes, []string{"archive", "text"}) {
		t.Fatalf("coarse: %v", got.CoarseTypes)
	}
	if !reflect.DeepEqual(got.MimeTypes, []string{"application/zip", "text/plain"}) {
		t.Fatalf("mime: %v", got.MimeTypes)
	}
	if !reflect.DeepEqual(got.MimeEncodings, []string{"utf-8"}) {
		t.Fatalf("encodings: %v", got.MimeEncodings)
	}
}

func TestUnionDetectedTypesSkipsFailed(t *testing.T) {
	results := []detectorResult{
		{name: "file", det: DetectedTypes{CoarseTypes: []string{"pdf"}}},
		{name: "tika", det: DetectedTypes{CoarseTypes: []string{"video"}}, err: errors.New("tika down")},
	}
	got := unionDetectedTypes(results)
	if !reflect.DeepEqual(got.CoarseTypes, []string{"pdf"}) {
		t.Fatalf("failed detector leaked into union: %v", got.CoarseTypes)
	}
}

func TestContains(t *testing.T) {
	if !contains([]string{"a", "b"}, "b") {
		t.Fatal("expected true")
	}
	if contains([]string{"a", "b"}, "c") {
		t.Fatal("expected false")
	}
	if contains(nil, "a") {
		t.Fatal("expected false for nil")
	}
}
