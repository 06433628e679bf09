package index

import (
	"hash/adler32"
	"hash/crc32"
	"reflect"
	"sort"
	"testing"
)

func TestHashStringToUint63Formula(t *testing.T) {
	for _, s := range []string{"", "text/plain", "/path/to/dir", "Ünïcode téxt"} {
		b := []byte(s)
		want := (uint64(crc32.ChecksumIEEE(b)) | (uint64(adler32.Checksum(b)) << 31)) % (1 << 63)
		if got := HashStringToUint63(s); got != want {
			t.Errorf("HashStringToUint63(%q) = %d, want %d", s, got, want)
		}
	}
}

func TestHashStringToUint63Below63Bits(t *testing.T) {
	for _, s := range []string{"a", "zz", "some longer string with entropy 1234567890"} {
		if got := HashStringToUint63(s); got >= 1<<63 {
			t.Errorf("HashStringToUint63(%q) = %d exceeds 63 bits", s, got)
		}
	}
}

func TestHashStringToUint63Stable(t *testing.T) {
	if HashStringToUint63("pdf") != HashStringToUint63("pdf") {
		t.Fatal("hash not deterministic")
	}
	if HashStringToUint63("pdf") == HashStringToUint63("jpg") {
		t.Fatal("distinct terms collided in test sample")
	}
}

func TestParentPaths(t *testing.T) {
	got := make(map[string]bool)
	parentPaths("/a/b/c/d.pdf", got)
	var keys []string
	for k := range got {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if !reflect.DeepEqual(keys, []string{"/a", "/a/b", "/a/b/c"}) {
		t.Fatalf("got %v", keys)
	}
}

func TestParentPathsExcludesRoot(t *testing.T) {
	got := make(map[string]bool)
	parentPaths("/a/b/c.txt", got)
	if got["/"] {
		t.Fatalf("root interned as parent: %v", got)
	}
	if len(got) != 2 || !got["/a"] || !got["/a/b"] {
		t.Fatalf("got %v", got)
	}
}

func TestParentPathsRootFile(t *testing.T) {
	got := make(map[string]bool)
	parentPaths("/readme.md", got)
	if len(got) != 0 {
		t.Fatalf("root-level file should intern no parents, got %v", got)
	}
}
