package util

import "testing"

func TestHashUserKey(t *testing.T) {
	id := "google:12345"
	got := HashUserKey(id)
	if got != HashUserKey(id) {
		t.Fatalf("expected stable hash, got %s", got)
	}
	if got == HashUserKey("guest:12345") {
		t.Fatalf("expected distinct hashes for distinct ids")
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(got))
	}
}

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		" cv.pdf ":          "cv.pdf",
		"dir/cv.docx":       "dir_cv.docx",
		"a\\b\x00c.txt":     "a_bc.txt",
		"Lebenslauf é.docx": "Lebenslauf é.docx",
	}
	for in, want := range cases {
		got, err := SanitizeFileName(in)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", in, err)
		}
		if got != want {
			t.Fatalf("%q: got %q want %q", in, got, want)
		}
	}
	for _, bad := range []string{"", "   ", "../x.pdf", "\x01"} {
		if _, err := SanitizeFileName(bad); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}
