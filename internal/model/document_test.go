package model

import "testing"

func TestFileTypeFromExt(t *testing.T) {
	tests := []struct {
		ext  string
		want FileType
		ok   bool
	}{
		{"pdf", FileTypePDF, true},
		{"PDF", FileTypePDF, true},
		{"png", FileTypeImage, true},
		{"jpeg", FileTypeImage, true},
		{"tiff", FileTypeImage, true},
		{"docx", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := FileTypeFromExt(tt.ext)
		if ok != tt.ok || got != tt.want {
			t.Errorf("FileTypeFromExt(%q) = (%q, %v), want (%q, %v)", tt.ext, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDocument_SucceededPages(t *testing.T) {
	doc := &Document{
		Pages: []Page{
			{PageNumber: 1, Status: StatusSimplificationCompleted},
			{PageNumber: 2, Status: StatusFailed, FailureReason: "boom"},
			{PageNumber: 3, Status: StatusCompleted},
		},
	}

	got := doc.SucceededPages()
	if len(got) != 2 {
		t.Fatalf("len(SucceededPages()) = %d, want 2", len(got))
	}
	if got[0].PageNumber != 1 || got[1].PageNumber != 3 {
		t.Errorf("SucceededPages() pages = %d, %d, want 1, 3", got[0].PageNumber, got[1].PageNumber)
	}
}
