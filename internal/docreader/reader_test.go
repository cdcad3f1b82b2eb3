package docreader_test

import (
	"errors"
	"testing"

	"finlens/internal/docreader"
	"finlens/internal/services"
)

func TestSupported(t *testing.T) {
	for _, ext := range []string{"pdf", ".PDF", "txt", ".txt"} {
		if !docreader.Supported(ext) {
			t.Fatalf("expected %q to be supported", ext)
		}
	}
	for _, ext := range []string{"docx", "csv", "", ".exe"} {
		if docreader.Supported(ext) {
			t.Fatalf("expected %q to be unsupported", ext)
		}
	}
}

func TestNormalizeExt(t *testing.T) {
	cases := map[string]string{
		".PDF":  "pdf",
		"Txt":   "txt",
		"  md ": "md",
		"":      "",
	}
	for in, want := range cases {
		if got := docreader.NormalizeExt(in); got != want {
			t.Fatalf("NormalizeExt(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCheckSignature(t *testing.T) {
	if err := docreader.CheckSignature([]byte("%PDF-1.4 rest"), "pdf"); err != nil {
		t.Fatalf("valid pdf signature rejected: %v", err)
	}
	if err := docreader.CheckSignature([]byte("just some text"), "txt"); err != nil {
		t.Fatalf("valid text rejected: %v", err)
	}

	if err := docreader.CheckSignature([]byte("not a pdf"), "pdf"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("pdf mismatch: expected validation error, got %v", err)
	}
	if err := docreader.CheckSignature([]byte{0xff, 0xfe, 0xfd}, "txt"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("binary text: expected validation error, got %v", err)
	}
	if err := docreader.CheckSignature([]byte("anything"), "docx"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("unsupported type: expected validation error, got %v", err)
	}
}

func TestExtractTextPlain(t *testing.T) {
	text, err := docreader.ExtractText([]byte("quarterly revenue was strong"), ".txt")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if text != "quarterly revenue was strong" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractTextValidatesFirst(t *testing.T) {
	if _, err := docreader.ExtractText([]byte("nope"), "pdf"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
