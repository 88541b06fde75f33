package publish

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestArtifactsLatest(t *testing.T) {
	dir := t.TempDir()
	artifacts := NewArtifacts(dir)

	latest, err := artifacts.Latest(FormatEpub)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if latest != nil {
		t.Errorf("Expected no artifact in empty dir, got %+v", latest)
	}

	older := filepath.Join(dir, "digest-2024-03-03.epub")
	newer := filepath.Join(dir, "digest-2024-03-04.epub")
	for _, path := range []string{newer, older} {
		if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	now := time.Now()
	if err := os.Chtimes(older, now.Add(-time.Hour), now.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(newer, now, now); err != nil {
		t.Fatal(err)
	}

	latest, err = artifacts.Latest("EPUB")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if latest == nil || latest.Name != "digest-2024-03-04.epub" {
		t.Fatalf("Expected newest epub, got %+v", latest)
	}
	if latest.Size != 4 {
		t.Errorf("Expected size 4, got %d", latest.Size)
	}

	mobi, err := artifacts.Latest(FormatMobi)
	if err != nil || mobi != nil {
		t.Errorf("Expected no mobi artifact, got %+v, %v", mobi, err)
	}
}

func TestArtifactsLatestUnsupportedFormat(t *testing.T) {
	if _, err := NewArtifacts(t.TempDir()).Latest("pdf"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestArtifactsPathsFor(t *testing.T) {
	artifacts := NewArtifacts("/out")

	epubPath, mobiPath := artifacts.PathsFor(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC))
	if epubPath != filepath.Join("/out", "digest-2024-03-04.epub") {
		t.Errorf("Unexpected epub path: %s", epubPath)
	}
	if mobiPath != filepath.Join("/out", "digest-2024-03-04.mobi") {
		t.Errorf("Unexpected mobi path: %s", mobiPath)
	}
}
