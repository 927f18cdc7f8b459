package refresh

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/diggyk/fwd/internal/logger"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("WriteFile: %s", err)
	}
}

func TestStaticFileParsesAndSkipsCommentsAndBlanks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ports.txt")
	writeFile(t, path, "\n# comment\n80:web\n5432: postgres\nnotaport:oops\n")

	s, err := NewStaticFile(logger.New("test", logger.LevelTrace), path)
	if err != nil {
		t.Fatalf("NewStaticFile: %s", err)
	}

	entries, err := s.Entries()
	if err != nil {
		t.Fatalf("Entries: %s", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(entries), entries)
	}
	if entries[0].Port != 80 || entries[0].Desc != "web" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Port != 5432 || entries[1].Desc != "postgres" {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}

func TestStaticFileReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ports.txt")
	writeFile(t, path, "80:web\n")

	s, err := NewStaticFile(logger.New("test", logger.LevelTrace), path)
	if err != nil {
		t.Fatalf("NewStaticFile: %s", err)
	}

	writeFile(t, path, "80:web\n443:web-tls\n")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		entries, _ := s.Entries()
		if len(entries) == 2 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("refresh source did not pick up the rewritten file within the deadline")
}

func TestStaticFileMissingPathErrors(t *testing.T) {
	_, err := NewStaticFile(logger.New("test", logger.LevelTrace), filepath.Join(t.TempDir(), "missing.txt"))
	if err == nil {
		t.Fatal("expected an error for a nonexistent ports file")
	}
}

func TestStaticFileEntriesReturnsDefensiveCopy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ports.txt")
	writeFile(t, path, "80:web\n")

	s, err := NewStaticFile(logger.New("test", logger.LevelTrace), path)
	if err != nil {
		t.Fatalf("NewStaticFile: %s", err)
	}

	entries, _ := s.Entries()
	entries[0].Desc = "mutated"

	again, _ := s.Entries()
	if again[0].Desc != "web" {
		t.Fatalf("mutation of a returned slice leaked into cached state: %+v", again[0])
	}
}
