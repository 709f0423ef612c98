package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jupiterclapton/socialfeed/internal/core/domain"
	"github.com/jupiterclapton/socialfeed/internal/core/ports"
)

var objectNameRe = regexp.MustCompile(`^\d+-[0-9a-f]{8}-[A-Za-z0-9._-]+$`)

func TestObjectName(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	tests := []struct {
		in, suffix string
	}{
		{"cat.png", "-cat.png"},
		{"../../etc/passwd", "-passwd"},
		{`C:\Users\me\photo 1.jpg`, "-photo_1.jpg"},
		{"", "-upload"},
		{"...", "-upload"},
	}
	for _, tt := range tests {
		got := ObjectName(tt.in, now)
		if !objectNameRe.MatchString(got) {
			t.Errorf("ObjectName(%q) = %q: unsafe", tt.in, got)
		}
		if !strings.HasPrefix(got, "1700000000123-") || !strings.HasSuffix(got, tt.suffix) {
			t.Errorf("ObjectName(%q) = %q, want suffix %q", tt.in, got, tt.suffix)
		}
	}
	if ObjectName("a.png", now) == ObjectName("a.png", now) {
		t.Error("same name at the same instant should not collide")
	}
}

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, 10)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	ref, err := s.Stage(ctx, ports.MediaUpload{Filename: "a.png", Body: strings.NewReader("0123456789")})
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, ref))
	if err != nil || string(data) != "0123456789" {
		t.Fatalf("stored = %q, %v", data, err)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/"+ref, nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "0123456789" {
		t.Fatalf("served %d %q", rec.Code, rec.Body)
	}

	if err := s.Remove(ctx, ref); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, ref)); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("file not removed")
	}
	if err := s.Remove(ctx, ref); err != nil {
		t.Fatalf("removing twice: %v", err)
	}
	if err := s.Remove(ctx, "../escape"); err == nil {
		t.Fatal("path traversal accepted")
	}
}

func TestLocalStoreRejectsOversized(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewLocalStore(dir, 4)

	_, err := s.Stage(context.Background(), ports.MediaUpload{Filename: "big.png", Body: strings.NewReader("12345")})
	if !errors.Is(err, domain.ErrMediaTooLarge) {
		t.Fatalf("err = %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("partial file left behind: %v", entries)
	}
}
