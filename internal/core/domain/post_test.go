package domain

import (
	"errors"
	"math"
	"slices"
	"strings"
	"testing"
)

func TestNewPost(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		song     string
		hasMedia bool
		wantErr  error
	}{
		{"text only", "hello", "", false, nil},
		{"media only", "", "", true, nil},
		{"blank content without media", "   \n\t", "", false, ErrEmptyPost},
		{"empty everything", "", "", false, ErrEmptyPost},
		{"content at limit", strings.Repeat("é", MaxContentLength), "", false, nil},
		{"content over limit", strings.Repeat("a", MaxContentLength+1), "", false, ErrContentTooLong},
		{"song over limit", "hi", strings.Repeat("s", MaxSongLength+1), false, ErrSongTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPost("alice", tt.content, tt.song, tt.hasMedia)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("err %v should be a validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Likes == nil || p.Comments == nil {
				t.Fatal("likes and comments must be empty, not nil")
			}
			if p.CreatedAt.IsZero() || !p.CreatedAt.Equal(p.UpdatedAt) {
				t.Fatalf("timestamps not initialised: %v / %v", p.CreatedAt, p.UpdatedAt)
			}
		})
	}
}

func TestNewPostTrims(t *testing.T) {
	p, err := NewPost("alice", "  hi there \n", " track ", false)
	if err != nil {
		t.Fatal(err)
	}
	if p.Content != "hi there" || p.Song != "track" {
		t.Fatalf("got content=%q song=%q", p.Content, p.Song)
	}
}

func TestValidateMedia(t *testing.T) {
	if err := ValidateMedia("image/png", 10, 100); err != nil {
		t.Fatalf("png rejected: %v", err)
	}
	if err := ValidateMedia("IMAGE/JPEG", -1, 100); err != nil {
		t.Fatalf("unknown size rejected: %v", err)
	}
	if err := ValidateMedia("application/pdf", 10, 100); !errors.Is(err, ErrInvalidMedia) {
		t.Fatalf("pdf: err = %v", err)
	}
	if err := ValidateMedia("image/gif", 101, 100); !errors.Is(err, ErrMediaTooLarge) {
		t.Fatalf("too large: err = %v", err)
	}
}

func TestNewComment(t *testing.T) {
	c, err := NewComment("bob", "  nice  ", 0)
	if err != nil {
		t.Fatal(err)
	}
	if c.Username != "bob" || c.Text != "nice" {
		t.Fatalf("got %+v", c)
	}
	if _, err := NewComment("bob", " ", 0); !errors.Is(err, ErrEmptyComment) {
		t.Fatalf("blank: err = %v", err)
	}
	if _, err := NewComment("bob", "abcdef", 5); !errors.Is(err, ErrCommentTooLong) {
		t.Fatalf("too long: err = %v", err)
	}
	if _, err := NewComment("bob", strings.Repeat("x", DefaultCommentMaxLength), 0); err != nil {
		t.Fatalf("at default limit: %v", err)
	}
}

func TestSetLikeIsIdempotent(t *testing.T) {
	p := &Post{Likes: []string{}}

	if !p.SetLike("alice", true) {
		t.Fatal("first like should change state")
	}
	if p.SetLike("alice", true) {
		t.Fatal("second like should be a no-op")
	}
	if p.LikeCount() != 1 || !p.HasLiked("alice") {
		t.Fatalf("likes = %v", p.Likes)
	}

	if !p.SetLike("alice", false) {
		t.Fatal("unlike should change state")
	}
	if p.SetLike("alice", false) {
		t.Fatal("second unlike should be a no-op")
	}
	if p.LikeCount() != 0 {
		t.Fatalf("likes = %v", p.Likes)
	}
}

func TestApplyLikeDoesNotMutateInput(t *testing.T) {
	in := []string{"a", "b", "c"}

	out := ApplyLike(in, "b", false)
	if !slices.Equal(out, []string{"a", "c"}) {
		t.Fatalf("unlike: %v", out)
	}
	out = ApplyLike(in, "b", true)
	if !slices.Equal(out, []string{"a", "b", "c"}) {
		t.Fatalf("re-like keeps position: %v", out)
	}
	out = ApplyLike(in, "d", true)
	if !slices.Equal(out, []string{"a", "b", "c", "d"}) {
		t.Fatalf("new like: %v", out)
	}
	if !slices.Equal(in, []string{"a", "b", "c"}) {
		t.Fatalf("input mutated: %v", in)
	}
}

func TestClone(t *testing.T) {
	p := &Post{ID: "1", Likes: []string{"a"}, Comments: []Comment{{"a", "x"}}}
	c := p.Clone()
	c.Likes[0] = "z"
	c.Comments[0].Text = "y"
	if p.Likes[0] != "a" || p.Comments[0].Text != "x" {
		t.Fatal("clone shares slices with the original")
	}

	empty := (&Post{}).Clone()
	if empty.Likes == nil || empty.Comments == nil {
		t.Fatal("clone of nil slices should be empty slices")
	}
}

func TestNewPage(t *testing.T) {
	tests := []struct {
		number, limit, max int
		want               Page
		offset             int
	}{
		{0, 0, 0, Page{1, 6}, 0},
		{-3, -1, 0, Page{1, 6}, 0},
		{2, 6, 0, Page{2, 6}, 6},
		{3, 10, 0, Page{3, 10}, 20},
		{1, 1000, 0, Page{1, 100}, 0},
		{2, 50, 20, Page{2, 20}, 20},
		// Pages énormes : bornées, l'offset reste positif
		{math.MaxInt, 6, 0, Page{math.MaxInt / 6, 6}, (math.MaxInt/6 - 1) * 6},
		{2000000000000000000, 6, 0, Page{math.MaxInt / 6, 6}, (math.MaxInt/6 - 1) * 6},
		{math.MaxInt, 100, 0, Page{math.MaxInt / 100, 100}, (math.MaxInt/100 - 1) * 100},
	}
	for _, tt := range tests {
		got := NewPage(tt.number, tt.limit, tt.max)
		if got != tt.want {
			t.Errorf("NewPage(%d,%d,%d) = %+v, want %+v", tt.number, tt.limit, tt.max, got, tt.want)
		}
		if got.Offset() != tt.offset {
			t.Errorf("Offset(%+v) = %d, want %d", got, got.Offset(), tt.offset)
		}
	}

	if off := (Page{Number: math.MaxInt, Limit: 100}).Offset(); off != math.MaxInt {
		t.Fatalf("hand-built page offset = %d, want saturation", off)
	}
	if off := (Page{Number: 0, Limit: 6}).Offset(); off != 0 {
		t.Fatalf("zero page offset = %d", off)
	}
}
