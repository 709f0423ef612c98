package services

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/jupiterclapton/socialfeed/internal/adapters/secondary/repository"
	"github.com/jupiterclapton/socialfeed/internal/core/domain"
	"github.com/jupiterclapton/socialfeed/internal/core/ports"
)

type postFixture struct {
	repo  *repository.MemoryPostRepo
	media *fakeMedia
	pub   *fakePublisher
	cache *fakeCache
	svc   ports.PostService
	feed  ports.FeedService
}

func newPostFixture() *postFixture {
	f := &postFixture{
		repo:  repository.NewMemoryPostRepo(),
		media: newFakeMedia(),
		pub:   &fakePublisher{},
		cache: newFakeCache(),
	}
	f.svc = NewPostService(f.repo, f.media, f.pub, f.cache, Limits{CommentMaxLength: 50, MaxUploadBytes: 1 << 10})
	f.feed = NewFeedService(f.repo, f.cache, 100)
	return f
}

func (f *postFixture) create(t *testing.T, author, content string) *domain.Post {
	t.Helper()
	p, err := f.svc.CreatePost(context.Background(), ports.CreatePostCmd{Author: author, Content: content})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

func pngUpload(name string) *ports.MediaUpload {
	body := "\x89PNG\r\n\x1a\nfake"
	return &ports.MediaUpload{
		Filename:    name,
		ContentType: "image/png",
		Size:        int64(len(body)),
		Body:        strings.NewReader(body),
	}
}

func TestCreatePostRoundTrip(t *testing.T) {
	f := newPostFixture()
	ctx := context.Background()

	created := f.create(t, "alice", "hello")
	if created.ID == "" {
		t.Fatal("id not assigned")
	}

	posts, err := f.feed.ListPosts(ctx, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 1 || posts[0].ID != created.ID {
		t.Fatalf("first post = %+v, want %s", posts, created.ID)
	}
	got := posts[0]
	if got.Image != "" || got.Content != "hello" || got.Username != "alice" {
		t.Fatalf("got %+v", got)
	}
	if got.Comments == nil || len(got.Comments) != 0 || got.Likes == nil || len(got.Likes) != 0 {
		t.Fatalf("comments=%v likes=%v, want empty", got.Comments, got.Likes)
	}
	if !slices.Equal(f.pub.types(), []domain.EventType{domain.EventPostCreated}) {
		t.Fatalf("events = %v", f.pub.types())
	}
}

func TestCreatePostMediaOnly(t *testing.T) {
	f := newPostFixture()

	p, err := f.svc.CreatePost(context.Background(), ports.CreatePostCmd{
		Author: "alice",
		Media:  pngUpload("cat.png"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.Content != "" || p.Image == "" {
		t.Fatalf("content=%q image=%q", p.Content, p.Image)
	}
	if _, ok := f.media.objects[p.Image]; !ok {
		t.Fatalf("image %q not staged", p.Image)
	}
}

func TestCreatePostRejects(t *testing.T) {
	tests := []struct {
		name    string
		cmd     ports.CreatePostCmd
		wantErr error
	}{
		{"no author", ports.CreatePostCmd{Content: "hi"}, domain.ErrUnauthenticated},
		{"empty draft", ports.CreatePostCmd{Author: "a"}, domain.ErrEmptyPost},
		{"whitespace draft", ports.CreatePostCmd{Author: "a", Content: "   "}, domain.ErrEmptyPost},
		{"not an image", ports.CreatePostCmd{Author: "a", Media: &ports.MediaUpload{
			Filename: "x.pdf", ContentType: "application/pdf", Size: 3, Body: strings.NewReader("pdf"),
		}}, domain.ErrInvalidMedia},
		{"image too large", ports.CreatePostCmd{Author: "a", Media: &ports.MediaUpload{
			Filename: "x.png", ContentType: "image/png", Size: 2 << 10, Body: strings.NewReader(""),
		}}, domain.ErrMediaTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPostFixture()
			_, err := f.svc.CreatePost(context.Background(), tt.cmd)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if len(f.media.objects) != 0 {
				t.Fatal("nothing should be staged for a rejected draft")
			}
			if len(f.pub.events) != 0 || f.cache.invalidations != 0 {
				t.Fatal("rejected draft must not emit events or invalidate the cache")
			}
		})
	}
}

func TestCreatePostRemovesMediaWhenSaveFails(t *testing.T) {
	f := newPostFixture()
	boom := errors.New("disk full")
	svc := NewPostService(failingPostRepo{PostRepository: f.repo, saveErr: boom}, f.media, f.pub, nil, Limits{})

	_, err := svc.CreatePost(context.Background(), ports.CreatePostCmd{Author: "a", Media: pngUpload("a.png")})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if len(f.media.objects) != 0 || len(f.media.removed) != 1 {
		t.Fatalf("staged media should be removed: objects=%v removed=%v", f.media.objects, f.media.removed)
	}
}

func TestCreatePostSurvivesPublisherFailure(t *testing.T) {
	f := newPostFixture()
	f.pub.err = errors.New("broker down")

	if _, err := f.svc.CreatePost(context.Background(), ports.CreatePostCmd{Author: "a", Content: "x"}); err != nil {
		t.Fatalf("publish failure must not fail the request: %v", err)
	}
}

func TestAddCommentPreservesOrder(t *testing.T) {
	f := newPostFixture()
	ctx := context.Background()
	p := f.create(t, "alice", "post")

	if _, err := f.svc.AddComment(ctx, p.ID, "bob", "hi"); err != nil {
		t.Fatal(err)
	}
	comments, err := f.svc.AddComment(ctx, p.ID, "carol", "hey")
	if err != nil {
		t.Fatal(err)
	}

	want := []domain.Comment{{Username: "bob", Text: "hi"}, {Username: "carol", Text: "hey"}}
	if !slices.Equal(comments, want) {
		t.Fatalf("comments = %v, want %v", comments, want)
	}
	stored, _ := f.svc.GetPost(ctx, p.ID)
	if !slices.Equal(stored.Comments, want) {
		t.Fatalf("stored comments = %v", stored.Comments)
	}
}

func TestAddCommentErrors(t *testing.T) {
	f := newPostFixture()
	ctx := context.Background()
	p := f.create(t, "alice", "post")

	if _, err := f.svc.AddComment(ctx, "missing", "bob", "hi"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown post: err = %v", err)
	}
	if _, err := f.svc.AddComment(ctx, p.ID, "bob", strings.Repeat("x", 51)); !errors.Is(err, domain.ErrCommentTooLong) {
		t.Fatalf("too long: err = %v", err)
	}
	if _, err := f.svc.AddComment(ctx, p.ID, "bob", " "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("blank: err = %v", err)
	}
	if _, err := f.svc.AddComment(ctx, p.ID, "", "hi"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("anonymous: err = %v", err)
	}
}

func TestToggleLikeIsIdempotent(t *testing.T) {
	f := newPostFixture()
	ctx := context.Background()
	p := f.create(t, "alice", "post")
	eventsBefore := len(f.pub.types())

	first, err := f.svc.ToggleLike(ctx, p.ID, "alice", true)
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.svc.ToggleLike(ctx, p.ID, "alice", true)
	if err != nil {
		t.Fatal(err)
	}

	if !first.Changed || second.Changed {
		t.Fatalf("changed flags = %v, %v", first.Changed, second.Changed)
	}
	if !slices.Equal(first.Likes, second.Likes) || second.Count() != 1 {
		t.Fatalf("likes after twice = %v, after once = %v", second.Likes, first.Likes)
	}
	if got := len(f.pub.types()) - eventsBefore; got != 1 {
		t.Fatalf("a repeated like must not publish again, got %d events", got)
	}

	off, err := f.svc.ToggleLike(ctx, p.ID, "alice", false)
	if err != nil {
		t.Fatal(err)
	}
	if off.Liked || off.Count() != 0 || !off.Changed {
		t.Fatalf("unlike = %+v", off)
	}
	if last := f.pub.types()[len(f.pub.types())-1]; last != domain.EventPostUnliked {
		t.Fatalf("last event = %s", last)
	}
}

// legacyCounter reproduit l'ancien schéma où likes était un entier.
type legacyCounter struct{ likes int }

func (c *legacyCounter) like() { c.likes++ }

// Un compteur ne sait pas qui a déjà aimé : rejouer la même requête compte deux fois.
// L'ensemble d'identités, lui, absorbe la répétition.
func TestLikeCounterIsNotIdempotent(t *testing.T) {
	var counter legacyCounter
	counter.like()
	counter.like()
	if counter.likes != 2 {
		t.Fatalf("counter = %d", counter.likes)
	}

	p := &domain.Post{Likes: []string{}}
	p.SetLike("alice", true)
	p.SetLike("alice", true)
	if p.LikeCount() != 1 {
		t.Fatalf("set = %v", p.Likes)
	}
	if counter.likes == p.LikeCount() {
		t.Fatal("counter and set should disagree after a replayed like")
	}
}

func TestToggleLikeUnknownPost(t *testing.T) {
	f := newPostFixture()
	if _, err := f.svc.ToggleLike(context.Background(), "nope", "alice", true); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if _, err := f.svc.ToggleLike(context.Background(), "nope", "", true); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("anonymous: err = %v", err)
	}
}

func TestMutationsInvalidateFeedCache(t *testing.T) {
	f := newPostFixture()
	ctx := context.Background()
	p := f.create(t, "alice", "first")

	// Remplit le cache
	if _, err := f.feed.ListPosts(ctx, 1, 6); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.AddComment(ctx, p.ID, "bob", "hi"); err != nil {
		t.Fatal(err)
	}

	posts, err := f.feed.ListPosts(ctx, 1, 6)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 1 || len(posts[0].Comments) != 1 {
		t.Fatalf("stale page served after a comment: %+v", posts)
	}
}
