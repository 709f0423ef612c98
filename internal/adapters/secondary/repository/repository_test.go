package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/jupiterclapton/socialfeed/internal/core/domain"
)

func savePost(t *testing.T, r *MemoryPostRepo, content string) *domain.Post {
	t.Helper()
	p, err := domain.NewPost("alice", content, "", false)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Save(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestMemoryPostRepoIsolation(t *testing.T) {
	r := NewMemoryPostRepo()
	p := savePost(t, r, "hi")
	if _, err := bson.ObjectIDFromHex(p.ID); err != nil {
		t.Fatalf("id %q is not an ObjectID: %v", p.ID, err)
	}

	// Modifier une copie retournée ne touche pas au store
	got, _ := r.FindByID(context.Background(), p.ID)
	got.Likes = append(got.Likes, "mallory")
	again, _ := r.FindByID(context.Background(), p.ID)
	if len(again.Likes) != 0 {
		t.Fatalf("store mutated through a returned copy: %v", again.Likes)
	}

	if _, err := r.FindByID(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestMemoryPostRepoListOutOfRange(t *testing.T) {
	r := NewMemoryPostRepo()
	savePost(t, r, "a")
	savePost(t, r, "b")

	for _, off := range []int{2, math.MaxInt - 6, -6446744073709551622, -1} {
		out, err := r.List(context.Background(), off, 6)
		if err != nil || out == nil || len(out) != 0 {
			t.Errorf("List(%d) = %v, %v", off, out, err)
		}
	}
	if out, _ := r.List(context.Background(), 1, math.MaxInt); len(out) != 1 {
		t.Fatalf("huge limit = %d posts", len(out))
	}
}

func TestMemoryPostRepoConcurrentLikes(t *testing.T) {
	r := NewMemoryPostRepo()
	p := savePost(t, r, "hi")
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	changed := 0
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, _, _ = r.SetLike(ctx, p.ID, fmt.Sprintf("user%d", i), true)
		}(i)
		go func() {
			defer wg.Done()
			_, ok, _ := r.SetLike(ctx, p.ID, "same", true)
			if ok {
				mu.Lock()
				changed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	got, _ := r.FindByID(ctx, p.ID)
	if got.LikeCount() != 51 {
		t.Fatalf("likes = %d, want 51", got.LikeCount())
	}
	if changed != 1 {
		t.Fatalf("the same user changed the state %d times", changed)
	}
}

func TestMemoryPostRepoConcurrentComments(t *testing.T) {
	r := NewMemoryPostRepo()
	p := savePost(t, r, "hi")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = r.AppendComment(ctx, p.ID, domain.Comment{Username: "u", Text: fmt.Sprint(i)})
		}(i)
	}
	wg.Wait()

	got, _ := r.FindByID(ctx, p.ID)
	if len(got.Comments) != 20 {
		t.Fatalf("comments = %d, none may be lost", len(got.Comments))
	}
}

func TestMemoryUserRepo(t *testing.T) {
	r := NewMemoryUserRepo()
	ctx := context.Background()
	u, _ := domain.NewUser("a@x.io", "Alice", "h")
	if err := r.Save(ctx, u); err != nil {
		t.Fatal(err)
	}

	dupEmail, _ := domain.NewUser("a@x.io", "other", "h")
	if err := r.Save(ctx, dupEmail); !errors.Is(err, domain.ErrEmailAlreadyExists) {
		t.Fatalf("dup email: %v", err)
	}
	dupName, _ := domain.NewUser("b@x.io", "alice", "h")
	if err := r.Save(ctx, dupName); !errors.Is(err, domain.ErrUsernameAlreadyExists) {
		t.Fatalf("dup username: %v", err)
	}

	if got, err := r.GetByUsername(ctx, "ALICE"); err != nil || got.ID != u.ID {
		t.Fatalf("by username = %+v, %v", got, err)
	}
	if _, err := r.GetByID(ctx, "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("missing: %v", err)
	}
}

func TestPostgresHandleError(t *testing.T) {
	r := &PostgresUserRepo{}
	tests := []struct {
		err  error
		want error
	}{
		{&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}, domain.ErrUsernameAlreadyExists},
		{&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, domain.ErrEmailAlreadyExists},
	}
	for _, tt := range tests {
		if got := r.handleError(tt.err); !errors.Is(got, tt.want) {
			t.Errorf("handleError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
	other := errors.New("connection reset")
	if got := r.handleError(other); !errors.Is(got, other) {
		t.Fatalf("other errors must be wrapped: %v", got)
	}
}

func TestMongoDocumentShape(t *testing.T) {
	id := bson.NewObjectID()
	p := &domain.Post{
		ID:       id.Hex(),
		Username: "alice",
		Content:  "hi",
		Comments: []domain.Comment{{Username: "bob", Text: "yo"}},
	}

	raw, err := bson.Marshal(toMongoPost(p))
	if err != nil {
		t.Fatal(err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	if doc["_id"] != id {
		t.Fatalf("_id = %v", doc["_id"])
	}
	if _, ok := doc["image"]; ok {
		t.Fatal("empty image should be omitted")
	}
	for _, key := range []string{"createdAt", "updatedAt", "likes", "comments"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("missing %s", key)
		}
	}

	var back mongoPost
	if err := bson.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}
	got := back.toDomain()
	if got.ID != p.ID || got.Likes == nil || got.Comments[0].Username != "bob" {
		t.Fatalf("round trip = %+v", got)
	}
}
