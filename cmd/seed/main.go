// Command seed remplit une instance socialfeed via l'API publique :
// comptes, posts, likes et commentaires générés avec gofakeit.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/jupiterclapton/socialfeed/pkg/api"
	"github.com/jupiterclapton/socialfeed/pkg/client"
	"github.com/jupiterclapton/socialfeed/pkg/logger"
)

const seedPassword = "123456"

type account struct {
	creds client.Credentials
}

func main() {
	var (
		server   = flag.String("server", "http://localhost:5000", "API base URL")
		users    = flag.Int("users", 5, "accounts to create")
		posts    = flag.Int("posts", 20, "posts to create")
		seed     = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		maxLikes = flag.Int("max-likes", 4, "max likes per post")
		maxComms = flag.Int("max-comments", 3, "max comments per post")
	)
	flag.Parse()

	logger.Init("local", "seed")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	c, err := client.New(*server)
	if err != nil {
		fatal("client", err)
	}
	f := gofakeit.New(*seed)

	// 1. Comptes
	accounts := make([]account, 0, *users)
	for i := 0; i < *users; i++ {
		req := api.RegisterRequest{
			Email:    f.Email(),
			Username: username(f, i),
			Password: seedPassword,
		}
		res, err := c.Register(ctx, req)
		if err != nil {
			slog.Warn("⚠️ register failed", "username", req.Username, "error", err)
			continue
		}
		accounts = append(accounts, account{creds: client.Credentials{Token: res.Token, Username: res.Username}})
		slog.Info("👤 user created", "username", res.Username, "email", req.Email)
	}
	if len(accounts) == 0 {
		fatal("no account created", fmt.Errorf("server %s", *server))
	}

	// 2. Posts, puis interactions d'autres comptes
	var likes, comments int
	for i := 0; i < *posts; i++ {
		author := accounts[f.Number(0, len(accounts)-1)]
		draft := client.Draft{Content: f.Sentence(f.Number(4, 14))}
		if f.Bool() {
			draft.Song = f.HipsterWord() + " - " + f.Name()
		}
		post, err := c.CreatePost(ctx, author.creds, draft, nil)
		if err != nil {
			slog.Warn("⚠️ post failed", "author", author.creds.Username, "error", err)
			continue
		}

		likers := indexes(len(accounts))
		f.ShuffleInts(likers)
		for _, idx := range likers[:f.Number(0, min(*maxLikes, len(accounts)))] {
			if _, err := c.SetLike(ctx, accounts[idx].creds, post.ID, true); err == nil {
				likes++
			}
		}
		for j := f.Number(0, *maxComms); j > 0; j-- {
			who := accounts[f.Number(0, len(accounts)-1)]
			if _, err := c.AddComment(ctx, who.creds, post.ID, f.Sentence(f.Number(2, 8))); err == nil {
				comments++
			}
		}
	}

	slog.Info("✅ seed done",
		"users", len(accounts),
		"posts", *posts,
		"likes", likes,
		"comments", comments,
		"password", seedPassword,
	)
}

// username : unique par index, 32 caractères max.
func username(f *gofakeit.Faker, i int) string {
	name := fmt.Sprintf("%s%d", f.Username(), i)
	if len(name) > 32 {
		name = name[len(name)-32:]
	}
	return name
}

func indexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func fatal(msg string, err error) {
	slog.Error("❌ "+msg, "error", err)
	os.Exit(1)
}
