package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jupiterclapton/socialfeed/pkg/api"
	"github.com/jupiterclapton/socialfeed/pkg/client"
	"github.com/jupiterclapton/socialfeed/pkg/feedview"
)

type globals struct {
	server  string
	token   string
	user    string
	timeout time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "feedctl",
		Short:         "Terminal client for the socialfeed API",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&g.server, "server", envOr("SOCIALFEED_SERVER", "http://localhost:5000"), "API base URL")
	root.PersistentFlags().StringVar(&g.token, "token", os.Getenv("SOCIALFEED_TOKEN"), "bearer token (from login)")
	root.PersistentFlags().StringVar(&g.user, "user", os.Getenv("SOCIALFEED_USER"), "username bound to the token")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", client.DefaultTimeout, "per-request timeout")

	root.AddCommand(
		newRegisterCmd(g),
		newLoginCmd(g),
		newFeedCmd(g),
		newPostCmd(g),
		newLikeCmd(g),
		newCommentCmd(g),
	)
	return root
}

func (g *globals) client() (*client.Client, error) {
	return client.New(g.server, client.WithTimeout(g.timeout))
}

func (g *globals) creds() client.Credentials {
	return client.Credentials{Token: g.token, Username: g.user}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// --- AUTH ---

func newRegisterCmd(g *globals) *cobra.Command {
	var req api.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and print export lines for the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			res, err := c.Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			printAuth(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "email")
	cmd.Flags().StringVar(&req.Username, "username", "", "username")
	cmd.Flags().StringVar(&req.Password, "password", "", "password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLoginCmd(g *globals) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print export lines for the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			res, err := c.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			printAuth(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func printAuth(w io.Writer, res *api.AuthResponse) {
	fmt.Fprintf(w, "export SOCIALFEED_TOKEN=%s\n", res.Token)
	fmt.Fprintf(w, "export SOCIALFEED_USER=%s\n", res.Username)
}

// --- FEED ---

func newFeedCmd(g *globals) *cobra.Command {
	var (
		pageSize    int
		pages       int
		query       string
		interactive bool
		samples     bool
	)
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show the feed, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			opts := []feedview.Option{feedview.WithPageSize(pageSize)}
			if samples {
				opts = append(opts, feedview.WithFallback(feedview.SamplePosts(time.Now())))
			}
			ctrl := feedview.NewController(c, opts...)
			ctrl.SetQuery(query)

			for i := 0; i < pages && ctrl.HasMore(); i++ {
				if err := ctrl.LoadNext(cmd.Context()); err != nil {
					break // l'état dégradé est affiché ci-dessous
				}
			}
			out := cmd.OutOrStdout()
			render(out, ctrl.Snapshot())

			if !interactive {
				return nil
			}
			return repl(cmd.Context(), cmd.InOrStdin(), out, ctrl, g.creds())
		},
	}
	cmd.Flags().IntVar(&pageSize, "page-size", feedview.DefaultPageSize, "posts per page")
	cmd.Flags().IntVar(&pages, "pages", 1, "pages to load up front")
	cmd.Flags().StringVarP(&query, "query", "q", "", "filter by username or content")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "read commands from stdin")
	cmd.Flags().BoolVar(&samples, "offline-samples", false, "show sample posts when the server is unreachable")
	return cmd
}

const replHelp = `commands: n (next page) | r (refresh) | /text (search, "/" clears) | l <#> (toggle like) | c <#> <text> (comment) | q`

func repl(ctx context.Context, in io.Reader, out io.Writer, ctrl *feedview.Controller, creds client.Credentials) error {
	fmt.Fprintln(out, replHelp)
	sc := bufio.NewScanner(in)
	for fmt.Fprint(out, "> "); sc.Scan(); fmt.Fprint(out, "> ") {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "q":
			return nil
		case line == "n":
			if !ctrl.HasMore() {
				fmt.Fprintln(out, "(end of feed)")
				continue
			}
			reportFetch(out, ctrl.LoadNext(ctx))
		case line == "r":
			reportFetch(out, ctrl.Refresh(ctx))
		case strings.HasPrefix(line, "/"):
			ctrl.SetQuery(strings.TrimPrefix(line, "/"))
		case strings.HasPrefix(line, "l "), strings.HasPrefix(line, "c "):
			if err := mutate(ctx, ctrl, creds, line); err != nil {
				fmt.Fprintln(out, "error:", err)
			}
		default:
			fmt.Fprintln(out, replHelp)
			continue
		}
		render(out, ctrl.Snapshot())
	}
	return sc.Err()
}

// reportFetch affiche l'erreur d'un fetch. Un fetch remplacé n'est pas une erreur.
func reportFetch(out io.Writer, err error) {
	if err != nil && !errors.Is(err, feedview.ErrStale) {
		fmt.Fprintln(out, "error:", err)
	}
}

func mutate(ctx context.Context, ctrl *feedview.Controller, creds client.Credentials, line string) error {
	fields := strings.SplitN(line, " ", 3)
	n, err := strconv.Atoi(fields[1])
	visible := ctrl.Visible()
	if err != nil || n < 1 || n > len(visible) {
		return fmt.Errorf("no post #%s", fields[1])
	}
	postID := visible[n-1].ID

	var m feedview.Mutation
	if fields[0] == "l" {
		m, err = ctrl.ToggleLike(ctx, creds, postID)
	} else {
		if len(fields) < 3 {
			return errors.New("usage: c <#> <text>")
		}
		m, err = ctrl.Comment(ctx, creds, postID, fields[2])
	}
	if err != nil {
		return fmt.Errorf("%s %s (rolled back): %w", m.Kind, m.Status, err)
	}
	return nil
}

func render(w io.Writer, s feedview.Snapshot) {
	switch {
	case s.FromFallback:
		fmt.Fprintf(w, "⚠️  offline: showing SAMPLE posts (%v)\n", s.Err)
	case s.State == feedview.StateDegraded:
		fmt.Fprintf(w, "⚠️  feed degraded: %v\n", s.Err)
	}
	if s.Query != "" {
		fmt.Fprintf(w, "search %q: %d of %d posts\n", s.Query, len(s.Posts), s.Total)
	}
	for i, p := range s.Posts {
		fmt.Fprintf(w, "#%d  @%s  %s\n", i+1, p.Username, p.CreatedAt.Local().Format("2006-01-02 15:04"))
		if p.Content != "" {
			fmt.Fprintf(w, "    %s\n", p.Content)
		}
		if p.Song != "" {
			fmt.Fprintf(w, "    ♪ %s\n", p.Song)
		}
		if p.Image != nil {
			fmt.Fprintf(w, "    [image] /uploads/%s\n", *p.Image)
		}
		fmt.Fprintf(w, "    ♥ %d  💬 %d\n", p.LikeCount, len(p.Comments))
		for _, c := range p.Comments {
			fmt.Fprintf(w, "      %s: %s\n", c.Username, c.Text)
		}
	}
	if len(s.Posts) == 0 {
		fmt.Fprintln(w, "(no posts)")
	}
	if !s.HasMore && s.State != feedview.StateDegraded {
		fmt.Fprintln(w, "(end of feed)")
	}
}

// --- MUTATIONS ---

func newPostCmd(g *globals) *cobra.Command {
	var content, song, image string
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Create a post (text and/or image)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			draft := client.Draft{Content: content, Song: song}
			if image != "" {
				f, err := os.Open(image)
				if err != nil {
					return err
				}
				defer f.Close()
				st, err := f.Stat()
				if err != nil {
					return err
				}
				draft.Image = &client.Image{
					Name:        filepath.Base(image),
					ContentType: mime.TypeByExtension(filepath.Ext(image)),
					Size:        st.Size(),
					Body:        f,
				}
			}

			out := cmd.OutOrStdout()
			composer := feedview.NewComposer(c, nil)
			post, err := composer.Submit(cmd.Context(), g.creds(), draft, func(pct int) {
				fmt.Fprintf(out, "\ruploading… %3d%%", pct)
			})
			if draft.Image != nil {
				fmt.Fprintln(out)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "created post %s\n", post.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "post text (max 280 characters)")
	cmd.Flags().StringVar(&song, "song", "", "optional song reference")
	cmd.Flags().StringVar(&image, "image", "", "path to an image file")
	return cmd
}

func newLikeCmd(g *globals) *cobra.Command {
	var unlike bool
	cmd := &cobra.Command{
		Use:   "like <post-id>",
		Short: "Like (or --unlike) a post; repeating is harmless",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			res, err := c.SetLike(cmd.Context(), g.creds(), args[0], !unlike)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "liked=%t likes=%d\n", res.Liked, res.LikeCount)
			return nil
		},
	}
	cmd.Flags().BoolVar(&unlike, "unlike", false, "remove the like")
	return cmd
}

func newCommentCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "comment <post-id> <text>",
		Short: "Comment on a post",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			res, err := c.AddComment(cmd.Context(), g.creds(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d comments\n", len(res.Comments))
			return nil
		},
	}
}
