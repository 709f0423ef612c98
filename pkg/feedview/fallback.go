package feedview

import (
	"time"

	"github.com/jupiterclapton/socialfeed/pkg/api"
)

// SamplePosts : jeu de démonstration pour WithFallback. Les ids sont préfixés
// "sample-" pour ne jamais être confondus avec des posts réels.
func SamplePosts(now time.Time) []api.Post {
	mk := func(id, user, content string, age time.Duration, likes []string, comments []api.Comment) api.Post {
		at := now.Add(-age)
		return api.Post{
			ID:        "sample-" + id,
			Username:  user,
			Content:   content,
			Likes:     likes,
			LikeCount: len(likes),
			Comments:  comments,
			CreatedAt: at,
			UpdatedAt: at,
		}
	}
	return []api.Post{
		mk("1", "Alice", "Just finished a morning run by the river. Perfect weather!", 2*time.Hour,
			[]string{"Bob", "Charlie"}, []api.Comment{{Username: "Bob", Text: "Nice pace!"}}),
		mk("2", "Bob", "Anyone up for board games this weekend?", 5*time.Hour,
			[]string{"Diana"}, []api.Comment{}),
		mk("3", "Charlie", "Trying out a new pasta recipe tonight.", 26*time.Hour,
			[]string{}, []api.Comment{{Username: "Alice", Text: "Share the recipe!"}}),
		mk("4", "Diana", "Sunset from the rooftop.", 50*time.Hour,
			[]string{"Alice", "Bob", "Charlie"}, []api.Comment{}),
	}
}
