package rest

import (
	"github.com/jupiterclapton/socialfeed/internal/core/domain"
	"github.com/jupiterclapton/socialfeed/internal/core/ports"
	"github.com/jupiterclapton/socialfeed/pkg/api"
)

func toPostResponse(p *domain.Post) api.Post {
	res := api.Post{
		ID:        p.ID,
		Username:  p.Username,
		Content:   p.Content,
		Song:      p.Song,
		Likes:     nonNil(p.Likes),
		LikeCount: p.LikeCount(),
		Comments:  toCommentResponses(p.Comments),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.Image != "" {
		img := p.Image
		res.Image = &img
	}
	return res
}

// toPostResponses : une page vide est sérialisée [] et jamais null.
func toPostResponses(posts []*domain.Post) []api.Post {
	out := make([]api.Post, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPostResponse(p))
	}
	return out
}

func toCommentResponses(comments []domain.Comment) []api.Comment {
	out := make([]api.Comment, 0, len(comments))
	for _, c := range comments {
		out = append(out, api.Comment{Username: c.Username, Text: c.Text})
	}
	return out
}

func toAuthResponse(res *ports.AuthResponse) api.AuthResponse {
	return api.AuthResponse{
		Token:    res.AccessToken,
		Username: res.User.Username,
		User: api.User{
			ID:       res.User.ID,
			Email:    res.User.Email,
			Username: res.User.Username,
		},
		ExpiresIn: int64(res.ExpiresIn.Seconds()),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
