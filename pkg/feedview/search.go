package feedview

import (
	"strings"

	"github.com/jupiterclapton/socialfeed/pkg/api"
)

// Matches : sous-chaîne insensible à la casse sur username OU content.
// Une requête vide (ou blanche) accepte tout.
func Matches(p api.Post, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Username), q) ||
		strings.Contains(strings.ToLower(p.Content), q)
}

// Filter retourne les posts qui correspondent, dans l'ordre d'origine. Jamais nil.
func Filter(posts []api.Post, query string) []api.Post {
	out := make([]api.Post, 0, len(posts))
	for _, p := range posts {
		if Matches(p, query) {
			out = append(out, p)
		}
	}
	return out
}
