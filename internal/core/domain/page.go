package domain

import (
	"math"

	"github.com/jupiterclapton/socialfeed/pkg/postrules"
)

const (
	DefaultPage     = 1
	DefaultLimit    = 6
	DefaultMaxLimit = postrules.MaxPageLimit
)

// Page est une fenêtre offset/limit sur le feed trié par date décroissante.
type Page struct {
	Number int
	Limit  int
}

// NewPage normalise les paramètres : valeurs < 1 remplacées par les défauts,
// limit plafonnée à maxLimit (DefaultMaxLimit si maxLimit <= 0).
// Number est borné pour que Offset ne déborde jamais.
func NewPage(number, limit, maxLimit int) Page {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	if number < 1 {
		number = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if number > math.MaxInt/limit {
		number = math.MaxInt / limit
	}
	return Page{Number: number, Limit: limit}
}

// Offset sature à math.MaxInt pour une Page construite à la main.
func (p Page) Offset() int {
	if p.Number < 1 || p.Limit < 1 {
		return 0
	}
	if p.Number-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Number - 1) * p.Limit
}
