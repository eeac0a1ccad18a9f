package model

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidProblem is returned when an instance description is inconsistent.
var ErrInvalidProblem = errors.New("invalid problem")

// Library represents a book provider with a one-time signup cost and a daily
// scanning capacity.
type Library struct {
	ID          int
	SignupDays  int   // days spent signing the library up
	BooksPerDay int   // books shipped per day once signed up
	Books       []int // ids of the books held by the library
}

// Problem is the immutable description of one instance. It is built once and
// shared read-only between every schedule of a run.
type Problem struct {
	Days      int
	Scores    []int // book id -> score
	Libraries []Library

	// providers maps a book id to the libraries holding it.
	providers [][]int
	// ranked holds each library's books ordered by score descending. Ties keep
	// the library's own order.
	ranked [][]int
	// totals holds the summed score of each library's books.
	totals []int
}

// NewProblem validates the instance and builds its derived indexes. Library
// ids must match their position in libs.
func NewProblem(days int, scores []int, libs []Library) (*Problem, error) {
	if days <= 0 {
		return nil, fmt.Errorf("%w: days must be positive, got %d", ErrInvalidProblem, days)
	}
	p := &Problem{
		Days:      days,
		Scores:    scores,
		Libraries: libs,
		providers: make([][]int, len(scores)),
		ranked:    make([][]int, len(libs)),
		totals:    make([]int, len(libs)),
	}
	for id, s := range scores {
		if s < 0 {
			return nil, fmt.Errorf("%w: book %d has negative score %d", ErrInvalidProblem, id, s)
		}
	}
	for i, lib := range libs {
		if lib.ID != i {
			return nil, fmt.Errorf("%w: library at position %d has id %d", ErrInvalidProblem, i, lib.ID)
		}
		if lib.SignupDays < 0 || lib.BooksPerDay < 0 {
			return nil, fmt.Errorf("%w: library %d has negative signup or rate", ErrInvalidProblem, i)
		}
		seen := make(map[int]struct{}, len(lib.Books))
		for _, b := range lib.Books {
			if b < 0 || b >= len(scores) {
				return nil, fmt.Errorf("%w: library %d references unknown book %d", ErrInvalidProblem, i, b)
			}
			if _, dup := seen[b]; dup {
				return nil, fmt.Errorf("%w: library %d lists book %d twice", ErrInvalidProblem, i, b)
			}
			seen[b] = struct{}{}
			p.providers[b] = append(p.providers[b], i)
			p.totals[i] += scores[b]
		}
		ranked := append([]int(nil), lib.Books...)
		sort.SliceStable(ranked, func(a, b int) bool {
			return scores[ranked[a]] > scores[ranked[b]]
		})
		p.ranked[i] = ranked
	}
	return p, nil
}

// NumLibraries returns the number of libraries of the instance.
func (p *Problem) NumLibraries() int { return len(p.Libraries) }

// NumBooks returns the number of books of the instance.
func (p *Problem) NumBooks() int { return len(p.Scores) }

// Providers returns the ids of the libraries holding book. The slice must not
// be modified.
func (p *Problem) Providers(book int) []int { return p.providers[book] }

// RankedBooks returns the books of lib ordered by score descending. The slice
// must not be modified.
func (p *Problem) RankedBooks(lib int) []int { return p.ranked[lib] }

// TotalScore returns the summed score of every book held by lib.
func (p *Problem) TotalScore(lib int) int { return p.totals[lib] }

// Holds reports whether lib owns book.
func (p *Problem) Holds(lib, book int) bool {
	for _, id := range p.providers[book] {
		if id == lib {
			return true
		}
	}
	return false
}

// Capacity returns how many books lib can ship when its signup completes at
// day end. It is zero once the horizon is reached.
func (p *Problem) Capacity(lib, end int) int {
	left := p.Days - end
	if left <= 0 {
		return 0
	}
	return left * p.Libraries[lib].BooksPerDay
}

// ScoreOf sums the scores of books.
func (p *Problem) ScoreOf(books []int) int {
	total := 0
	for _, b := range books {
		total += p.Scores[b]
	}
	return total
}
