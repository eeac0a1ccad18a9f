// Package modeltest provides instances shared by the search package tests.
package modeltest

import (
	"math/rand/v2"

	"github.com/kilianp07/bookscan/core/model"
)

// Tiny returns the three library instance used throughout the tests:
//
//	books  0:10 1:8 2:5 3:3
//	lib 0  signup 1, 2/day, books {0,1}
//	lib 1  signup 2, 1/day, books {1,2,3}
//	lib 2  signup 1, 3/day, books {2,3}
//
// with a five day horizon. Every book can be scanned, for a best score of 26.
func Tiny() *model.Problem {
	p, err := model.NewProblem(5, []int{10, 8, 5, 3}, []model.Library{
		{ID: 0, SignupDays: 1, BooksPerDay: 2, Books: []int{0, 1}},
		{ID: 1, SignupDays: 2, BooksPerDay: 1, Books: []int{1, 2, 3}},
		{ID: 2, SignupDays: 1, BooksPerDay: 3, Books: []int{2, 3}},
	})
	if err != nil {
		panic(err)
	}
	return p
}

// Random generates a feasible instance with overlapping libraries. The horizon
// is short enough that not every library fits.
func Random(seed uint64, libs, books int) *model.Problem {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	scores := make([]int, books)
	for i := range scores {
		scores[i] = rng.IntN(100)
	}
	days := 0
	ls := make([]model.Library, libs)
	for i := range ls {
		n := 1 + rng.IntN(books/2+1)
		ls[i] = model.Library{
			ID:          i,
			SignupDays:  1 + rng.IntN(5),
			BooksPerDay: 1 + rng.IntN(3),
			Books:       rng.Perm(books)[:n],
		}
		days += ls[i].SignupDays
	}
	p, err := model.NewProblem(days/2+1, scores, ls)
	if err != nil {
		panic(err)
	}
	return p
}
