package model

import (
	"errors"
	"fmt"
)

// Schedule is a candidate solution: the signup order of libraries, the books
// each signed library scans and the cached total score.
//
// Schedules are treated as values once built. Operators copy a schedule with
// Clone before changing it so that parents stay valid for comparison.
type Schedule struct {
	Signed   []int         // libraries in signup order
	Unsigned []int         // libraries never signed up
	Scanned  map[int][]int // signed library -> books it scans, in scan order
	Covered  []bool        // book id -> scanned by some library
	Score    int
}

// NewSchedule returns an empty schedule sized for p.
func NewSchedule(p *Problem) *Schedule {
	return &Schedule{
		Scanned: make(map[int][]int),
		Covered: make([]bool, p.NumBooks()),
	}
}

// Clone returns a deep copy sharing no mutable state with s.
func (s *Schedule) Clone() *Schedule {
	c := &Schedule{
		Signed:   append([]int(nil), s.Signed...),
		Unsigned: append([]int(nil), s.Unsigned...),
		Scanned:  make(map[int][]int, len(s.Scanned)),
		Covered:  append([]bool(nil), s.Covered...),
		Score:    s.Score,
	}
	for lib, books := range s.Scanned {
		c.Scanned[lib] = append([]int(nil), books...)
	}
	return c
}

// Fitness exposes the score to the search components.
func (s *Schedule) Fitness() float64 { return float64(s.Score) }

// Recompute sums the score of every covered book. It does not modify s.
func (s *Schedule) Recompute(p *Problem) int {
	total := 0
	for b, ok := range s.Covered {
		if ok {
			total += p.Scores[b]
		}
	}
	return total
}

// SignupEnds returns, for each position of Signed, the day at which that
// library's signup completes.
func (s *Schedule) SignupEnds(p *Problem) []int {
	ends := make([]int, len(s.Signed))
	day := 0
	for i, lib := range s.Signed {
		day += p.Libraries[lib].SignupDays
		ends[i] = day
	}
	return ends
}

// SignedMask returns a library id -> signed lookup.
func (s *Schedule) SignedMask(p *Problem) []bool {
	mask := make([]bool, p.NumLibraries())
	for _, lib := range s.Signed {
		mask[lib] = true
	}
	return mask
}

// Equal reports whether both schedules sign the same libraries in the same
// order, scan the same books and carry the same score.
func (s *Schedule) Equal(o *Schedule) bool {
	if s.Score != o.Score || len(s.Signed) != len(o.Signed) || len(s.Covered) != len(o.Covered) {
		return false
	}
	for i := range s.Signed {
		if s.Signed[i] != o.Signed[i] {
			return false
		}
	}
	for i := range s.Covered {
		if s.Covered[i] != o.Covered[i] {
			return false
		}
	}
	return true
}

// Validate checks every structural invariant of s against p. A violation is a
// programming error in the component that produced s.
//
//gocyclo:ignore
func (s *Schedule) Validate(p *Problem) error {
	var errs []error
	if len(s.Covered) != p.NumBooks() {
		return fmt.Errorf("covered has %d entries, want %d", len(s.Covered), p.NumBooks())
	}

	seen := make([]int8, p.NumLibraries())
	for _, lib := range s.Signed {
		if lib < 0 || lib >= p.NumLibraries() {
			return fmt.Errorf("signed library %d out of range", lib)
		}
		if seen[lib] != 0 {
			errs = append(errs, fmt.Errorf("library %d signed twice", lib))
		}
		seen[lib] = 1
	}
	for _, lib := range s.Unsigned {
		if lib < 0 || lib >= p.NumLibraries() {
			return fmt.Errorf("unsigned library %d out of range", lib)
		}
		switch seen[lib] {
		case 1:
			errs = append(errs, fmt.Errorf("library %d both signed and unsigned", lib))
		case 2:
			errs = append(errs, fmt.Errorf("library %d unsigned twice", lib))
		}
		seen[lib] = 2
	}
	for lib, st := range seen {
		if st == 0 {
			errs = append(errs, fmt.Errorf("library %d neither signed nor unsigned", lib))
		}
	}

	owner := make(map[int]int)
	day := 0
	for _, lib := range s.Signed {
		day += p.Libraries[lib].SignupDays
		if day >= p.Days {
			errs = append(errs, fmt.Errorf("library %d finishes signup on day %d, horizon %d", lib, day, p.Days))
		}
		books := s.Scanned[lib]
		if limit := p.Capacity(lib, day); len(books) > limit {
			errs = append(errs, fmt.Errorf("library %d scans %d books, capacity %d", lib, len(books), limit))
		}
		for _, b := range books {
			if prev, dup := owner[b]; dup {
				errs = append(errs, fmt.Errorf("book %d scanned by libraries %d and %d", b, prev, lib))
				continue
			}
			owner[b] = lib
			if !p.Holds(lib, b) {
				errs = append(errs, fmt.Errorf("library %d does not hold book %d", lib, b))
			}
		}
	}
	for lib := range s.Scanned {
		if lib < 0 || lib >= p.NumLibraries() || seen[lib] != 1 {
			errs = append(errs, fmt.Errorf("scan list for library %d which is not signed", lib))
		}
	}

	for b, ok := range s.Covered {
		if _, scanned := owner[b]; ok != scanned {
			errs = append(errs, fmt.Errorf("book %d covered=%v but scanned=%v", b, ok, scanned))
		}
	}
	if want := s.Recompute(p); want != s.Score {
		errs = append(errs, fmt.Errorf("cached score %d, covered books sum to %d", s.Score, want))
	}
	return errors.Join(errs...)
}
