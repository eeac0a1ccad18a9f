// Package export writes schedules in the submission format and as JSON, and
// reads submissions back.
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/kilianp07/bookscan/core/model"
)

// WriteSubmission writes s in the submission format: the number of libraries,
// then for each of them in signup order a "<id> <count>" line followed by the
// scanned book ids. Signed libraries that scan nothing are left out.
func WriteSubmission(w io.Writer, s *model.Schedule) error {
	bw := bufio.NewWriter(w)
	var libs []int
	for _, lib := range s.Signed {
		if len(s.Scanned[lib]) > 0 {
			libs = append(libs, lib)
		}
	}
	fmt.Fprintln(bw, len(libs))
	buf := make([]byte, 0, 64)
	for _, lib := range libs {
		books := s.Scanned[lib]
		fmt.Fprintf(bw, "%d %d\n", lib, len(books))
		for i, b := range books {
			buf = buf[:0]
			if i > 0 {
				buf = append(buf, ' ')
			}
			buf = strconv.AppendInt(buf, int64(b), 10)
			if _, err := bw.Write(buf); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// LibraryPlan is the JSON view of one signed library.
type LibraryPlan struct {
	Library int   `json:"library"`
	Books   []int `json:"books"`
}

// Plan is the JSON view of a schedule.
type Plan struct {
	Score    int           `json:"score"`
	Signed   []LibraryPlan `json:"signed"`
	Unsigned []int         `json:"unsigned"`
}

// NewPlan converts s to its JSON view.
func NewPlan(s *model.Schedule) Plan {
	p := Plan{Score: s.Score, Signed: make([]LibraryPlan, 0, len(s.Signed)), Unsigned: append([]int{}, s.Unsigned...)}
	for _, lib := range s.Signed {
		p.Signed = append(p.Signed, LibraryPlan{Library: lib, Books: append([]int{}, s.Scanned[lib]...)})
	}
	return p
}

// WriteJSON writes s to w in JSON format.
func WriteJSON(w io.Writer, s *model.Schedule) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewPlan(s))
}

// ReadSubmission parses a submission for p and rebuilds the schedule it
// describes. Libraries it does not mention are unsigned. The result is not
// validated; call Schedule.Validate to check it.
func ReadSubmission(r io.Reader, p *model.Problem) (*model.Schedule, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<20), 1<<26)
	sc.Split(bufio.ScanWords)
	pos := 0
	next := func(what string) (int, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return 0, err
			}
			return 0, fmt.Errorf("submission: token %d: missing %s", pos, what)
		}
		pos++
		v, err := strconv.Atoi(sc.Text())
		if err != nil {
			return 0, fmt.Errorf("submission: token %d: %s: %w", pos, what, err)
		}
		return v, nil
	}

	n, err := next("library count")
	if err != nil {
		return nil, err
	}
	s := model.NewSchedule(p)
	signed := make([]bool, p.NumLibraries())
	for i := 0; i < n; i++ {
		lib, err := next("library id")
		if err != nil {
			return nil, err
		}
		if lib < 0 || lib >= p.NumLibraries() {
			return nil, fmt.Errorf("submission: token %d: library %d out of range", pos, lib)
		}
		k, err := next("book count")
		if err != nil {
			return nil, err
		}
		books := make([]int, k)
		for j := range books {
			if books[j], err = next("book id"); err != nil {
				return nil, err
			}
			if books[j] < 0 || books[j] >= p.NumBooks() {
				return nil, fmt.Errorf("submission: token %d: book %d out of range", pos, books[j])
			}
			s.Covered[books[j]] = true
		}
		s.Signed = append(s.Signed, lib)
		s.Scanned[lib] = books
		signed[lib] = true
	}
	for lib, ok := range signed {
		if !ok {
			s.Unsigned = append(s.Unsigned, lib)
		}
	}
	s.Score = s.Recompute(p)
	return s, nil
}
