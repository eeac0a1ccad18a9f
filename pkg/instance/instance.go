// Package instance reads problem instances.
//
// The text format is the one used by the contest data sets:
//
//	B L D
//	S_0 ... S_{B-1}
//	N_0 T_0 M_0
//	book ids of library 0
//	...
//
// where B is the number of books, L the number of libraries, D the horizon in
// days, S the book scores, and for every library N its number of books, T its
// signup time and M the books it ships per day.
//
// The JSON format carries the same data:
//
//	{"days": D, "scores": [...], "libraries": [{"signup_days": T, "books_per_day": M, "books": [...]}]}
package instance

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kilianp07/bookscan/core/model"
)

// ErrFormat is returned when an instance cannot be decoded.
var ErrFormat = errors.New("malformed instance")

// Name derives an instance name from its file path.
func Name(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ParseFile reads the instance at path. Files ending in .json are decoded as
// JSON, everything else as text.
func ParseFile(path string) (*model.Problem, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		p, err := ParseJSON(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return p, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	p, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

type tokens struct {
	sc  *bufio.Scanner
	pos int
}

func (t *tokens) int(what string) (int, error) {
	if !t.sc.Scan() {
		if err := t.sc.Err(); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("%w: token %d: unexpected end of input, want %s", ErrFormat, t.pos+1, what)
	}
	t.pos++
	v, err := strconv.Atoi(t.sc.Text())
	if err != nil {
		return 0, fmt.Errorf("%w: token %d: %s %q is not an integer", ErrFormat, t.pos, what, t.sc.Text())
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: token %d: %s must not be negative, got %d", ErrFormat, t.pos, what, v)
	}
	return v, nil
}

// Parse decodes an instance in the text format.
func Parse(r io.Reader) (*model.Problem, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<20), 1<<26)
	sc.Split(bufio.ScanWords)
	t := &tokens{sc: sc}

	nBooks, err := t.int("book count")
	if err != nil {
		return nil, err
	}
	nLibs, err := t.int("library count")
	if err != nil {
		return nil, err
	}
	days, err := t.int("days")
	if err != nil {
		return nil, err
	}
	scores := make([]int, 0, sizeHint(nBooks))
	for i := 0; i < nBooks; i++ {
		v, err := t.int("book score")
		if err != nil {
			return nil, err
		}
		scores = append(scores, v)
	}
	libs := make([]model.Library, 0, sizeHint(nLibs))
	for i := 0; i < nLibs; i++ {
		n, err := t.int("library book count")
		if err != nil {
			return nil, err
		}
		lib := model.Library{ID: i, Books: make([]int, 0, sizeHint(n))}
		if lib.SignupDays, err = t.int("signup days"); err != nil {
			return nil, err
		}
		if lib.BooksPerDay, err = t.int("books per day"); err != nil {
			return nil, err
		}
		for j := 0; j < n; j++ {
			b, err := t.int("book id")
			if err != nil {
				return nil, err
			}
			lib.Books = append(lib.Books, b)
		}
		libs = append(libs, lib)
	}
	return build(days, scores, libs)
}

// sizeHint bounds a capacity taken from the input; counts are only trusted
// once the matching tokens have been read.
func sizeHint(n int) int {
	return min(n, 1<<16)
}

// ParseJSON decodes an instance in the JSON format.
func ParseJSON(data []byte) (*model.Problem, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrFormat)
	}
	doc := gjson.ParseBytes(data)
	days, err := jsonInt(doc.Get("days"), "days")
	if err != nil {
		return nil, err
	}
	scores, err := intArray(doc.Get("scores"), "scores")
	if err != nil {
		return nil, err
	}
	libsJSON := doc.Get("libraries")
	if !libsJSON.IsArray() {
		return nil, fmt.Errorf("%w: libraries must be an array", ErrFormat)
	}
	var libs []model.Library
	libsJSON.ForEach(func(_, v gjson.Result) bool {
		id := len(libs)
		lib := model.Library{ID: id}
		prefix := fmt.Sprintf("libraries.%d", id)
		if lib.Books, err = intArray(v.Get("books"), prefix+".books"); err != nil {
			return false
		}
		if lib.SignupDays, err = jsonInt(v.Get("signup_days"), prefix+".signup_days"); err != nil {
			return false
		}
		if lib.BooksPerDay, err = jsonInt(v.Get("books_per_day"), prefix+".books_per_day"); err != nil {
			return false
		}
		libs = append(libs, lib)
		return true
	})
	if err != nil {
		return nil, err
	}
	return build(days, scores, libs)
}

func intArray(v gjson.Result, path string) ([]int, error) {
	if !v.IsArray() {
		return nil, fmt.Errorf("%w: %s must be an array", ErrFormat, path)
	}
	arr := v.Array()
	out := make([]int, len(arr))
	for i, item := range arr {
		n, err := jsonInt(item, fmt.Sprintf("%s.%d", path, i))
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// jsonInt accepts integral numbers that fit an int.
func jsonInt(v gjson.Result, path string) (int, error) {
	if v.Type != gjson.Number {
		return 0, fmt.Errorf("%w: %s must be a number", ErrFormat, path)
	}
	n := v.Int()
	if float64(n) != v.Float() || n < math.MinInt || n > math.MaxInt {
		return 0, fmt.Errorf("%w: %s must be an integer in range, got %s", ErrFormat, path, v.Raw)
	}
	return int(n), nil
}

func build(days int, scores []int, libs []model.Library) (*model.Problem, error) {
	p, err := model.NewProblem(days, scores, libs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return p, nil
}
