package instance

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/bookscan/core/model"
)

// the contest example data set
const example = `6 2 7
1 2 3 6 5 4
5 2 2
0 1 2 3 4
4 3 1
0 2 3 5
`

const exampleJSON = `{
  "days": 7,
  "scores": [1, 2, 3, 6, 5, 4],
  "libraries": [
    {"signup_days": 2, "books_per_day": 2, "books": [0, 1, 2, 3, 4]},
    {"signup_days": 3, "books_per_day": 1, "books": [0, 2, 3, 5]}
  ]
}`

func checkExample(t *testing.T, p *model.Problem) {
	t.Helper()
	assert.Equal(t, 7, p.Days)
	assert.Equal(t, []int{1, 2, 3, 6, 5, 4}, p.Scores)
	require.Equal(t, 2, p.NumLibraries())
	assert.Equal(t, model.Library{ID: 0, SignupDays: 2, BooksPerDay: 2, Books: []int{0, 1, 2, 3, 4}}, p.Libraries[0])
	assert.Equal(t, model.Library{ID: 1, SignupDays: 3, BooksPerDay: 1, Books: []int{0, 2, 3, 5}}, p.Libraries[1])
	assert.Equal(t, []int{0, 1}, p.Providers(0))
}

func TestParse_Example(t *testing.T) {
	p, err := Parse(strings.NewReader(example))
	require.NoError(t, err)
	checkExample(t, p)
}

func TestParse_IgnoresLayout(t *testing.T) {
	p, err := Parse(strings.NewReader(strings.Join(strings.Fields(example), "  ")))
	require.NoError(t, err)
	checkExample(t, p)
}

func TestParseJSON_Example(t *testing.T) {
	p, err := ParseJSON([]byte(exampleJSON))
	require.NoError(t, err)
	checkExample(t, p)
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"empty":            "",
		"truncated header": "6 2",
		"missing scores":   "6 2 7\n1 2 3",
		"non integer":      "6 2 7\n1 2 x 6 5 4\n",
		"negative":         "1 0 -3\n1\n",
		"missing books":    "6 2 7\n1 2 3 6 5 4\n5 2 2\n0 1 2\n",
		"unknown book":     "2 1 3\n1 1\n1 1 1\n9\n",
		"duplicate book":   "2 1 3\n1 1\n2 1 1\n0 0\n",
		"zero days":        "1 0 0\n5\n",
		"huge book count":  "9000000000000000000 1 5\n3\n",
		"huge library":     "1 1 5\n3\n9000000000000000000 1 1\n0",
		"count overflow":   "1 1 5\n3\n99999999999999999999 1 1\n0",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(in))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFormat), "got %v", err)
		})
	}
}

func TestParse_ReportsTokenPosition(t *testing.T) {
	_, err := Parse(strings.NewReader("6 2 7\n1 2 x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token 6")
}

func TestParse_InvalidProblemKeepsCause(t *testing.T) {
	_, err := Parse(strings.NewReader("2 1 3\n1 1\n1 1 1\n9\n"))
	assert.ErrorIs(t, err, model.ErrInvalidProblem)
}

func TestParseJSON_Errors(t *testing.T) {
	cases := map[string]string{
		"invalid":       `{"days":`,
		"days missing":  `{"scores":[1],"libraries":[]}`,
		"scores object": `{"days":3,"scores":{},"libraries":[]}`,
		"libs missing":  `{"days":3,"scores":[1]}`,
		"books string":  `{"days":3,"scores":[1],"libraries":[{"signup_days":1,"books_per_day":1,"books":["a"]}]}`,
		"unknown book":  `{"days":3,"scores":[1],"libraries":[{"signup_days":1,"books_per_day":1,"books":[4]}]}`,
		"huge score":    `{"days":3,"scores":[1e30],"libraries":[]}`,
		"fractional":    `{"days":3,"scores":[1.5],"libraries":[]}`,
		"signup string": `{"days":3,"scores":[1],"libraries":[{"signup_days":"1","books_per_day":1,"books":[0]}]}`,
		"rate missing":  `{"days":3,"scores":[1],"libraries":[{"signup_days":1,"books":[0]}]}`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseJSON([]byte(in))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "a_example.txt")
	js := filepath.Join(dir, "a_example.JSON")
	require.NoError(t, os.WriteFile(txt, []byte(example), 0o644))
	require.NoError(t, os.WriteFile(js, []byte(exampleJSON), 0o644))

	p, err := ParseFile(txt)
	require.NoError(t, err)
	checkExample(t, p)

	p, err = ParseFile(js)
	require.NoError(t, err)
	checkExample(t, p)

	_, err = ParseFile(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte("1 1"), 0o644))
	_, err = ParseFile(bad)
	assert.ErrorIs(t, err, ErrFormat)
	assert.Contains(t, err.Error(), "bad.txt")
}

func TestName(t *testing.T) {
	assert.Equal(t, "b_read_on", Name("input/b_read_on.txt"))
	assert.Equal(t, "x", Name("x"))
}
