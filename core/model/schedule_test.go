package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/bookscan/core/model"
	"github.com/kilianp07/bookscan/core/model/modeltest"
)

func TestCloneIsIndependent(t *testing.T) {
	p := modeltest.Tiny()
	s := model.Replay(p, []int{0, 2, 1})
	c := s.Clone()
	require.True(t, s.Equal(c))

	c.Scanned[0][0] = 3
	c.Signed[0] = 2
	c.Covered[0] = false
	c.Score = 0
	assert.Equal(t, []int{0, 1}, s.Scanned[0])
	assert.Equal(t, 0, s.Signed[0])
	assert.True(t, s.Covered[0])
	assert.Equal(t, 26, s.Score)
	assert.False(t, s.Equal(c))
}

func TestSignupEndsAndMask(t *testing.T) {
	p := modeltest.Tiny()
	s := model.Replay(p, []int{1, 0, 2})
	assert.Equal(t, []int{2, 3}, s.SignupEnds(p))
	assert.Equal(t, []bool{true, true, false}, s.SignedMask(p))
	assert.Equal(t, 26.0, s.Fitness())
}

func TestValidateDetectsViolations(t *testing.T) {
	p := modeltest.Tiny()
	base := model.Replay(p, []int{0, 2, 1})

	cases := map[string]func(s *model.Schedule){
		"score mismatch":   func(s *model.Schedule) { s.Score++ },
		"both sets":        func(s *model.Schedule) { s.Unsigned = append(s.Unsigned, 0) },
		"missing library":  func(s *model.Schedule) { s.Unsigned = nil },
		"duplicate book":   func(s *model.Schedule) { s.Scanned[2] = append(s.Scanned[2], 0) },
		"foreign book":     func(s *model.Schedule) { s.Scanned[0] = []int{0, 2}; s.Scanned[2] = []int{3}; s.Score = 18 },
		"covered mismatch": func(s *model.Schedule) { s.Covered[3] = false; s.Score -= 3 },
		"unsigned scans": func(s *model.Schedule) {
			s.Scanned[1] = []int{}
		},
		"signed twice": func(s *model.Schedule) { s.Signed = append(s.Signed, 0) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := base.Clone()
			mutate(s)
			assert.Error(t, s.Validate(p))
		})
	}
	require.NoError(t, base.Validate(p))
}
