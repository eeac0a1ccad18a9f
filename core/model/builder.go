package model

// Builder appends libraries to a schedule one at a time using the greedy book
// rule: a library signed up at position k scans its highest scoring books that
// are not covered yet, up to the capacity left after its signup.
type Builder struct {
	p   *Problem
	s   *Schedule
	day int
}

// NewBuilder starts an empty schedule for p.
func NewBuilder(p *Problem) *Builder {
	return &Builder{p: p, s: NewSchedule(p)}
}

// ResumeBuilder starts from the first n signed libraries of base, keeping their
// scan lists untouched. The libraries after position n are dropped; the caller
// is expected to Add them again.
func ResumeBuilder(p *Problem, base *Schedule, n int) *Builder {
	b := NewBuilder(p)
	for _, lib := range base.Signed[:n] {
		books := append([]int(nil), base.Scanned[lib]...)
		b.s.Signed = append(b.s.Signed, lib)
		b.s.Scanned[lib] = books
		for _, id := range books {
			b.s.Covered[id] = true
			b.s.Score += p.Scores[id]
		}
		b.day += p.Libraries[lib].SignupDays
	}
	return b
}

// Day returns the day at which the last signed library completes signup.
func (b *Builder) Day() int { return b.day }

// Add tries to sign lib up after the libraries already added. It reports
// whether the library was signed; otherwise lib is recorded as unsigned and no
// time is consumed.
func (b *Builder) Add(lib int) bool {
	l := b.p.Libraries[lib]
	end := b.day + l.SignupDays
	if end >= b.p.Days {
		b.s.Unsigned = append(b.s.Unsigned, lib)
		return false
	}
	limit := b.p.Capacity(lib, end)
	var picked []int
	for _, book := range b.p.RankedBooks(lib) {
		if len(picked) == limit {
			break
		}
		if !b.s.Covered[book] {
			picked = append(picked, book)
		}
	}
	if len(picked) == 0 {
		b.s.Unsigned = append(b.s.Unsigned, lib)
		return false
	}
	for _, book := range picked {
		b.s.Covered[book] = true
		b.s.Score += b.p.Scores[book]
	}
	b.s.Signed = append(b.s.Signed, lib)
	b.s.Scanned[lib] = picked
	b.day = end
	return true
}

// Skip records lib as unsigned without trying to sign it.
func (b *Builder) Skip(lib int) {
	b.s.Unsigned = append(b.s.Unsigned, lib)
}

// Schedule returns the schedule built so far. The builder must not be used
// afterwards.
func (b *Builder) Schedule() *Schedule { return b.s }

// Replay builds a schedule by adding libraries in order. Libraries missing from
// order are recorded as unsigned after it.
func Replay(p *Problem, order []int) *Schedule {
	b := NewBuilder(p)
	placed := make([]bool, p.NumLibraries())
	for _, lib := range order {
		placed[lib] = true
		b.Add(lib)
	}
	for lib, ok := range placed {
		if !ok {
			b.Skip(lib)
		}
	}
	return b.Schedule()
}
