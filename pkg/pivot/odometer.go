package pivot

import "iter"

// Odometer enumerates index tuples in [0, limits[i]) with the last position
// varying fastest. An empty limit list, or any limit of zero, yields nothing.
type Odometer struct {
	limits  []int
	cur     []int
	started bool
	done    bool
}

// NewOdometer returns an odometer positioned before its first tuple.
func NewOdometer(limits []int) *Odometer {
	o := &Odometer{
		limits: append([]int(nil), limits...),
		cur:    make([]int, len(limits)),
	}
	o.Reset()
	return o
}

// Reset rewinds the odometer to before its first tuple.
func (o *Odometer) Reset() {
	clear(o.cur)
	o.started = false
	o.done = len(o.limits) == 0
	for _, l := range o.limits {
		if l <= 0 {
			o.done = true
		}
	}
}

// Len returns the number of tuples in a full pass.
func (o *Odometer) Len() int {
	if len(o.limits) == 0 {
		return 0
	}
	n := 1
	for _, l := range o.limits {
		if l <= 0 {
			return 0
		}
		n *= l
	}
	return n
}

// Next returns the next tuple. The returned slice is owned by the caller.
func (o *Odometer) Next() ([]int, bool) {
	if o.done {
		return nil, false
	}
	if !o.started {
		o.started = true
		return append([]int(nil), o.cur...), true
	}
	i := len(o.cur) - 1
	for ; i >= 0; i-- {
		o.cur[i]++
		if o.cur[i] < o.limits[i] {
			break
		}
		o.cur[i] = 0
	}
	if i < 0 {
		o.done = true
		return nil, false
	}
	return append([]int(nil), o.cur...), true
}

// Tuples returns a restartable sequence over the odometer's tuples.
func Tuples(limits []int) iter.Seq[[]int] {
	limits = append([]int(nil), limits...)
	return func(yield func([]int) bool) {
		o := NewOdometer(limits)
		for {
			t, ok := o.Next()
			if !ok || !yield(t) {
				return
			}
		}
	}
}
