package pivot

import (
	"errors"
	"math"
	"math/big"
	"strconv"
	"strings"
)

var (
	// ErrNilAggregator indicates Aggregate was called without a contract.
	ErrNilAggregator = errors.New("nil aggregator")
	// ErrIncompleteAggregator indicates New was given a contract without Cast or Add.
	ErrIncompleteAggregator = errors.New("aggregator requires Cast and Add")
)

// Default contract values.
const (
	DefaultWildcard = "*"
	DefaultKeySep   = "/"
	DefaultCellSep  = "&"
)

// Aggregator is the fold contract used to compute every pivot cell.
//
// Implementations must be safe for concurrent use if they are shared by
// AggregateAll; all constructors in this package return stateless contracts.
type Aggregator[T any] interface {
	// Cast converts a raw cell of a measure column into a fold value.
	Cast(raw string) (T, error)
	// Add folds cur into acc. row and col identify the active groups; for
	// margins one or both are WildcardGroup(Wildcard()).
	Add(acc, cur T, row, col Group) (T, error)
	// Zero returns a fresh fold seed. It is called once per cell.
	Zero() T
	// PostIf gates a cell on group identity alone, before any row is scanned.
	PostIf(row, col Group) bool
	// Keep gates a cell on its final accumulated value, after the scan and
	// before Post.
	Keep(acc T, row, col Group) bool
	// Post transforms the accumulated value before it is stored.
	Post(acc T) T
	// Keys folds two group values into one key string.
	Keys(prev, cur string) string
	// Wildcard is the key standing in for an unconstrained dimension.
	Wildcard() string
	// RCID builds the composite cell identifier.
	RCID(row, col, measure string) string
}

// Funcs is a partial Aggregator: nil functions and an empty Wildcard mean
// "not set". Use Merge to override an existing contract or New to build one.
type Funcs[T any] struct {
	Cast     func(raw string) (T, error)
	Add      func(acc, cur T, row, col Group) (T, error)
	Zero     func() T
	PostIf   func(row, col Group) bool
	Keep     func(acc T, row, col Group) bool
	Post     func(acc T) T
	Keys     func(prev, cur string) string
	Wildcard string
	RCID     func(row, col, measure string) string
}

type contract[T any] struct {
	f Funcs[T]
}

func (c *contract[T]) Cast(raw string) (T, error) { return c.f.Cast(raw) }

func (c *contract[T]) Add(acc, cur T, row, col Group) (T, error) {
	return c.f.Add(acc, cur, row, col)
}

func (c *contract[T]) Zero() T                              { return c.f.Zero() }
func (c *contract[T]) PostIf(row, col Group) bool           { return c.f.PostIf(row, col) }
func (c *contract[T]) Keep(acc T, row, col Group) bool      { return c.f.Keep(acc, row, col) }
func (c *contract[T]) Post(acc T) T                         { return c.f.Post(acc) }
func (c *contract[T]) Keys(prev, cur string) string         { return c.f.Keys(prev, cur) }
func (c *contract[T]) Wildcard() string                     { return c.f.Wildcard }
func (c *contract[T]) RCID(row, col, measure string) string { return c.f.RCID(row, col, measure) }

// Default returns the numeric-sum contract: non-numeric cells count as 0,
// group values join with "/", cell ids join with "&", and "*" is the
// wildcard.
func Default() Aggregator[float64] {
	f := baseFuncs[float64]()
	f.Cast = func(raw string) (float64, error) { return ParseNumber(raw), nil }
	f.Add = func(acc, cur float64, _, _ Group) (float64, error) { return acc + cur, nil }
	f.Zero = func() float64 { return 0 }
	return &contract[float64]{f: f}
}

// New builds a contract for any accumulator type. Cast and Add are required;
// every other member falls back to the Default behaviour, with Zero
// returning T's zero value.
func New[T any](f Funcs[T]) (Aggregator[T], error) {
	if f.Cast == nil || f.Add == nil {
		return nil, ErrIncompleteAggregator
	}
	base := baseFuncs[T]()
	base.Cast = f.Cast
	base.Add = f.Add
	base.Zero = func() T {
		var zero T
		return zero
	}
	return Merge[T](&contract[T]{f: base}, f), nil
}

// Merge returns a contract that uses the members set in o and falls back to
// base for the rest.
func Merge[T any](base Aggregator[T], o Funcs[T]) Aggregator[T] {
	f := Funcs[T]{
		Cast:     base.Cast,
		Add:      base.Add,
		Zero:     base.Zero,
		PostIf:   base.PostIf,
		Keep:     base.Keep,
		Post:     base.Post,
		Keys:     base.Keys,
		Wildcard: base.Wildcard(),
		RCID:     base.RCID,
	}
	if o.Cast != nil {
		f.Cast = o.Cast
	}
	if o.Add != nil {
		f.Add = o.Add
	}
	if o.Zero != nil {
		f.Zero = o.Zero
	}
	if o.PostIf != nil {
		f.PostIf = o.PostIf
	}
	if o.Keep != nil {
		f.Keep = o.Keep
	}
	if o.Post != nil {
		f.Post = o.Post
	}
	if o.Keys != nil {
		f.Keys = o.Keys
	}
	if o.Wildcard != "" {
		f.Wildcard = o.Wildcard
	}
	if o.RCID != nil {
		f.RCID = o.RCID
	}
	return &contract[T]{f: f}
}

// baseFuncs fills the members that do not depend on T.
func baseFuncs[T any]() Funcs[T] {
	return Funcs[T]{
		PostIf:   func(_, _ Group) bool { return true },
		Keep:     func(_ T, _, _ Group) bool { return true },
		Post:     func(acc T) T { return acc },
		Keys:     func(prev, cur string) string { return prev + DefaultKeySep + cur },
		Wildcard: DefaultWildcard,
		RCID: func(row, col, measure string) string {
			return row + DefaultCellSep + col + DefaultCellSep + measure
		},
	}
}

// ParseNumber parses raw with JavaScript Number() rules, returning 0 where
// Number() would give NaN: surrounding space is trimmed, "" is 0, only the
// exact spellings "Infinity", "+Infinity" and "-Infinity" are infinite, and
// unsigned 0x/0o/0b integer literals are accepted. Go-only syntax such as
// digit separators ("1_000") or "inf" is rejected. Decimal values too large
// for float64 become ±Inf.
func ParseNumber(raw string) float64 {
	s := strings.TrimSpace(raw)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if strings.ContainsRune(s, '_') {
		return 0
	}
	if base := radixPrefix(s); base != 0 {
		return parseRadix(s[2:], base)
	}

	// Only digits, sign, point and exponent remain legal, which rules out
	// hex floats and the inf/nan spellings ParseFloat would accept.
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '+', r == '-', r == 'e', r == 'E':
		default:
			return 0
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return v
		}
		return 0
	}
	return v
}

func radixPrefix(s string) int {
	if len(s) < 2 || s[0] != '0' {
		return 0
	}
	switch s[1] {
	case 'x', 'X':
		return 16
	case 'o', 'O':
		return 8
	case 'b', 'B':
		return 2
	}
	return 0
}

func parseRadix(digits string, base int) float64 {
	if digits == "" || digits[0] == '+' || digits[0] == '-' {
		return 0
	}
	n, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return 0
	}
	f, _ := new(big.Float).SetInt(n).Float64()
	return f
}
