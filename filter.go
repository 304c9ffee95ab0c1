package vecview

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

type Operator string

const (
	OpEquals      Operator = "$eq"
	OpNotEquals   Operator = "$ne"
	OpGreaterThan Operator = "$gt"
	OpLessThan    Operator = "$lt"
	OpIn          Operator = "$in"
)

// Clause is a single field/operator/value condition on record metadata.
type Clause struct {
	Field    string   `json:"field"`
	Operator Operator `json:"op"`
	Value    any      `json:"value"`
}

// Filter is a conjunction of clauses.
type Filter []Clause

// Matcher reports whether a metadata value satisfies a compiled clause.
type Matcher func(value string) bool

// Predicate validates an operand and compiles it into a Matcher.
type Predicate func(operand any) (Matcher, error)

// Operators is the registry of filter operators an engine accepts.
type Operators map[Operator]Predicate

func DefaultOperators() Operators {
	return Operators{
		OpEquals:      equalsPredicate,
		OpNotEquals:   notEqualsPredicate,
		OpGreaterThan: greaterThanPredicate,
		OpLessThan:    lessThanPredicate,
		OpIn:          inPredicate,
	}
}

// Select returns the subset of the registry named by ops. An empty list
// selects everything.
func (o Operators) Select(ops ...Operator) (Operators, error) {
	if len(ops) == 0 {
		return maps.Clone(o), nil
	}

	selected := make(Operators, len(ops))
	for _, op := range ops {
		p, ok := o[op]
		if !ok {
			return nil, fmt.Errorf("%w: %w: %s", ErrInvalidArgument, ErrUnknownOperator, op)
		}

		selected[op] = p
	}

	return selected, nil
}

func (o Operators) Names() []Operator {
	names := slices.Collect(maps.Keys(o))
	slices.Sort(names)
	return names
}

// Compile validates every clause against the registry and returns a pure
// predicate over record metadata. A record missing a filtered field never
// matches.
func (o Operators) Compile(filter Filter) (func(metadata map[string]string) bool, error) {
	if len(filter) == 0 {
		return func(map[string]string) bool { return true }, nil
	}

	type compiled struct {
		field string
		match Matcher
	}

	clauses := make([]compiled, len(filter))
	for i, clause := range filter {
		if clause.Field == "" {
			return nil, fmt.Errorf("%w: %w: clause %d has no field", ErrInvalidArgument, ErrInvalidClause, i)
		}

		p, ok := o[clause.Operator]
		if !ok {
			return nil, fmt.Errorf("%w: %w: %q", ErrInvalidArgument, ErrUnknownOperator, clause.Operator)
		}

		m, err := p(clause.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %w: %s %s: %w", ErrInvalidArgument, ErrInvalidClause, clause.Field, clause.Operator, err)
		}

		clauses[i] = compiled{clause.Field, m}
	}

	return func(metadata map[string]string) bool {
		for _, c := range clauses {
			value, ok := metadata[c.field]
			if !ok || !c.match(value) {
				return false
			}
		}

		return true
	}, nil
}

// ParseWhere converts a Chroma style where document into a Filter.
//
//	{"source": "web", "page": {"$gt": 3}, "tag": {"$in": ["a", "b"]}}
//
// Clauses come out ordered by field, then operator.
func ParseWhere(where map[string]any) (Filter, error) {
	filter := make(Filter, 0, len(where))

	for _, field := range slices.Sorted(maps.Keys(where)) {
		value := where[field]

		if strings.HasPrefix(field, "$") {
			return nil, fmt.Errorf("%w: %w: logical operator %s is not supported", ErrInvalidArgument, ErrInvalidClause, field)
		}

		ops, ok := value.(map[string]any)
		if !ok {
			filter = append(filter, Clause{field, OpEquals, value})
			continue
		}

		if len(ops) == 0 {
			return nil, fmt.Errorf("%w: %w: %s has no operator", ErrInvalidArgument, ErrInvalidClause, field)
		}

		for _, op := range slices.Sorted(maps.Keys(ops)) {
			filter = append(filter, Clause{field, Operator(op), ops[op]})
		}
	}

	return filter, nil
}

// pushdown splits off the equality clauses the store can evaluate with
// exact string matching. Numeric operands stay with the engine, which
// compares them by value.
func (f Filter) pushdown() map[string]string {
	var where map[string]string

	for _, clause := range f {
		if clause.Operator != OpEquals {
			continue
		}

		s, ok := clause.Value.(string)
		if !ok || isNumeric(s) {
			continue
		}

		if where == nil {
			where = make(map[string]string)
		}

		// Contradicting equalities are left to the engine.
		if prev, ok := where[clause.Field]; ok && prev != s {
			continue
		}

		where[clause.Field] = s
	}

	return where
}

type scalar struct {
	text    string
	num     float64
	numeric bool
}

func toScalar(v any) (scalar, error) {
	switch b := v.(type) {
	case nil:
		return scalar{}, fmt.Errorf("operand is null")
	case bool:
		return scalar{text: strconv.FormatBool(b)}, nil
	}

	text, err := cast.ToStringE(v)
	if err != nil {
		return scalar{}, err
	}

	return parseScalar(text), nil
}

// parseScalar treats NaN and infinities as text, so they only ever equal
// the same spelling.
func parseScalar(text string) scalar {
	num, err := cast.ToFloat64E(text)
	numeric := err == nil && !math.IsNaN(num) && !math.IsInf(num, 0)
	return scalar{text: text, num: num, numeric: numeric}
}

func isNumeric(s string) bool {
	return parseScalar(s).numeric
}

func compareScalar(a, b scalar) int {
	if a.numeric && b.numeric {
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		default:
			return 0
		}
	}

	return strings.Compare(a.text, b.text)
}

func equalsPredicate(operand any) (Matcher, error) {
	want, err := toScalar(operand)
	if err != nil {
		return nil, err
	}

	return func(value string) bool {
		return compareScalar(parseScalar(value), want) == 0
	}, nil
}

func notEqualsPredicate(operand any) (Matcher, error) {
	eq, err := equalsPredicate(operand)
	if err != nil {
		return nil, err
	}

	return func(value string) bool {
		return !eq(value)
	}, nil
}

func greaterThanPredicate(operand any) (Matcher, error) {
	want, err := toScalar(operand)
	if err != nil {
		return nil, err
	}

	return func(value string) bool {
		return compareScalar(parseScalar(value), want) > 0
	}, nil
}

func lessThanPredicate(operand any) (Matcher, error) {
	want, err := toScalar(operand)
	if err != nil {
		return nil, err
	}

	return func(value string) bool {
		return compareScalar(parseScalar(value), want) < 0
	}, nil
}

func inPredicate(operand any) (Matcher, error) {
	var items []string

	switch v := operand.(type) {
	case []any:
		items = make([]string, len(v))
		for i, item := range v {
			s, err := toScalar(item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}

			items[i] = s.text
		}

	case []string, []int, []int64, []float32, []float64:
		items = cast.ToStringSlice(v)

	default:
		return nil, fmt.Errorf("operand must be a list, got %T", operand)
	}

	set := make([]scalar, len(items))
	for i, item := range items {
		set[i] = parseScalar(item)
	}

	return func(value string) bool {
		v := parseScalar(value)
		return slices.ContainsFunc(set, func(s scalar) bool {
			return compareScalar(v, s) == 0
		})
	}, nil
}
