// Package query turns an arbitrary client-supplied query string into a
// bounded, store-agnostic Spec. It never executes anything itself.
package query

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Op is a filter comparison operator.
type Op int

const (
	OpEq Op = iota
	OpGT
	OpGTE
	OpLT
	OpLTE
)

func (o Op) String() string {
	switch o {
	case OpGT:
		return ">"
	case OpGTE:
		return ">="
	case OpLT:
		return "<"
	case OpLTE:
		return "<="
	default:
		return "="
	}
}

// Clause is a single {field, operator, value} filter condition.
type Clause struct {
	Field string
	Op    Op
	Value string
}

// Order is one sort key with direction.
type Order struct {
	Field string
	Desc  bool
}

// Projection lists fields to include or exclude. The two modes are
// mutually exclusive per request.
type Projection struct {
	Include []string
	Exclude []string
}

// Empty reports whether the projection narrows anything.
func (p Projection) Empty() bool {
	return len(p.Include) == 0 && len(p.Exclude) == 0
}

// Keeps reports whether a field survives the projection. The record
// identifier always does.
func (p Projection) Keeps(field string) bool {
	if field == "id" {
		return true
	}
	if len(p.Include) > 0 {
		return slices.Contains(p.Include, field)
	}
	return !slices.Contains(p.Exclude, field)
}

// Spec is the normalized description of a list query, consumed by a
// repository. It is immutable once built.
type Spec struct {
	Filters    []Clause
	Sort       []Order
	Projection Projection
	Page       int
	PageSize   int
}

// Offset is the number of records skipped for the requested page.
func (s Spec) Offset() int {
	return (s.Page - 1) * s.PageSize
}

// Options configures parsing for one resource type.
type Options struct {
	// Filterable whitelists field names allowed in filter and sort
	// clauses. Anything else is rejected, or skipped when
	// IgnoreUnknown is set.
	Filterable    []string
	IgnoreUnknown bool

	// DefaultSort applies when the request carries no sort key.
	// Empty means created_at descending.
	DefaultSort []Order

	// DefaultExclude is the projection applied when the request names
	// no fields.
	DefaultExclude []string

	MaxPageSize int
}

const (
	// Reserved query-string keys, never interpreted as filter clauses.
	keyPage   = "page"
	keySort   = "sort"
	keyLimit  = "limit"
	keyFields = "fields"

	defaultPageSize = 100
	defaultMaxSize  = 500
)

var suffixOps = map[string]Op{
	"gt":  OpGT,
	"gte": OpGTE,
	"lt":  OpLT,
	"lte": OpLTE,
}

// Parse builds a Spec from raw query values. It is pure and safe for
// concurrent use.
func Parse(values url.Values, opts Options) (Spec, error) {
	spec := Spec{
		Page:     1,
		PageSize: defaultPageSize,
	}

	filters, err := parseFilters(values, opts)
	if err != nil {
		return Spec{}, err
	}
	spec.Filters = filters

	sort, err := parseSort(values.Get(keySort), opts)
	if err != nil {
		return Spec{}, err
	}
	spec.Sort = sort

	projection, err := parseProjection(values.Get(keyFields), opts)
	if err != nil {
		return Spec{}, err
	}
	spec.Projection = projection

	if raw := values.Get(keyPage); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return Spec{}, fmt.Errorf("page must be an integer, got %q", raw)
		}
		if page < 1 {
			page = 1
		}
		spec.Page = page
	}

	maxSize := opts.MaxPageSize
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	if raw := values.Get(keyLimit); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return Spec{}, fmt.Errorf("limit must be an integer, got %q", raw)
		}
		if size < 1 {
			size = 1
		}
		spec.PageSize = size
	}
	if spec.PageSize > maxSize {
		spec.PageSize = maxSize
	}

	return spec, nil
}

func parseFilters(values url.Values, opts Options) ([]Clause, error) {
	// url.Values is a map; iterate keys in sorted order so the clause
	// list is deterministic.
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	var clauses []Clause
	for _, key := range keys {
		field, op, err := splitOperator(key)
		if err != nil {
			return nil, err
		}
		if field == keyPage || field == keySort || field == keyLimit || field == keyFields {
			continue
		}
		if !slices.Contains(opts.Filterable, field) {
			if opts.IgnoreUnknown {
				continue
			}
			return nil, fmt.Errorf("cannot filter on field %q", field)
		}
		for _, value := range values[key] {
			clauses = append(clauses, Clause{Field: field, Op: op, Value: value})
		}
	}
	return clauses, nil
}

// splitOperator maps bracket suffixes like price[gte] to an operator;
// plain keys mean equality.
func splitOperator(key string) (string, Op, error) {
	open := strings.IndexByte(key, '[')
	if open < 0 {
		return key, OpEq, nil
	}
	if !strings.HasSuffix(key, "]") {
		return "", OpEq, fmt.Errorf("malformed filter key %q", key)
	}
	suffix := key[open+1 : len(key)-1]
	op, ok := suffixOps[suffix]
	if !ok {
		return "", OpEq, fmt.Errorf("unknown filter operator %q in key %q", suffix, key)
	}
	return key[:open], op, nil
}

func parseSort(raw string, opts Options) ([]Order, error) {
	if raw == "" {
		if len(opts.DefaultSort) > 0 {
			return slices.Clone(opts.DefaultSort), nil
		}
		return []Order{{Field: "created_at", Desc: true}}, nil
	}

	var orders []Order
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		order := Order{Field: part}
		if strings.HasPrefix(part, "-") {
			order = Order{Field: part[1:], Desc: true}
		}
		if !slices.Contains(opts.Filterable, order.Field) {
			if opts.IgnoreUnknown {
				continue
			}
			return nil, fmt.Errorf("cannot sort on field %q", order.Field)
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func parseProjection(raw string, opts Options) (Projection, error) {
	if raw == "" {
		return Projection{Exclude: slices.Clone(opts.DefaultExclude)}, nil
	}

	var include, exclude []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "-") {
			exclude = append(exclude, part[1:])
		} else {
			include = append(include, part)
		}
	}
	if len(include) > 0 && len(exclude) > 0 {
		return Projection{}, fmt.Errorf("cannot mix included and excluded fields in one request")
	}
	return Projection{Include: include, Exclude: exclude}, nil
}
