package query

import (
	"net/url"
	"testing"
)

var tourOptions = Options{
	Filterable: []string{"name", "price", "duration", "difficulty", "ratings_average", "created_at"},
}

func TestParseFullQuery(t *testing.T) {
	values, err := url.ParseQuery("price[gte]=100&price[lt]=500&sort=-price&page=2&limit=10&fields=name,price")
	if err != nil {
		t.Fatalf("parse query string: %v", err)
	}

	spec, err := Parse(values, tourOptions)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(spec.Filters) != 2 {
		t.Fatalf("expected 2 filter clauses, got %d", len(spec.Filters))
	}
	if spec.Filters[0] != (Clause{Field: "price", Op: OpGTE, Value: "100"}) {
		t.Fatalf("unexpected first clause %+v", spec.Filters[0])
	}
	if spec.Filters[1] != (Clause{Field: "price", Op: OpLT, Value: "500"}) {
		t.Fatalf("unexpected second clause %+v", spec.Filters[1])
	}

	if len(spec.Sort) != 1 || spec.Sort[0] != (Order{Field: "price", Desc: true}) {
		t.Fatalf("unexpected sort %+v", spec.Sort)
	}

	if len(spec.Projection.Include) != 2 || spec.Projection.Include[0] != "name" || spec.Projection.Include[1] != "price" {
		t.Fatalf("unexpected projection %+v", spec.Projection)
	}

	if spec.Page != 2 || spec.PageSize != 10 || spec.Offset() != 10 {
		t.Fatalf("unexpected pagination page=%d size=%d offset=%d", spec.Page, spec.PageSize, spec.Offset())
	}
}

func TestParseEmptyQueryDefaults(t *testing.T) {
	spec, err := Parse(url.Values{}, tourOptions)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(spec.Filters) != 0 {
		t.Fatalf("expected no filters, got %+v", spec.Filters)
	}
	if len(spec.Sort) != 1 || spec.Sort[0] != (Order{Field: "created_at", Desc: true}) {
		t.Fatalf("expected default sort by created_at desc, got %+v", spec.Sort)
	}
	if spec.Page != 1 || spec.PageSize != 100 {
		t.Fatalf("expected default pagination, got page=%d size=%d", spec.Page, spec.PageSize)
	}
}

func TestParseReservedKeysNeverFilter(t *testing.T) {
	values := url.Values{
		"page":   {"3"},
		"sort":   {"price"},
		"limit":  {"5"},
		"fields": {"name"},
	}
	spec, err := Parse(values, tourOptions)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(spec.Filters) != 0 {
		t.Fatalf("reserved keys leaked into filters: %+v", spec.Filters)
	}
}

func TestParseRejectsUnknownField(t *testing.T) {
	values := url.Values{"password_hash": {"x"}}
	if _, err := Parse(values, tourOptions); err == nil {
		t.Fatal("expected error for non-whitelisted field")
	}
}

func TestParseIgnoresUnknownFieldWhenConfigured(t *testing.T) {
	opts := tourOptions
	opts.IgnoreUnknown = true
	values := url.Values{"password_hash": {"x"}, "price": {"10"}}

	spec, err := Parse(values, opts)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(spec.Filters) != 1 || spec.Filters[0].Field != "price" {
		t.Fatalf("expected only the price clause, got %+v", spec.Filters)
	}
}

func TestParseRejectsUnknownOperator(t *testing.T) {
	values := url.Values{"price[regex]": {"x"}}
	if _, err := Parse(values, tourOptions); err == nil {
		t.Fatal("expected error for unknown operator suffix")
	}
}

func TestParseRejectsMixedProjection(t *testing.T) {
	values := url.Values{"fields": {"name,-price"}}
	if _, err := Parse(values, tourOptions); err == nil {
		t.Fatal("expected error for mixed include/exclude projection")
	}
}

func TestParseClampsPageAndSize(t *testing.T) {
	values := url.Values{"page": {"0"}, "limit": {"9999"}}
	spec, err := Parse(values, tourOptions)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if spec.Page != 1 {
		t.Fatalf("expected page clamped to 1, got %d", spec.Page)
	}
	if spec.PageSize != 500 {
		t.Fatalf("expected page size clamped to 500, got %d", spec.PageSize)
	}
}

func TestParseRejectsNonIntegerPagination(t *testing.T) {
	if _, err := Parse(url.Values{"page": {"two"}}, tourOptions); err == nil {
		t.Fatal("expected error for non-integer page")
	}
	if _, err := Parse(url.Values{"limit": {"lots"}}, tourOptions); err == nil {
		t.Fatal("expected error for non-integer limit")
	}
}

func TestParseUnsuffixedKeyMeansEquality(t *testing.T) {
	values := url.Values{"difficulty": {"easy"}}
	spec, err := Parse(values, tourOptions)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(spec.Filters) != 1 || spec.Filters[0].Op != OpEq {
		t.Fatalf("expected a single equality clause, got %+v", spec.Filters)
	}
}
