package query

import (
	"net/url"
	"testing"
)

var tourBuilder = SQLBuilder{
	Table: "tours",
	Columns: []Column{
		{Field: "id", Name: "id"},
		{Field: "name", Name: "name"},
		{Field: "price", Name: "price"},
		{Field: "difficulty", Name: "difficulty"},
		{Field: "created_at", Name: "created_at"},
	},
	PreFilter: "premium = FALSE",
}

func TestSelectRendersFiltersSortPagination(t *testing.T) {
	values, err := url.ParseQuery("price[gte]=100&price[lt]=500&sort=-price&page=2&limit=10")
	if err != nil {
		t.Fatalf("parse query string: %v", err)
	}
	spec, err := Parse(values, Options{Filterable: []string{"price", "created_at"}})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	sql, args, err := tourBuilder.Select(spec)
	if err != nil {
		t.Fatalf("select: %v", err)
	}

	want := "SELECT id, name, price, difficulty, created_at FROM tours" +
		" WHERE premium = FALSE AND price >= $1 AND price < $2" +
		" ORDER BY price DESC LIMIT 10 OFFSET 10"
	if sql != want {
		t.Fatalf("unexpected sql:\n got %s\nwant %s", sql, want)
	}
	if len(args) != 2 || args[0] != int64(100) || args[1] != int64(500) {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestSelectAppliesInclusionProjection(t *testing.T) {
	spec := Spec{
		Projection: Projection{Include: []string{"name", "price"}},
		Page:       1,
		PageSize:   100,
	}

	sql, _, err := tourBuilder.Select(spec)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	want := "SELECT id, name, price FROM tours WHERE premium = FALSE LIMIT 100 OFFSET 0"
	if sql != want {
		t.Fatalf("unexpected sql:\n got %s\nwant %s", sql, want)
	}
}

func TestSelectAppliesExclusionProjection(t *testing.T) {
	spec := Spec{
		Projection: Projection{Exclude: []string{"difficulty"}},
		Page:       1,
		PageSize:   100,
	}

	sql, _, err := tourBuilder.Select(spec)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	want := "SELECT id, name, price, created_at FROM tours WHERE premium = FALSE LIMIT 100 OFFSET 0"
	if sql != want {
		t.Fatalf("unexpected sql:\n got %s\nwant %s", sql, want)
	}
}

func TestSelectRejectsUnmappedField(t *testing.T) {
	spec := Spec{
		Filters:  []Clause{{Field: "secret", Op: OpEq, Value: "x"}},
		Page:     1,
		PageSize: 100,
	}
	if _, _, err := tourBuilder.Select(spec); err == nil {
		t.Fatal("expected error for unmapped filter field")
	}
}

func TestCoerceTypes(t *testing.T) {
	if v := coerce("42"); v != int64(42) {
		t.Fatalf("expected int64, got %T %v", v, v)
	}
	if v := coerce("4.5"); v != 4.5 {
		t.Fatalf("expected float64, got %T %v", v, v)
	}
	if v := coerce("true"); v != true {
		t.Fatalf("expected bool, got %T %v", v, v)
	}
	if v := coerce("easy"); v != "easy" {
		t.Fatalf("expected string, got %T %v", v, v)
	}
}
