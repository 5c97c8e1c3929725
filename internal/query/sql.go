package query

import (
	"fmt"
	"strconv"
	"strings"
)

// SQLBuilder renders a Spec into a parameterized SELECT for one table.
// Field names reaching the builder have already passed the parse
// whitelist, and the Columns map is the second gate: only mapped fields
// ever appear as identifiers, so client input never reaches the SQL
// text.
type SQLBuilder struct {
	Table string
	// Columns maps exposed field names to column names, in the order
	// they are selected by default.
	Columns []Column
	// PreFilter is a raw condition the repository always applies,
	// e.g. "active = TRUE".
	PreFilter string
}

// Column pairs an exposed field name with its column.
type Column struct {
	Field string
	Name  string
}

// Select renders the query and its positional arguments.
func (b SQLBuilder) Select(spec Spec) (string, []any, error) {
	cols, err := b.projectedColumns(spec.Projection)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(b.Table)

	var (
		conds []string
		args  []any
	)
	if b.PreFilter != "" {
		conds = append(conds, b.PreFilter)
	}
	for _, clause := range spec.Filters {
		col, ok := b.column(clause.Field)
		if !ok {
			return "", nil, fmt.Errorf("no column for filter field %q", clause.Field)
		}
		args = append(args, coerce(clause.Value))
		conds = append(conds, fmt.Sprintf("%s %s $%d", col, clause.Op, len(args)))
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}

	if len(spec.Sort) > 0 {
		parts := make([]string, 0, len(spec.Sort))
		for _, order := range spec.Sort {
			col, ok := b.column(order.Field)
			if !ok {
				return "", nil, fmt.Errorf("no column for sort field %q", order.Field)
			}
			direction := "ASC"
			if order.Desc {
				direction = "DESC"
			}
			parts = append(parts, col+" "+direction)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	sb.WriteString(" LIMIT ")
	sb.WriteString(strconv.Itoa(spec.PageSize))
	sb.WriteString(" OFFSET ")
	sb.WriteString(strconv.Itoa(spec.Offset()))

	return sb.String(), args, nil
}

// ProjectedFields resolves the projection to the exposed field names in
// selection order, which repositories use to scan rows.
func (b SQLBuilder) ProjectedFields(p Projection) ([]string, error) {
	fields := make([]string, 0, len(b.Columns))
	for _, col := range b.Columns {
		if p.Keeps(col.Field) {
			fields = append(fields, col.Field)
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("projection leaves no selectable fields")
	}
	return fields, nil
}

func (b SQLBuilder) projectedColumns(p Projection) ([]string, error) {
	fields, err := b.ProjectedFields(p)
	if err != nil {
		return nil, err
	}
	cols := make([]string, 0, len(fields))
	for _, field := range fields {
		col, _ := b.column(field)
		cols = append(cols, col)
	}
	return cols, nil
}

func (b SQLBuilder) column(field string) (string, bool) {
	for _, col := range b.Columns {
		if col.Field == field {
			return col.Name, true
		}
	}
	return "", false
}

// coerce converts a raw filter value into a typed argument so the
// driver sends comparable parameters for numeric and boolean columns.
func coerce(value string) any {
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return value
}
