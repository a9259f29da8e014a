package dataset

import (
	"maps"
	"slices"
)

// Table is an immutable, ordered set of transactions together with the
// columns the source provided. Operations return new tables.
type Table struct {
	rows    []Transaction
	columns map[string]bool
}

// NewTable builds a table. A nil columns list means every known column.
func NewTable(rows []Transaction, columns []string) *Table {
	if columns == nil {
		columns = AllColumns
	}
	cols := make(map[string]bool, len(columns))
	for _, c := range columns {
		cols[c] = true
	}
	return &Table{rows: rows, columns: cols}
}

// AllColumns lists every column a Transaction can carry.
var AllColumns = []string{
	ColCity, ColDistrict, ColAddress, ColTradeDate, ColTradeYear, ColTradeType,
	ColTotalPrice, ColUnitPriceSqm, ColUnitPrice, ColBuildingType, ColElevator,
	ColAge, ColAreaPing, ColRooms, ColLivingRooms, ColBathrooms, ColTarget,
}

// Len returns the number of rows. A nil table has zero rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Row returns a copy of row i.
func (t *Table) Row(i int) Transaction {
	return t.rows[i]
}

// Rows returns a copy of all rows.
func (t *Table) Rows() []Transaction {
	if t == nil {
		return nil
	}
	return slices.Clone(t.rows)
}

// HasColumn reports whether the source provided column.
func (t *Table) HasColumn(column string) bool {
	return t != nil && t.columns[column]
}

// Columns returns the provided columns in sorted order.
func (t *Table) Columns() []string {
	if t == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(t.columns))
}

// Where returns the rows for which keep is true.
func (t *Table) Where(keep func(*Transaction) bool) *Table {
	if t == nil {
		return nil
	}
	out := make([]Transaction, 0, len(t.rows))
	for i := range t.rows {
		if keep(&t.rows[i]) {
			out = append(out, t.rows[i])
		}
	}
	return &Table{rows: out, columns: t.columns}
}

// Districts returns the distinct non-empty districts in first-seen order.
func (t *Table) Districts() []string {
	if t == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for i := range t.rows {
		d := t.rows[i].District
		if d != "" && !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}

// HasDistrict reports whether any row belongs to district.
func (t *Table) HasDistrict(district string) bool {
	if t == nil {
		return false
	}
	for i := range t.rows {
		if t.rows[i].District == district {
			return true
		}
	}
	return false
}

// Concat returns a new table holding the rows of all tables in order.
// Columns are the union of the inputs.
func Concat(tables ...*Table) *Table {
	cols := make(map[string]bool)
	n := 0
	for _, t := range tables {
		if t == nil {
			continue
		}
		n += len(t.rows)
		maps.Copy(cols, t.columns)
	}
	rows := make([]Transaction, 0, n)
	for _, t := range tables {
		if t != nil {
			rows = append(rows, t.rows...)
		}
	}
	return &Table{rows: rows, columns: cols}
}
