package postgres

import (
	"fmt"
	"strings"
)

// updateBuilder compiles an ordered column set into a parameterized UPDATE.
// Column names are always code constants, never caller input.
type updateBuilder struct {
	table     string
	sets      []string
	where     []string
	returning string
	args      []interface{}
}

func newUpdateBuilder(table string) *updateBuilder {
	return &updateBuilder{table: table}
}

func (b *updateBuilder) Set(column string, value interface{}) *updateBuilder {
	b.args = append(b.args, value)
	b.sets = append(b.sets, fmt.Sprintf("%s = $%d", column, len(b.args)))
	return b
}

// SetRaw adds an expression that takes no parameter, e.g. "updated_at = NOW()".
func (b *updateBuilder) SetRaw(expression string) *updateBuilder {
	b.sets = append(b.sets, expression)
	return b
}

func (b *updateBuilder) Where(column string, value interface{}) *updateBuilder {
	b.args = append(b.args, value)
	b.where = append(b.where, fmt.Sprintf("%s = $%d", column, len(b.args)))
	return b
}

func (b *updateBuilder) Returning(columns string) *updateBuilder {
	b.returning = columns
	return b
}

func (b *updateBuilder) Empty() bool {
	return len(b.sets) == 0
}

func (b *updateBuilder) Build() (string, []interface{}, error) {
	if len(b.sets) == 0 {
		return "", nil, fmt.Errorf("update %s: no columns to set", b.table)
	}
	if len(b.where) == 0 {
		return "", nil, fmt.Errorf("update %s: refusing to update without a where clause", b.table)
	}
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(b.table)
	sb.WriteString("\nSET ")
	sb.WriteString(strings.Join(b.sets, ", "))
	sb.WriteString("\nWHERE ")
	sb.WriteString(strings.Join(b.where, " AND "))
	if b.returning != "" {
		sb.WriteString("\nRETURNING ")
		sb.WriteString(b.returning)
	}
	return sb.String(), b.args, nil
}
