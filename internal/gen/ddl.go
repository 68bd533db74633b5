package gen

import (
	"fmt"
	"strings"

	"github.com/mickamy/schemagen/internal/naming"
	"github.com/mickamy/schemagen/internal/schema"
	"github.com/mickamy/schemagen/orm"
)

// Dialects lists the dialect names DDL is rendered for, in output order.
var Dialects = []string{"mysql", "postgresql"}

// DDL returns the CREATE statements for every model of s and every implicit
// many-to-many join table, for the named dialect ("mysql" or "postgresql").
// Tables are ordered so that each one is created after the tables its
// foreign keys reference. Indexes follow the table they belong to.
func DDL(s *schema.Schema, dialect string) ([]string, error) {
	d, err := orm.DialectFor(dialect)
	if err != nil {
		return nil, err
	}
	models, err := sortModels(s.Models)
	if err != nil {
		return nil, err
	}

	var stmts []string
	for _, m := range models {
		stmts = append(stmts, createTable(d, m))
		stmts = append(stmts, createIndexes(d, m)...)
	}

	seen := map[string]bool{}
	for _, m := range s.Models {
		for _, f := range m.RelationFields() {
			rel := f.Relation
			if rel.Kind != schema.ManyToMany || seen[rel.JoinTable] {
				continue
			}
			seen[rel.JoinTable] = true
			stmts = append(stmts, createJoinTable(d, rel.JoinTable, m, rel.Target))
		}
	}
	return stmts, nil
}

// sortModels orders models parent-first along belongs_to edges, keeping
// declaration order otherwise. Self references are ignored.
func sortModels(models []*schema.Model) ([]*schema.Model, error) {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[*schema.Model]int, len(models))
	out := make([]*schema.Model, 0, len(models))

	var visit func(m *schema.Model, path []string) error
	visit = func(m *schema.Model, path []string) error {
		switch state[m] {
		case visiting:
			return fmt.Errorf("gen: foreign keys form a cycle: %s", strings.Join(append(path, m.Name), " -> "))
		case done:
			return nil
		}
		state[m] = visiting
		for _, f := range m.RelationFields() {
			rel := f.Relation
			if rel.Kind != schema.BelongsTo || rel.Target == m {
				continue
			}
			if err := visit(rel.Target, append(path, m.Name)); err != nil {
				return err
			}
		}
		state[m] = done
		out = append(out, m)
		return nil
	}

	for _, m := range models {
		if err := visit(m, nil); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func createTable(d orm.Dialect, m *schema.Model) string {
	qi := d.QuoteIdent
	var defs []string
	for _, f := range m.ScalarFields() {
		defs = append(defs, columnDef(d, f))
	}

	defs = append(defs, "PRIMARY KEY ("+qi(m.PrimaryKey().Column)+")")
	for _, f := range m.ScalarFields() {
		if f.Attr("unique") != nil && !f.IsID() {
			defs = append(defs, "UNIQUE ("+qi(f.Column)+")")
		}
	}
	for _, idx := range m.Indexes {
		if idx.Unique {
			defs = append(defs, "UNIQUE ("+quoteList(d, idx.Columns)+")")
		}
	}
	for _, f := range m.RelationFields() {
		rel := f.Relation
		if rel.Kind != schema.BelongsTo {
			continue
		}
		defs = append(defs, foreignKey(d, rel.ForeignKey().Column, rel.Target.Table, rel.Reference().Column, rel.OnDelete, rel.OnUpdate))
	}

	return "CREATE TABLE " + qi(m.Table) + " (" + strings.Join(defs, ", ") + ")"
}

func createIndexes(d orm.Dialect, m *schema.Model) []string {
	var stmts []string
	for _, idx := range m.Indexes {
		if idx.Unique {
			continue
		}
		name := m.Table + "_" + strings.Join(idx.Columns, "_") + "_idx"
		stmts = append(stmts, "CREATE INDEX "+d.QuoteIdent(name)+" ON "+d.QuoteIdent(m.Table)+" ("+quoteList(d, idx.Columns)+")")
	}
	return stmts
}

// createJoinTable renders the join table of an implicit many-to-many
// between a and b. Rows disappear with either side.
func createJoinTable(d orm.Dialect, table string, a, b *schema.Model) string {
	if a.Name > b.Name {
		a, b = b, a
	}
	qi := d.QuoteIdent
	aPK, bPK := a.PrimaryKey(), b.PrimaryKey()
	aCol, bCol := naming.ForeignKeyColumn(a.Name), naming.ForeignKeyColumn(b.Name)

	defs := []string{
		qi(aCol) + " " + columnType(d, aPK, false) + " NOT NULL",
		qi(bCol) + " " + columnType(d, bPK, false) + " NOT NULL",
		"PRIMARY KEY (" + qi(aCol) + ", " + qi(bCol) + ")",
		foreignKey(d, aCol, a.Table, aPK.Column, schema.Cascade, schema.Cascade),
		foreignKey(d, bCol, b.Table, bPK.Column, schema.Cascade, schema.Cascade),
	}
	return "CREATE TABLE " + qi(table) + " (" + strings.Join(defs, ", ") + ")"
}

func foreignKey(d orm.Dialect, column, refTable, refColumn string, onDelete, onUpdate schema.Action) string {
	qi := d.QuoteIdent
	return fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s ON UPDATE %s",
		qi(column), qi(refTable), qi(refColumn), onDelete.SQL(), onUpdate.SQL())
}

func columnDef(d orm.Dialect, f *schema.Field) string {
	var b strings.Builder
	b.WriteString(d.QuoteIdent(f.Column))
	b.WriteByte(' ')
	b.WriteString(columnType(d, f, true))
	if f.Modifier != schema.Optional {
		b.WriteString(" NOT NULL")
	}
	if def := defaultValue(d, f); def != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(def)
	}
	if d.Name() == "mysql" && f.IsAutoIncrement() {
		b.WriteString(" AUTO_INCREMENT")
	}
	return b.String()
}

var columnTypes = map[string]map[string]string{
	"mysql": {
		"Int":      "INT",
		"BigInt":   "BIGINT",
		"String":   "VARCHAR(191)",
		"Boolean":  "BOOLEAN",
		"Float":    "DOUBLE",
		"DateTime": "DATETIME(3)",
		"Bytes":    "LONGBLOB",
	},
	"postgresql": {
		"Int":      "INTEGER",
		"BigInt":   "BIGINT",
		"String":   "TEXT",
		"Boolean":  "BOOLEAN",
		"Float":    "DOUBLE PRECISION",
		"DateTime": "TIMESTAMP(3)",
		"Bytes":    "BYTEA",
	},
}

// columnType maps a scalar field to its column type. A @db.X attribute
// overrides the default. PostgreSQL auto-increment keys become SERIAL.
func columnType(d orm.Dialect, f *schema.Field, serial bool) string {
	if t := f.NativeType(); t != "" {
		return t
	}
	if serial && d.Name() == "postgresql" && f.IsAutoIncrement() {
		if f.Type == "BigInt" {
			return "BIGSERIAL"
		}
		return "SERIAL"
	}
	return columnTypes[d.Name()][f.Type]
}

func defaultValue(d orm.Dialect, f *schema.Field) string {
	a := f.Attr("default")
	if a == nil {
		return ""
	}
	v, _ := a.Arg("value", 0)
	switch {
	case v.IsCall("now"):
		return "CURRENT_TIMESTAMP(3)"
	case v.Kind == schema.KindString:
		text := v.Text
		if d.Name() == "mysql" {
			// backslash is an escape character in MySQL string literals
			text = strings.ReplaceAll(text, `\`, `\\`)
		}
		return "'" + strings.ReplaceAll(text, "'", "''") + "'"
	case v.Kind == schema.KindNumber:
		return v.Text
	case v.Kind == schema.KindBool:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	default:
		return ""
	}
}

func quoteList(d orm.Dialect, cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}
