package schema

import (
	"errors"
	"fmt"

	"github.com/mickamy/schemagen/internal/naming"
)

// ErrInvalid wraps every validation failure returned by Resolve.
var ErrInvalid = errors.New("schema: invalid")

// Providers lists the supported datasource providers.
var Providers = []string{"postgresql", "mysql"}

// RelationKind classifies a relation field from its own model's side.
type RelationKind string

const (
	HasMany    RelationKind = "has_many"
	HasOne     RelationKind = "has_one"
	BelongsTo  RelationKind = "belongs_to"
	ManyToMany RelationKind = "many_to_many"
)

// Action is a referential action for onDelete / onUpdate.
type Action string

const (
	Cascade    Action = "Cascade"
	Restrict   Action = "Restrict"
	NoAction   Action = "NoAction"
	SetNull    Action = "SetNull"
	SetDefault Action = "SetDefault"
)

// SQL returns the action as it appears in a FOREIGN KEY clause.
func (a Action) SQL() string {
	switch a {
	case Cascade:
		return "CASCADE"
	case Restrict:
		return "RESTRICT"
	case SetNull:
		return "SET NULL"
	case SetDefault:
		return "SET DEFAULT"
	default:
		return "NO ACTION"
	}
}

var actions = map[string]Action{
	"Cascade":    Cascade,
	"Restrict":   Restrict,
	"NoAction":   NoAction,
	"SetNull":    SetNull,
	"SetDefault": SetDefault,
}

// Relation is the resolved metadata of a relation field.
//
// For belongs_to, Fields are the foreign key fields on the field's own
// model and References the referenced fields on Target. For has_many and
// has_one the same two slices are shared with the back field, so Fields
// live on Target.
type Relation struct {
	Kind       RelationKind
	Name       string
	Target     *Model
	Back       *Field
	Fields     []*Field
	References []*Field
	OnDelete   Action
	OnUpdate   Action
	JoinTable  string // many_to_many only
}

// ForeignKey returns the single foreign key field of a one-to-many or
// one-to-one relation.
func (r *Relation) ForeignKey() *Field { return r.Fields[0] }

// Reference returns the single referenced field of a one-to-many or
// one-to-one relation.
func (r *Relation) Reference() *Field { return r.References[0] }

// Load parses and resolves the schema file at path.
func Load(path string) (*Schema, error) {
	s, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	if err := Resolve(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Resolve validates s and annotates it with table names, column names, Go
// names, and relation metadata. All violations are reported together.
func Resolve(s *Schema) error {
	r := &resolver{s: s}
	r.checkDatasources()
	r.checkGenerators()
	r.checkModels()
	if len(r.errs) == 0 {
		r.resolveRelations()
	}
	if len(r.errs) == 0 {
		r.resolveIndexes()
	}
	if len(r.errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(r.errs...))
	}
	return nil
}

type resolver struct {
	s    *Schema
	errs []error
}

func (r *resolver) addf(pos Pos, format string, args ...any) {
	r.errs = append(r.errs, errorf(pos, format, args...))
}

func (r *resolver) checkDatasources() {
	switch len(r.s.Datasources) {
	case 0:
		r.addf(Pos{Line: 1, Col: 1}, "a datasource block is required")
		return
	case 1:
	default:
		r.addf(r.s.Datasources[1].Pos, "only one datasource block is allowed")
	}

	ds := r.s.Datasources[0]
	if ds.Provider == "" {
		r.addf(ds.Pos, "datasource %s: provider is required", ds.Name)
	} else if !isProvider(ds.Provider) {
		r.addf(ds.Pos, "datasource %s: unsupported provider %q (use %q or %q)", ds.Name, ds.Provider, Providers[0], Providers[1])
	}
	if ds.URL.Kind != KindCall && ds.URL.Text == "" {
		r.addf(ds.Pos, "datasource %s: url is required", ds.Name)
	}
}

func isProvider(p string) bool {
	for _, v := range Providers {
		if v == p {
			return true
		}
	}
	return false
}

func (r *resolver) checkGenerators() {
	if len(r.s.Generators) == 0 {
		r.addf(Pos{Line: 1, Col: 1}, "a generator block is required")
	}
	seen := map[string]bool{}
	for _, g := range r.s.Generators {
		if seen[g.Name] {
			r.addf(g.Pos, "duplicate generator %q", g.Name)
		}
		seen[g.Name] = true
		if g.Provider.Text == "" {
			r.addf(g.Pos, "generator %s: provider is required", g.Name)
		}
		if g.Output != nil {
			if _, ok := g.Output.EnvVar(); !ok && g.Output.Kind != KindString {
				r.addf(g.Output.Pos, `generator %s: output must be a string or env("NAME")`, g.Name)
			}
		}
	}
}

func (r *resolver) checkModels() {
	seen := map[string]bool{}
	tables := map[string]string{}
	for _, m := range r.s.Models {
		if seen[m.Name] {
			r.addf(m.Pos, "duplicate model %q", m.Name)
		}
		seen[m.Name] = true

		m.Table = naming.TableName(m.Name)
		if a := m.Attr("map"); a != nil {
			if v, ok := a.Arg("name", 0); ok && v.Kind == KindString {
				m.Table = v.Text
			} else {
				r.addf(a.Pos, "%s: @@map requires a string argument", m.Name)
			}
		}
		if other, dup := tables[m.Table]; dup {
			r.addf(m.Pos, "models %s and %s both map to table %q", other, m.Name, m.Table)
		}
		tables[m.Table] = m.Name

		r.checkFields(m)
	}
}

func (r *resolver) checkFields(m *Model) {
	seen := map[string]bool{}
	columns := map[string]string{}
	ids := 0

	for _, f := range m.Fields {
		if seen[f.Name] {
			r.addf(f.Pos, "%s: duplicate field %q", m.Name, f.Name)
		}
		seen[f.Name] = true
		f.GoName = naming.GoName(f.Name)

		if !f.IsScalar() {
			if r.s.Model(f.Type) == nil {
				r.addf(f.Pos, "%s.%s: unknown type %q", m.Name, f.Name, f.Type)
			}
			for _, a := range f.Attributes {
				if a.Name != "relation" {
					r.addf(a.Pos, "%s.%s: @%s is not allowed on a relation field", m.Name, f.Name, a.Name)
				}
			}
			continue
		}

		if f.Modifier == List {
			r.addf(f.Pos, "%s.%s: scalar lists are not supported", m.Name, f.Name)
		}

		f.Column = naming.CamelToSnake(f.Name)
		if a := f.Attr("map"); a != nil {
			if v, ok := a.Arg("name", 0); ok && v.Kind == KindString {
				f.Column = v.Text
			} else {
				r.addf(a.Pos, "%s.%s: @map requires a string argument", m.Name, f.Name)
			}
		}
		if other, dup := columns[f.Column]; dup {
			r.addf(f.Pos, "%s: fields %s and %s both map to column %q", m.Name, other, f.Name, f.Column)
		}
		columns[f.Column] = f.Name

		if f.IsID() {
			ids++
			if f.Modifier == Optional {
				r.addf(f.Pos, "%s.%s: @id field cannot be optional", m.Name, f.Name)
			}
		}
		if f.Attr("relation") != nil {
			r.addf(f.Pos, "%s.%s: @relation is only allowed on relation fields", m.Name, f.Name)
		}
		r.checkDefault(m, f)
		if f.IsUpdatedAt() && f.Type != "DateTime" {
			r.addf(f.Pos, "%s.%s: @updatedAt requires a DateTime field", m.Name, f.Name)
		}
	}

	switch {
	case ids == 0:
		r.addf(m.Pos, "%s: exactly one @id field is required", m.Name)
	case ids > 1:
		r.addf(m.Pos, "%s: composite or multiple @id fields are not supported", m.Name)
	}
}

func (r *resolver) checkDefault(m *Model, f *Field) {
	d := f.Attr("default")
	if d == nil {
		return
	}
	v, ok := d.Arg("value", 0)
	if !ok {
		r.addf(d.Pos, "%s.%s: @default requires a value", m.Name, f.Name)
		return
	}
	switch {
	case v.IsCall("autoincrement"):
		if !f.IsID() || (f.Type != "Int" && f.Type != "BigInt") {
			r.addf(d.Pos, "%s.%s: autoincrement() is only allowed on an Int or BigInt @id", m.Name, f.Name)
		}
	case v.IsCall("now"):
		if f.Type != "DateTime" {
			r.addf(d.Pos, "%s.%s: now() requires a DateTime field", m.Name, f.Name)
		}
	case v.Kind == KindCall:
		r.addf(d.Pos, "%s.%s: unsupported default function %s()", m.Name, f.Name, v.Text)
	case v.Kind == KindString && f.Type != "String":
		r.addf(d.Pos, "%s.%s: string default on %s field", m.Name, f.Name, f.Type)
	case v.Kind == KindNumber && f.Type != "Int" && f.Type != "BigInt" && f.Type != "Float":
		r.addf(d.Pos, "%s.%s: numeric default on %s field", m.Name, f.Name, f.Type)
	case v.Kind == KindBool && f.Type != "Boolean":
		r.addf(d.Pos, "%s.%s: boolean default on %s field", m.Name, f.Name, f.Type)
	case v.Kind == KindArray || v.Kind == KindIdent:
		r.addf(d.Pos, "%s.%s: unsupported default value %s", m.Name, f.Name, v)
	}
}

// relationName returns the disambiguating name of a relation field:
// @relation("Name") or @relation(name: "Name").
func relationName(f *Field) string {
	a := f.Attr("relation")
	if a == nil {
		return ""
	}
	if v, ok := a.Arg("name", 0); ok && v.Kind == KindString {
		return v.Text
	}
	return ""
}

func hasRelationFields(f *Field) bool {
	a := f.Attr("relation")
	if a == nil {
		return false
	}
	_, ok := a.Arg("fields", -1)
	return ok
}

func (r *resolver) resolveRelations() {
	done := map[*Field]bool{}
	for _, m := range r.s.Models {
		for _, f := range m.Fields {
			if f.IsScalar() || done[f] {
				continue
			}
			target := r.s.Model(f.Type)
			name := relationName(f)

			var backs []*Field
			for _, bf := range target.Fields {
				if bf == f || bf.Type != m.Name || relationName(bf) != name {
					continue
				}
				backs = append(backs, bf)
			}
			if len(backs) != 1 {
				r.addf(f.Pos, "%s.%s: expected exactly one opposite relation field in %s, found %d", m.Name, f.Name, target.Name, len(backs))
				done[f] = true
				continue
			}
			back := backs[0]
			done[f], done[back] = true, true
			r.pair(m, f, target, back, name)
		}
	}
}

func (r *resolver) pair(m *Model, f *Field, target *Model, back *Field, name string) {
	fOwns, bOwns := hasRelationFields(f), hasRelationFields(back)

	switch {
	case fOwns && bOwns:
		r.addf(f.Pos, "%s.%s: only one side of a relation may define fields and references", m.Name, f.Name)
	case !fOwns && !bOwns:
		if f.Modifier == List && back.Modifier == List {
			if m == target {
				r.addf(f.Pos, "%s.%s: implicit many-to-many relations to the same model are not supported", m.Name, f.Name)
				return
			}
			joinTable := naming.JoinTableName(m.Name, target.Name)
			f.Relation = &Relation{Kind: ManyToMany, Name: name, Target: target, Back: back, JoinTable: joinTable, OnDelete: Cascade, OnUpdate: Cascade}
			back.Relation = &Relation{Kind: ManyToMany, Name: name, Target: m, Back: f, JoinTable: joinTable, OnDelete: Cascade, OnUpdate: Cascade}
			return
		}
		r.addf(f.Pos, "%s.%s: relation with %s needs @relation(fields: [...], references: [...]) on one side", m.Name, f.Name, target.Name)
	case fOwns:
		r.owner(m, f, target, back, name)
	default:
		r.owner(target, back, m, f, name)
	}
}

// owner resolves a one-to-many or one-to-one relation whose foreign key
// lives on om.of and references tm.
func (r *resolver) owner(om *Model, of *Field, tm *Model, tf *Field, name string) {
	where := om.Name + "." + of.Name
	if of.Modifier == List {
		r.addf(of.Pos, "%s: a list field cannot hold foreign keys", where)
		return
	}
	attr := of.Attr("relation")
	fieldsVal, _ := attr.Arg("fields", -1)
	refsVal, ok := attr.Arg("references", -1)
	if !ok {
		r.addf(attr.Pos, "%s: @relation with fields also requires references", where)
		return
	}

	fieldNames, refNames := fieldsVal.Idents(), refsVal.Idents()
	if len(fieldNames) == 0 || len(fieldNames) != len(refNames) {
		r.addf(attr.Pos, "%s: fields and references must be non-empty and of equal length", where)
		return
	}
	if len(fieldNames) > 1 {
		r.addf(attr.Pos, "%s: composite foreign keys are not supported", where)
		return
	}

	fk := om.Field(fieldNames[0])
	ref := tm.Field(refNames[0])
	switch {
	case fk == nil || !fk.IsScalar():
		r.addf(attr.Pos, "%s: unknown scalar field %q in fields", where, fieldNames[0])
		return
	case ref == nil || !ref.IsScalar():
		r.addf(attr.Pos, "%s: unknown scalar field %q in %s references", where, refNames[0], tm.Name)
		return
	case !ref.IsUnique():
		r.addf(attr.Pos, "%s: referenced field %s.%s must be @id or @unique", where, tm.Name, ref.Name)
	case ref.Modifier == Optional:
		r.addf(attr.Pos, "%s: referenced field %s.%s must be required", where, tm.Name, ref.Name)
	case fk.Type != ref.Type:
		r.addf(attr.Pos, "%s: field %s (%s) and reference %s.%s (%s) have different types", where, fk.Name, fk.Type, tm.Name, ref.Name, ref.Type)
	}
	if (of.Modifier == Optional) != (fk.Modifier == Optional) {
		r.addf(of.Pos, "%s: relation field and foreign key %s must both be optional or both required", where, fk.Name)
	}

	kind := HasMany
	if tf.Modifier != List {
		kind = HasOne
		if tf.Modifier != Optional {
			r.addf(tf.Pos, "%s.%s: the back side of a one-to-one relation must be optional", tm.Name, tf.Name)
		}
		if !fk.IsUnique() {
			r.addf(fk.Pos, "%s.%s: a one-to-one foreign key must be @unique", om.Name, fk.Name)
		}
	}

	onDelete, onUpdate := Restrict, Cascade
	if of.Modifier == Optional {
		onDelete = SetNull
	}
	if v, ok := attr.Arg("onDelete", -1); ok {
		onDelete = r.action(attr.Pos, where, "onDelete", v, fk)
	}
	if v, ok := attr.Arg("onUpdate", -1); ok {
		onUpdate = r.action(attr.Pos, where, "onUpdate", v, fk)
	}

	fields, refs := []*Field{fk}, []*Field{ref}
	of.Relation = &Relation{
		Kind: BelongsTo, Name: name, Target: tm, Back: tf,
		Fields: fields, References: refs, OnDelete: onDelete, OnUpdate: onUpdate,
	}
	tf.Relation = &Relation{
		Kind: kind, Name: name, Target: om, Back: of,
		Fields: fields, References: refs, OnDelete: onDelete, OnUpdate: onUpdate,
	}
}

func (r *resolver) action(pos Pos, where, key string, v Value, fk *Field) Action {
	a, ok := actions[v.Text]
	if v.Kind != KindIdent || !ok {
		r.addf(pos, "%s: unknown %s action %s", where, key, v)
		return NoAction
	}
	if a == SetNull && fk.Modifier != Optional {
		r.addf(pos, "%s: %s: SetNull requires optional field %s", where, key, fk.Name)
	}
	return a
}

func (r *resolver) resolveIndexes() {
	for _, m := range r.s.Models {
		for _, a := range m.Attributes {
			var unique bool
			switch a.Name {
			case "index":
			case "unique":
				unique = true
			case "map":
				continue
			default:
				r.addf(a.Pos, "%s: unsupported block attribute @@%s", m.Name, a.Name)
				continue
			}
			v, ok := a.Arg("fields", 0)
			names := v.Idents()
			if !ok || len(names) == 0 {
				r.addf(a.Pos, "%s: @@%s requires a list of fields", m.Name, a.Name)
				continue
			}
			idx := Index{Unique: unique}
			for _, n := range names {
				f := m.Field(n)
				if f == nil || !f.IsScalar() {
					r.addf(a.Pos, "%s: @@%s references unknown scalar field %q", m.Name, a.Name, n)
					continue
				}
				idx.Columns = append(idx.Columns, f.Column)
			}
			m.Indexes = append(m.Indexes, idx)
		}
	}
}
