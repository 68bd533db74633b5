package schema

import (
	"fmt"
	"strings"
)

// Pos is a 1-based line/column position in the schema source.
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Col) }

// Error is a parse or validation error tied to a source position.
type Error struct {
	Pos Pos
	Msg string
}

func (e *Error) Error() string { return "schema: " + e.Pos.String() + ": " + e.Msg }

func errorf(pos Pos, format string, args ...any) *Error {
	return &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// ValueKind identifies the shape of a Value.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
	KindIdent
	KindArray
	KindCall
)

// Value is a literal or expression appearing on the right-hand side of a
// property or inside attribute arguments.
type Value struct {
	Kind  ValueKind
	Text  string  // string contents, number text, identifier, or function name
	Bool  bool    // KindBool only
	Items []Value // array elements or call arguments
	Pos   Pos
}

// EnvVar reports the variable name when v is env("NAME").
func (v Value) EnvVar() (string, bool) {
	if v.Kind != KindCall || v.Text != "env" || len(v.Items) != 1 || v.Items[0].Kind != KindString {
		return "", false
	}
	return v.Items[0].Text, true
}

// IsCall reports whether v is a call to the named function.
func (v Value) IsCall(name string) bool {
	return v.Kind == KindCall && v.Text == name
}

// Idents returns the identifiers of an array value such as [userId, id].
// A bare identifier is treated as a one-element array.
func (v Value) Idents() []string {
	switch v.Kind {
	case KindIdent:
		return []string{v.Text}
	case KindArray:
		out := make([]string, 0, len(v.Items))
		for _, it := range v.Items {
			if it.Kind == KindIdent {
				out = append(out, it.Text)
			}
		}
		return out
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return fmt.Sprintf("%q", v.Text)
	case KindBool:
		return fmt.Sprint(v.Bool)
	case KindArray, KindCall:
		parts := make([]string, len(v.Items))
		for i, it := range v.Items {
			parts[i] = it.String()
		}
		if v.Kind == KindArray {
			return "[" + strings.Join(parts, ", ") + "]"
		}
		return v.Text + "(" + strings.Join(parts, ", ") + ")"
	default:
		return v.Text
	}
}

// Arg is one attribute argument, optionally named (`onDelete: Cascade`).
type Arg struct {
	Name  string
	Value Value
}

// Attribute is a field attribute (@id) or a block attribute (@@map).
type Attribute struct {
	Name string
	Args []Arg
	Pos  Pos
}

// Arg returns the argument with the given name, falling back to the
// positional (unnamed) argument at index. Pass index < 0 to disable the
// positional fallback.
func (a *Attribute) Arg(name string, index int) (Value, bool) {
	for _, arg := range a.Args {
		if arg.Name == name {
			return arg.Value, true
		}
	}
	if index < 0 {
		return Value{}, false
	}
	n := 0
	for _, arg := range a.Args {
		if arg.Name != "" {
			continue
		}
		if n == index {
			return arg.Value, true
		}
		n++
	}
	return Value{}, false
}

// Property is a `key = value` line inside a datasource or generator block.
type Property struct {
	Key   string
	Value Value
	Pos   Pos
}

// Datasource is a `datasource <name> { ... }` block.
type Datasource struct {
	Name       string
	Provider   string
	URL        Value
	Properties []Property
	Pos        Pos
}

// Generator is a `generator <name> { ... }` block.
type Generator struct {
	Name       string
	Provider   Value
	Output     *Value
	Config     map[string]string
	Properties []Property
	Pos        Pos
}

// Modifier is the arity of a field type.
type Modifier int

const (
	Required Modifier = iota
	Optional          // Type?
	List              // Type[]
)

// Field is one line of a model block.
type Field struct {
	Name       string
	Type       string
	Modifier   Modifier
	Attributes []Attribute
	Pos        Pos

	// Populated by Resolve.
	Column   string
	GoName   string
	Relation *Relation
}

// Attr returns the first attribute with the given name, or nil.
func (f *Field) Attr(name string) *Attribute {
	for i := range f.Attributes {
		if f.Attributes[i].Name == name {
			return &f.Attributes[i]
		}
	}
	return nil
}

// IsID reports whether the field carries @id.
func (f *Field) IsID() bool { return f.Attr("id") != nil }

// IsUnique reports whether the field carries @unique or @id.
func (f *Field) IsUnique() bool { return f.IsID() || f.Attr("unique") != nil }

// IsScalar reports whether the field's type is a built-in scalar.
func (f *Field) IsScalar() bool {
	_, ok := scalarTypes[f.Type]
	return ok
}

// IsAutoIncrement reports whether the field is @default(autoincrement()).
func (f *Field) IsAutoIncrement() bool {
	d := f.Attr("default")
	if d == nil {
		return false
	}
	v, ok := d.Arg("value", 0)
	return ok && v.IsCall("autoincrement")
}

// IsCreatedAt reports whether the field is a DateTime @default(now()).
func (f *Field) IsCreatedAt() bool {
	d := f.Attr("default")
	if d == nil || f.Type != "DateTime" {
		return false
	}
	v, ok := d.Arg("value", 0)
	return ok && v.IsCall("now")
}

// IsUpdatedAt reports whether the field carries @updatedAt.
func (f *Field) IsUpdatedAt() bool { return f.Attr("updatedAt") != nil }

// GoType returns the Go type used for a scalar field. Optional scalars
// become pointers, except Bytes whose nil slice already means NULL.
func (f *Field) GoType() string {
	st, ok := scalarTypes[f.Type]
	if !ok {
		return ""
	}
	if f.Modifier == Optional && f.Type != "Bytes" {
		return "*" + st.goType
	}
	return st.goType
}

// NativeType returns the column type override from a @db.X(args)
// attribute, e.g. @db.VarChar(255) → "VARCHAR(255)".
func (f *Field) NativeType() string {
	for _, a := range f.Attributes {
		name, ok := strings.CutPrefix(a.Name, "db.")
		if !ok {
			continue
		}
		typ := strings.ToUpper(name)
		if len(a.Args) == 0 {
			return typ
		}
		parts := make([]string, len(a.Args))
		for i, arg := range a.Args {
			parts[i] = arg.Value.Text
		}
		return typ + "(" + strings.Join(parts, ", ") + ")"
	}
	return ""
}

// Index is a resolved @@index or @@unique block attribute.
type Index struct {
	Columns []string
	Unique  bool
}

// Model is a `model <Name> { ... }` block.
type Model struct {
	Name       string
	Fields     []*Field
	Attributes []Attribute
	Pos        Pos

	// Populated by Resolve.
	Table   string
	Indexes []Index
}

// Field returns the field with the given name, or nil.
func (m *Model) Field(name string) *Field {
	for _, f := range m.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Attr returns the first block attribute with the given name, or nil.
func (m *Model) Attr(name string) *Attribute {
	for i := range m.Attributes {
		if m.Attributes[i].Name == name {
			return &m.Attributes[i]
		}
	}
	return nil
}

// PrimaryKey returns the @id field, or nil.
func (m *Model) PrimaryKey() *Field {
	for _, f := range m.Fields {
		if f.IsID() {
			return f
		}
	}
	return nil
}

// ScalarFields returns the fields that map to columns.
func (m *Model) ScalarFields() []*Field {
	var out []*Field
	for _, f := range m.Fields {
		if f.IsScalar() {
			out = append(out, f)
		}
	}
	return out
}

// RelationFields returns the fields that navigate to other models.
func (m *Model) RelationFields() []*Field {
	var out []*Field
	for _, f := range m.Fields {
		if f.Relation != nil {
			out = append(out, f)
		}
	}
	return out
}

// Schema is a parsed schema file.
type Schema struct {
	Datasources []*Datasource
	Generators  []*Generator
	Models      []*Model
}

// Model returns the model with the given name, or nil.
func (s *Schema) Model(name string) *Model {
	for _, m := range s.Models {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Datasource returns the single datasource block, or nil.
func (s *Schema) Datasource() *Datasource {
	if len(s.Datasources) == 0 {
		return nil
	}
	return s.Datasources[0]
}

// Generator returns the generator with the given name, or the first one
// when name is empty. Returns nil when none match.
func (s *Schema) Generator(name string) *Generator {
	for _, g := range s.Generators {
		if name == "" || g.Name == name {
			return g
		}
	}
	return nil
}

type scalarType struct {
	goType string
}

var scalarTypes = map[string]scalarType{
	"Int":      {goType: "int"},
	"BigInt":   {goType: "int64"},
	"String":   {goType: "string"},
	"Boolean":  {goType: "bool"},
	"Float":    {goType: "float64"},
	"DateTime": {goType: "time.Time"},
	"Bytes":    {goType: "[]byte"},
}
