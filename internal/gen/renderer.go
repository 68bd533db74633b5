package gen

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"slices"
	"strconv"
	"strings"
	"text/template"

	"github.com/mickamy/schemagen/internal/naming"
	"github.com/mickamy/schemagen/internal/schema"
)

// Header is the first line of every generated file.
const Header = "// Code generated by schemagen. DO NOT EDIT."

const (
	ormImport   = "github.com/mickamy/schemagen/orm"
	scopeImport = "github.com/mickamy/schemagen/scope"
)

// SchemaFile is the name of the file holding DDL and Migrate in the folder
// client format.
const SchemaFile = "schema_gen.go"

// RenderOption controls the output of Render and RenderSingle.
type RenderOption struct {
	Package string // output package name; "query" when empty
}

// File is one generated Go source file.
type File struct {
	Name    string
	Content []byte
}

// Render generates one file per model (user_gen.go) plus SchemaFile.
// s must have been resolved. The returned sources are formatted by gofmt.
func Render(s *schema.Schema, opt RenderOption) ([]File, error) {
	if len(s.Models) == 0 {
		return nil, errors.New("gen: no models to render")
	}
	pkg := packageName(opt.Package)

	files := make([]File, 0, len(s.Models)+1)
	for _, m := range s.Models {
		u, err := renderModel(s, m)
		if err != nil {
			return nil, err
		}
		src, err := assemble(pkg, u)
		if err != nil {
			return nil, fmt.Errorf("gen: %s: %w", m.Name, err)
		}
		files = append(files, File{Name: naming.CamelToSnake(m.Name) + "_gen.go", Content: src})
	}

	u, err := renderSchema(s)
	if err != nil {
		return nil, err
	}
	src, err := assemble(pkg, u)
	if err != nil {
		return nil, fmt.Errorf("gen: %s: %w", SchemaFile, err)
	}
	return append(files, File{Name: SchemaFile, Content: src}), nil
}

// RenderSingle generates every model and the schema DDL into one source file.
func RenderSingle(s *schema.Schema, opt RenderOption) ([]byte, error) {
	if len(s.Models) == 0 {
		return nil, errors.New("gen: no models to render")
	}
	units := make([]unit, 0, len(s.Models)+1)
	for _, m := range s.Models {
		u, err := renderModel(s, m)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	u, err := renderSchema(s)
	if err != nil {
		return nil, err
	}
	units = append(units, u)

	src, err := assemble(packageName(opt.Package), units...)
	if err != nil {
		return nil, fmt.Errorf("gen: %w", err)
	}
	return src, nil
}

func packageName(pkg string) string {
	if pkg == "" {
		return "query"
	}
	return pkg
}

// unit is a rendered declaration block together with the imports it uses.
type unit struct {
	imports []string
	body    []byte
}

// assemble writes the header, package clause, and merged imports followed by
// the bodies of units, then gofmts the result.
func assemble(pkg string, units ...unit) ([]byte, error) {
	var std, ext []string
	for _, u := range units {
		for _, imp := range u.imports {
			first, _, _ := strings.Cut(imp, "/")
			if strings.Contains(first, ".") {
				if !slices.Contains(ext, imp) {
					ext = append(ext, imp)
				}
			} else if !slices.Contains(std, imp) {
				std = append(std, imp)
			}
		}
	}
	slices.Sort(std)
	slices.Sort(ext)

	var buf bytes.Buffer
	buf.WriteString(Header + "\n\npackage " + pkg + "\n\nimport (\n")
	for _, imp := range std {
		buf.WriteString("\t" + strconv.Quote(imp) + "\n")
	}
	if len(std) > 0 && len(ext) > 0 {
		buf.WriteString("\n")
	}
	for _, imp := range ext {
		buf.WriteString("\t" + strconv.Quote(imp) + "\n")
	}
	buf.WriteString(")\n")
	for _, u := range units {
		buf.WriteString("\n")
		buf.Write(u.body)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("gofmt: %w", err)
	}
	return src, nil
}

type fieldData struct {
	Name    string // Go field name
	GoType  string
	Column  string
	Tag     string
	Pointer bool
}

type relationData struct {
	Kind       string
	Name       string // Go field name: "Posts"
	FieldType  string // "[]Post", "*User"
	Tag        string
	ParentType string // "User"
	TargetType string // "Post"
	Factory    string // target factory: "Posts"
	Preloader  string // "preloadUserPosts"
	KeyType    string // map key type shared by both sides

	// has_many / has_one / belongs_to
	LocalKey     string // Go field on the parent struct
	LocalKeyPtr  bool
	RemoteKey    string // Go field on the target struct
	RemoteKeyPtr bool
	RemoteColumn string // target column filtered with scope.In

	JoinTargetTable  string
	JoinTargetColumn string
	JoinSourceColumn string

	// many_to_many
	JoinTableVar string // "postTagsJoinTable"
	JoinTable    string
	SourceCol    string
	TargetCol    string
	TargetKey    string // PK Go field of the target
	TargetKeyTyp string
	LinkFunc     string
	UnlinkFunc   string
}

type modelData struct {
	Name       string
	Table      string
	Factory    string
	ColumnsVar string
	ScanFunc   string
	ColValFunc string
	SetPKFunc  string
	PK         fieldData
	HasSetPK   bool
	Fields     []fieldData
	NonPK      []fieldData
	Relations  []relationData

	CreatedAtFunc string
	UpdatedAtFunc string
	CreatedAt     []fieldData
	UpdatedAt     []fieldData
}

func (d modelData) HasTimestamps() bool { return len(d.CreatedAt) > 0 || len(d.UpdatedAt) > 0 }

func (d modelData) CreatedAtColumns() []string {
	cols := make([]string, len(d.CreatedAt))
	for i, f := range d.CreatedAt {
		cols[i] = f.Column
	}
	return cols
}

// factoryName is the plural model name ("Users"). Models whose plural is
// taken by a model type or a schema-level declaration get a Query suffix.
func factoryName(s *schema.Schema, m *schema.Model) string {
	name := naming.SnakeToCamel(naming.TableName(m.Name))
	if s.Model(name) != nil || name == "DDL" || name == "Migrate" {
		return m.Name + "Query"
	}
	return name
}

func newFieldData(f *schema.Field) fieldData {
	tag := f.Column
	if f.IsID() {
		tag += ",primaryKey"
	}
	return fieldData{
		Name:    f.GoName,
		GoType:  f.GoType(),
		Column:  f.Column,
		Tag:     "`db:\"" + tag + "\"`",
		Pointer: strings.HasPrefix(f.GoType(), "*"),
	}
}

// keyType strips the pointer of an optional scalar's Go type.
func keyType(f *schema.Field) string {
	return strings.TrimPrefix(f.GoType(), "*")
}

func buildModelData(s *schema.Schema, m *schema.Model) modelData {
	factory := factoryName(s, m)
	pk := m.PrimaryKey()
	d := modelData{
		Name:          m.Name,
		Table:         m.Table,
		Factory:       factory,
		ColumnsVar:    naming.Unexported(factory) + "Columns",
		ScanFunc:      "scan" + m.Name,
		ColValFunc:    naming.Unexported(m.Name) + "ColumnValuePairs",
		SetPKFunc:     "set" + m.Name + "PK",
		PK:            newFieldData(pk),
		HasSetPK:      pk.IsAutoIncrement(),
		CreatedAtFunc: "set" + m.Name + "CreatedAt",
		UpdatedAtFunc: "set" + m.Name + "UpdatedAt",
	}
	for _, f := range m.ScalarFields() {
		fd := newFieldData(f)
		d.Fields = append(d.Fields, fd)
		if !f.IsID() {
			d.NonPK = append(d.NonPK, fd)
		}
		if f.IsCreatedAt() {
			d.CreatedAt = append(d.CreatedAt, fd)
		}
		if f.IsUpdatedAt() {
			d.UpdatedAt = append(d.UpdatedAt, fd)
		}
	}
	for _, f := range m.RelationFields() {
		d.Relations = append(d.Relations, buildRelationData(s, m, f))
	}
	return d
}

func buildRelationData(s *schema.Schema, m *schema.Model, f *schema.Field) relationData {
	rel := f.Relation
	target := rel.Target
	rd := relationData{
		Kind:       string(rel.Kind),
		Name:       f.GoName,
		ParentType: m.Name,
		TargetType: target.Name,
		Factory:    factoryName(s, target),
		Preloader:  "preload" + m.Name + f.GoName,
	}

	switch rel.Kind {
	case schema.HasMany, schema.HasOne:
		fk, ref := rel.ForeignKey(), rel.Reference()
		rd.FieldType = "*" + target.Name
		if rel.Kind == schema.HasMany {
			rd.FieldType = "[]" + target.Name
		}
		rd.Tag = fmt.Sprintf("`db:\"-\" rel:\"%s,foreign_key:%s\"`", rel.Kind, fk.Column)
		rd.KeyType = keyType(ref)
		rd.LocalKey = ref.GoName
		rd.RemoteKey = fk.GoName
		rd.RemoteKeyPtr = fk.Modifier == schema.Optional
		rd.RemoteColumn = fk.Column
		rd.JoinTargetTable = target.Table
		rd.JoinTargetColumn = fk.Column
		rd.JoinSourceColumn = ref.Column
	case schema.BelongsTo:
		fk, ref := rel.ForeignKey(), rel.Reference()
		rd.FieldType = "*" + target.Name
		rd.Tag = fmt.Sprintf("`db:\"-\" rel:\"belongs_to,foreign_key:%s\"`", fk.Column)
		rd.KeyType = keyType(ref)
		rd.LocalKey = fk.GoName
		rd.LocalKeyPtr = fk.Modifier == schema.Optional
		rd.RemoteKey = ref.GoName
		rd.RemoteColumn = ref.Column
		rd.JoinTargetTable = target.Table
		rd.JoinTargetColumn = ref.Column
		rd.JoinSourceColumn = fk.Column
	case schema.ManyToMany:
		pk, tpk := m.PrimaryKey(), target.PrimaryKey()
		rd.FieldType = "[]" + target.Name
		rd.JoinTable = rel.JoinTable
		rd.SourceCol = naming.ForeignKeyColumn(m.Name)
		rd.TargetCol = naming.ForeignKeyColumn(target.Name)
		rd.Tag = fmt.Sprintf("`db:\"-\" rel:\"many_to_many,join_table:%s,foreign_key:%s,references:%s\"`",
			rel.JoinTable, rd.SourceCol, rd.TargetCol)
		rd.KeyType = keyType(pk)
		rd.LocalKey = pk.GoName
		rd.TargetKey = tpk.GoName
		rd.TargetKeyTyp = keyType(tpk)
		rd.RemoteColumn = tpk.Column
		rd.JoinTableVar = naming.Unexported(m.Name) + f.GoName + "JoinTable"
		rd.LinkFunc = "Link" + m.Name + f.GoName
		rd.UnlinkFunc = "Unlink" + m.Name + f.GoName
	}
	return rd
}

func renderModel(s *schema.Schema, m *schema.Model) (unit, error) {
	if m.PrimaryKey() == nil {
		return unit{}, fmt.Errorf("gen: model %s has no @id field", m.Name)
	}
	d := buildModelData(s, m)

	imports := []string{"database/sql", ormImport}
	for _, f := range d.Fields {
		if strings.Contains(f.GoType, "time.") {
			imports = append(imports, "time")
			break
		}
	}
	if d.HasTimestamps() && !slices.Contains(imports, "time") {
		imports = append(imports, "time")
	}
	if len(d.Relations) > 0 {
		imports = append(imports, "context", scopeImport)
	}

	var buf bytes.Buffer
	if err := modelTmpl.Execute(&buf, d); err != nil {
		return unit{}, fmt.Errorf("gen: execute template for %s: %w", m.Name, err)
	}
	return unit{imports: imports, body: buf.Bytes()}, nil
}

type schemaData struct {
	Dialects []dialectDDL
}

type dialectDDL struct {
	Name  string
	Stmts []string
}

func renderSchema(s *schema.Schema) (unit, error) {
	var d schemaData
	for _, name := range Dialects {
		stmts, err := DDL(s, name)
		if err != nil {
			return unit{}, err
		}
		d.Dialects = append(d.Dialects, dialectDDL{Name: name, Stmts: stmts})
	}

	var buf bytes.Buffer
	if err := schemaTmpl.Execute(&buf, d); err != nil {
		return unit{}, fmt.Errorf("gen: execute schema template: %w", err)
	}
	return unit{imports: []string{"context", ormImport}, body: buf.Bytes()}, nil
}

// goString renders s as a Go string literal, raw when possible.
func goString(s string) string {
	if !strings.Contains(s, "`") {
		return "`" + s + "`"
	}
	return strconv.Quote(s)
}

var funcMap = template.FuncMap{
	"join":     strings.Join,
	"quote":    strconv.Quote,
	"goString": goString,
}

var (
	modelTmpl  = template.Must(template.New("model").Funcs(funcMap).Parse(modelTemplate))
	schemaTmpl = template.Must(template.New("schema").Funcs(funcMap).Parse(schemaTemplate))
)

const modelTemplate = `// {{.Name}} is a row of the {{.Table}} table.
type {{.Name}} struct {
	{{- range .Fields}}
	{{.Name}} {{.GoType}} {{.Tag}}
	{{- end}}
	{{- range .Relations}}
	{{.Name}} {{.FieldType}} {{.Tag}}
	{{- end}}
}

// {{.Factory}} returns a new Query for the {{.Table}} table.
func {{.Factory}}(db orm.Querier) *orm.Query[{{.Name}}] {
	q := orm.NewQuery[{{.Name}}](
		db, orm.ResolveTableName[{{.Name}}]("{{.Table}}"), {{.ColumnsVar}}, "{{.PK.Column}}",
		{{.ScanFunc}}, {{.ColValFunc}}, {{if .HasSetPK}}{{.SetPKFunc}}{{else}}nil{{end}},
	)
	{{- range .Relations}}
	{{- if ne .Kind "many_to_many"}}
	q.RegisterJoin("{{.Name}}", orm.JoinConfig{
		TargetTable: orm.ResolveTableName[{{.TargetType}}]("{{.JoinTargetTable}}"), TargetColumn: "{{.JoinTargetColumn}}",
		SourceTable: orm.ResolveTableName[{{.ParentType}}]("{{$.Table}}"), SourceColumn: "{{.JoinSourceColumn}}",
	})
	{{- end}}
	q.RegisterPreloader("{{.Name}}", {{.Preloader}})
	{{- end}}
	{{- if .HasTimestamps}}
	q.RegisterTimestamps(
		{{if .CreatedAt}}[]string{ {{- range $i, $c := .CreatedAtColumns}}{{if $i}}, {{end}}{{quote $c}}{{end -}} }{{else}}nil{{end}},
		{{if .CreatedAt}}{{.CreatedAtFunc}}{{else}}nil{{end}},
		{{if .UpdatedAt}}{{.UpdatedAtFunc}}{{else}}nil{{end}},
	)
	{{- end}}
	return q
}

var {{.ColumnsVar}} = []string{ {{- range $i, $f := .Fields}}{{if $i}}, {{end}}{{quote $f.Column}}{{end -}} }

func {{.ScanFunc}}(rows *sql.Rows) ({{.Name}}, error) {
	cols, _ := rows.Columns()
	var v {{.Name}}
	dest := make([]any, len(cols))
	for i, col := range cols {
		switch col {
		{{- range .Fields}}
		case {{quote .Column}}:
			dest[i] = &v.{{.Name}}
		{{- end}}
		default:
			dest[i] = new(any)
		}
	}
	err := rows.Scan(dest...)
	return v, err
}

func {{.ColValFunc}}(v *{{.Name}}, includesPK bool) ([]string, []any) {
	if includesPK {
		return []string{ {{- range $i, $f := .Fields}}{{if $i}}, {{end}}{{quote $f.Column}}{{end -}} },
			[]any{ {{- range $i, $f := .Fields}}{{if $i}}, {{end}}v.{{$f.Name}}{{end -}} }
	}
	return []string{ {{- range $i, $f := .NonPK}}{{if $i}}, {{end}}{{quote $f.Column}}{{end -}} },
		[]any{ {{- range $i, $f := .NonPK}}{{if $i}}, {{end}}v.{{$f.Name}}{{end -}} }
}
{{if .HasSetPK}}
func {{.SetPKFunc}}(v *{{.Name}}, id int64) {
	v.{{.PK.Name}} = {{.PK.GoType}}(id)
}
{{end}}
{{- if .CreatedAt}}
func {{.CreatedAtFunc}}(v *{{.Name}}, now time.Time) {
	{{- range .CreatedAt}}
	{{- if .Pointer}}
	if v.{{.Name}} == nil {
		v.{{.Name}} = &now
	}
	{{- else}}
	if v.{{.Name}}.IsZero() {
		v.{{.Name}} = now
	}
	{{- end}}
	{{- end}}
}
{{end}}
{{- if .UpdatedAt}}
func {{.UpdatedAtFunc}}(v *{{.Name}}, now time.Time) {
	{{- range .UpdatedAt}}
	{{- if .Pointer}}
	v.{{.Name}} = &now
	{{- else}}
	v.{{.Name}} = now
	{{- end}}
	{{- end}}
}
{{end}}
{{- range .Relations}}
{{- if eq .Kind "has_many"}}
func {{.Preloader}}(ctx context.Context, db orm.Querier, results []{{.ParentType}}) error {
	if len(results) == 0 {
		return nil
	}
	ids := make([]{{.KeyType}}, len(results))
	for i := range results {
		ids[i] = results[i].{{.LocalKey}}
	}
	related, err := {{.Factory}}(db).Scopes(scope.In("{{.RemoteColumn}}", ids)).All(ctx)
	if err != nil {
		return err
	}
	byFK := make(map[{{.KeyType}}][]{{.TargetType}})
	for _, r := range related {
		{{- if .RemoteKeyPtr}}
		if r.{{.RemoteKey}} != nil {
			byFK[*r.{{.RemoteKey}}] = append(byFK[*r.{{.RemoteKey}}], r)
		}
		{{- else}}
		byFK[r.{{.RemoteKey}}] = append(byFK[r.{{.RemoteKey}}], r)
		{{- end}}
	}
	for i := range results {
		results[i].{{.Name}} = byFK[results[i].{{.LocalKey}}]
	}
	return nil
}
{{else if eq .Kind "has_one"}}
func {{.Preloader}}(ctx context.Context, db orm.Querier, results []{{.ParentType}}) error {
	if len(results) == 0 {
		return nil
	}
	ids := make([]{{.KeyType}}, len(results))
	for i := range results {
		ids[i] = results[i].{{.LocalKey}}
	}
	related, err := {{.Factory}}(db).Scopes(scope.In("{{.RemoteColumn}}", ids)).All(ctx)
	if err != nil {
		return err
	}
	byFK := make(map[{{.KeyType}}]*{{.TargetType}})
	for i := range related {
		{{- if .RemoteKeyPtr}}
		if related[i].{{.RemoteKey}} != nil {
			byFK[*related[i].{{.RemoteKey}}] = &related[i]
		}
		{{- else}}
		byFK[related[i].{{.RemoteKey}}] = &related[i]
		{{- end}}
	}
	for i := range results {
		results[i].{{.Name}} = byFK[results[i].{{.LocalKey}}]
	}
	return nil
}
{{else if eq .Kind "belongs_to"}}
func {{.Preloader}}(ctx context.Context, db orm.Querier, results []{{.ParentType}}) error {
	if len(results) == 0 {
		return nil
	}
	{{- if .LocalKeyPtr}}
	ids := make([]{{.KeyType}}, 0, len(results))
	for i := range results {
		if results[i].{{.LocalKey}} != nil {
			ids = append(ids, *results[i].{{.LocalKey}})
		}
	}
	{{- else}}
	ids := make([]{{.KeyType}}, len(results))
	for i := range results {
		ids[i] = results[i].{{.LocalKey}}
	}
	{{- end}}
	related, err := {{.Factory}}(db).Scopes(scope.In("{{.RemoteColumn}}", ids)).All(ctx)
	if err != nil {
		return err
	}
	byPK := make(map[{{.KeyType}}]*{{.TargetType}})
	for i := range related {
		byPK[related[i].{{.RemoteKey}}] = &related[i]
	}
	for i := range results {
		{{- if .LocalKeyPtr}}
		if results[i].{{.LocalKey}} != nil {
			results[i].{{.Name}} = byPK[*results[i].{{.LocalKey}}]
		}
		{{- else}}
		results[i].{{.Name}} = byPK[results[i].{{.LocalKey}}]
		{{- end}}
	}
	return nil
}
{{else}}
func {{.Preloader}}(ctx context.Context, db orm.Querier, results []{{.ParentType}}) error {
	if len(results) == 0 {
		return nil
	}
	ids := make([]{{.KeyType}}, len(results))
	for i := range results {
		ids[i] = results[i].{{.LocalKey}}
	}
	pairs, err := orm.QueryJoinTable[{{.KeyType}}, {{.TargetKeyTyp}}](ctx, db, {{.JoinTableVar}}, ids)
	if err != nil {
		return err
	}
	related, err := {{.Factory}}(db).Scopes(scope.In("{{.RemoteColumn}}", orm.UniqueTargets(pairs))).All(ctx)
	if err != nil {
		return err
	}
	byPK := make(map[{{.TargetKeyTyp}}]{{.TargetType}}, len(related))
	for _, r := range related {
		byPK[r.{{.TargetKey}}] = r
	}
	grouped := orm.GroupBySource(pairs)
	for i := range results {
		tIDs := grouped[results[i].{{.LocalKey}}]
		items := make([]{{.TargetType}}, 0, len(tIDs))
		for _, tid := range tIDs {
			if v, ok := byPK[tid]; ok {
				items = append(items, v)
			}
		}
		results[i].{{.Name}} = items
	}
	return nil
}

var {{.JoinTableVar}} = orm.JoinTable{Table: "{{.JoinTable}}", SourceCol: "{{.SourceCol}}", TargetCol: "{{.TargetCol}}"}

// {{.LinkFunc}} connects the {{.ParentType}} with the given key to each {{.TargetType}} in targets.
func {{.LinkFunc}}(ctx context.Context, db orm.Querier, id {{.KeyType}}, targets ...{{.TargetKeyTyp}}) error {
	return orm.Link(ctx, db, {{.JoinTableVar}}, id, targets...)
}

// {{.UnlinkFunc}} disconnects the {{.ParentType}} with the given key from each {{.TargetType}} in
// targets, or from all of them when targets is empty.
func {{.UnlinkFunc}}(ctx context.Context, db orm.Querier, id {{.KeyType}}, targets ...{{.TargetKeyTyp}}) error {
	return orm.Unlink(ctx, db, {{.JoinTableVar}}, id, targets...)
}
{{end}}
{{- end}}`

const schemaTemplate = `// DDL holds the CREATE statements of the schema keyed by dialect name,
// ordered so that referenced tables come first.
var DDL = map[string][]string{
	{{- range .Dialects}}
	"{{.Name}}": {
		{{- range .Stmts}}
		{{goString .}},
		{{- end}}
	},
	{{- end}}
}

// Migrate creates every table of the schema on db.
func Migrate(ctx context.Context, db orm.Querier) error {
	return orm.Migrate(ctx, db, DDL)
}
`
