package orm

// TableNamer can be implemented by model structs to override the table
// name baked into generated code. Generated files are rewritten on every
// run, so declare the method in a separate file of the same package.
type TableNamer interface {
	TableName() string
}

// ResolveTableName returns the table name for type T: the result of
// TableName when T implements TableNamer (value or pointer receiver),
// otherwise generated, the name derived from the schema (@@map or the
// pluralised model name).
func ResolveTableName[T any](generated string) string {
	var zero T
	if tn, ok := any(&zero).(TableNamer); ok {
		return tn.TableName()
	}
	return generated
}
