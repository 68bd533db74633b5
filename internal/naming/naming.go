package naming

import (
	"sort"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// CamelToSnake converts a CamelCase or lowerCamel string to snake_case.
// Consecutive uppercase letters (acronyms) are kept together:
// "ID" → "id", "userId" → "user_id", "HTTPServer" → "http_server".
func CamelToSnake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				next := rune(0)
				if i+1 < len(runes) {
					next = runes[i+1]
				}
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && unicode.IsLower(next)) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// initialisms are snake segments rendered fully upper-case in Go names.
var initialisms = map[string]bool{
	"id":   true,
	"url":  true,
	"uuid": true,
	"api":  true,
	"http": true,
	"json": true,
	"sql":  true,
}

// SnakeToCamel converts snake_case to an exported CamelCase Go identifier.
// "user_id" → "UserID", "posts" → "Posts".
func SnakeToCamel(s string) string {
	var b strings.Builder
	for _, part := range strings.Split(s, "_") {
		if part == "" {
			continue
		}
		if initialisms[part] {
			b.WriteString(strings.ToUpper(part))
			continue
		}
		runes := []rune(part)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return b.String()
}

// GoName converts a schema field name to an exported Go field name.
// "id" → "ID", "userId" → "UserID", "createdAt" → "CreatedAt".
func GoName(field string) string {
	return SnakeToCamel(CamelToSnake(field))
}

// TableName derives the default table name for a model: snake_case, plural.
// "User" → "users", "UserProfile" → "user_profiles".
func TableName(model string) string {
	return inflection.Plural(CamelToSnake(model))
}

// ForeignKeyColumn returns the conventional column referencing model's PK.
// "User" → "user_id".
func ForeignKeyColumn(model string) string {
	return CamelToSnake(model) + "_id"
}

// JoinTableName returns the join table for an implicit many-to-many between
// two models. The order of the arguments does not matter:
// ("Tag", "Post") → "post_tags".
func JoinTableName(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return CamelToSnake(pair[0]) + "_" + TableName(pair[1])
}

// Unexported lower-cases the first rune: "ScanUser" → "scanUser".
func Unexported(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}
