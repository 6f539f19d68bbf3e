package naming

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/jinzhu/inflection"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Namer derives database identifiers from declared class and attribute names.
type Namer interface {
	TableName(className string) string
	ColumnName(attrName string) string
	IndexName(table string, columns ...string) string
	UniqueName(table string, columns ...string) string
	ForeignKeyName(table, column string) string
}

// NamingStrategy is the default Namer: snake_case identifiers, optionally
// prefixed and pluralized table names.
type NamingStrategy struct {
	TablePrefix     string
	PluralizeTables bool
}

// TableName converts a class name to a table name.
func (ns NamingStrategy) TableName(className string) string {
	if ns.PluralizeTables {
		return ns.TablePrefix + inflection.Plural(SnakeCase(className))
	}
	return ns.TablePrefix + SnakeCase(className)
}

// ColumnName converts an attribute name to a column name.
func (ns NamingStrategy) ColumnName(attrName string) string {
	return SnakeCase(attrName)
}

// IndexName generates a composite index name.
func (ns NamingStrategy) IndexName(table string, columns ...string) string {
	return fmt.Sprintf("ix_%s_%s", table, strings.Join(columns, "_"))
}

// UniqueName generates a composite unique constraint name.
func (ns NamingStrategy) UniqueName(table string, columns ...string) string {
	return fmt.Sprintf("uq_%s_%s", table, strings.Join(columns, "_"))
}

// ForeignKeyName generates a foreign key constraint name.
func (ns NamingStrategy) ForeignKeyName(table, column string) string {
	return fmt.Sprintf("fk_%s_%s", table, column)
}

var (
	smap sync.Map

	lowerToUpper = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	upperToLower = regexp.MustCompile(`([A-Z])([A-Z][a-z])`)

	titleCaser = cases.Title(language.English)
)

// SnakeCase converts a CamelCase name to snake_case:
//
//	SnakeCase("OneTwoThree")      // "one_two_three"
//	SnakeCase("getHTTPResponse2") // "get_http_response2"
func SnakeCase(name string) string {
	if name == "" {
		return ""
	}
	if v, ok := smap.Load(name); ok {
		return v.(string)
	}

	s := strings.NewReplacer("-", "_", " ", "_").Replace(name)
	s = lowerToUpper.ReplaceAllString(s, "${1}_${2}")
	s = upperToLower.ReplaceAllString(s, "${1}_${2}")
	s = strings.ToLower(s)

	smap.Store(name, s)
	return s
}

// TitleCase converts a snake_case identifier to a human readable title:
//
//	TitleCase("created_at") // "Created At"
func TitleCase(name string) string {
	if name == "" {
		return ""
	}
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	for i, w := range words {
		words[i] = titleCaser.String(w)
	}
	return strings.Join(words, " ")
}
