package schema

import (
	"github.com/declarative-go/declarative/mapper"
)

type foreignKeyConfig struct {
	column     string
	typ        mapper.Type
	primaryKey bool
	nullable   bool
	onDelete   string
	onUpdate   string
}

// ForeignKeyOption configures a column built by ForeignKeyColumn.
type ForeignKeyOption func(*foreignKeyConfig)

// WithFKColumn overrides the referenced column, which defaults to the
// registry's primary key column name.
func WithFKColumn(name string) ForeignKeyOption {
	return func(c *foreignKeyConfig) { c.column = name }
}

// WithFKType overrides the column type, which defaults to BigInteger.
func WithFKType(t mapper.Type) ForeignKeyOption {
	return func(c *foreignKeyConfig) { c.typ = t }
}

// AsPrimaryKey marks the foreign key column as (part of) the primary key.
func AsPrimaryKey() ForeignKeyOption {
	return func(c *foreignKeyConfig) { c.primaryKey = true }
}

// Nullable makes the foreign key column nullable. Foreign keys are NOT NULL
// by default.
func Nullable() ForeignKeyOption {
	return func(c *foreignKeyConfig) { c.nullable = true }
}

// OnDelete sets the referential delete action, e.g. "CASCADE".
func OnDelete(action string) ForeignKeyOption {
	return func(c *foreignKeyConfig) { c.onDelete = action }
}

// OnUpdate sets the referential update action.
func OnUpdate(action string) ForeignKeyOption {
	return func(c *foreignKeyConfig) { c.onUpdate = action }
}

// ForeignKeyColumn builds a foreign key column referencing target. When
// target names a declared model, the reference resolves to that model's
// table; otherwise target is taken as a table name verbatim.
func (r *Registry) ForeignKeyColumn(target string, opts ...ForeignKeyOption) *mapper.Column {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg := foreignKeyConfig{
		column: r.DefaultPrimaryKeyColumn,
		typ:    mapper.BigInteger,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	table := target
	if cls, ok := r.latest[target]; ok {
		switch {
		case cls.Table != nil:
			table = cls.Table.Name
		case cls.Body.Tablename != "":
			table = cls.Body.Tablename
		default:
			table = r.namer.TableName(cls.Name)
		}
	}

	return &mapper.Column{
		Type:       cfg.typ,
		PrimaryKey: cfg.primaryKey,
		NotNull:    !cfg.nullable && !cfg.primaryKey,
		ForeignKey: &mapper.ForeignKey{
			Table:    table,
			Column:   cfg.column,
			OnDelete: cfg.onDelete,
			OnUpdate: cfg.onUpdate,
		},
	}
}
