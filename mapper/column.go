package mapper

import "github.com/declarative-go/declarative/validation"

// Type is the abstract column type understood by the mapper contract. SQL
// rendering of these types belongs to the wrapped engine.
type Type string

const (
	String     Type = "string"
	Text       Type = "text"
	Integer    Type = "integer"
	BigInteger Type = "biginteger"
	Float      Type = "float"
	Numeric    Type = "numeric"
	Boolean    Type = "boolean"
	DateTime   Type = "datetime"
	Date       Type = "date"
	JSON       Type = "json"
)

// ForeignKey references a column of another table.
type ForeignKey struct {
	Table    string
	Column   string
	OnDelete string
	OnUpdate string
}

// Column describes one mapped column. Name is filled in from the owning
// attribute name during class construction when left empty.
type Column struct {
	Name          string
	Type          Type
	PrimaryKey    bool
	NotNull       bool
	Unique        bool
	Index         bool
	Default       interface{}
	ServerDefault string
	OnUpdate      string
	ForeignKey    *ForeignKey
	Validators    []validation.Validator
}

// HasForeignKey reports whether the column references another table.
func (c *Column) HasForeignKey() bool {
	return c.ForeignKey != nil
}

// Clone returns a copy safe to attach to a different class.
func (c *Column) Clone() *Column {
	dup := *c
	if c.ForeignKey != nil {
		fk := *c.ForeignKey
		dup.ForeignKey = &fk
	}
	if len(c.Validators) > 0 {
		dup.Validators = append([]validation.Validator(nil), c.Validators...)
	}
	return &dup
}

// ColumnProperty maps one attribute onto several columns at once, e.g. a
// joined-table primary key that is simultaneously a foreign key to the
// parent's primary key column.
type ColumnProperty struct {
	Columns []*Column
}

// Primary returns the first column of the property.
func (p *ColumnProperty) Primary() *Column {
	if len(p.Columns) == 0 {
		return nil
	}
	return p.Columns[0]
}

// Clone returns a copy with the columns cloned.
func (p *ColumnProperty) Clone() *ColumnProperty {
	dup := &ColumnProperty{Columns: make([]*Column, len(p.Columns))}
	for i, c := range p.Columns {
		dup.Columns[i] = c.Clone()
	}
	return dup
}

// Relationship declares a mapped relationship to another model, referenced
// by class name so targets may be declared later.
type Relationship struct {
	Target        string
	BackPopulates string
	Backref       string
	Uselist       bool
	Secondary     string
	ForeignKeys   []string
}

// Clone returns a copy safe to attach to a different class.
func (r *Relationship) Clone() *Relationship {
	dup := *r
	if len(r.ForeignKeys) > 0 {
		dup.ForeignKeys = append([]string(nil), r.ForeignKeys...)
	}
	return &dup
}

// DeclaredAttr defers evaluation of a shared attribute so every class
// composing it receives its own copy, the way computed-per-subclass
// attributes behave in declarative mappers.
type DeclaredAttr struct {
	Fn func() interface{}
}

// Declared wraps fn as a deferred attribute.
func Declared(fn func() interface{}) DeclaredAttr {
	return DeclaredAttr{Fn: fn}
}
