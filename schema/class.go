package schema

import (
	"github.com/declarative-go/declarative/mapper"
	"github.com/declarative-go/declarative/validation"
)

// MetaDecl is the declared Meta block of a model: the raw, possibly partial
// option values the options pipeline resolves into a ModelMeta. Keys are the
// option names ("abstract", "pk", "polymorphic", ...).
type MetaDecl map[string]interface{}

// Clone returns a shallow copy.
func (m MetaDecl) Clone() MetaDecl {
	if m == nil {
		return nil
	}
	dup := make(MetaDecl, len(m))
	for k, v := range m {
		dup[k] = v
	}
	return dup
}

// Attr is one named attribute of a class body.
type Attr struct {
	Name  string
	Value interface{}
}

// Body is the declaration-order list of attributes of a class under
// construction. Values are columns, relationships, deferred attributes,
// validators, or arbitrary payloads.
type Body []Attr

// ClassDecl is the plain-data description of a model declaration: the input
// to Registry.Declare. It replaces the reflective class-construction hooks
// of dynamic hosts with an explicit builder step.
type ClassDecl struct {
	Name   string
	Module string
	Bases  []*Class
	Meta   MetaDecl
	Body   Body

	// Tablename declares __tablename__ explicitly; TablenameFunc marks it
	// as computed per subclass instead, which suppresses name derivation
	// down the hierarchy.
	Tablename     string
	TablenameFunc func(*Class) string

	// MapperArgs carries raw mapper-level configuration. Supplying
	// MapperArgsFunc marks the configuration as deferred, which the
	// polymorphism pipeline detects as fully manual.
	MapperArgs     map[string]interface{}
	MapperArgsFunc func(*Class) map[string]interface{}

	// TableArgs carries table-level constraints declared directly rather
	// than through Meta options.
	TableArgs []mapper.TableArg
}

// ClassBody holds the mutable class body during the two-phase construction
// protocol. The options pipeline contributes generated columns and mapper
// arguments here before the class object is built.
type ClassBody struct {
	keys  []string
	attrs map[string]interface{}

	Tablename         string
	TablenameDeclared bool

	MapperArgs         map[string]interface{}
	MapperArgsDeclared bool

	TableArgs []mapper.TableArg
}

// NewClassBody creates an empty body.
func NewClassBody() *ClassBody {
	return &ClassBody{attrs: map[string]interface{}{}}
}

// Set stores an attribute, preserving first-set ordering.
func (b *ClassBody) Set(name string, value interface{}) {
	if _, ok := b.attrs[name]; !ok {
		b.keys = append(b.keys, name)
	}
	b.attrs[name] = value
}

// Get returns the named attribute.
func (b *ClassBody) Get(name string) (interface{}, bool) {
	v, ok := b.attrs[name]
	return v, ok
}

// Has reports whether the attribute exists.
func (b *ClassBody) Has(name string) bool {
	_, ok := b.attrs[name]
	return ok
}

// Names returns attribute names in declaration order.
func (b *ClassBody) Names() []string {
	return b.keys
}

// Columns returns the body's column attributes in declaration order.
func (b *ClassBody) Columns() []Attr {
	var cols []Attr
	for _, name := range b.keys {
		if col, ok := b.attrs[name].(*mapper.Column); ok {
			cols = append(cols, Attr{Name: name, Value: col})
		}
	}
	return cols
}

// MapperArg returns a mapper-level argument if present.
func (b *ClassBody) MapperArg(name string) (interface{}, bool) {
	if b.MapperArgs == nil {
		return nil, false
	}
	v, ok := b.MapperArgs[name]
	return v, ok
}

// SetMapperArg stores a mapper-level argument, allocating the map lazily.
func (b *ClassBody) SetMapperArg(name string, value interface{}) {
	if b.MapperArgs == nil {
		b.MapperArgs = map[string]interface{}{}
	}
	b.MapperArgs[name] = value
}

// ClassArgs is the pre-construction record of a model: the registry captures
// it before the class object exists, and the options pipeline both reads and
// mutates it.
type ClassArgs struct {
	Name     string
	Module   string
	Bases    []*Class
	Body     *ClassBody
	MetaDecl MetaDecl
	Meta     *ModelMeta

	registry *Registry
}

// Qualname returns the module-qualified class name used in error messages.
func (a *ClassArgs) Qualname() string {
	if a.Module == "" {
		return a.Name
	}
	return a.Module + "." + a.Name
}

// columnNames returns the column names declared in the body, preferring the
// column's own name over the attribute name.
func (a *ClassArgs) columnNames() map[string]bool {
	names := map[string]bool{}
	for _, attr := range a.Body.Columns() {
		col := attr.Value.(*mapper.Column)
		if col.Name != "" {
			names[col.Name] = true
		} else {
			names[attr.Name] = true
		}
	}
	return names
}

// Class is a constructed model class. It is immutable after construction,
// except for the mapping attachment performed exactly once by the registry.
type Class struct {
	Name   string
	Module string
	Bases  []*Class
	Meta   *ModelMeta
	Body   *ClassBody

	// MetaDecl preserves the declared Meta block so base rewrites can carry
	// it onto a replacement root.
	MetaDecl MetaDecl

	// Validators per column attribute, resolved at construction.
	Validators map[string][]validation.Validator

	// Table is attached by the mapper at finalization.
	Table *mapper.Table

	columns []Attr
	mapped  bool
	mixin   bool
}

// Mapped reports whether the mapper has been attached.
func (c *Class) Mapped() bool {
	return c.mapped
}

// Qualname returns the module-qualified class name.
func (c *Class) Qualname() string {
	if c.Module == "" {
		return c.Name
	}
	return c.Module + "." + c.Name
}

// Columns returns the class's own-table columns (merged from unmapped
// ancestors plus the body) in declaration order.
func (c *Class) Columns() []Attr {
	return c.columns
}

// Column returns the own-table column stored under the given attribute name.
func (c *Class) Column(attr string) *mapper.Column {
	for _, a := range c.columns {
		if a.Name == attr {
			return a.Value.(*mapper.Column)
		}
	}
	return nil
}

// Attr resolves an attribute through the body, then the bases depth-first.
func (c *Class) Attr(name string) (interface{}, bool) {
	if v, ok := c.Body.Get(name); ok {
		return v, true
	}
	for _, b := range c.Bases {
		if v, ok := b.Attr(name); ok {
			return v, true
		}
	}
	return nil, false
}

// HasAttr reports whether the attribute resolves anywhere in the hierarchy.
func (c *Class) HasAttr(name string) bool {
	_, ok := c.Attr(name)
	return ok
}

// IsSubclassOf walks the base chain.
func (c *Class) IsSubclassOf(other *Class) bool {
	if c == other {
		return true
	}
	for _, b := range c.Bases {
		if b.IsSubclassOf(other) {
			return true
		}
	}
	return false
}

// mro returns the class and all its ancestors, depth-first, deduplicated.
func (c *Class) mro() []*Class {
	var out []*Class
	seen := map[*Class]bool{}
	var walk func(*Class)
	walk = func(cls *Class) {
		if seen[cls] {
			return
		}
		seen[cls] = true
		out = append(out, cls)
		for _, b := range cls.Bases {
			walk(b)
		}
	}
	walk(c)
	return out
}

// nearestMappedBase returns the closest ancestor that already carries a
// table, skipping the class itself.
func (c *Class) nearestMappedBase() *Class {
	for _, cls := range c.mro()[1:] {
		if cls.Table != nil {
			return cls
		}
	}
	return nil
}
