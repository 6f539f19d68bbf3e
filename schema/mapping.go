package schema

import (
	"github.com/declarative-go/declarative/mapper"
	"github.com/declarative-go/declarative/naming"
)

// Mapper realizes a constructed class as a table. The registry calls Map
// exactly once per class, either at declaration time or during
// FinalizeMappings when mapping is deferred.
type Mapper interface {
	Map(cls *Class) error
}

// DefaultMapper realizes classes against a Metadata catalog:
//
//   - abstract classes map to no table at all;
//   - a class without a primary key of its own shares the nearest mapped
//     ancestor's table, with its columns folded in (single-table
//     inheritance);
//   - a class with its own primary key gets its own table, reusing an
//     already-cataloged table of the same name instead of redefining it.
type DefaultMapper struct {
	Metadata *mapper.Metadata
	Namer    naming.Namer

	// Schema optionally qualifies every table the mapper creates.
	Schema string
}

// Map implements Mapper.
func (m *DefaultMapper) Map(cls *Class) error {
	if cls.Meta != nil && cls.Meta.Abstract() {
		return nil
	}

	if parent := cls.nearestMappedBase(); parent != nil && !hasOwnPrimaryKey(cls) {
		return m.shareTable(cls, parent)
	}

	name := cls.Body.Tablename
	if name == "" {
		name = m.Namer.TableName(cls.Name)
		cls.Body.Tablename = name
	}

	if existing := m.Metadata.Table(name, m.Schema); existing != nil {
		for _, attr := range cls.Columns() {
			existing.AddColumn(attr.Value.(*mapper.Column))
		}
		cls.Table = existing
		return nil
	}

	t := mapper.NewTable(name, m.Schema)
	for _, attr := range cls.Columns() {
		t.AddColumn(attr.Value.(*mapper.Column))
	}
	t.Args = append(t.Args, cls.Body.TableArgs...)
	m.Metadata.AddTable(t)
	cls.Table = t
	return nil
}

// shareTable folds the class's columns into the ancestor's table.
func (m *DefaultMapper) shareTable(cls, parent *Class) error {
	if parent.Table == nil {
		return &StructuralError{
			Class: cls.Name,
			Msg:   "cannot share the table of an unmapped ancestor " + parent.Name,
		}
	}
	for _, attr := range cls.Columns() {
		parent.Table.AddColumn(attr.Value.(*mapper.Column))
	}
	parent.Table.Args = append(parent.Table.Args, cls.Body.TableArgs...)
	cls.Table = parent.Table
	cls.Body.Tablename = parent.Table.Name
	return nil
}

// hasOwnPrimaryKey reports whether the class contributes any primary key of
// its own, via column flags or an explicit constraint.
func hasOwnPrimaryKey(cls *Class) bool {
	for _, attr := range cls.Columns() {
		if attr.Value.(*mapper.Column).PrimaryKey {
			return true
		}
	}
	for _, arg := range cls.Body.TableArgs {
		if _, ok := arg.(mapper.PrimaryKeyConstraint); ok {
			return true
		}
	}
	return false
}
