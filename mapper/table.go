package mapper

// TableArg is a table-level schema argument: an index, a unique constraint
// or an explicit primary key constraint.
type TableArg interface {
	tableArg()
}

// Index is a (possibly composite, possibly unique) index over named columns.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

func (Index) tableArg() {}

// UniqueConstraint is a composite unique constraint over named columns.
type UniqueConstraint struct {
	Name    string
	Columns []string
}

func (UniqueConstraint) tableArg() {}

// PrimaryKeyConstraint declares an explicit composite primary key.
type PrimaryKeyConstraint struct {
	Columns []string
}

func (PrimaryKeyConstraint) tableArg() {}

// Table is the in-memory rendition of a mapped table.
type Table struct {
	Name   string
	Schema string
	Args   []TableArg

	columns []*Column
	byName  map[string]*Column
}

// NewTable creates an empty table.
func NewTable(name, schema string) *Table {
	return &Table{Name: name, Schema: schema, byName: map[string]*Column{}}
}

// Key returns the catalog key of the table.
func (t *Table) Key() string {
	return TableKey(t.Name, t.Schema)
}

// AddColumn appends a column, keeping the first definition on name clashes.
func (t *Table) AddColumn(col *Column) {
	if _, ok := t.byName[col.Name]; ok {
		return
	}
	t.columns = append(t.columns, col)
	t.byName[col.Name] = col
}

// Column returns the named column, or nil.
func (t *Table) Column(name string) *Column {
	return t.byName[name]
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// Columns returns the columns in definition order.
func (t *Table) Columns() []*Column {
	return t.columns
}

// PrimaryKey returns the primary key columns in definition order, honoring
// both column flags and an explicit PrimaryKeyConstraint.
func (t *Table) PrimaryKey() []*Column {
	var pk []*Column
	for _, col := range t.columns {
		if col.PrimaryKey {
			pk = append(pk, col)
		}
	}
	if len(pk) > 0 {
		return pk
	}
	for _, arg := range t.Args {
		if c, ok := arg.(PrimaryKeyConstraint); ok {
			for _, name := range c.Columns {
				if col := t.byName[name]; col != nil {
					pk = append(pk, col)
				}
			}
		}
	}
	return pk
}

// TableKey builds the catalog key for a table name within an optional schema.
func TableKey(name, schema string) string {
	if schema != "" {
		return schema + "." + name
	}
	return name
}

// Metadata is the catalog of tables known to the mapper. It answers the
// "table already exists under this name" query the declaration layer needs
// for reflected tables.
type Metadata struct {
	tables map[string]*Table
	order  []string
}

// NewMetadata creates an empty catalog.
func NewMetadata() *Metadata {
	return &Metadata{tables: map[string]*Table{}}
}

// HasTable reports whether a table is already cataloged under name+schema.
func (m *Metadata) HasTable(name, schema string) bool {
	_, ok := m.tables[TableKey(name, schema)]
	return ok
}

// Table returns the cataloged table, or nil.
func (m *Metadata) Table(name, schema string) *Table {
	return m.tables[TableKey(name, schema)]
}

// AddTable catalogs a table. Adding a table under an existing key replaces
// the entry, preserving its position.
func (m *Metadata) AddTable(t *Table) {
	key := t.Key()
	if _, ok := m.tables[key]; !ok {
		m.order = append(m.order, key)
	}
	m.tables[key] = t
}

// Tables returns all tables in registration order.
func (m *Metadata) Tables() []*Table {
	out := make([]*Table, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, m.tables[key])
	}
	return out
}

// Clear empties the catalog.
func (m *Metadata) Clear() {
	m.tables = map[string]*Table{}
	m.order = nil
}
