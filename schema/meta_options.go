package schema

import (
	"fmt"
	"os"
	"strings"

	"github.com/declarative-go/declarative/mapper"
	"github.com/declarative-go/declarative/utils"
)

// missing marks option values that were neither declared nor inherited, so
// computed defaults can tell "absent" apart from explicit zero values.
type missingType struct{}

var missing = missingType{}

// TestingEnvVar enables the testing-only `_testing_` Meta option when set to
// a truthy value.
const TestingEnvVar = "DECLARATIVE_TESTING"

func isTesting() bool {
	return utils.CheckTruth(os.Getenv(TestingEnvVar))
}

// MetaOption is one configurable attribute of a model's Meta block: a named,
// typed, inheritable configuration value with an optional class-body side
// effect. Options run in a fixed order that encodes their dependencies.
type MetaOption interface {
	Name() string
	Inherit() bool
	GetValue(declared MetaDecl, base *ModelMeta, args *ClassArgs) (interface{}, error)
	CheckValue(value interface{}, args *ClassArgs) error
	ContributeToClass(args *ClassArgs, value interface{}) error
}

// baseOption implements the default resolution rule: explicit declaration
// wins, then the base class's resolved value when inheritable, then the
// option default.
type baseOption struct {
	name    string
	def     interface{}
	inherit bool
}

func (o baseOption) Name() string  { return o.name }
func (o baseOption) Inherit() bool { return o.inherit }

func (o baseOption) GetValue(declared MetaDecl, base *ModelMeta, args *ClassArgs) (interface{}, error) {
	if v, ok := declared[o.name]; ok {
		return v, nil
	}
	if o.inherit && base != nil {
		if v, ok := base.Get(o.name); ok {
			return v, nil
		}
	}
	return o.def, nil
}

func (o baseOption) CheckValue(interface{}, *ClassArgs) error       { return nil }
func (o baseOption) ContributeToClass(*ClassArgs, interface{}) error { return nil }

// ModelMeta is the resolved configuration of one model class: built once per
// class by the options pipeline, never mutated afterwards, never shared with
// subclasses.
type ModelMeta struct {
	args   *ClassArgs
	values map[string]interface{}
}

func newModelMeta(args *ClassArgs) *ModelMeta {
	return &ModelMeta{args: args, values: map[string]interface{}{}}
}

func (m *ModelMeta) set(name string, value interface{}) {
	m.values[name] = value
}

// Get returns an option's resolved value. Computed defaults that never
// resolved report absence.
func (m *ModelMeta) Get(name string) (interface{}, bool) {
	v, ok := m.values[name]
	if !ok {
		return nil, false
	}
	if _, isMissing := v.(missingType); isMissing {
		return nil, false
	}
	return v, true
}

// Args returns the construction record the configuration was resolved for.
func (m *ModelMeta) Args() *ClassArgs {
	return m.args
}

func (m *ModelMeta) getString(name string) string {
	if v, ok := m.Get(name); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (m *ModelMeta) getBool(name string) bool {
	if v, ok := m.Get(name); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// Abstract reports whether the class contributes no table of its own.
func (m *ModelMeta) Abstract() bool { return m.getBool("abstract") }

// LazyMapped reports whether mapping is deferred to FinalizeMappings.
func (m *ModelMeta) LazyMapped() bool { return m.getBool("lazy_mapped") }

// Table returns the explicit table name, if any.
func (m *ModelMeta) Table() string { return m.getString("table") }

// PK returns the auto primary key column name; empty when disabled.
func (m *ModelMeta) PK() string { return m.getString("pk") }

// pkDisabled reports an explicit nil pk declaration, which suppresses
// automatic primary key generation entirely.
func (m *ModelMeta) pkDisabled() bool {
	v, ok := m.values["pk"]
	return ok && v == nil
}

// CreatedAt returns the creation-timestamp column name; empty when disabled.
func (m *ModelMeta) CreatedAt() string { return m.getString("created_at") }

// UpdatedAt returns the update-timestamp column name; empty when disabled.
func (m *ModelMeta) UpdatedAt() string { return m.getString("updated_at") }

// Repr returns the attribute names rendered by the textual representation.
func (m *ModelMeta) Repr() []string {
	if v, ok := m.Get("repr"); ok {
		if s, ok := v.([]string); ok {
			return s
		}
	}
	return nil
}

// Str returns the column rendered by Str(), if configured.
func (m *ModelMeta) Str() string { return m.getString("str") }

// Validation reports whether the validation pipeline runs for instances.
func (m *ModelMeta) Validation() bool { return m.getBool("validation") }

// Polymorphic returns the resolved inheritance strategy.
func (m *ModelMeta) Polymorphic() Polymorphic {
	if v, ok := m.Get("polymorphic"); ok {
		if p, ok := v.(Polymorphic); ok {
			return p
		}
	}
	return PolymorphicNone
}

// PolymorphicOn returns the discriminator column name.
func (m *ModelMeta) PolymorphicOn() string { return m.getString("polymorphic_on") }

// PolymorphicIdentity returns the discriminator value identifying this class.
func (m *ModelMeta) PolymorphicIdentity() string { return m.getString("polymorphic_identity") }

// BaseTablename returns the resolved table name of the nearest non-abstract
// ancestor in a polymorphic hierarchy.
func (m *ModelMeta) BaseTablename() string { return m.getString("_base_tablename") }

// BasePKName returns the primary key column name of the nearest non-abstract
// ancestor in a polymorphic hierarchy.
func (m *ModelMeta) BasePKName() string { return m.getString("_base_pk_name") }

// Relationships returns the map of related model name to the attribute this
// class declares for it.
func (m *ModelMeta) Relationships() map[string]string {
	if v, ok := m.Get("relationships"); ok {
		if rels, ok := v.(map[string]string); ok {
			return rels
		}
	}
	return nil
}

// Testing returns the testing-only option value; populated only when
// DECLARATIVE_TESTING is truthy.
func (m *ModelMeta) Testing() string { return m.getString("_testing_") }

// IsPolymorphicRoot reports whether this class is the root of a polymorphic
// hierarchy: polymorphism is on and every nearer ancestor is abstract.
func (m *ModelMeta) IsPolymorphicRoot() bool {
	if !m.Polymorphic().Enabled() {
		return false
	}
	base := nearestBaseMeta(m.args.Bases)
	return base == nil || base.Abstract()
}

func (m *ModelMeta) String() string {
	return fmt.Sprintf("<ModelMeta model=%s options=%v>", m.args.Qualname(), m.values)
}

// nearestBaseMeta returns the first resolved configuration found walking the
// bases depth-first. Synthetic mixins carry no configuration and are skipped.
func nearestBaseMeta(bases []*Class) *ModelMeta {
	for _, b := range bases {
		if b.Meta != nil {
			return b.Meta
		}
		if meta := nearestBaseMeta(b.Bases); meta != nil {
			return meta
		}
	}
	return nil
}

// nearestConcreteBaseMeta walks past abstract intermediates to the closest
// non-abstract ancestor's configuration.
func nearestConcreteBaseMeta(bases []*Class) *ModelMeta {
	for _, b := range bases {
		if b.Meta != nil && !b.Meta.Abstract() {
			return b.Meta
		}
		var deeper []*Class
		if b.Meta != nil {
			deeper = b.Meta.args.Bases
		} else {
			deeper = b.Bases
		}
		if meta := nearestConcreteBaseMeta(deeper); meta != nil {
			return meta
		}
	}
	return nil
}

type abstractOption struct{ baseOption }

func newAbstractOption() MetaOption {
	return abstractOption{baseOption{name: "abstract", def: false, inherit: false}}
}

func (o abstractOption) CheckValue(v interface{}, args *ClassArgs) error {
	if _, ok := v.(bool); !ok {
		return &ConfigurationError{Option: o.name, Class: args.Qualname(), Msg: "must be a bool"}
	}
	return nil
}

type lazyMappedOption struct{ baseOption }

func newLazyMappedOption() MetaOption {
	return lazyMappedOption{baseOption{name: "lazy_mapped", def: false, inherit: true}}
}

func (o lazyMappedOption) CheckValue(v interface{}, args *ClassArgs) error {
	if _, ok := v.(bool); !ok {
		return &ConfigurationError{Option: o.name, Class: args.Qualname(), Msg: "must be a bool"}
	}
	return nil
}

type validationOption struct{ baseOption }

func newValidationOption() MetaOption {
	return validationOption{baseOption{name: "validation", def: true, inherit: true}}
}

func (o validationOption) CheckValue(v interface{}, args *ClassArgs) error {
	if _, ok := v.(bool); !ok {
		return &ConfigurationError{Option: o.name, Class: args.Qualname(), Msg: "must be a bool"}
	}
	return nil
}

type testingOption struct{ baseOption }

func newTestingOption() MetaOption {
	return testingOption{baseOption{name: "_testing_", def: nil, inherit: true}}
}

// tableOption resolves the explicit table name. A manual or computed
// tablename on the class body always wins over the Meta declaration.
type tableOption struct{ baseOption }

func newTableOption() MetaOption {
	return tableOption{baseOption{name: "table", def: missing, inherit: false}}
}

func (o tableOption) GetValue(declared MetaDecl, base *ModelMeta, args *ClassArgs) (interface{}, error) {
	if args.Body.TablenameDeclared {
		return nil, nil
	}
	if args.Body.Tablename != "" {
		return args.Body.Tablename, nil
	}
	v, err := o.baseOption.GetValue(declared, base, args)
	if err != nil {
		return nil, err
	}
	if _, isMissing := v.(missingType); isMissing {
		return nil, nil
	}
	return v, nil
}

func (o tableOption) CheckValue(v interface{}, args *ClassArgs) error {
	if v == nil {
		return nil
	}
	if _, ok := v.(string); !ok {
		return &ConfigurationError{Option: o.name, Class: args.Qualname(), Msg: "must be a string or nil"}
	}
	return nil
}

func (o tableOption) ContributeToClass(args *ClassArgs, v interface{}) error {
	if s, ok := v.(string); ok && s != "" {
		args.Body.Tablename = s
	}
	return nil
}

type reprOption struct{ baseOption }

func newReprOption() MetaOption {
	return reprOption{baseOption{name: "repr", def: missing, inherit: true}}
}

func (o reprOption) GetValue(declared MetaDecl, base *ModelMeta, args *ClassArgs) (interface{}, error) {
	v, err := o.baseOption.GetValue(declared, base, args)
	if err != nil {
		return nil, err
	}
	if _, isMissing := v.(missingType); isMissing {
		return []string{args.registry.DefaultPrimaryKeyColumn}, nil
	}
	return v, nil
}

func (o reprOption) CheckValue(v interface{}, args *ClassArgs) error {
	if v == nil {
		return nil
	}
	if _, ok := v.([]string); !ok {
		return &ConfigurationError{
			Option: o.name, Class: args.Qualname(),
			Msg: "must be a list of column names",
		}
	}
	return nil
}

type strOption struct{ baseOption }

func newStrOption() MetaOption {
	return strOption{baseOption{name: "str", def: nil, inherit: true}}
}

func (o strOption) CheckValue(v interface{}, args *ClassArgs) error {
	if v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return &ConfigurationError{Option: o.name, Class: args.Qualname(), Msg: "must be a single column name"}
	}
	if !args.columnNames()[s] {
		return &ConfigurationError{Option: o.name, Class: args.Qualname(), Msg: "must be a single column name"}
	}
	return nil
}

// columnOption contributes a generated column to the class body. The column
// is contributed only when the class is not abstract, polymorphism is off or
// the class is the polymorphic root, and the name is not already taken by a
// user-declared attribute.
type columnOption struct {
	baseOption
	getColumn func(args *ClassArgs) *mapper.Column
}

func (o columnOption) CheckValue(v interface{}, args *ClassArgs) error {
	if v == nil {
		return nil
	}
	if _, ok := v.(string); !ok {
		return &ConfigurationError{Option: o.name, Class: args.Qualname(), Msg: "must be a string or nil"}
	}
	return nil
}

func (o columnOption) shouldContribute(args *ClassArgs, colName string) bool {
	meta := args.Meta
	if meta.Abstract() {
		return false
	}
	if meta.Polymorphic().Enabled() && !meta.IsPolymorphicRoot() {
		return false
	}
	return colName != "" && !args.Body.Has(colName)
}

func (o columnOption) ContributeToClass(args *ClassArgs, v interface{}) error {
	colName, _ := v.(string)
	if o.shouldContribute(args, colName) {
		args.Body.Set(colName, o.getColumn(args))
	}
	return nil
}

// primaryKeyOption generates the integer primary key column. An explicitly
// declared primary key column or constraint always wins silently.
type primaryKeyOption struct{ columnOption }

func newPrimaryKeyOption() MetaOption {
	return primaryKeyOption{columnOption{
		baseOption: baseOption{name: "pk", def: missing, inherit: true},
		getColumn: func(*ClassArgs) *mapper.Column {
			return &mapper.Column{Type: mapper.Integer, PrimaryKey: true}
		},
	}}
}

func (o primaryKeyOption) GetValue(declared MetaDecl, base *ModelMeta, args *ClassArgs) (interface{}, error) {
	v, err := o.baseOption.GetValue(declared, base, args)
	if err != nil {
		return nil, err
	}
	if _, isMissing := v.(missingType); isMissing {
		return args.registry.DefaultPrimaryKeyColumn, nil
	}
	return v, nil
}

func (o primaryKeyOption) ContributeToClass(args *ClassArgs, v interface{}) error {
	colName, _ := v.(string)
	if !o.shouldContribute(args, colName) {
		return nil
	}
	if bodyDeclaresPrimaryKey(args.Body) {
		return nil
	}
	// a primary key declared on a mixin or abstract ancestor also wins;
	// its column materializes into this class at construction
	for _, b := range args.Bases {
		for _, c := range b.mro() {
			if (c.Meta == nil || c.Meta.Abstract()) && bodyDeclaresPrimaryKey(c.Body) {
				return nil
			}
		}
	}
	args.Body.Set(colName, o.getColumn(args))
	return nil
}

// bodyDeclaresPrimaryKey reports whether the user declared any primary key
// column, column property or explicit primary key constraint.
func bodyDeclaresPrimaryKey(body *ClassBody) bool {
	for _, name := range body.Names() {
		v, _ := body.Get(name)
		if d, ok := v.(mapper.DeclaredAttr); ok {
			v = d.Fn()
		}
		switch col := v.(type) {
		case *mapper.Column:
			if col.PrimaryKey {
				return true
			}
		case *mapper.ColumnProperty:
			if p := col.Primary(); p != nil && p.PrimaryKey {
				return true
			}
		}
	}
	for _, arg := range body.TableArgs {
		if _, ok := arg.(mapper.PrimaryKeyConstraint); ok {
			return true
		}
	}
	return false
}

func newCreatedAtOption() MetaOption {
	return columnOption{
		baseOption: baseOption{name: "created_at", def: "created_at", inherit: true},
		getColumn: func(*ClassArgs) *mapper.Column {
			return &mapper.Column{Type: mapper.DateTime, ServerDefault: "now()", NotNull: true}
		},
	}
}

func newUpdatedAtOption() MetaOption {
	return columnOption{
		baseOption: baseOption{name: "updated_at", def: "updated_at", inherit: true},
		getColumn: func(*ClassArgs) *mapper.Column {
			return &mapper.Column{Type: mapper.DateTime, ServerDefault: "now()", OnUpdate: "now()", NotNull: true}
		},
	}
}

// Together declares a composite index or unique constraint over columns,
// optionally with an explicit name.
type Together struct {
	Columns []string
	Name    string
	Unique  bool
}

func checkTogether(option string, v interface{}, args *ClassArgs) (Together, error) {
	var t Together
	switch val := v.(type) {
	case nil:
		return t, nil
	case []string:
		t.Columns = val
	case Together:
		t = val
	default:
		return t, &ConfigurationError{
			Option: option, Class: args.Qualname(),
			Msg: "must be a list of column names or a Together value",
		}
	}

	if len(t.Columns) < 2 {
		return t, &ConfigurationError{
			Option: option, Class: args.Qualname(),
			Msg: "must contain at least two column names",
		}
	}

	valid := args.columnNames()
	var invalid []string
	for _, name := range t.Columns {
		if !valid[name] {
			invalid = append(invalid, name)
		}
	}
	if len(invalid) == 1 {
		return t, &ConfigurationError{
			Option: option, Class: args.Qualname(),
			Msg: fmt.Sprintf("references %s, which is not a valid column name", invalid[0]),
		}
	}
	if len(invalid) > 1 {
		return t, &ConfigurationError{
			Option: option, Class: args.Qualname(),
			Msg: fmt.Sprintf("references %s, which are not valid column names", strings.Join(invalid, ", ")),
		}
	}
	return t, nil
}

func togetherTable(args *ClassArgs) string {
	if args.Body.Tablename != "" {
		return args.Body.Tablename
	}
	return args.registry.namer.TableName(args.Name)
}

type indexTogetherOption struct{ baseOption }

func newIndexTogetherOption() MetaOption {
	return indexTogetherOption{baseOption{name: "index_together", def: nil, inherit: false}}
}

func (o indexTogetherOption) CheckValue(v interface{}, args *ClassArgs) error {
	_, err := checkTogether(o.name, v, args)
	return err
}

func (o indexTogetherOption) ContributeToClass(args *ClassArgs, v interface{}) error {
	t, err := checkTogether(o.name, v, args)
	if err != nil || len(t.Columns) == 0 {
		return err
	}
	name := t.Name
	if name == "" {
		name = args.registry.namer.IndexName(togetherTable(args), t.Columns...)
	}
	args.Body.TableArgs = append(args.Body.TableArgs, mapper.Index{
		Name:    name,
		Columns: t.Columns,
		Unique:  t.Unique,
	})
	return nil
}

type uniqueTogetherOption struct{ baseOption }

func newUniqueTogetherOption() MetaOption {
	return uniqueTogetherOption{baseOption{name: "unique_together", def: nil, inherit: false}}
}

func (o uniqueTogetherOption) CheckValue(v interface{}, args *ClassArgs) error {
	_, err := checkTogether(o.name, v, args)
	return err
}

func (o uniqueTogetherOption) ContributeToClass(args *ClassArgs, v interface{}) error {
	t, err := checkTogether(o.name, v, args)
	if err != nil || len(t.Columns) == 0 {
		return err
	}
	name := t.Name
	if name == "" {
		name = args.registry.namer.UniqueName(togetherTable(args), t.Columns...)
	}
	args.Body.TableArgs = append(args.Body.TableArgs, mapper.UniqueConstraint{
		Name:    name,
		Columns: t.Columns,
	})
	return nil
}

// relationshipsOption merges inherited, declared and discovered relationship
// expectations: a map of related model name to the attribute this class
// declares for it.
type relationshipsOption struct{ baseOption }

func newRelationshipsOption() MetaOption {
	return relationshipsOption{baseOption{name: "relationships", def: nil, inherit: true}}
}

func (o relationshipsOption) GetValue(declared MetaDecl, base *ModelMeta, args *ClassArgs) (interface{}, error) {
	if args.Meta.Abstract() {
		return nil, nil
	}
	merged := map[string]string{}
	if base != nil {
		for k, v := range base.Relationships() {
			merged[k] = v
		}
	}
	if v, ok := declared[o.name]; ok {
		rels, isMap := v.(map[string]string)
		if !isMap {
			return nil, &ConfigurationError{
				Option: o.name, Class: args.Qualname(),
				Msg: "must be a map of related model name to attribute name",
			}
		}
		for k, attr := range rels {
			merged[k] = attr
		}
	}
	return merged, nil
}

func (o relationshipsOption) ContributeToClass(args *ClassArgs, v interface{}) error {
	rels, ok := v.(map[string]string)
	if !ok {
		return nil
	}

	discover := func(name string, value interface{}) {
		if d, isDeferred := value.(mapper.DeclaredAttr); isDeferred {
			value = d.Fn()
		}
		if rel, isRel := value.(*mapper.Relationship); isRel {
			rels[rel.Target] = name
		}
	}
	for _, base := range args.Bases {
		for _, cls := range base.mro() {
			for _, name := range cls.Body.Names() {
				value, _ := cls.Body.Get(name)
				discover(name, value)
			}
		}
	}
	for _, name := range args.Body.Names() {
		value, _ := args.Body.Get(name)
		discover(name, value)
	}
	return nil
}

// OptionsFactory composes the ordered option list and resolves each model's
// configuration. The order is a dependency graph: abstract first, plain
// options next, the polymorphic family in strict internal order, column
// options only after polymorphism is resolved, constraints and relationship
// discovery last.
type OptionsFactory struct{}

func (f OptionsFactory) options() []MetaOption {
	opts := make([]MetaOption, 0, 20)
	if isTesting() {
		opts = append(opts, newTestingOption())
	}
	return append(opts,
		newAbstractOption(), // must be first
		newLazyMappedOption(),
		newTableOption(),
		newReprOption(),
		newStrOption(),
		newValidationOption(),
		newPolymorphicOption(), // must be first of the polymorphic family
		newPolymorphicOnOption(),
		newPolymorphicIdentityOption(),
		newPolymorphicBaseTablenameOption(),
		newPolymorphicBasePKOption(),
		newPolymorphicJoinedPKOption(), // requires _base_tablename and _base_pk_name
		// column options must run after the polymorphic family
		newPrimaryKeyOption(),
		newCreatedAtOption(),
		newUpdatedAtOption(),
		newIndexTogetherOption(),
		newUniqueTogetherOption(),
		newRelationshipsOption(),
	)
}

// Process resolves the Meta options of a class under construction: for each
// option in order, resolve the value, validate it, record it, and apply the
// class-body side effect. Abstract classes skip every side effect except the
// abstract flag itself.
func (f OptionsFactory) Process(args *ClassArgs) (*ModelMeta, error) {
	opts := f.options()

	known := map[string]bool{}
	for _, opt := range opts {
		known[opt.Name()] = true
	}
	for name := range args.MetaDecl {
		if !known[name] {
			return nil, &ConfigurationError{
				Option: name, Class: args.Qualname(),
				Msg: "is not a recognized Meta option",
			}
		}
	}

	base := nearestBaseMeta(args.Bases)
	meta := newModelMeta(args)
	args.Meta = meta

	for _, opt := range opts {
		value, err := opt.GetValue(args.MetaDecl, base, args)
		if err != nil {
			return nil, err
		}
		if err := opt.CheckValue(value, args); err != nil {
			return nil, err
		}
		meta.set(opt.Name(), value)

		if meta.Abstract() && opt.Name() != "abstract" {
			continue
		}
		if err := opt.ContributeToClass(args, value); err != nil {
			return nil, err
		}
	}
	return meta, nil
}
