package schema

import (
	"github.com/declarative-go/declarative/mapper"
)

// Polymorphic is the resolved inheritance strategy of a model class.
type Polymorphic string

const (
	// PolymorphicNone disables polymorphic inheritance.
	PolymorphicNone Polymorphic = ""
	// PolymorphicJoined gives every subclass its own table, linked via a
	// foreign key to the parent's primary key.
	PolymorphicJoined Polymorphic = "joined"
	// PolymorphicSingle maps all subclasses into one table, distinguished
	// by a discriminator column.
	PolymorphicSingle Polymorphic = "single"
	// PolymorphicManual marks classes whose mapper arguments already carry
	// a discriminator; automatic contribution is suppressed.
	PolymorphicManual Polymorphic = "_manual_"
	// PolymorphicFullyManual marks classes whose mapper arguments are
	// deferred/computed; everything is left to the user.
	PolymorphicFullyManual Polymorphic = "_fully_manual_"
)

// Enabled reports whether any polymorphic strategy is in effect.
func (p Polymorphic) Enabled() bool {
	return p != PolymorphicNone
}

type polymorphicOption struct{ baseOption }

func newPolymorphicOption() MetaOption {
	return polymorphicOption{baseOption{name: "polymorphic", def: false, inherit: true}}
}

func (o polymorphicOption) GetValue(declared MetaDecl, base *ModelMeta, args *ClassArgs) (interface{}, error) {
	if args.Body.MapperArgsDeclared {
		return PolymorphicFullyManual, nil
	}
	if _, ok := args.Body.MapperArg("polymorphic_on"); ok {
		return PolymorphicManual, nil
	}

	v, err := o.baseOption.GetValue(declared, base, args)
	if err != nil {
		return nil, err
	}
	switch value := v.(type) {
	case bool:
		if value {
			return PolymorphicJoined, nil
		}
		return PolymorphicNone, nil
	case string:
		return Polymorphic(value), nil
	case Polymorphic:
		return value, nil
	default:
		return v, nil
	}
}

func (o polymorphicOption) CheckValue(v interface{}, args *ClassArgs) error {
	p, ok := v.(Polymorphic)
	if ok {
		switch p {
		case PolymorphicNone, PolymorphicJoined, PolymorphicSingle,
			PolymorphicManual, PolymorphicFullyManual:
			return nil
		}
	}
	return &ConfigurationError{
		Option: o.name, Class: args.Qualname(),
		Msg: `must be one of "joined", "single", true, false`,
	}
}

// polymorphicOnOption contributes the discriminator column to the
// polymorphic root and designates it in the mapper arguments, never
// overwriting an explicit designation.
type polymorphicOnOption struct{ columnOption }

func newPolymorphicOnOption() MetaOption {
	return polymorphicOnOption{columnOption{
		baseOption: baseOption{name: "polymorphic_on", def: "discriminator", inherit: false},
		getColumn: func(*ClassArgs) *mapper.Column {
			return &mapper.Column{Type: mapper.String}
		},
	}}
}

func (o polymorphicOnOption) GetValue(declared MetaDecl, base *ModelMeta, args *ClassArgs) (interface{}, error) {
	switch args.Meta.Polymorphic() {
	case PolymorphicJoined, PolymorphicSingle:
		return o.baseOption.GetValue(declared, base, args)
	}
	return nil, nil
}

func (o polymorphicOnOption) ContributeToClass(args *ClassArgs, v interface{}) error {
	switch args.Meta.Polymorphic() {
	case PolymorphicJoined, PolymorphicSingle:
	default:
		return nil
	}

	if err := o.columnOption.ContributeToClass(args, v); err != nil {
		return err
	}

	colName, _ := v.(string)
	if args.Meta.IsPolymorphicRoot() {
		if _, ok := args.Body.MapperArg("polymorphic_on"); !ok {
			args.Body.SetMapperArg("polymorphic_on", colName)
		}
	}
	return nil
}

type polymorphicIdentityOption struct{ baseOption }

func newPolymorphicIdentityOption() MetaOption {
	return polymorphicIdentityOption{baseOption{name: "polymorphic_identity", def: nil, inherit: false}}
}

func (o polymorphicIdentityOption) GetValue(declared MetaDecl, base *ModelMeta, args *ClassArgs) (interface{}, error) {
	switch args.Meta.Polymorphic() {
	case PolymorphicNone, PolymorphicFullyManual:
		return nil, nil
	}

	v, err := o.baseOption.GetValue(declared, base, args)
	if err != nil {
		return nil, err
	}
	if explicit, ok := args.Body.MapperArg("polymorphic_identity"); ok {
		return explicit, nil
	}
	if identifier, ok := v.(string); ok && identifier != "" {
		return identifier, nil
	}
	return args.Name, nil
}

func (o polymorphicIdentityOption) CheckValue(v interface{}, args *ClassArgs) error {
	if v == nil {
		return nil
	}
	if _, ok := v.(string); !ok {
		return &ConfigurationError{Option: o.name, Class: args.Qualname(), Msg: "must be a string"}
	}
	return nil
}

func (o polymorphicIdentityOption) ContributeToClass(args *ClassArgs, v interface{}) error {
	switch args.Meta.Polymorphic() {
	case PolymorphicNone, PolymorphicFullyManual:
		return nil
	}
	if _, ok := args.Body.MapperArg("polymorphic_identity"); !ok {
		args.Body.SetMapperArg("polymorphic_identity", v)
	}
	return nil
}

// polymorphicBaseTablenameOption resolves the table name of the nearest
// non-abstract ancestor. Recomputed at every level of the hierarchy, never
// inherited, so each subclass sees its direct parent's table.
type polymorphicBaseTablenameOption struct{ baseOption }

func newPolymorphicBaseTablenameOption() MetaOption {
	return polymorphicBaseTablenameOption{baseOption{name: "_base_tablename", def: nil, inherit: false}}
}

func (o polymorphicBaseTablenameOption) GetValue(declared MetaDecl, base *ModelMeta, args *ClassArgs) (interface{}, error) {
	bm := nearestConcreteBaseMeta(args.Bases)
	if bm == nil {
		return nil, nil
	}

	bmArgs := bm.Args()
	if bmArgs.Body.TablenameDeclared {
		return nil, nil
	}
	for _, b := range bmArgs.Bases {
		if b.Meta != nil && b.Meta.Args().Body.TablenameDeclared {
			return nil, nil
		}
	}

	if bmArgs.Body.Tablename != "" {
		return bmArgs.Body.Tablename, nil
	}
	// the base may not be mapped yet (lazy mapping); derive the name the
	// mapper will use
	return args.registry.namer.TableName(bmArgs.Name), nil
}

// polymorphicBasePKOption resolves the primary key column name of the
// nearest non-abstract ancestor, falling back to scanning that ancestor's
// body for a joined pk/fk column.
type polymorphicBasePKOption struct{ baseOption }

func newPolymorphicBasePKOption() MetaOption {
	return polymorphicBasePKOption{baseOption{name: "_base_pk_name", def: nil, inherit: false}}
}

func (o polymorphicBasePKOption) GetValue(declared MetaDecl, base *ModelMeta, args *ClassArgs) (interface{}, error) {
	bm := nearestConcreteBaseMeta(args.Bases)
	if bm == nil {
		return nil, nil
	}

	if !bm.pkDisabled() && bm.PK() != "" {
		return bm.PK(), nil
	}

	bmArgs := bm.Args()
	for _, name := range bmArgs.Body.Names() {
		if col := bodyColumn(bmArgs.Body, name); col != nil && col.PrimaryKey && col.HasForeignKey() {
			if col.Name != "" {
				return col.Name, nil
			}
			return name, nil
		}
	}
	return nil, &StructuralError{
		Class: bmArgs.Name,
		Msg:   "could not find a joined primary key column",
	}
}

// polymorphicJoinedPKOption contributes the synthetic primary key of a
// joined-table child: a column that is simultaneously a foreign key to the
// root's primary key.
type polymorphicJoinedPKOption struct{ baseOption }

func newPolymorphicJoinedPKOption() MetaOption {
	// name, default and inheritance are all unused for this option
	return polymorphicJoinedPKOption{baseOption{name: "_", def: nil, inherit: false}}
}

func (o polymorphicJoinedPKOption) ContributeToClass(args *ClassArgs, _ interface{}) error {
	meta := args.Meta
	if meta.Abstract() ||
		meta.Polymorphic() != PolymorphicJoined ||
		meta.IsPolymorphicRoot() ||
		meta.BaseTablename() == "" {
		return nil
	}

	// the pk option resolves later in the pipeline, so consult the declared
	// and inherited values directly
	pk, disabled := resolvedPK(args)
	if disabled {
		for _, name := range args.Body.Names() {
			if col := bodyColumn(args.Body, name); col != nil && col.PrimaryKey && col.HasForeignKey() {
				return nil
			}
		}
		return &StructuralError{Class: args.Name, Msg: "could not find a joined primary key column"}
	}

	if !args.Body.Has(pk) {
		args.Body.Set(pk, o.column(args, pk))
	}
	return nil
}

func (o polymorphicJoinedPKOption) column(args *ClassArgs, pk string) interface{} {
	meta := args.Meta
	fkColumn := func(typ mapper.Type) *mapper.Column {
		return &mapper.Column{
			Type:       typ,
			PrimaryKey: true,
			ForeignKey: &mapper.ForeignKey{Table: meta.BaseTablename(), Column: meta.BasePKName()},
		}
	}

	// When the direct parent does not itself declare the pk attribute, walk
	// the resolution order for the ancestor that does, and map the child pk
	// onto both the foreign key and the ancestor's column.
	if len(args.Bases) > 0 {
		first := args.Bases[0]
		if first.Meta != nil && !first.Meta.Args().Body.Has(pk) {
			for _, b := range args.Bases {
				for _, c := range b.mro() {
					if c.Meta == nil || !c.Meta.Args().Body.Has(pk) {
						continue
					}
					if ancestor := bodyColumn(c.Meta.Args().Body, pk); ancestor != nil {
						return &mapper.ColumnProperty{
							Columns: []*mapper.Column{fkColumn(ancestor.Type), ancestor},
						}
					}
				}
			}
		}
		if first.Meta != nil {
			if parent := bodyColumn(first.Meta.Args().Body, pk); parent != nil {
				return fkColumn(parent.Type)
			}
		}
	}
	return fkColumn(mapper.Integer)
}

// resolvedPK resolves the primary key column name the way the pk option
// will: explicit declaration first, then the nearest base, then the registry
// default. A nil declaration disables generation.
func resolvedPK(args *ClassArgs) (pk string, disabled bool) {
	if v, ok := args.MetaDecl["pk"]; ok {
		if v == nil {
			return "", true
		}
		if s, isString := v.(string); isString {
			return s, false
		}
	}
	if base := nearestBaseMeta(args.Bases); base != nil {
		if v, ok := base.values["pk"]; ok {
			if v == nil {
				return "", true
			}
			if s, isString := v.(string); isString {
				return s, false
			}
		}
	}
	return args.registry.DefaultPrimaryKeyColumn, false
}

// bodyColumn returns the column stored under a body attribute, unwrapping
// column properties.
func bodyColumn(body *ClassBody, name string) *mapper.Column {
	v, ok := body.Get(name)
	if !ok {
		return nil
	}
	switch col := v.(type) {
	case *mapper.Column:
		return col
	case *mapper.ColumnProperty:
		return col.Primary()
	}
	return nil
}
