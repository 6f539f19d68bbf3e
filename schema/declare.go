package schema

import (
	"context"
	"regexp"

	"github.com/declarative-go/declarative/mapper"
	"github.com/declarative-go/declarative/naming"
	"github.com/declarative-go/declarative/validation"
)

// validatesRe matches class-body validator attributes: validates_name and
// validate_name both attach to the "name" column.
var validatesRe = regexp.MustCompile(`^validates?_(\w+)$`)

// Declare runs the construction pipeline for one model declaration: the
// declared bases are rooted in the registry's base hierarchy, concrete bases
// are converted to mixins when no polymorphic strategy applies, the Meta
// options resolve and contribute to the class body, and the finished class is
// registered. Unless mapping is deferred, the class is mapped immediately.
func (r *Registry) Declare(decl *ClassDecl) (*Class, error) {
	r.mu.Lock()
	r.ensureCorrectBase(decl)
	bases := decl.Bases
	if shouldConvertBasesToMixins(decl) {
		bases = r.convertBasesToMixins(bases)
	}
	r.mu.Unlock()

	// the option pipeline and construction evaluate user callbacks
	// (deferred attributes, TablenameFunc, MapperArgsFunc), which may call
	// back into the registry, so they run outside the lock
	args := &ClassArgs{
		Name:     decl.Name,
		Module:   decl.Module,
		Bases:    bases,
		Body:     bodyFromDecl(decl),
		MetaDecl: decl.Meta.Clone(),
		registry: r,
	}
	if _, err := (OptionsFactory{}).Process(args); err != nil {
		return nil, err
	}
	cls := r.construct(args, decl)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.register(cls)

	if r.shouldInitialize(cls) && !r.deferred(cls) {
		// mapped now; FinalizeMappings still verifies its relationship
		// expectations once every declaration is in
		if err := r.initialize(context.Background(), cls); err != nil {
			return nil, err
		}
		return cls, nil
	}

	// this class may be the target of a backref declared earlier
	r.flushBackrefs()
	return cls, nil
}

// DeclareBase constructs a root base class and registers it with the
// registry. Base classes are abstract unless the declaration says otherwise,
// contribute no table, and anchor ensureCorrectBase for every later
// declaration.
func (r *Registry) DeclareBase(decl *ClassDecl) (*Class, error) {
	meta := decl.Meta.Clone()
	if meta == nil {
		meta = MetaDecl{}
	}
	if _, ok := meta["abstract"]; !ok {
		meta["abstract"] = true
	}

	args := &ClassArgs{
		Name:     decl.Name,
		Module:   decl.Module,
		Bases:    decl.Bases,
		Body:     bodyFromDecl(decl),
		MetaDecl: meta,
		registry: r,
	}
	if _, err := (OptionsFactory{}).Process(args); err != nil {
		return nil, err
	}

	cls := r.construct(args, decl)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.baseClasses = append(r.baseClasses, cls)
	return cls, nil
}

func bodyFromDecl(decl *ClassDecl) *ClassBody {
	body := NewClassBody()
	for _, attr := range decl.Body {
		body.Set(attr.Name, attr.Value)
	}
	body.Tablename = decl.Tablename
	body.TablenameDeclared = decl.TablenameFunc != nil
	for k, v := range decl.MapperArgs {
		body.SetMapperArg(k, v)
	}
	body.MapperArgsDeclared = decl.MapperArgsFunc != nil
	body.TableArgs = append([]mapper.TableArg(nil), decl.TableArgs...)
	return body
}

// construct builds the immutable class object from the processed arguments:
// deferred attributes evaluate, inherited attributes from unmapped ancestors
// materialize as per-class copies, computed tablename and mapper arguments
// resolve against the finished class, and the column and validator tables
// are assembled.
func (r *Registry) construct(args *ClassArgs, decl *ClassDecl) *Class {
	cls := &Class{
		Name:     args.Name,
		Module:   args.Module,
		Bases:    args.Bases,
		Meta:     args.Meta,
		Body:     args.Body,
		MetaDecl: args.MetaDecl,
	}

	// own deferred attributes evaluate exactly once, at construction
	for _, name := range cls.Body.Names() {
		v, _ := cls.Body.Get(name)
		if d, ok := v.(mapper.DeclaredAttr); ok {
			cls.Body.Set(name, d.Fn())
		}
	}

	materializeInherited(cls)

	if decl.TablenameFunc != nil {
		cls.Body.Tablename = decl.TablenameFunc(cls)
	}
	if decl.MapperArgsFunc != nil {
		for k, v := range decl.MapperArgsFunc(cls) {
			cls.Body.SetMapperArg(k, v)
		}
	}

	cls.collectColumns(r.namer)
	cls.Validators = r.resolveValidators(cls)
	return cls
}

// materializeInherited copies the schema attributes of unmapped ancestors
// (mixins and abstract classes) into the class body, so every class owns its
// columns and relationships. Mapped ancestors keep theirs: table inheritance
// is realized by the mapper, not by copying.
func materializeInherited(cls *Class) {
	for _, anc := range cls.mro()[1:] {
		if anc.Meta != nil && !anc.Meta.Abstract() {
			continue
		}
		for _, name := range anc.Body.Names() {
			if cls.Body.Has(name) {
				continue
			}
			v, _ := anc.Body.Get(name)
			switch value := v.(type) {
			case mapper.DeclaredAttr:
				cls.Body.Set(name, value.Fn())
			case *mapper.Column:
				cls.Body.Set(name, value.Clone())
			case *mapper.ColumnProperty:
				cls.Body.Set(name, value.Clone())
			case *mapper.Relationship:
				cls.Body.Set(name, value.Clone())
			}
		}
	}
}

// collectColumns assembles the class's own-table columns in body order,
// filling in column names from attribute names. Only the first column of a
// column property belongs to the class's own table.
func (c *Class) collectColumns(namer naming.Namer) {
	for _, name := range c.Body.Names() {
		v, _ := c.Body.Get(name)
		var col *mapper.Column
		switch value := v.(type) {
		case *mapper.Column:
			col = value
		case *mapper.ColumnProperty:
			col = value.Primary()
		}
		if col == nil {
			continue
		}
		if col.Name == "" {
			col.Name = namer.ColumnName(name)
		}
		c.columns = append(c.columns, Attr{Name: name, Value: col})
	}
}

// resolveValidators builds the per-attribute validator table: validators
// attached to columns, the implicit required rule for non-nullable columns
// without a default, and validates_<attr> class-body validators with the
// nearest declaration winning over shadowed ancestors.
func (r *Registry) resolveValidators(cls *Class) map[string][]validation.Validator {
	out := map[string][]validation.Validator{}

	for _, attr := range cls.columns {
		col := attr.Value.(*mapper.Column)
		out[attr.Name] = append(out[attr.Name], col.Validators...)
		if col.NotNull && !col.PrimaryKey && col.Default == nil && col.ServerDefault == "" {
			out[attr.Name] = append(out[attr.Name], validation.Required{})
		}
	}

	classes := cls.mro()
	var names []string
	seen := map[string]bool{}
	for i := len(classes) - 1; i >= 0; i-- {
		for _, name := range classes[i].Body.Names() {
			if validatesRe.MatchString(name) && !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	for _, name := range names {
		column := validatesRe.FindStringSubmatch(name)[1]
		v, _ := cls.Attr(name)
		if val, ok := asValidator(v); ok {
			out[column] = append(out[column], val)
		}
	}
	return out
}

func asValidator(v interface{}) (validation.Validator, bool) {
	switch val := v.(type) {
	case validation.Validator:
		return val, true
	case func(value interface{}) error:
		return validation.Func(val), true
	}
	return nil, false
}
