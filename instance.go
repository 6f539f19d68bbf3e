package declarative

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/now"

	"github.com/declarative-go/declarative/mapper"
	"github.com/declarative-go/declarative/schema"
	"github.com/declarative-go/declarative/validation"
)

// Instance is one record of a model class: an attribute-value bag that knows
// its class, so it can validate itself, render a readable representation and
// maintain the class's timestamp columns.
type Instance struct {
	class  *schema.Class
	values map[string]interface{}
}

// New creates an instance of cls with the given initial values and validates
// it. The creation and update timestamp columns, when the class has them,
// are stamped with the current time truncated to the second. On validation
// failure the error is a *ValidationErrors; the instance is returned anyway
// so it can be inspected and repaired.
func New(cls *schema.Class, values map[string]interface{}) (*Instance, error) {
	inst := &Instance{class: cls, values: map[string]interface{}{}}
	for k, v := range values {
		inst.values[k] = inst.coerce(k, v)
	}

	ts := time.Now().Truncate(time.Second)
	if meta := cls.Meta; meta != nil {
		if col := meta.CreatedAt(); col != "" && inst.values[col] == nil {
			inst.values[col] = ts
		}
		if col := meta.UpdatedAt(); col != "" && inst.values[col] == nil {
			inst.values[col] = ts
		}
	}

	if err := inst.Validate(); err != nil {
		return inst, err
	}
	return inst, nil
}

// Class returns the model class of the instance.
func (i *Instance) Class() *schema.Class { return i.class }

// Get returns the attribute value, falling back to the column default.
func (i *Instance) Get(attr string) interface{} {
	if v, ok := i.values[attr]; ok {
		return v
	}
	if col := i.class.Column(attr); col != nil {
		return col.Default
	}
	return nil
}

// Set assigns one attribute after running the attribute's validators; a
// rejected value is not stored. String values assigned to datetime columns
// are parsed into time.Time first.
func (i *Instance) Set(attr string, value interface{}) error {
	value = i.coerce(attr, value)
	if err := i.validateAttr(attr, value); err != nil {
		return err
	}
	i.values[attr] = value
	return nil
}

func (i *Instance) coerce(attr string, value interface{}) interface{} {
	if s, ok := value.(string); ok {
		if col := i.class.Column(attr); col != nil {
			switch col.Type {
			case mapper.DateTime, mapper.Date:
				if t, err := now.Parse(s); err == nil {
					return t
				}
			}
		}
	}
	return value
}

func (i *Instance) validateAttr(attr string, value interface{}) error {
	if meta := i.class.Meta; meta != nil && !meta.Validation() {
		return nil
	}
	for _, v := range i.class.Validators[attr] {
		if err := v.Validate(value); err != nil {
			return decorate(i.class, attr, err)
		}
	}
	return nil
}

// Update assigns the given attributes and touches the update timestamp.
// Failures aggregate into a *ValidationErrors; attributes that validate are
// applied regardless.
func (i *Instance) Update(values map[string]interface{}) error {
	errs := &validation.Errors{}
	for k, v := range values {
		if err := i.Set(k, v); err != nil {
			errs.Add(k, err.Error())
		}
	}
	if meta := i.class.Meta; meta != nil {
		if col := meta.UpdatedAt(); col != "" {
			i.values[col] = time.Now().Truncate(time.Second)
		}
	}
	if errs.Any() {
		return errs
	}
	return nil
}

// Validate runs every validator of the class against the instance and
// returns a *ValidationErrors aggregating the failures, or nil. Classes with
// validation disabled through their Meta always pass.
func (i *Instance) Validate() error {
	if meta := i.class.Meta; meta != nil && !meta.Validation() {
		return nil
	}

	errs := &validation.Errors{}
	for attr, validators := range i.class.Validators {
		value := i.Get(attr)
		for _, v := range validators {
			if err := v.Validate(value); err != nil {
				errs.Add(attr, decorate(i.class, attr, err).Error())
			}
		}
	}
	if errs.Any() {
		return errs
	}
	return nil
}

// ValidateValues validates a proposed payload against cls without
// constructing an instance. In partial mode only the given keys are checked;
// otherwise every validated attribute is, with missing keys falling back to
// the column default. Failures aggregate into a *ValidationErrors.
func ValidateValues(cls *schema.Class, values map[string]interface{}, partial bool) error {
	if meta := cls.Meta; meta != nil && !meta.Validation() {
		return nil
	}

	errs := &validation.Errors{}
	for attr, validators := range cls.Validators {
		value, given := values[attr]
		if !given {
			if partial {
				continue
			}
			if col := cls.Column(attr); col != nil {
				value = col.Default
			}
		}
		for _, v := range validators {
			if err := v.Validate(value); err != nil {
				errs.Add(attr, decorate(cls, attr, err).Error())
			}
		}
	}
	if errs.Any() {
		return errs
	}
	return nil
}

// decorate fills in the model and column of a validation error so its
// message provider can render the column name.
func decorate(cls *schema.Class, attr string, err error) error {
	var verr *validation.Error
	if errors.As(err, &verr) {
		verr.Model = cls.Name
		if verr.Column == "" {
			verr.Column = attr
		}
		return verr
	}
	return err
}

// Equal reports whether both instances are records of the same class with
// the same, non-nil primary key value.
func (i *Instance) Equal(other *Instance) bool {
	if other == nil || i.class != other.class {
		return false
	}
	attr := i.primaryKeyAttr()
	if attr == "" {
		return false
	}
	pk, otherPK := i.Get(attr), other.Get(attr)
	return pk != nil && pk == otherPK
}

func (i *Instance) primaryKeyAttr() string {
	for _, attr := range i.class.Columns() {
		if attr.Value.(*mapper.Column).PrimaryKey {
			return attr.Name
		}
	}
	return ""
}

// String renders the instance as ClassName(attr=value, ...), showing the
// attributes selected by the class's repr option.
func (i *Instance) String() string {
	var attrs []string
	if meta := i.class.Meta; meta != nil {
		attrs = meta.Repr()
	}

	parts := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		parts = append(parts, fmt.Sprintf("%s=%s", attr, formatValue(i.Get(attr))))
	}
	return fmt.Sprintf("%s(%s)", i.class.Name, strings.Join(parts, ", "))
}

// Str returns the single display column configured by the class's str
// option, falling back to the full representation.
func (i *Instance) Str() string {
	if meta := i.class.Meta; meta != nil {
		if col := meta.Str(); col != "" {
			return fmt.Sprintf("%v", i.Get(col))
		}
	}
	return i.String()
}

func formatValue(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return "nil"
	case string:
		return "'" + value + "'"
	case time.Time:
		return "'" + value.Format(time.RFC3339) + "'"
	default:
		return fmt.Sprintf("%v", value)
	}
}
