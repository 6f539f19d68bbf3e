package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMetaOption is wrapped by every configuration error raised
	// while resolving a class's Meta options.
	ErrInvalidMetaOption = errors.New("invalid Meta option")
	// ErrStructural is wrapped by errors about the shape of a declared
	// hierarchy, e.g. a joined-table hierarchy with no discoverable
	// primary key.
	ErrStructural = errors.New("invalid model structure")
	// ErrRegistryConsistency is wrapped by finalization errors: relationship
	// expectations naming unregistered models or attributes that no sweep
	// can ever satisfy.
	ErrRegistryConsistency = errors.New("model registry consistency violation")
)

// ConfigurationError reports an invalid Meta option value on a model class.
// It is raised synchronously at declaration time and never recovered.
type ConfigurationError struct {
	Option string
	Class  string
	Msg    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("the `%s` Meta option on %s %s", e.Option, e.Class, e.Msg)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrInvalidMetaOption
}

// StructuralError reports a hierarchy a mapper cannot realize, e.g. a
// joined-table chain without a discoverable primary key.
type StructuralError struct {
	Class string
	Msg   string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s on %s", e.Msg, e.Class)
}

func (e *StructuralError) Unwrap() error {
	return ErrStructural
}

// ConsistencyError reports a relationship expectation that finalization can
// never satisfy.
type ConsistencyError struct {
	Model   string
	Related string
	Attr    string
	Msg     string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("cannot finalize %s: %s", e.Model, e.Msg)
}

func (e *ConsistencyError) Unwrap() error {
	return ErrRegistryConsistency
}
