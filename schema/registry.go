package schema

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/declarative-go/declarative/logger"
	"github.com/declarative-go/declarative/mapper"
	"github.com/declarative-go/declarative/naming"
)

// Config configures a Registry. Zero values select the defaults: a
// pluralizing snake_case namer, a fresh metadata catalog, the default
// mapper, and the package logger.
type Config struct {
	Namer    naming.Namer
	Metadata *mapper.Metadata
	Mapper   Mapper
	Logger   logger.Interface

	// EnableLazyMapping defers every model's mapping to FinalizeMappings,
	// regardless of the per-model lazy_mapped option.
	EnableLazyMapping bool

	// DefaultPrimaryKeyColumn is the column name generated primary keys
	// use. Defaults to "id".
	DefaultPrimaryKeyColumn string
}

// pendingBackref is a backref whose target model has not been declared yet.
type pendingBackref struct {
	owner *Class
	attr  string
	rel   *mapper.Relationship
}

// Registry is the single source of truth for declared model classes. It
// drives the two-phase construction pipeline, tracks every declaration by
// name and module, and performs deferred mapping in declaration order.
//
// Safe for concurrent use.
type Registry struct {
	mu sync.Mutex

	namer    naming.Namer
	metadata *mapper.Metadata
	mapper   Mapper
	log      logger.Interface

	EnableLazyMapping       bool
	DefaultPrimaryKeyColumn string

	baseClasses []*Class

	// registered holds every declaration: name -> module -> class. latest
	// tracks the winning declaration per name, order preserves declaration
	// order for finalization.
	registered map[string]map[string]*Class
	latest     map[string]*Class
	order      []*Class

	// models holds initialized (mapped) classes by name.
	models    map[string]*Class
	finalized map[*Class]bool

	backrefs []pendingBackref
}

// NewRegistry creates a registry from cfg, applying defaults for any unset
// field.
func NewRegistry(cfg Config) *Registry {
	if cfg.Namer == nil {
		cfg.Namer = naming.NamingStrategy{PluralizeTables: true}
	}
	if cfg.Metadata == nil {
		cfg.Metadata = mapper.NewMetadata()
	}
	if cfg.Mapper == nil {
		cfg.Mapper = &DefaultMapper{Metadata: cfg.Metadata, Namer: cfg.Namer}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default
	}
	if cfg.DefaultPrimaryKeyColumn == "" {
		cfg.DefaultPrimaryKeyColumn = "id"
	}
	return &Registry{
		namer:                   cfg.Namer,
		metadata:                cfg.Metadata,
		mapper:                  cfg.Mapper,
		log:                     cfg.Logger,
		EnableLazyMapping:       cfg.EnableLazyMapping,
		DefaultPrimaryKeyColumn: cfg.DefaultPrimaryKeyColumn,
		registered:              map[string]map[string]*Class{},
		latest:                  map[string]*Class{},
		models:                  map[string]*Class{},
		finalized:               map[*Class]bool{},
	}
}

// Namer returns the registry's naming strategy.
func (r *Registry) Namer() naming.Namer { return r.namer }

// Metadata returns the table catalog shared with the mapper.
func (r *Registry) Metadata() *mapper.Metadata { return r.metadata }

// RegisterBaseClass records a root base class. The most recently registered
// base is added to declarations whose bases do not already descend from it.
func (r *Registry) RegisterBaseClass(cls *Class) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.baseClasses = append(r.baseClasses, cls)
}

// BaseClasses returns the registered root base classes in order.
func (r *Registry) BaseClasses() []*Class {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Class(nil), r.baseClasses...)
}

// Model returns the initialized model registered under name.
func (r *Registry) Model(name string) (*Class, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cls, ok := r.models[name]
	return cls, ok
}

// Models returns a snapshot of all initialized models by name.
func (r *Registry) Models() map[string]*Class {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*Class, len(r.models))
	for name, cls := range r.models {
		out[name] = cls
	}
	return out
}

// Reset drops every declaration, model, pending backref and cataloged table.
// Registered base classes survive.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered = map[string]map[string]*Class{}
	r.latest = map[string]*Class{}
	r.order = nil
	r.models = map[string]*Class{}
	r.finalized = map[*Class]bool{}
	r.backrefs = nil
	r.metadata.Clear()
}

// ensureCorrectBase adds the most recently registered base class when none
// of the declared bases descend from it, so every model ends up rooted in
// the registry's base hierarchy. The root goes after the declared bases:
// option resolution walks bases in order, and anything the user declared on
// an ancestor must stay nearer than the injected root.
func (r *Registry) ensureCorrectBase(decl *ClassDecl) {
	if len(r.baseClasses) == 0 {
		return
	}
	base := r.baseClasses[len(r.baseClasses)-1]
	for _, b := range decl.Bases {
		if b.IsSubclassOf(base) {
			return
		}
	}
	decl.Bases = append(decl.Bases, base)
}

// register records a constructed class. Re-declaring the same name from the
// same module replaces the earlier declaration in place; a declaration from
// a different module supersedes it as the latest.
func (r *Registry) register(cls *Class) {
	byModule := r.registered[cls.Name]
	if byModule == nil {
		byModule = map[string]*Class{}
		r.registered[cls.Name] = byModule
	}
	prev, existed := byModule[cls.Module]
	byModule[cls.Module] = cls
	r.latest[cls.Name] = cls

	if existed {
		for i, c := range r.order {
			if c == prev {
				r.order[i] = cls
				break
			}
		}
		delete(r.finalized, prev)
		return
	}
	r.order = append(r.order, cls)
}

// shouldInitialize reports whether cls is the declaration that gets mapped:
// the latest registration of its name, and not abstract.
func (r *Registry) shouldInitialize(cls *Class) bool {
	return r.latest[cls.Name] == cls && !cls.Meta.Abstract()
}

// deferred reports whether mapping of cls waits for FinalizeMappings.
func (r *Registry) deferred(cls *Class) bool {
	return r.EnableLazyMapping || cls.Meta.LazyMapped()
}

// initialize maps cls, records it as a model, and installs its backrefs on
// any already-declared targets.
func (r *Registry) initialize(ctx context.Context, cls *Class) error {
	if !cls.mapped {
		if err := r.mapper.Map(cls); err != nil {
			return err
		}
		cls.mapped = true
	}
	r.models[cls.Name] = cls
	r.collectBackrefs(cls)
	r.flushBackrefs()
	return nil
}

// collectBackrefs queues the backref declarations of cls for installation on
// their target classes.
func (r *Registry) collectBackrefs(cls *Class) {
	for _, name := range cls.Body.Names() {
		v, _ := cls.Body.Get(name)
		rel, ok := v.(*mapper.Relationship)
		if !ok || rel.Backref == "" {
			continue
		}
		r.backrefs = append(r.backrefs, pendingBackref{owner: cls, attr: name, rel: rel})
	}
}

// flushBackrefs installs every pending backref whose target is now declared.
// Backrefs never overwrite an attribute the target declares itself.
func (r *Registry) flushBackrefs() {
	var remaining []pendingBackref
	for _, pb := range r.backrefs {
		target, ok := r.latest[pb.rel.Target]
		if !ok {
			remaining = append(remaining, pb)
			continue
		}
		if !target.HasAttr(pb.rel.Backref) {
			target.Body.Set(pb.rel.Backref, &mapper.Relationship{
				Target:        pb.owner.Name,
				BackPopulates: pb.attr,
				Uselist:       !pb.rel.Uselist,
			})
		}
	}
	r.backrefs = remaining
}

// expectationsReady reports whether every relationship expectation of cls is
// satisfied. An expectation naming a model that was never declared is an
// immediate hard error; an expectation whose counterpart attribute is not
// yet visible leaves the model waiting for another sweep.
func (r *Registry) expectationsReady(cls *Class) (bool, error) {
	rels := cls.Meta.Relationships()
	if len(rels) == 0 {
		return true, nil
	}

	for _, related := range sortedKeys(rels) {
		attr := rels[related]
		target, ok := r.latest[related]
		if !ok {
			return false, &ConsistencyError{
				Model: cls.Name, Related: related, Attr: attr,
				Msg: fmt.Sprintf("its relationship %q references %s, which was never declared", attr, related),
			}
		}
		v, _ := cls.Attr(attr)
		rel, isRel := v.(*mapper.Relationship)
		if !isRel || rel.BackPopulates == "" {
			continue
		}
		if !target.HasAttr(rel.BackPopulates) {
			return false, nil
		}
	}
	return true, nil
}

// firstUnsatisfied returns the first unmet expectation of cls, for error
// reporting when a sweep makes no progress.
func (r *Registry) firstUnsatisfied(cls *Class) (related, attr, counterpart string) {
	rels := cls.Meta.Relationships()
	for _, rel := range sortedKeys(rels) {
		a := rels[rel]
		target, ok := r.latest[rel]
		if !ok {
			return rel, a, ""
		}
		v, _ := cls.Attr(a)
		relationship, isRel := v.(*mapper.Relationship)
		if !isRel || relationship.BackPopulates == "" {
			continue
		}
		if !target.HasAttr(relationship.BackPopulates) {
			return rel, a, relationship.BackPopulates
		}
	}
	return "", "", ""
}

// FinalizeMappings maps every declaration whose mapping was deferred, in
// declaration order, sweeping until the pending set is empty. A sweep that
// makes no progress means some expectation can never be satisfied, which is
// reported as a consistency error naming both sides. Idempotent: models
// already finalized are skipped, and the resulting name-to-class map is
// returned either way.
func (r *Registry) FinalizeMappings(ctx context.Context) (map[string]*Class, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pending []*Class
	for _, cls := range r.order {
		if !r.shouldInitialize(cls) || r.finalized[cls] {
			continue
		}
		pending = append(pending, cls)
	}

	for len(pending) > 0 {
		var next []*Class
		for _, cls := range pending {
			ready, err := r.expectationsReady(cls)
			if err != nil {
				return nil, err
			}
			if !ready {
				next = append(next, cls)
				continue
			}
			if err := r.initialize(ctx, cls); err != nil {
				return nil, err
			}
			r.finalized[cls] = true
			r.log.Info(ctx, fmt.Sprintf("initialized model %s (table %q)", cls.Qualname(), tableName(cls)))
		}
		if len(next) == len(pending) {
			cls := next[0]
			related, attr, counterpart := r.firstUnsatisfied(cls)
			return nil, &ConsistencyError{
				Model: cls.Name, Related: related, Attr: attr,
				Msg: fmt.Sprintf("its relationship %q expects %s to expose attribute %q, which it never does",
					attr, related, counterpart),
			}
		}
		pending = next
	}

	out := make(map[string]*Class, len(r.models))
	for name, cls := range r.models {
		out[name] = cls
	}
	return out, nil
}

func tableName(cls *Class) string {
	if cls.Table != nil {
		return cls.Table.Name
	}
	return ""
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
