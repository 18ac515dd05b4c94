// Package interp implements the tree-walking evaluator (spec §4.4): the
// variable/scope store, job control and signal handling, alias expansion,
// and the builtin dispatch strategy chain, grounded on
// _examples/mvdan-sh/interp's Runner shape.
package interp

import "github.com/philipwilsonTHG/psh/expand"

// Scope is one frame of the variable-store stack (spec §3.3): the bottom
// frame is the global scope, each function call pushes one, and `local`
// installs into the top frame.
type Scope struct {
	vars map[string]expand.Variable
}

func newScope() *Scope { return &Scope{vars: map[string]expand.Variable{}} }

// Store is the process-wide variable store. It implements
// expand.WriteEnviron by resolving names against the scope stack
// top-down, the same lookup order a function body sees its caller's
// globals and its own locals.
type Store struct {
	scopes []*Scope
}

// NewStore returns a Store with just the global scope.
func NewStore() *Store {
	return &Store{scopes: []*Scope{newScope()}}
}

func (s *Store) global() *Scope { return s.scopes[0] }
func (s *Store) top() *Scope     { return s.scopes[len(s.scopes)-1] }

// PushScope installs a new local frame, called when a function is invoked
// (spec §3.3: "each function call pushes a scope").
func (s *Store) PushScope() { s.scopes = append(s.scopes, newScope()) }

// PopScope discards the top frame, called when a function body returns.
func (s *Store) PopScope() {
	if len(s.scopes) > 1 {
		s.scopes = s.scopes[:len(s.scopes)-1]
	}
}

// Depth reports the current scope-stack height, 1 at the top level.
func (s *Store) Depth() int { return len(s.scopes) }

// Get searches the scope stack top-down, implementing expand.Environ.
func (s *Store) Get(name string) expand.Variable {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if vr, ok := s.scopes[i].vars[name]; ok {
			return vr
		}
	}
	return expand.Variable{}
}

// Set writes to the scope that already declares name, or the global scope
// if no frame has it, implementing expand.WriteEnviron.
func (s *Store) Set(name string, vr expand.Variable) error {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if _, ok := s.scopes[i].vars[name]; ok {
			s.scopes[i].vars[name] = vr
			return nil
		}
	}
	s.global().vars[name] = vr
	return nil
}

// SetLocal installs name in the current top scope regardless of where it
// may already exist further down the stack (the `local` builtin, spec
// §3.3: "local installs in the top scope").
func (s *Store) SetLocal(name string, vr expand.Variable) {
	vr.Attrs |= expand.AttrLocal
	s.top().vars[name] = vr
}

// Unset removes name from whichever scope declares it.
func (s *Store) Unset(name string) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if _, ok := s.scopes[i].vars[name]; ok {
			delete(s.scopes[i].vars, name)
			return
		}
	}
}

// Each walks every visible name top-down, shadowing lower frames with
// the same name the way Get does, implementing expand.Environ.
func (s *Store) Each(f func(name string, vr expand.Variable) bool) {
	seen := map[string]bool{}
	for i := len(s.scopes) - 1; i >= 0; i-- {
		for name, vr := range s.scopes[i].vars {
			if seen[name] {
				continue
			}
			seen[name] = true
			if !f(name, vr) {
				return
			}
		}
	}
}

// Exported returns the name=value pairs of every exported variable, in
// the form `execve`'s environ wants.
func (s *Store) Exported() []string {
	var out []string
	s.Each(func(name string, vr expand.Variable) bool {
		if vr.Has(expand.AttrExported) && vr.Set {
			out = append(out, name+"="+vr.String())
		}
		return true
	})
	return out
}

// Copy returns an independent deep copy of the entire scope stack, used
// for the subshell fork-time isolation invariant (spec §3.3 "Ownership").
func (s *Store) Copy() *Store {
	out := &Store{scopes: make([]*Scope, len(s.scopes))}
	for i, sc := range s.scopes {
		ns := newScope()
		for k, v := range sc.vars {
			cp := v
			if v.Indexed != nil {
				cp.Indexed = make(map[int64]string, len(v.Indexed))
				for ik, iv := range v.Indexed {
					cp.Indexed[ik] = iv
				}
				cp.IndexOrder = append([]int64(nil), v.IndexOrder...)
			}
			if v.Assoc != nil {
				cp.Assoc = make(map[string]string, len(v.Assoc))
				for ak, av := range v.Assoc {
					cp.Assoc[ak] = av
				}
				cp.AssocOrder = append([]string(nil), v.AssocOrder...)
			}
			ns.vars[k] = cp
		}
		out.scopes[i] = ns
	}
	return out
}
