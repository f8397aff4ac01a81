package main

import (
	"os"
	"strings"
)

// Scope carries the defines, include directories, flag buckets and active
// @define tokens in effect while one configuration file is processed. It is
// a value type: every @import hands the child a Clone, so nothing the child
// does can reach back into the parent. Only the EnvContext pointer is
// shared, because @setenv is global by contract.
type Scope struct {
	Defines []string
	IncDirs []string
	Vlog    []string
	Vopt    []string
	Vsim    []string
	Tokens  map[string]bool
	Env     *EnvContext
}

func NewScope() Scope {
	return Scope{
		Tokens: make(map[string]bool),
		Env:    &EnvContext{},
	}
}

// Clone deep-copies everything except the shared EnvContext.
func (s Scope) Clone() Scope {
	c := s
	c.Defines = append([]string(nil), s.Defines...)
	c.IncDirs = append([]string(nil), s.IncDirs...)
	c.Vlog = append([]string(nil), s.Vlog...)
	c.Vopt = append([]string(nil), s.Vopt...)
	c.Vsim = append([]string(nil), s.Vsim...)
	c.Tokens = make(map[string]bool, len(s.Tokens))
	for k, v := range s.Tokens {
		c.Tokens[k] = v
	}
	return c
}

// AddDefine appends a define once; later duplicates are dropped.
func (s *Scope) AddDefine(def string) {
	for _, d := range s.Defines {
		if d == def {
			return
		}
	}
	s.Defines = append(s.Defines, def)
}

func (s *Scope) AddIncDir(dir string) {
	for _, d := range s.IncDirs {
		if d == dir {
			return
		}
	}
	s.IncDirs = append(s.IncDirs, dir)
}

// AddVlog appends compile flags, deduplicated. The optimize and simulate
// buckets keep duplicates.
func (s *Scope) AddVlog(flags ...string) {
	for _, f := range flags {
		dup := false
		for _, have := range s.Vlog {
			if have == f {
				dup = true
				break
			}
		}
		if !dup {
			s.Vlog = append(s.Vlog, f)
		}
	}
}

func (s *Scope) AddVopt(flags ...string) {
	s.Vopt = append(s.Vopt, flags...)
}

func (s *Scope) AddVsim(flags ...string) {
	s.Vsim = append(s.Vsim, flags...)
}

// Set applies a binding to the process environment immediately and records
// it for script emission.
func (e *EnvContext) Set(name, value string) {
	_ = os.Setenv(name, value)
	e.Bindings = append(e.Bindings, EnvBinding{Name: name, Value: value})
}

// Stage buckets for the flag-routing table.
const (
	stageVlog = iota
	stageVopt
	stageVsim
)

// Built-in routing for recognized vendor flags. The first token of a flag
// line decides the bucket for the whole line.
var flagRoutes = map[string]int{
	"-sv":        stageVlog,
	"-timescale": stageVlog,
	"-mfcu":      stageVlog,
	"-hazards":   stageVlog,
	"+cover":     stageVlog,
	"-f":         stageVlog,
	"+acc":       stageVopt,
	"-debugdb":   stageVopt,
	"-fsmdebug":  stageVopt,
	"-L":         stageVopt,
	"-pli":       stageVsim,
	"-sv_lib":    stageVsim,
	"-t":         stageVsim,
	"-wlf":       stageVsim,
	"-gui":       stageVsim,
	"-c":         stageVsim,
}

// RouteFlag looks a flag token up in the routing table. '+' flags may carry
// a value after '=', which does not participate in the lookup.
func RouteFlag(token string) (int, bool) {
	if strings.HasPrefix(token, "+UVM_") {
		return stageVsim, true
	}
	key := token
	if strings.HasPrefix(key, "+") {
		if i := strings.IndexByte(key, '='); i >= 0 {
			key = key[:i]
		}
	}
	stage, ok := flagRoutes[key]
	return stage, ok
}
