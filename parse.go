package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// conditional is the state of the (at most one) open @if block in a file.
// Blocks never nest.
type conditional struct {
	open    bool
	met     bool // some branch already matched
	active  bool // current branch enabled
	sawElse bool
}

// parser interprets one configuration file. Imports recurse into a fresh
// parser over a cloned scope.
type parser struct {
	path     string
	dir      string
	caseName string
	scope    Scope
	res      *ParseResult
	cond     conditional
}

// directive handlers. alwaysRuns marks keywords that must execute even while
// the enclosing conditional branch is disabled: the block-control keywords
// (to keep block state consistent) and @import (exports and case matches
// propagate regardless of enablement at the import site).
type directive struct {
	handle     func(p *parser, fields []string) error
	alwaysRuns bool
}

var directives map[string]directive

func init() {
	directives = map[string]directive{
		"@import": {(*parser).doImport, true},
		"@export": {(*parser).doExport, false},
		"@setenv": {(*parser).doSetenv, false},
		"@define": {(*parser).doDefine, false},
		"@if":     {(*parser).doIf, true},
		"@elif":   {(*parser).doElif, true},
		"@else":   {(*parser).doElse, true},
		"@endif":  {(*parser).doEndif, true},
		"@vlog":   {(*parser).doVlog, false},
		"@vopt":   {(*parser).doVopt, false},
		"@vsim":   {(*parser).doVsim, false},
	}
}

// ParseConfig interprets the configuration file at path under the given
// inherited scope and returns the ordered compile units, final flag buckets,
// export buckets and case-match count of the whole import tree below it.
func ParseConfig(path, caseName string, scope Scope) (*ParseResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, Raise(CONFIG_NOT_FOUND, "%s: %v", path, err)
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, Raise(CONFIG_NOT_FOUND, "%s", abs)
	}
	defer func() { _ = f.Close() }()

	p := &parser{
		path:     abs,
		dir:      filepath.Dir(abs),
		caseName: caseName,
		scope:    scope,
		res:      &ParseResult{},
	}

	lineno := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lineno++
		if err := p.line(sc.Text()); err != nil {
			if _, ok := err.(*Exception); ok {
				return nil, fmt.Errorf("%s:%d: %w", abs, lineno, err)
			}
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, Raise(CONFIG_NOT_FOUND, "%s: %v", abs, err)
	}
	if p.cond.open {
		return nil, fmt.Errorf("%s: %w", abs, Raise(CONFIG_SYNTAX_ERROR, "@if without @endif"))
	}

	p.res.Scope = p.scope
	return p.res, nil
}

// enabled reports whether ordinary lines are currently processed.
func (p *parser) enabled() bool {
	return !p.cond.open || p.cond.active
}

// abs resolves a path declared in this file against the file's directory,
// never against the process working directory.
func (p *parser) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(p.dir, path))
}

func (p *parser) line(raw string) error {
	text := StripComment(raw)
	text = ExpandEnv(text)
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	fields := strings.Fields(text)
	first := fields[0]

	if d, ok := directives[first]; ok {
		if !p.enabled() && !d.alwaysRuns {
			return nil
		}
		return d.handle(p, fields)
	}
	if strings.HasPrefix(first, "@") {
		return Raise(CONFIG_SYNTAX_ERROR, "unknown directive %s", first)
	}

	if !p.enabled() {
		return nil
	}

	switch {
	case strings.HasPrefix(first, "+incdir+") || strings.HasPrefix(first, "+define+"):
		for _, field := range fields {
			switch {
			case strings.HasPrefix(field, "+incdir+"):
				p.scope.AddIncDir(p.abs(strings.TrimPrefix(field, "+incdir+")))
			case strings.HasPrefix(field, "+define+"):
				p.scope.AddDefine(strings.TrimPrefix(field, "+define+"))
			default:
				fmt.Fprintf(os.Stderr, "[warn] %s: stray token %q\n", p.path, field)
			}
		}
	case IsSourceFile(first):
		p.res.Units = append(p.res.Units, CompileUnit{
			Source:  p.abs(first),
			Defines: append([]string(nil), p.scope.Defines...),
			IncDirs: append([]string(nil), p.scope.IncDirs...),
			Flags:   append([]string(nil), p.scope.Vlog...),
		})
	case strings.HasPrefix(first, "+") || strings.HasPrefix(first, "-"):
		stage, known := RouteFlag(first)
		if !known {
			// raw option for the final simulate stage
			p.scope.AddVsim(fields...)
			return nil
		}
		switch stage {
		case stageVlog:
			p.scope.AddVlog(fields...)
		case stageVopt:
			p.scope.AddVopt(fields...)
		case stageVsim:
			p.scope.AddVsim(fields...)
		}
	case len(fields) == 1:
		p.res.Modules = append(p.res.Modules, first)
	default:
		p.scope.AddVsim(fields...)
	}
	return nil
}

// matches reports whether a conditional token selects this run: either it
// names the run's case, or it was accumulated through @define. Only the
// exact case-name match counts toward the case-match counter.
func (p *parser) matches(token string) bool {
	return token == p.caseName || p.scope.Tokens["@"+token]
}

func (p *parser) doIf(fields []string) error {
	if len(fields) != 2 {
		return Raise(CONFIG_SYNTAX_ERROR, "@if wants one token")
	}
	if p.cond.open {
		return Raise(CONFIG_SYNTAX_ERROR, "@if inside @if, blocks do not nest")
	}
	token := fields[1]
	if token == p.caseName {
		p.res.CaseMatches++
	}
	hit := p.matches(token)
	p.cond = conditional{open: true, active: hit, met: hit}
	return nil
}

func (p *parser) doElif(fields []string) error {
	if len(fields) != 2 {
		return Raise(CONFIG_SYNTAX_ERROR, "@elif wants one token")
	}
	if !p.cond.open || p.cond.sawElse {
		return Raise(CONFIG_SYNTAX_ERROR, "@elif without @if")
	}
	token := fields[1]
	if token == p.caseName {
		p.res.CaseMatches++
	}
	hit := p.matches(token)
	p.cond.active = hit && !p.cond.met
	p.cond.met = p.cond.met || hit
	return nil
}

func (p *parser) doElse(fields []string) error {
	if !p.cond.open || p.cond.sawElse {
		return Raise(CONFIG_SYNTAX_ERROR, "@else without @if")
	}
	p.cond.sawElse = true
	p.cond.active = !p.cond.met
	p.cond.met = true
	return nil
}

// doEndif closes the block and unconditionally re-enables processing. Sound
// only because blocks cannot nest.
func (p *parser) doEndif(fields []string) error {
	if !p.cond.open {
		return Raise(CONFIG_SYNTAX_ERROR, "@endif without @if")
	}
	p.cond = conditional{}
	return nil
}

func (p *parser) doDefine(fields []string) error {
	if len(fields) != 2 {
		return Raise(CONFIG_SYNTAX_ERROR, "@define wants one token")
	}
	p.scope.Tokens["@"+fields[1]] = true
	return nil
}

func (p *parser) doSetenv(fields []string) error {
	if len(fields) < 3 {
		return Raise(CONFIG_SYNTAX_ERROR, "@setenv wants NAME VALUE")
	}
	p.scope.Env.Set(fields[1], strings.Join(fields[2:], " "))
	return nil
}

func (p *parser) doVlog(fields []string) error {
	p.scope.AddVlog(fields[1:]...)
	return nil
}

func (p *parser) doVopt(fields []string) error {
	p.scope.AddVopt(fields[1:]...)
	return nil
}

func (p *parser) doVsim(fields []string) error {
	p.scope.AddVsim(fields[1:]...)
	return nil
}

// doExport routes a line to the export bucket of the stage it would normally
// land in. Anything that is not a simulate flag exports to optimize.
func (p *parser) doExport(fields []string) error {
	if len(fields) < 2 {
		return Raise(CONFIG_SYNTAX_ERROR, "@export wants a flag line")
	}
	stage, known := RouteFlag(fields[1])
	if known && stage == stageVsim {
		p.res.Exports.Vsim = append(p.res.Exports.Vsim, fields[1:]...)
		return nil
	}
	p.res.Exports.Vopt = append(p.res.Exports.Vopt, fields[1:]...)
	return nil
}

// doImport recurses into another configuration file over a copy of the
// current scope. Compile units, modules and flag effects merge only when the
// import site is enabled; export buckets and the case-match count merge
// unconditionally.
func (p *parser) doImport(fields []string) error {
	if len(fields) != 2 {
		return Raise(CONFIG_SYNTAX_ERROR, "@import wants one path")
	}

	child, err := ParseConfig(p.abs(fields[1]), p.caseName, p.scope.Clone())
	if err != nil {
		return err
	}

	if p.enabled() {
		p.res.Units = append(p.res.Units, child.Units...)
		p.res.Modules = append(p.res.Modules, child.Modules...)
	}
	p.res.Exports.Vopt = append(p.res.Exports.Vopt, child.Exports.Vopt...)
	p.res.Exports.Vsim = append(p.res.Exports.Vsim, child.Exports.Vsim...)
	p.res.CaseMatches += child.CaseMatches
	return nil
}
