package main

// EnvBinding is one @setenv declaration, kept in declaration order for
// script emission.
type EnvBinding struct {
	Name  string
	Value string
}

// EnvContext collects @setenv bindings. It is the one piece of parser state
// deliberately shared across @import boundaries: the process environment is
// global, so the record of what was written to it is global too.
type EnvContext struct {
	Bindings []EnvBinding
}

// CompileUnit is one source file together with the snapshot of the scope it
// was declared under. One unit yields exactly one vlog command.
type CompileUnit struct {
	Source  string
	Defines []string
	IncDirs []string
	Flags   []string
}

// Exports holds flags promoted past normal scoping by @export. They are read
// once, by the root invocation's optimize and simulate commands.
type Exports struct {
	Vopt []string
	Vsim []string
}

// ParseResult is everything one ParseConfig call produced, imports included.
type ParseResult struct {
	Units       []CompileUnit
	Modules     []string
	Scope       Scope
	Exports     Exports
	CaseMatches int
}

// RunOptions are the run-level selections gathered from the CLI.
type RunOptions struct {
	ConfigPath string
	Case       string
	Test       string
	Defines    []string
	Seed       int
	Params     []string
	TwoStage   bool
	Force      bool
	ModTime    bool
	DryRun     bool
	Verbose    bool
	Queue      bool
	NoQueue    bool
	QueueCmd   string
	ScriptOut  string
}
