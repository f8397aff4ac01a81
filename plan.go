package main

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PlannedCompile pairs a compile unit with its final command line.
type PlannedCompile struct {
	Unit CompileUnit
	Cmd  string
}

// Plan is the full set of command lines for one invocation. Optimize is
// empty in two-stage mode, where its flags fold into the simulate command.
type Plan struct {
	Compiles []PlannedCompile
	Optimize string
	Simulate string
	Bindings []EnvBinding
}

func workDir(caseName string) string {
	return "work_" + caseName
}

func optName(caseName string) string {
	return "opt_" + caseName
}

// BuildPlan combines parser output with the run-level selections into the
// concrete vlog/vopt/vsim command lines.
func BuildPlan(res *ParseResult, opts *RunOptions) *Plan {
	work := workDir(opts.Case)
	plan := &Plan{Bindings: res.Scope.Env.Bindings}

	for _, unit := range res.Units {
		parts := []string{"vlog", "-work", work}
		parts = append(parts, unit.Flags...)
		for _, def := range unit.Defines {
			parts = append(parts, "+define+"+def)
		}
		for _, def := range opts.Defines {
			parts = append(parts, "+define+"+def)
		}
		// parameter overrides must be visible in the compile command so
		// the dependency engine re-runs when they change
		for _, param := range opts.Params {
			parts = append(parts, "+define+"+param)
		}
		for _, dir := range unit.IncDirs {
			parts = append(parts, "+incdir+"+dir)
		}
		parts = append(parts, unit.Source)
		plan.Compiles = append(plan.Compiles, PlannedCompile{
			Unit: unit,
			Cmd:  strings.Join(parts, " "),
		})
	}

	optFlags := append([]string(nil), res.Scope.Vopt...)
	for _, param := range opts.Params {
		optFlags = append(optFlags, "-G"+param)
	}
	optFlags = append(optFlags, res.Exports.Vopt...)

	if !opts.TwoStage {
		parts := []string{"vopt", "-work", work}
		parts = append(parts, optFlags...)
		parts = append(parts, res.Modules...)
		parts = append(parts, "-o", optName(opts.Case))
		plan.Optimize = strings.Join(parts, " ")
	}

	sim := []string{"vsim", "-work", work, "-wlf", filepath.Join(work, "vsim.wlf")}
	sim = append(sim, res.Scope.Vsim...)
	if opts.TwoStage && len(optFlags) > 0 {
		sim = append(sim, fmt.Sprintf("-voptargs=%q", strings.Join(optFlags, " ")))
	}
	if opts.Seed > 0 {
		sim = append(sim, "-sv_seed", fmt.Sprintf("%d", opts.Seed))
	} else {
		sim = append(sim, "-sv_seed", "random")
	}
	if opts.Test != "" {
		sim = append(sim, "+UVM_TESTNAME="+opts.Test)
	}
	sim = append(sim, res.Exports.Vsim...)
	if !hasFlag(res.Scope.Vsim, "-gui") {
		sim = append(sim, "-c", "-do", `"run -all; quit -f"`)
	}
	if opts.TwoStage {
		sim = append(sim, res.Modules...)
	} else {
		sim = append(sim, optName(opts.Case))
	}
	plan.Simulate = strings.Join(sim, " ")

	return plan
}

func hasFlag(bucket []string, flag string) bool {
	for _, f := range bucket {
		if f == flag {
			return true
		}
	}
	return false
}
