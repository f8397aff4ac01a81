package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const defaultCase = "default"

// vopt has no primary source file; its skip decision is keyed by a sentinel
// entry in the same per-case database.
const voptSentinel = "<vopt>"

// Driver sequences the compile, optimize and simulate stages. Command
// execution is an injected collaborator so the pipeline is testable without
// the vendor tools installed.
type Driver struct {
	Opts *RunOptions
	Exec func(command string, verbose, dryRun bool) (string, error)
}

func NewDriver(opts *RunOptions) *Driver {
	return &Driver{Opts: opts, Exec: ExecuteCommandWithContext}
}

func (d *Driver) exec(command string) (string, error) {
	return d.Exec(command, d.Opts.Verbose, d.Opts.DryRun)
}

// Run executes the whole pipeline for one case. Any failing stage aborts
// every later one.
func (d *Driver) Run() error {
	opts := d.Opts

	_ = os.Setenv("RSIM_CASE", opts.Case)
	_ = os.Setenv("RSIM_TEST", opts.Test)

	res, err := ParseConfig(opts.ConfigPath, opts.Case, NewScope())
	if err != nil {
		return err
	}
	if opts.Case != defaultCase && res.CaseMatches == 0 {
		return Raise(CASE_MISMATCH, "case %s matched no conditional in %s", opts.Case, opts.ConfigPath)
	}

	plan := BuildPlan(res, opts)

	if opts.ScriptOut != "" {
		return d.EmitScript(plan)
	}

	work := workDir(opts.Case)
	MarkExempt(work)
	if err := d.ensureWorkLib(work); err != nil {
		return err
	}

	db := LoadDeps(opts.Case)
	compiled := 0

	for _, pc := range plan.Compiles {
		if !opts.Force && !ShouldRun(db, pc.Unit.Source, pc.Cmd, opts.ModTime) {
			if opts.Verbose {
				fmt.Printf("up to date: %s\n", pc.Unit.Source)
			}
			continue
		}
		out, err := d.exec(pc.Cmd)
		if out != "" {
			fmt.Print(out)
		}
		if err != nil {
			// the stale record stays untouched so the next invocation
			// retries from identical state
			return Raise(TOOL_FAILURE, "vlog failed for %s: %v", pc.Unit.Source, err)
		}
		if !opts.DryRun {
			deps := ScanDeps(pc.Unit.Source, pc.Unit.IncDirs)
			Record(db, pc.Unit.Source, pc.Cmd, deps)
			if err := SaveDeps(opts.Case, db); err != nil {
				return err
			}
		}
		compiled++
	}

	if plan.Optimize != "" {
		if d.optimizeNeeded(db, plan.Optimize, compiled) {
			out, err := d.exec(plan.Optimize)
			if out != "" {
				fmt.Print(out)
			}
			if err != nil {
				return Raise(TOOL_FAILURE, "vopt failed: %v", err)
			}
			if !opts.DryRun {
				Record(db, voptSentinel, plan.Optimize, nil)
				if err := SaveDeps(opts.Case, db); err != nil {
					return err
				}
			}
		} else if opts.Verbose {
			fmt.Println("up to date: optimize")
		}
	}

	sim := plan.Simulate
	if d.wrapQueue() {
		sim = opts.QueueCmd + " " + sim
	}
	out, err := d.exec(sim)
	if out != "" {
		fmt.Print(out)
	}
	if err != nil {
		return Raise(TOOL_FAILURE, "vsim failed: %v", err)
	}
	return nil
}

// optimizeNeeded: vopt re-runs when any source recompiled, when parameter
// overrides are selected (the linked artifact differs even if no input
// did), when forced, or when its recorded command line changed.
func (d *Driver) optimizeNeeded(db DepDatabase, cmd string, compiled int) bool {
	if compiled > 0 || d.Opts.Force || len(d.Opts.Params) > 0 {
		return true
	}
	rec, ok := db[voptSentinel]
	if !ok {
		return true
	}
	return rec.Cmd != CmdFingerprint(cmd)
}

// wrapQueue decides whether the simulate command goes through the
// queue-submission template: explicitly requested, or an interactive remote
// shell without an explicit opt-out.
func (d *Driver) wrapQueue() bool {
	if d.Opts.NoQueue || d.Opts.QueueCmd == "" {
		return false
	}
	if d.Opts.Queue {
		return true
	}
	return os.Getenv("SSH_TTY") != ""
}

func (d *Driver) ensureWorkLib(work string) error {
	if _, err := os.Stat(work); err == nil {
		return nil
	}
	out, err := d.exec("vlib " + work)
	if out != "" {
		fmt.Print(out)
	}
	if err != nil {
		return Raise(TOOL_FAILURE, "vlib failed for %s: %v", work, err)
	}
	return nil
}

// EmitScript writes every planned command, verbatim and in order, to a
// shell script instead of executing. Commands are never queue-wrapped here.
func (d *Driver) EmitScript(plan *Plan) error {
	opts := d.Opts
	work := workDir(opts.Case)

	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	b.WriteString("set -e\n\n")
	b.WriteString(fmt.Sprintf("export RSIM_CASE=%s\n", opts.Case))
	b.WriteString(fmt.Sprintf("export RSIM_TEST=%s\n", opts.Test))
	for _, bind := range plan.Bindings {
		b.WriteString(fmt.Sprintf("export %s=%s\n", bind.Name, bind.Value))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("[ -d %s ] || vlib %s\n\n", work, work))
	for _, pc := range plan.Compiles {
		b.WriteString(pc.Cmd + "\n")
	}
	if plan.Optimize != "" {
		b.WriteString(plan.Optimize + "\n")
	}
	b.WriteString(plan.Simulate + "\n")

	if err := os.WriteFile(opts.ScriptOut, []byte(b.String()), 0o755); err != nil { // #nosec G306 - executable script
		return err
	}
	fmt.Printf("wrote %s\n", opts.ScriptOut)
	return nil
}

// Clean removes the case's work library and dependency database.
func Clean(caseName string) error {
	if err := os.RemoveAll(workDir(caseName)); err != nil {
		return err
	}
	if err := os.Remove(depsPath(caseName)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// View launches the waveform viewer on the case's last simulation output.
// A missing artifact is reported, not fatal.
func (d *Driver) View() error {
	wlf := filepath.Join(workDir(d.Opts.Case), "vsim.wlf")
	if _, err := os.Stat(wlf); err != nil {
		fmt.Printf("no waveform for case %s (expected %s), run a simulation first\n", d.Opts.Case, wlf)
		return nil
	}
	out, err := d.exec("vsim -view " + wlf)
	if out != "" {
		fmt.Print(out)
	}
	if err != nil {
		return Raise(TOOL_FAILURE, "viewer failed: %v", err)
	}
	return nil
}
