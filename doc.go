/*
Package main implements rsim, an incremental build runner for hardware
simulation.

rsim interprets line-oriented sim.cfg configuration files into a three-stage
vlog/vopt/vsim pipeline and skips every compile whose full dependency
closure is unchanged since the last successful run — including files the
configuration never declares, such as transitively `include'd headers.

# Configuration Language

One directive or entry per line, '#' starts a comment, $VAR and ${VAR}
references are substituted from the process environment:

	@import <path>        process another file under a copy of this scope
	@export <flag line>   promote flags to the root optimize/simulate command
	@setenv NAME VALUE    set a process environment variable
	@define <token>       add a token for @if/@elif comparisons
	@if/@elif/@else/@endif  select lines by case name or defined token
	@vlog/@vopt/@vsim <flags>  append flags to a stage bucket

	+define+TOKEN[=VALUE] compile define for the vlog stage
	+incdir+PATH          include directory, resolved against this file
	<file>.v|.sv|...      source file, compiled in declaration order
	<token>               linked module name for the optimize stage
	<anything else>       raw option for the simulate stage

Paths always resolve against the directory of the file that declares them,
never against the invoking directory. A child configuration reached through
@import cannot alter its parent's scope; only @export and @setenv escape.

# Incremental Builds

Each case keeps a dependency database under .rsim/. A compile is skipped
only when its recorded command line and every recorded dependency
fingerprint still match; a corrupt or missing database degrades to a full
rebuild, never to a missed one. Fingerprints are content digests, or
mtime+size with --modtime.

# CLI Commands

Build Operations:
  - run: compile, optimize and simulate a case
  - script: write every planned command to a shell script instead
  - clean: remove a case's work library and dependency database

Inspection:
  - view: open the waveform of a case's last simulation
  - deps: show recorded dependency closures

# Usage Examples

Run the default case:

	rsim run

Run a named case with a fixed seed, forcing a rebuild:

	rsim run -c smoke -s 1234 -F

Emit a self-contained build script:

	rsim script -c smoke -o smoke.sh

# Dependencies

rsim leverages the Orpheus framework for CLI capabilities and error
handling. Core dependencies include:
- github.com/agilira/orpheus: Modern CLI framework
- gopkg.in/yaml.v3: dependency database persistence
- github.com/cespare/xxhash/v2: command-line fingerprints

# Compatibility

Requires Go 1.18+ for fuzzing support and modern language features.
The pipeline itself targets Unix hosts where the vendor tools run.
*/
package main
