package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/agilira/orpheus/pkg/orpheus"
)

const version = "1.0.0"

func main() {
	// initialize exceptions
	InitExceptions()

	app := orpheus.New("rsim").
		SetDescription("Incremental compile/optimize/simulate build runner").
		SetVersion(version)

	runCmd := orpheus.NewCommand("run", "Compile, optimize and simulate a case").
		SetHandler(runCommand)
	addPlanFlags(runCmd)
	runCmd.AddBoolFlag("force", "F", false, "Force rebuild, ignore the dependency database").
		AddBoolFlag("modtime", "m", false, "Fingerprint by mtime+size instead of content digest").
		AddBoolFlag("dry-run", "n", false, "Print commands without executing").
		AddBoolFlag("verbose", "v", false, "Verbose output").
		AddBoolFlag("queue", "q", false, "Submit the simulation through the queue command").
		AddBoolFlag("no-queue", "Q", false, "Never submit through the queue command").
		AddFlag("queue-cmd", "", "qrsh -now no", "Queue-submission template prefixed to vsim")
	app.AddCommand(runCmd)

	scriptCmd := orpheus.NewCommand("script", "Write the planned commands to a shell script").
		SetHandler(scriptCommand)
	addPlanFlags(scriptCmd)
	scriptCmd.AddFlag("output", "o", "", "Script path (default run_<case>.sh)")
	app.AddCommand(scriptCmd)

	cleanCmd := orpheus.NewCommand("clean", "Remove a case's work library and dependency database").
		SetHandler(cleanCommand).
		AddFlag("case", "c", defaultCase, "Case to clean")
	app.AddCommand(cleanCmd)

	viewCmd := orpheus.NewCommand("view", "Open the waveform of a case's last simulation").
		SetHandler(viewCommand).
		AddFlag("case", "c", defaultCase, "Case to view")
	app.AddCommand(viewCmd)

	depsCmd := orpheus.NewCommand("deps", "Show recorded dependencies for a case").
		SetHandler(depsCommand).
		AddFlag("case", "c", defaultCase, "Case to inspect")
	app.AddCommand(depsCmd)

	if err := app.Run(os.Args[1:]); err != nil {
		ExitOn(err)
	}
}

// addPlanFlags attaches the flags shared by every command that plans
// commands from a configuration tree.
func addPlanFlags(cmd *orpheus.Command) {
	cmd.AddFlag("config", "f", "sim.cfg", "Configuration file").
		AddFlag("case", "c", defaultCase, "Build case selecting conditional branches").
		AddFlag("test", "t", "", "Test name passed to the simulation").
		AddFlag("define", "d", "", "Extra defines (comma separated)").
		AddIntFlag("seed", "s", 0, "Simulation seed (0 = random)").
		AddFlag("param", "g", "", "Parameter overrides NAME=VALUE (comma separated)").
		AddBoolFlag("two-stage", "2", false, "Fold the optimize stage into vsim")
}

func optionsFromContext(ctx *orpheus.Context) (*RunOptions, error) {
	opts := &RunOptions{
		ConfigPath: ctx.GetFlagString("config"),
		Case:       ctx.GetFlagString("case"),
		Test:       ctx.GetFlagString("test"),
		Defines:    SplitList(ctx.GetFlagString("define")),
		Seed:       ctx.GetFlagInt("seed"),
		Params:     SplitList(ctx.GetFlagString("param")),
		TwoStage:   ctx.GetFlagBool("two-stage"),
	}
	if opts.Test == "" {
		opts.Test = opts.Case
	}
	for _, param := range opts.Params {
		if !strings.Contains(param, "=") {
			return nil, orpheus.ValidationError("run", fmt.Sprintf("parameter override %q is not NAME=VALUE", param))
		}
	}
	return opts, nil
}

func runCommand(ctx *orpheus.Context) error {
	opts, err := optionsFromContext(ctx)
	if err != nil {
		return err
	}
	opts.Force = ctx.GetFlagBool("force")
	opts.ModTime = ctx.GetFlagBool("modtime")
	opts.DryRun = ctx.GetFlagBool("dry-run")
	opts.Verbose = ctx.GetFlagBool("verbose")
	opts.Queue = ctx.GetFlagBool("queue")
	opts.NoQueue = ctx.GetFlagBool("no-queue")
	opts.QueueCmd = ctx.GetFlagString("queue-cmd")
	return NewDriver(opts).Run()
}

func scriptCommand(ctx *orpheus.Context) error {
	opts, err := optionsFromContext(ctx)
	if err != nil {
		return err
	}
	opts.ScriptOut = ctx.GetFlagString("output")
	if opts.ScriptOut == "" {
		opts.ScriptOut = "run_" + opts.Case + ".sh"
	}
	return NewDriver(opts).Run()
}

func cleanCommand(ctx *orpheus.Context) error {
	return Clean(ctx.GetFlagString("case"))
}

func viewCommand(ctx *orpheus.Context) error {
	opts := &RunOptions{Case: ctx.GetFlagString("case")}
	return NewDriver(opts).View()
}

func depsCommand(ctx *orpheus.Context) error {
	caseName := ctx.GetFlagString("case")
	db := LoadDeps(caseName)
	if len(db) == 0 {
		fmt.Printf("no recorded dependencies for case %s\n", caseName)
		return nil
	}
	primaries := make([]string, 0, len(db))
	for primary := range db {
		primaries = append(primaries, primary)
	}
	sort.Strings(primaries)
	for _, primary := range primaries {
		fmt.Printf("%s\n", primary)
		for _, stamp := range db[primary].Files {
			fmt.Printf("    %s\n", stamp.Path)
		}
	}
	return nil
}
