package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ===== TEST HELPERS =====

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create dir for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func mustParse(t *testing.T, path, caseName string) *ParseResult {
	t.Helper()
	res, err := ParseConfig(path, caseName, NewScope())
	if err != nil {
		t.Fatalf("ParseConfig(%s, %s) unexpected error: %v", path, caseName, err)
	}
	return res
}

func exceptionCode(err error) int8 {
	var exc *Exception
	if errors.As(err, &exc) {
		return exc.Code
	}
	return 0
}

// ===== PARSER UNIT TESTS =====

func TestParseScopeIsolation(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "sub/child.cfg", "+define+B\nfile2.v\n")
	root := writeConfig(t, dir, "sim.cfg", "+define+A\n@import sub/child.cfg\nfile1.v\n")

	res := mustParse(t, root, "default")

	if len(res.Units) != 2 {
		t.Fatalf("Expected 2 compile units, got %d", len(res.Units))
	}

	// child units are appended after the parent's so-far list
	child, parent := res.Units[0], res.Units[1]
	if filepath.Base(child.Source) != "file2.v" || filepath.Base(parent.Source) != "file1.v" {
		t.Fatalf("Unexpected unit order: %s, %s", child.Source, parent.Source)
	}

	if !hasFlag(parent.Defines, "A") || hasFlag(parent.Defines, "B") {
		t.Errorf("file1.v defines = %v, want A and not B", parent.Defines)
	}
	if !hasFlag(child.Defines, "A") || !hasFlag(child.Defines, "B") {
		t.Errorf("file2.v defines = %v, want both A and B", child.Defines)
	}
}

func TestParseExportPropagatesTwoLevels(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "a/b/inner.cfg", "@export -pli x.so\n")
	writeConfig(t, dir, "a/mid.cfg", "@import b/inner.cfg\n")
	root := writeConfig(t, dir, "sim.cfg", "@import a/mid.cfg\ntop\n")

	res := mustParse(t, root, "default")

	joined := strings.Join(res.Exports.Vsim, " ")
	if joined != "-pli x.so" {
		t.Errorf("Exports.Vsim = %q, want exactly one -pli x.so", joined)
	}

	sim := BuildPlan(res, &RunOptions{Case: "default"}).Simulate
	if strings.Count(sim, "-pli x.so") != 1 {
		t.Errorf("simulate command %q should contain -pli x.so exactly once", sim)
	}
}

func TestParsePathRebasing(t *testing.T) {
	dir := t.TempDir()
	sub := writeConfig(t, dir, "sub/build.cfg", "+incdir+.\ndut.sv\n")

	// parse from an unrelated working directory
	wd, _ := os.Getwd()
	defer func() { _ = os.Chdir(wd) }()
	other := t.TempDir()
	if err := os.Chdir(other); err != nil {
		t.Fatalf("Failed to change dir: %v", err)
	}

	res := mustParse(t, sub, "default")

	wantDir, _ := filepath.EvalSymlinks(filepath.Join(dir, "sub"))
	gotDir, _ := filepath.EvalSymlinks(res.Scope.IncDirs[0])
	if gotDir != wantDir {
		t.Errorf("incdir = %s, want %s", gotDir, wantDir)
	}
	if !filepath.IsAbs(res.Units[0].Source) {
		t.Errorf("source path %s is not absolute", res.Units[0].Source)
	}
}

func TestParseConditionalSelection(t *testing.T) {
	content := "@if X\n+define+TOOK_IF\n@else\n+define+TOOK_ELSE\n@endif\n"

	tests := []struct {
		name        string
		caseName    string
		wantDefine  string
		wantMatches int
	}{
		{
			name:        "Case X takes the if branch",
			caseName:    "X",
			wantDefine:  "TOOK_IF",
			wantMatches: 1,
		},
		{
			name:        "Other case takes the else branch",
			caseName:    "Y",
			wantDefine:  "TOOK_ELSE",
			wantMatches: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			root := writeConfig(t, dir, "sim.cfg", content)

			res := mustParse(t, root, tt.caseName)

			if len(res.Scope.Defines) != 1 || res.Scope.Defines[0] != tt.wantDefine {
				t.Errorf("defines = %v, want [%s]", res.Scope.Defines, tt.wantDefine)
			}
			if res.CaseMatches != tt.wantMatches {
				t.Errorf("CaseMatches = %d, want %d", res.CaseMatches, tt.wantMatches)
			}
		})
	}
}

func TestParseDefineTokenMatchesWithoutCounting(t *testing.T) {
	dir := t.TempDir()
	root := writeConfig(t, dir, "sim.cfg", "@define FOO\n@if FOO\n+define+GOT\n@endif\n")

	res := mustParse(t, root, "default")

	if !hasFlag(res.Scope.Defines, "GOT") {
		t.Errorf("@define token should enable the @if branch, defines = %v", res.Scope.Defines)
	}
	if res.CaseMatches != 0 {
		t.Errorf("CaseMatches = %d, token matches must not count as case matches", res.CaseMatches)
	}
}

func TestParseElifSemantics(t *testing.T) {
	content := "@if A\n+define+FIRST\n@elif B\n+define+SECOND\n@elif A\n+define+AGAIN\n@endif\n"
	dir := t.TempDir()
	root := writeConfig(t, dir, "sim.cfg", content)

	res := mustParse(t, root, "A")

	// the second A branch is forced disabled because the first matched,
	// but its case-match still counts
	if !hasFlag(res.Scope.Defines, "FIRST") || hasFlag(res.Scope.Defines, "SECOND") || hasFlag(res.Scope.Defines, "AGAIN") {
		t.Errorf("defines = %v, want only FIRST", res.Scope.Defines)
	}
	if res.CaseMatches != 2 {
		t.Errorf("CaseMatches = %d, want 2 (both A tokens)", res.CaseMatches)
	}
}

func TestParseEndifReenablesUnconditionally(t *testing.T) {
	dir := t.TempDir()
	root := writeConfig(t, dir, "sim.cfg", "@if nothing\n+define+HIDDEN\n@endif\n+define+VISIBLE\n")

	res := mustParse(t, root, "default")

	if hasFlag(res.Scope.Defines, "HIDDEN") {
		t.Errorf("disabled branch leaked a define: %v", res.Scope.Defines)
	}
	if !hasFlag(res.Scope.Defines, "VISIBLE") {
		t.Errorf("@endif did not re-enable processing: %v", res.Scope.Defines)
	}
}

func TestParseDisabledImportStillPropagatesExports(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "sub.cfg", "@export -pli y.so\nskipped.v\nskipmod\n")
	root := writeConfig(t, dir, "sim.cfg", "@if nothing\n@import sub.cfg\n@endif\n")

	res := mustParse(t, root, "default")

	if len(res.Units) != 0 || len(res.Modules) != 0 {
		t.Errorf("disabled import leaked units %v / modules %v", res.Units, res.Modules)
	}
	if strings.Join(res.Exports.Vsim, " ") != "-pli y.so" {
		t.Errorf("exports must propagate regardless of enablement, got %v", res.Exports.Vsim)
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"Else without if", "+define+A\n@else\n"},
		{"Elif without if", "@elif X\n"},
		{"Endif without if", "@endif\n"},
		{"Nested if", "@if A\n@if B\n@endif\n@endif\n"},
		{"Unclosed if", "@if A\n+define+X\n"},
		{"Else after else", "@if A\n@else\n@else\n@endif\n"},
		{"Unknown directive", "@frobnicate now\n"},
		{"Setenv without value", "@setenv ONLYNAME\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			root := writeConfig(t, dir, "sim.cfg", tt.content)

			_, err := ParseConfig(root, "default", NewScope())
			if err == nil {
				t.Fatalf("ParseConfig accepted invalid input %q", tt.content)
			}
			if exceptionCode(err) != CONFIG_SYNTAX_ERROR {
				t.Errorf("error = %v, want a ConfigSyntaxError", err)
			}
		})
	}
}

func TestParseConfigNotFound(t *testing.T) {
	_, err := ParseConfig(filepath.Join(t.TempDir(), "absent.cfg"), "default", NewScope())
	if exceptionCode(err) != CONFIG_NOT_FOUND {
		t.Errorf("error = %v, want a ConfigNotFound", err)
	}
}

func TestParseMissingImportIsFatal(t *testing.T) {
	dir := t.TempDir()
	root := writeConfig(t, dir, "sim.cfg", "@import gone.cfg\n")

	_, err := ParseConfig(root, "default", NewScope())
	if exceptionCode(err) != CONFIG_NOT_FOUND {
		t.Errorf("error = %v, want a ConfigNotFound for the missing import", err)
	}
}

func TestParseFlagRouting(t *testing.T) {
	content := strings.Join([]string{
		"-sv",
		"-timescale 1ns/1ps",
		"+cover=bcst",
		"+acc=npr",
		"-L mylib",
		"-pli handler.so",
		"+UVM_VERBOSITY=UVM_LOW",
		"+unknown_plusarg",
		"top_tb",
	}, "\n") + "\n"

	dir := t.TempDir()
	root := writeConfig(t, dir, "sim.cfg", content)

	res := mustParse(t, root, "default")
	vlog := strings.Join(res.Scope.Vlog, " ")
	vopt := strings.Join(res.Scope.Vopt, " ")
	vsim := strings.Join(res.Scope.Vsim, " ")

	for _, want := range []string{"-sv", "-timescale 1ns/1ps", "+cover=bcst"} {
		if !strings.Contains(vlog, want) {
			t.Errorf("vlog bucket %q missing %q", vlog, want)
		}
	}
	for _, want := range []string{"+acc=npr", "-L mylib"} {
		if !strings.Contains(vopt, want) {
			t.Errorf("vopt bucket %q missing %q", vopt, want)
		}
	}
	for _, want := range []string{"-pli handler.so", "+UVM_VERBOSITY=UVM_LOW", "+unknown_plusarg"} {
		if !strings.Contains(vsim, want) {
			t.Errorf("vsim bucket %q missing %q", vsim, want)
		}
	}
	if len(res.Modules) != 1 || res.Modules[0] != "top_tb" {
		t.Errorf("modules = %v, want [top_tb]", res.Modules)
	}
}

func TestParseVlogBucketDeduplicates(t *testing.T) {
	dir := t.TempDir()
	root := writeConfig(t, dir, "sim.cfg", "@vlog -sv\n@vlog -sv -mfcu\n@vsim -foo\n@vsim -foo\n")

	res := mustParse(t, root, "default")

	if got := strings.Join(res.Scope.Vlog, " "); got != "-sv -mfcu" {
		t.Errorf("vlog bucket = %q, want deduplicated \"-sv -mfcu\"", got)
	}
	if len(res.Scope.Vsim) != 2 {
		t.Errorf("vsim bucket = %v, duplicates must be preserved", res.Scope.Vsim)
	}
}

func TestParseSetenv(t *testing.T) {
	dir := t.TempDir()
	root := writeConfig(t, dir, "sim.cfg", "@setenv RSIM_TEST_BINDING hello world\n")

	res := mustParse(t, root, "default")

	if got := os.Getenv("RSIM_TEST_BINDING"); got != "hello world" {
		t.Errorf("process environment = %q, want %q", got, "hello world")
	}
	bindings := res.Scope.Env.Bindings
	if len(bindings) != 1 || bindings[0].Name != "RSIM_TEST_BINDING" || bindings[0].Value != "hello world" {
		t.Errorf("recorded bindings = %v", bindings)
	}
	_ = os.Unsetenv("RSIM_TEST_BINDING")
}

func TestParseEnvSubstitutionInLines(t *testing.T) {
	t.Setenv("RSIM_TEST_DEF", "FROM_ENV")

	dir := t.TempDir()
	root := writeConfig(t, dir, "sim.cfg", "+define+$RSIM_TEST_DEF\n")

	res := mustParse(t, root, "default")
	if !hasFlag(res.Scope.Defines, "FROM_ENV") {
		t.Errorf("defines = %v, want the substituted FROM_ENV", res.Scope.Defines)
	}
}

func TestParseCommentsAndBlanks(t *testing.T) {
	dir := t.TempDir()
	root := writeConfig(t, dir, "sim.cfg", "# full comment line\n\n+define+A # trailing comment\n   \n")

	res := mustParse(t, root, "default")
	if len(res.Scope.Defines) != 1 || res.Scope.Defines[0] != "A" {
		t.Errorf("defines = %v, want [A]", res.Scope.Defines)
	}
}

func TestParseChildBucketsDoNotReachParent(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "child.cfg", "@vsim -gui\n@vopt +acc\n+incdir+headers\n")
	root := writeConfig(t, dir, "sim.cfg", "@import child.cfg\n")

	res := mustParse(t, root, "default")

	if len(res.Scope.Vsim) != 0 || len(res.Scope.Vopt) != 0 || len(res.Scope.IncDirs) != 0 {
		t.Errorf("child scope leaked into parent: vsim=%v vopt=%v incdirs=%v",
			res.Scope.Vsim, res.Scope.Vopt, res.Scope.IncDirs)
	}
}

func TestParseExportDefaultRoutesToOptimize(t *testing.T) {
	dir := t.TempDir()
	root := writeConfig(t, dir, "sim.cfg", "@export -L extlib\n@export +acc=npr\n@export -sv_lib dpi\n")

	res := mustParse(t, root, "default")

	if got := strings.Join(res.Exports.Vopt, " "); got != "-L extlib +acc=npr" {
		t.Errorf("optimize exports = %q", got)
	}
	if got := strings.Join(res.Exports.Vsim, " "); got != "-sv_lib dpi" {
		t.Errorf("simulate exports = %q", got)
	}
}
