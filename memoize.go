package main

import (
	"crypto/md5" // #nosec G501 - change detection, not cryptography
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"
)

const depsDirName = ".rsim"

// FileStamp is one tracked file's fingerprint at the time of the last
// successful compile. Both the content digest and mtime+size are recorded;
// which one decides "changed" depends on the run's fingerprint mode.
type FileStamp struct {
	Path  string `yaml:"path"`
	MD5   string `yaml:"md5"`
	MTime int64  `yaml:"mtime"`
	Size  int64  `yaml:"size"`
}

// DepRecord justifies skipping one compile: every file that contributed to
// the last successful run of it, plus a fingerprint of the command line.
type DepRecord struct {
	Files []FileStamp `yaml:"files"`
	Cmd   uint64      `yaml:"cmd"`
}

// DepDatabase maps primary source file to its record. Persisted per case.
type DepDatabase map[string]DepRecord

func depsPath(caseName string) string {
	return filepath.Join(depsDirName, "deps-"+caseName+".yaml")
}

// LoadDeps reads the case's persisted database. A missing or corrupt file
// yields an empty database, never an error: over-build, never under-build.
func LoadDeps(caseName string) DepDatabase {
	data, err := os.ReadFile(depsPath(caseName))
	if err != nil {
		return DepDatabase{}
	}
	var db DepDatabase
	if err := yaml.Unmarshal(data, &db); err != nil {
		fmt.Fprintf(os.Stderr, "[warn] corrupt dependency database for case %s, rebuilding all\n", caseName)
		return DepDatabase{}
	}
	if db == nil {
		db = DepDatabase{}
	}
	return db
}

// SaveDeps persists the whole database via write-temp-then-rename, so a
// crash mid-write never corrupts previously valid entries.
func SaveDeps(caseName string, db DepDatabase) error {
	if err := os.MkdirAll(depsDirName, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(db)
	if err != nil {
		return err
	}
	tmp := depsPath(caseName) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, depsPath(caseName))
}

// Directories whose files are never tracked as dependencies. Seeded with
// system prefixes; the work library joins the list per run.
var exemptDirs = []string{
	"/usr/",
	"/lib",
	"/etc/",
	"/proc/",
}

// MarkExempt excludes a directory (notably the case's work library, which
// the compiles themselves populate) from dependency tracking.
func MarkExempt(dir string) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return
	}
	exemptDirs = append(exemptDirs, abs)
}

func isExempt(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return true
	}
	for _, dir := range exemptDirs {
		if strings.HasPrefix(abs, dir) {
			return true
		}
	}
	return false
}

// Stamp fingerprints one file.
func Stamp(path string) (FileStamp, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileStamp{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return FileStamp{}, err
	}
	return FileStamp{
		Path:  path,
		MD5:   fmt.Sprintf("%x", md5.Sum(data)), // #nosec G401
		MTime: info.ModTime().UnixNano(),
		Size:  info.Size(),
	}, nil
}

// stampMatches re-fingerprints the file and compares under the active mode.
func stampMatches(stamp FileStamp, useModTime bool) bool {
	now, err := Stamp(stamp.Path)
	if err != nil {
		return false
	}
	if useModTime {
		return now.MTime == stamp.MTime && now.Size == stamp.Size
	}
	return now.MD5 == stamp.MD5
}

// CmdFingerprint summarizes a command line for change detection.
func CmdFingerprint(cmd string) uint64 {
	return xxhash.Sum64String(cmd)
}

// ShouldRun decides skip-or-run for one compile. Skip only if a record
// exists, its command-line fingerprint equals the current one, and every
// recorded file still matches its stamp.
func ShouldRun(db DepDatabase, primary, cmd string, useModTime bool) bool {
	rec, ok := db[primary]
	if !ok {
		return true
	}
	if rec.Cmd != CmdFingerprint(cmd) {
		return true
	}
	for _, stamp := range rec.Files {
		if !stampMatches(stamp, useModTime) {
			return true
		}
	}
	return false
}

// Record replaces primary's entry with freshly stamped dependencies.
// Unreadable dependencies are dropped from the record, which forces a
// conservative re-run next time.
func Record(db DepDatabase, primary, cmd string, deps []string) {
	var stamps []FileStamp
	for _, dep := range deps {
		stamp, err := Stamp(dep)
		if err != nil {
			continue
		}
		stamps = append(stamps, stamp)
	}
	db[primary] = DepRecord{Files: stamps, Cmd: CmdFingerprint(cmd)}
}

var includePattern = regexp.MustCompile("`include\\s+\"([^\"]+)\"")

// ScanDeps determines the full dependency set of a compile by re-scanning
// the primary file and transitively following its `include references. The
// description language never declares these, so they are discovered here.
// Includes resolve against the unit's include directories first, then
// against the including file's own directory.
func ScanDeps(primary string, incDirs []string) []string {
	seen := map[string]bool{}
	var deps []string
	queue := []string{primary}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if seen[current] {
			continue
		}
		seen[current] = true
		deps = append(deps, current)

		data, err := os.ReadFile(current)
		if err != nil {
			continue
		}
		for _, match := range includePattern.FindAllStringSubmatch(string(data), -1) {
			resolved := resolveInclude(match[1], incDirs, filepath.Dir(current))
			if resolved == "" || isExempt(resolved) || seen[resolved] {
				continue
			}
			queue = append(queue, resolved)
		}
	}
	return deps
}

func resolveInclude(name string, incDirs []string, fromDir string) string {
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err == nil {
			return filepath.Clean(name)
		}
		return ""
	}
	for _, dir := range incDirs {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return filepath.Clean(candidate)
		}
	}
	candidate := filepath.Join(fromDir, name)
	if _, err := os.Stat(candidate); err == nil {
		return filepath.Clean(candidate)
	}
	return ""
}
