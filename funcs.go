package main

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// $var or ${var}
var envRefPattern = regexp.MustCompile(`\$\w+|\$\{[^}]+\}`)

// ExpandEnv substitutes environment-variable references textually, the way
// they appear in a configuration line. Undefined references are left in
// place with a warning.
func ExpandEnv(text string) string {
	matches := envRefPattern.FindAllString(text, -1)

	for _, m := range matches {
		varname := strings.TrimPrefix(m, "$")
		varname = strings.Trim(varname, "{}")

		val, exists := os.LookupEnv(varname)
		if !exists {
			fmt.Fprintf(os.Stderr, "[warn] undefined variable %s\n", m)
			continue
		}

		text = strings.Replace(text, m, val, 1)
	}

	return text
}

// StripComment cuts a line at the first '#'.
func StripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}

// SplitList splits a comma-separated CLI value, dropping empty elements.
func SplitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Recognized source-file extensions
var sourceExts = map[string]bool{
	".v":    true,
	".sv":   true,
	".svh":  true,
	".vhd":  true,
	".vhdl": true,
}

// IsSourceFile reports whether a token names a compile source by extension.
func IsSourceFile(token string) bool {
	if i := strings.LastIndexByte(token, '.'); i >= 0 {
		return sourceExts[token[i:]]
	}
	return false
}
