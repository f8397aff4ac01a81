package main

import (
	"errors"
	"fmt"
	"os"
)

// Exception Numbers
const (
	CONFIG_NOT_FOUND int8 = iota + 1
	CONFIG_SYNTAX_ERROR
	CASE_MISMATCH
	TOOL_FAILURE
)

var Exps map[int8]string

// Initialize Exceptions Map
func InitExceptions() {
	Exps = make(map[int8]string, 0)
	Exps[CONFIG_NOT_FOUND] = "ConfigNotFound: %s"
	Exps[CONFIG_SYNTAX_ERROR] = "ConfigSyntaxError: %s"
	Exps[CASE_MISMATCH] = "CaseMismatch: %s"
	Exps[TOOL_FAILURE] = "ToolFailure: %s"
}

// Exception is a fatal build error. Its code doubles as the process exit
// status.
type Exception struct {
	Code int8
	Msg  string
}

func (e *Exception) Error() string {
	return fmt.Sprintf(Exps[e.Code], e.Msg)
}

// Raise builds an Exception for the given number.
func Raise(exception_number int8, format string, args ...interface{}) error {
	return &Exception{Code: exception_number, Msg: fmt.Sprintf(format, args...)}
}

// ExitOn prints err and terminates with its exception code, or 1 when the
// error carries no code.
func ExitOn(err error) {
	fmt.Fprintf(os.Stderr, "[!] %s\n", err.Error())
	var exc *Exception
	if errors.As(err, &exc) {
		os.Exit(int(exc.Code))
	}
	os.Exit(1)
}
