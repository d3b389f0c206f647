// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package vm

import (
	"errors"
	"fmt"
)

// Sentinel errors for VM execution failures. Every *ExecutionError unwraps
// to exactly one of these.
var (
	// ErrVariableNotFound indicates a Load or Store on an undeclared variable.
	ErrVariableNotFound = errors.New("variable not found")

	// ErrTimeout indicates the dynamic step budget was exceeded.
	ErrTimeout = errors.New("execution timeout")

	// ErrOverflowArithmetic indicates signed 32-bit overflow in Add, Sub or VecAdd.
	ErrOverflowArithmetic = errors.New("arithmetic overflow")
)

// ErrRegisterOutOfRange is returned by Check for a program that names a
// register the machine does not have.
var ErrRegisterOutOfRange = errors.New("register out of range")

// ErrorKind classifies an execution failure.
type ErrorKind string

const (
	KindVariableNotFound   ErrorKind = "variable_not_found"
	KindTimeout            ErrorKind = "timeout"
	KindOverflowArithmetic ErrorKind = "overflow_arithmetic"
)

// String returns the kind label.
func (k ErrorKind) String() string {
	return string(k)
}

// ExecutionError describes why a single Exe call aborted. No partial cost
// or output accompanies it.
type ExecutionError struct {
	Kind ErrorKind
	// PC is the index of the instruction that failed (the fetch index for
	// timeouts).
	PC int
	// Step is the number of instructions executed before the failure.
	Step int
}

// Error implements error.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s at pc %d after %d steps", e.Unwrap(), e.PC, e.Step)
}

// Unwrap returns the sentinel matching Kind.
func (e *ExecutionError) Unwrap() error {
	switch e.Kind {
	case KindVariableNotFound:
		return ErrVariableNotFound
	case KindTimeout:
		return ErrTimeout
	case KindOverflowArithmetic:
		return ErrOverflowArithmetic
	default:
		return errors.New(string(e.Kind))
	}
}

// KindOf returns the kind of err, or "" if err is not an *ExecutionError.
func KindOf(err error) ErrorKind {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return ""
}
