package common

import (
	"errors"
	"fmt"
)

// ErrorPolicy selects how lookup misses are reported by the layout and lookup components.
// The policy is fixed when a component is built; it is never chosen per call.
type ErrorPolicy int

const (
	// ErrorPolicyNoThrow reports lookup misses through sentinel return values (a negative offset,
	// a false ok flag or ErrUnknownParameter) so callers can branch on them.
	ErrorPolicyNoThrow ErrorPolicy = iota

	// ErrorPolicyThrow reports lookup misses by panicking with a *LookupError.
	ErrorPolicyThrow
)

// DefaultErrorPolicy is the policy applied by builders that are not given an explicit one.
var DefaultErrorPolicy = ErrorPolicyNoThrow

// String returns the lower-case name of the policy, as used in material definition files.
func (p ErrorPolicy) String() string {
	switch p {
	case ErrorPolicyNoThrow:
		return "nothrow"
	case ErrorPolicyThrow:
		return "throw"
	default:
		return fmt.Sprintf("ErrorPolicy(%d)", int(p))
	}
}

// ParseErrorPolicy converts a policy name ("nothrow", "throw" or "") into an ErrorPolicy.
// The empty string resolves to DefaultErrorPolicy.
//
// Parameters:
//   - s: the policy name
//
// Returns:
//   - ErrorPolicy: the parsed policy
//   - error: an error if the name is not recognized
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch s {
	case "":
		return DefaultErrorPolicy, nil
	case "nothrow":
		return ErrorPolicyNoThrow, nil
	case "throw":
		return ErrorPolicyThrow, nil
	}
	return DefaultErrorPolicy, fmt.Errorf("unknown error policy %q", s)
}

var (
	// ErrUnknownType is reported when a layout or conversion step meets a type outside its closed enumeration.
	ErrUnknownType = errors.New("unknown type")
	// ErrBindingOutOfRange is reported when a binding point is not below its capacity.
	ErrBindingOutOfRange = errors.New("binding point out of range")
	// ErrDuplicateName is reported when a block declares the same field name twice.
	ErrDuplicateName = errors.New("duplicate name")
	// ErrMissingStride is reported when a struct field is declared without its element stride.
	ErrMissingStride = errors.New("struct field requires an explicit stride")
	// ErrBuilderConsumed is reported when a builder is used after Build.
	ErrBuilderConsumed = errors.New("builder already consumed by Build")
	// ErrUnknownParameter is returned when a uniform or sampler name is not part of a block.
	ErrUnknownParameter = errors.New("unknown parameter")
	// ErrIndexOutOfRange is returned when an array element index is past the end of the array.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrTypeMismatch is returned when a parameter is written with a value of the wrong type.
	ErrTypeMismatch = errors.New("parameter type mismatch")
	// ErrShaderMismatch is returned when a shader declares a binding that disagrees with a material's blocks.
	ErrShaderMismatch = errors.New("shader does not match material layout")
)

// ConfigError describes a programmer error detected while building a block, a program or a material.
// Configuration errors are raised eagerly with panic; they are never returned.
type ConfigError struct {
	// Component names the component that detected the error (e.g. "uniform", "program").
	Component string
	// Detail is a human readable description of the offending declaration.
	Detail string
	// Err is the sentinel describing the class of error.
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Component, e.Detail, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// LookupError describes a failed lookup of a named uniform or sampler.
type LookupError struct {
	// Block is the name of the block that was searched.
	Block string
	// Name is the requested field name.
	Name string
	// Index is the requested array index, or -1 when not applicable.
	Index int
	// Err is ErrUnknownParameter, ErrIndexOutOfRange or ErrTypeMismatch.
	Err error
}

func (e *LookupError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s: %q[%d]: %v", e.Block, e.Name, e.Index, e.Err)
	}
	return fmt.Sprintf("%s: %q: %v", e.Block, e.Name, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// PanicConfig raises a *ConfigError. It never returns.
//
// Parameters:
//   - component: the component detecting the error
//   - err: the sentinel error class
//   - format: printf-style format for the detail message
//   - args: format arguments
func PanicConfig(component string, err error, format string, args ...any) {
	panic(&ConfigError{Component: component, Detail: fmt.Sprintf(format, args...), Err: err})
}
