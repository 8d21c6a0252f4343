package lmerr

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/loam-lang/loam/frontend/ast"
)

// enableDebugErrorPrinting makes errors include their stacktrace when printed
const enableDebugErrorPrinting bool = false
const enableDebugFullStacktrace bool = false

type ErrCode int

const (
	None ErrCode = iota
	UseBeforeAssign
	CaptureUnassigned
	Reassignment
	MissingType
	SubtypeMismatch
	ReturnMismatch
	FieldInitMismatch
	DispatchNotFound
	ShapeMismatch
	UnresolvedType
)

type LoamError interface {
	Error() string
	Code() ErrCode
	ast.Positioner

	withStack([]byte) LoamError
	getStack() []byte
}

func FormatWithCode(e LoamError) string {
	if enableDebugErrorPrinting && e.getStack() != nil {
		stack := string(e.getStack())
		if !enableDebugFullStacktrace {
			stack = strings.Split(stack, "\n")[6]
		}
		return fmt.Sprintf("%s:(E%03d) %s", stack, e.Code(), e.Error())
	}
	return fmt.Sprintf("(E%03d) %s", e.Code(), e.Error())
}

func New[E LoamError](err E) LoamError {
	return err.withStack(debug.Stack())
}

type Unclassified struct {
	From error
	ast.Positioner
	stack []byte
}

func (e Unclassified) Error() string {
	return fmt.Sprintf("unclassified error: %v", e.From)
}
func (e Unclassified) Code() ErrCode    { return None }
func (e Unclassified) getStack() []byte { return e.stack }
func (e Unclassified) withStack(stack []byte) LoamError {
	e.stack = stack
	return e
}

type NewUseBeforeAssign struct {
	ast.Positioner
	Name  string
	stack []byte
}

func (e NewUseBeforeAssign) Error() string {
	return fmt.Sprintf("variable '%s' used before assignment", e.Name)
}
func (e NewUseBeforeAssign) Code() ErrCode    { return UseBeforeAssign }
func (e NewUseBeforeAssign) getStack() []byte { return e.stack }
func (e NewUseBeforeAssign) withStack(stack []byte) LoamError {
	e.stack = stack
	return e
}

type NewCaptureUnassigned struct {
	ast.Positioner
	Name       string
	Definition ast.Range
	stack      []byte
}

func (e NewCaptureUnassigned) Error() string {
	return fmt.Sprintf(
		"free variable '%s' can't be captured if it hasn't been assigned to (definition is at %s)",
		e.Name, e.Definition)
}
func (e NewCaptureUnassigned) Code() ErrCode    { return CaptureUnassigned }
func (e NewCaptureUnassigned) getStack() []byte { return e.stack }
func (e NewCaptureUnassigned) withStack(stack []byte) LoamError {
	e.stack = stack
	return e
}

type NewReassignment struct {
	ast.Positioner // the right-hand side that can't be assigned
	Left           ast.Range
	stack          []byte
}

func (e NewReassignment) Error() string {
	return fmt.Sprintf("this expression can't be assigned: the local at %s has already been assigned to", e.Left)
}
func (e NewReassignment) Code() ErrCode    { return Reassignment }
func (e NewReassignment) getStack() []byte { return e.stack }
func (e NewReassignment) withStack(stack []byte) LoamError {
	e.stack = stack
	return e
}

type NewMissingType struct {
	ast.Positioner
	Name  string
	stack []byte
}

func (e NewMissingType) Error() string {
	return fmt.Sprintf("no type %s in scope", e.Name)
}
func (e NewMissingType) Code() ErrCode    { return MissingType }
func (e NewMissingType) getStack() []byte { return e.stack }
func (e NewMissingType) withStack(stack []byte) LoamError {
	e.stack = stack
	return e
}

type NewSubtypeMismatch struct {
	ast.Positioner
	First  string
	Second string
	Reason string
	At     ast.Range // where the required type comes from
	stack  []byte
}

func (e NewSubtypeMismatch) Error() string {
	msg := fmt.Sprintf("type mismatch: '%s' is not a subtype of '%s'", e.First, e.Second)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}
func (e NewSubtypeMismatch) Code() ErrCode    { return SubtypeMismatch }
func (e NewSubtypeMismatch) getStack() []byte { return e.stack }
func (e NewSubtypeMismatch) withStack(stack []byte) LoamError {
	e.stack = stack
	return e
}

type NewReturnMismatch struct {
	ast.Positioner
	ResultAt ast.Range
	stack    []byte
}

func (e NewReturnMismatch) Error() string {
	return fmt.Sprintf("the return value is not a subtype of the result type (result type is at %s)", e.ResultAt)
}
func (e NewReturnMismatch) Code() ErrCode    { return ReturnMismatch }
func (e NewReturnMismatch) getStack() []byte { return e.stack }
func (e NewReturnMismatch) withStack(stack []byte) LoamError {
	e.stack = stack
	return e
}

type NewFieldInitMismatch struct {
	ast.Positioner
	FieldTypeAt ast.Range
	stack       []byte
}

func (e NewFieldInitMismatch) Error() string {
	return fmt.Sprintf("the field initialiser is not a subtype of the field type (field type is at %s)", e.FieldTypeAt)
}
func (e NewFieldInitMismatch) Code() ErrCode    { return FieldInitMismatch }
func (e NewFieldInitMismatch) getStack() []byte { return e.stack }
func (e NewFieldInitMismatch) withStack(stack []byte) LoamError {
	e.stack = stack
	return e
}

type NewDispatchNotFound struct {
	ast.Positioner
	stack []byte
}

func (e NewDispatchNotFound) Error() string {
	return "couldn't find this function"
}
func (e NewDispatchNotFound) Code() ErrCode    { return DispatchNotFound }
func (e NewDispatchNotFound) getStack() []byte { return e.stack }
func (e NewDispatchNotFound) withStack(stack []byte) LoamError {
	e.stack = stack
	return e
}

type NewShapeMismatch struct {
	ast.Positioner
	Expected string
	Found    string
	stack    []byte
}

func (e NewShapeMismatch) Error() string {
	return fmt.Sprintf("expected %s but found %s", e.Expected, e.Found)
}
func (e NewShapeMismatch) Code() ErrCode    { return ShapeMismatch }
func (e NewShapeMismatch) getStack() []byte { return e.stack }
func (e NewShapeMismatch) withStack(stack []byte) LoamError {
	e.stack = stack
	return e
}

type NewUnresolvedType struct {
	ast.Positioner
	stack []byte
}

func (e NewUnresolvedType) Error() string {
	return "unresolved type"
}
func (e NewUnresolvedType) Code() ErrCode    { return UnresolvedType }
func (e NewUnresolvedType) getStack() []byte { return e.stack }
func (e NewUnresolvedType) withStack(stack []byte) LoamError {
	e.stack = stack
	return e
}
