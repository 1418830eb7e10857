package diag

import (
	"fmt"
)

type Code uint16

const (
	// Unknown error
	UnknownCode Code = 0

	// Lookup failures
	LookupInfo          Code = 1000
	LookupMissingType   Code = 1001
	LookupMissingField  Code = 1002
	LookupMissingMethod Code = 1003
	LookupMissingCtor   Code = 1004
	LookupMissingName   Code = 1005
	LookupNoOverload    Code = 1006
	LookupNoEntryPoint  Code = 1007

	// Type mismatch failures
	TypeInfo            Code = 2000
	TypeMismatch        Code = 2001
	TypeNotInteger      Code = 2002
	TypeNotArray        Code = 2003
	TypeNotBool         Code = 2004
	TypeNotDelegate     Code = 2005
	TypeCannotInfer     Code = 2006
	TypeInvalidOperands Code = 2007
	TypeVoidValue       Code = 2008

	// Shape failures
	ShapeInfo               Code = 3000
	ShapeUnsupportedNode    Code = 3001
	ShapeStrayValue         Code = 3002
	ShapeMultipleEntries    Code = 3003
	ShapeDelegateSignature  Code = 3004
	ShapeNotAssignable      Code = 3005
	ShapeMissingReturn      Code = 3006
	ShapeDuplicateType      Code = 3007
	ShapeDuplicateMember    Code = 3008
	ShapeDuplicateLocal     Code = 3009
	ShapeStaticContext      Code = 3010
	ShapeStaticFieldInit    Code = 3011
	ShapeStoreFrozen        Code = 3012
	ShapeTypeSealed         Code = 3013
	ShapeInvalidEntryPoint  Code = 3014
	ShapeBadOperator        Code = 3015

	// Backend capability failures
	BackendInfo            Code = 4000
	BackendUnsupportedOp   Code = 4001
	BackendUnsupportedBase Code = 4002
	BackendOperandRange    Code = 4003
	BackendForeignObject   Code = 4004
	BackendUnmarkedLabel   Code = 4005
	BackendStackImbalance  Code = 4006
	BackendNotFinalized    Code = 4007

	// Runtime failures (dynamic backend execution)
	RuntimeInfo          Code = 5000
	RuntimeNullReference Code = 5001
	RuntimeIndexRange    Code = 5002
	RuntimeDivideByZero  Code = 5003
	RuntimeCallDepth     Code = 5004
	RuntimeBadOperand    Code = 5005
	RuntimeNative        Code = 5006
	RuntimeOverflow      Code = 5007
)

var (
	codeDescription = map[Code]string{
		UnknownCode: "Unknown error",

		LookupInfo:          "Lookup information",
		LookupMissingType:   "Type not found",
		LookupMissingField:  "Field not found",
		LookupMissingMethod: "Method not found",
		LookupMissingCtor:   "Constructor not found",
		LookupMissingName:   "Name not found",
		LookupNoOverload:    "No overload matches the argument types",
		LookupNoEntryPoint:  "No entry point",

		TypeInfo:            "Type information",
		TypeMismatch:        "Type mismatch",
		TypeNotInteger:      "Integer operand required",
		TypeNotArray:        "Array operand required",
		TypeNotBool:         "Boolean operand required",
		TypeNotDelegate:     "Delegate type required",
		TypeCannotInfer:     "Cannot infer type",
		TypeInvalidOperands: "Invalid operand types",
		TypeVoidValue:       "Void used as a value",

		ShapeInfo:              "Shape information",
		ShapeUnsupportedNode:   "Unsupported syntax node",
		ShapeStrayValue:        "Statement leaves a value on the stack",
		ShapeMultipleEntries:   "More than one entry point",
		ShapeDelegateSignature: "Delegate signature mismatch",
		ShapeNotAssignable:     "Expression is not assignable",
		ShapeMissingReturn:     "Missing return in non-void method",
		ShapeDuplicateType:     "Duplicate type",
		ShapeDuplicateMember:   "Duplicate member",
		ShapeDuplicateLocal:    "Duplicate local variable",
		ShapeStaticContext:     "Instance member used from a static context",
		ShapeStaticFieldInit:   "Static field initializers are not supported",
		ShapeStoreFrozen:       "Symbol store is read-only",
		ShapeTypeSealed:        "Type is already finalized",
		ShapeInvalidEntryPoint: "Invalid entry point signature",
		ShapeBadOperator:       "Unsupported operator",

		BackendInfo:            "Backend information",
		BackendUnsupportedOp:   "Operation not supported by backend",
		BackendUnsupportedBase: "Base type not supported by backend",
		BackendOperandRange:    "Operand out of encodable range",
		BackendForeignObject:   "Object belongs to another backend",
		BackendUnmarkedLabel:   "Label was never marked",
		BackendStackImbalance:  "Evaluation stack imbalance",
		BackendNotFinalized:    "Type is not finalized",

		RuntimeInfo:          "Runtime information",
		RuntimeNullReference: "Null reference",
		RuntimeIndexRange:    "Index out of range",
		RuntimeDivideByZero:  "Division by zero",
		RuntimeCallDepth:     "Call depth exceeded",
		RuntimeBadOperand:    "Invalid operand on evaluation stack",
		RuntimeNative:        "Host method failed",
		RuntimeOverflow:      "Arithmetic overflow",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LKP%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("TYP%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SHP%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("BCK%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("RUN%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// Category groups codes by the hundreds block they live in.
type Category uint8

const (
	CategoryUnknown Category = iota
	CategoryLookup
	CategoryTypeMismatch
	CategoryShape
	CategoryBackend
	CategoryRuntime
)

func (c Category) String() string {
	switch c {
	case CategoryLookup:
		return "lookup"
	case CategoryTypeMismatch:
		return "type mismatch"
	case CategoryShape:
		return "shape"
	case CategoryBackend:
		return "backend"
	case CategoryRuntime:
		return "runtime"
	default:
		return "unknown"
	}
}

// Category returns the taxonomy bucket of the code.
func (c Code) Category() Category {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return CategoryLookup
	case ic >= 2000 && ic < 3000:
		return CategoryTypeMismatch
	case ic >= 3000 && ic < 4000:
		return CategoryShape
	case ic >= 4000 && ic < 5000:
		return CategoryBackend
	case ic >= 5000 && ic < 6000:
		return CategoryRuntime
	}
	return CategoryUnknown
}
