package soroban

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/stellar/go/xdr"
	"golang.org/x/exp/slices"
)

// FuncDescriptor is the ordered description of one contract function:
// its name, its declared parameters (in declaration order), and its
// return type.
type FuncDescriptor struct {
	Name    string
	Doc     string
	Inputs  []FuncInput
	Outputs []xdr.ScSpecTypeDef
}

// FuncInput is one declared parameter of a contract function.
type FuncInput struct {
	Name string
	Doc  string
	Type xdr.ScSpecTypeDef
}

// ErrorCase is one entry of a contract's declared error enum: a small
// non-negative integer code paired with a documentation string.
type ErrorCase struct {
	Value int
	Doc   string
}

// ContractSpec is the immutable, parsed description of a contract's
// interface - the sequence of function and error-enum entries pulled out
// of a contractspecv0 wasm section (see internal/specparse) or supplied
// directly by a caller who already has one.
type ContractSpec struct {
	funcs      []FuncDescriptor
	funcsByName map[string]int
	errors     []ErrorCase
}

// NewContractSpec builds a ContractSpec from raw xdr.ScSpecEntry records
// in the order they were declared. Non-function, non-error-enum entries
// (structs, unions, plain enums) are retained only insofar as they
// influence ScSpecTypeDef references inside function signatures; they are
// not separately enumerable because nothing in this spec's scope needs
// that (type definitions are opaque payloads threaded through to the
// wire codec).
func NewContractSpec(entries []xdr.ScSpecEntry) (*ContractSpec, error) {
	spec := &ContractSpec{funcsByName: make(map[string]int)}
	for _, e := range entries {
		switch e.Kind {
		case xdr.ScSpecEntryKindScSpecEntryFunctionV0:
			if e.FunctionV0 == nil {
				return nil, errors.New("soroban: malformed spec entry: function kind with nil payload")
			}
			fn := e.FunctionV0
			desc := FuncDescriptor{
				Name: string(fn.Name),
				Doc:  string(fn.Doc),
			}
			for _, in := range fn.Inputs {
				desc.Inputs = append(desc.Inputs, FuncInput{
					Name: string(in.Name),
					Doc:  string(in.Doc),
					Type: in.Type,
				})
			}
			desc.Outputs = append(desc.Outputs, fn.Outputs...)
			spec.funcsByName[desc.Name] = len(spec.funcs)
			spec.funcs = append(spec.funcs, desc)
		case xdr.ScSpecEntryKindScSpecEntryUdtErrorEnumV0:
			if e.UdtErrorEnumV0 == nil {
				return nil, errors.New("soroban: malformed spec entry: error-enum kind with nil payload")
			}
			for _, c := range e.UdtErrorEnumV0.Cases {
				spec.errors = append(spec.errors, ErrorCase{
					Value: int(c.Value),
					Doc:   string(c.Doc),
				})
			}
		default:
			// Struct/union/plain-enum entries describe types referenced
			// from function signatures; nothing in this module's scope
			// enumerates them independently.
		}
	}
	slices.SortFunc(spec.errors, func(a, b ErrorCase) int { return a.Value - b.Value })
	return spec, nil
}

// Funcs returns the function descriptors in declaration order.
func (s *ContractSpec) Funcs() []FuncDescriptor {
	return s.funcs
}

// GetFunc looks up a function descriptor by name.
func (s *ContractSpec) GetFunc(name string) (*FuncDescriptor, error) {
	i, ok := s.funcsByName[name]
	if !ok {
		return nil, errors.Wrapf(ErrFunctionNotFound, "%q", name)
	}
	return &s.funcs[i], nil
}

// ErrorCases returns the contract's declared error cases.
func (s *ContractSpec) ErrorCases() []ErrorCase {
	return s.errors
}

// FuncArgsToScVals marshals a mapping from argument name to native Go
// value into the ordered sequence of wire values the function's declared
// parameter list expects. Missing non-optional arguments (any declared
// input with no corresponding map entry) fail with ErrInvalidArgument.
func (s *ContractSpec) FuncArgsToScVals(name string, namedArgs map[string]interface{}) ([]xdr.ScVal, error) {
	fn, err := s.GetFunc(name)
	if err != nil {
		return nil, err
	}
	out := make([]xdr.ScVal, 0, len(fn.Inputs))
	for _, in := range fn.Inputs {
		v, ok := namedArgs[in.Name]
		if !ok {
			return nil, errors.Wrapf(ErrInvalidArgument, "missing required argument %q for %q", in.Name, name)
		}
		scv, err := NativeToScVal(v, in.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "argument %q for %q", in.Name, name)
		}
		out = append(out, scv)
	}
	return out, nil
}

// FuncResToNative is the inverse of FuncArgsToScVals for the return slot:
// it converts the wire value the simulator/ledger returned back into a
// native Go value, typed according to the function's declared output.
func (s *ContractSpec) FuncResToNative(name string, wireValue xdr.ScVal) (interface{}, error) {
	fn, err := s.GetFunc(name)
	if err != nil {
		return nil, err
	}
	var outType xdr.ScSpecTypeDef
	if len(fn.Outputs) > 0 {
		outType = fn.Outputs[0]
	}
	return ScValToNative(wireValue, outType)
}

// errorTypesFromCases folds ErrorCases() into the integer->message
// mapping ClientOptions.ErrorTypes expects, once per client.
func errorTypesFromCases(cases []ErrorCase) map[int]ErrorType {
	m := make(map[int]ErrorType, len(cases))
	for _, c := range cases {
		doc := c.Doc
		if doc == "" {
			doc = fmt.Sprintf("contract error %d", c.Value)
		}
		m[c.Value] = ErrorType{Message: doc}
	}
	return m
}
