package soroban

import (
	"github.com/pkg/errors"
	"github.com/stellar/go/xdr"
	"go.uber.org/zap"

	"github.com/sorobanclient/soroban/internal/rpc"
	"github.com/sorobanclient/soroban/internal/specparse"
)

// DefaultTimeoutSeconds is MethodOptions.TimeoutInSeconds' default: the
// transaction validity window and the submission-poll budget both draw
// from this unless a caller overrides it.
const DefaultTimeoutSeconds = 30

// ErrorType is the per-code error description ClientOptions.ErrorTypes
// maps contract error codes to.
type ErrorType struct {
	Message string
}

// SignTransactionFunc signs a base64-encoded, unsigned transaction
// envelope and returns the base64-encoded, signed envelope.
type SignTransactionFunc func(envelopeXDR string, networkPassphrase string) (string, error)

// SignAuthEntryFunc signs a base64-encoded auth-entry preimage hash and
// returns the raw signature bytes.
type SignAuthEntryFunc func(preimageHashB64 string) ([]byte, error)

// ClientOptions configures one ContractClient instance.
type ClientOptions struct {
	RPCURL            string
	ContractID        string
	NetworkPassphrase string
	AllowHTTP         bool
	PublicKey         string
	SignTransaction   SignTransactionFunc
	SignAuthEntry     SignAuthEntryFunc
	ErrorTypes        map[int]ErrorType
	Logger            *zap.Logger

	// rpcOverride substitutes a fake rpcTransport in tests that construct
	// ClientOptions from within the package; production callers have no
	// way to set it.
	rpcOverride rpcTransport
}

func (o ClientOptions) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o ClientOptions) rpcClient() rpcTransport {
	if o.rpcOverride != nil {
		return o.rpcOverride
	}
	return &rpc.Client{URL: o.RPCURL, AllowHTTP: o.AllowHTTP, Logger: o.logger()}
}

// MethodOptions are the per-invocation overrides for a single Invoke call.
type MethodOptions struct {
	// Fee, if zero, defaults to txnbuild.MinBaseFee.
	Fee int64
	// TimeoutInSeconds, if zero, defaults to DefaultTimeoutSeconds.
	TimeoutInSeconds int64
	// Simulate defaults to true; set SimulateSet to override it to false.
	Simulate    bool
	SimulateSet bool
}

func (m MethodOptions) timeout() int64 {
	if m.TimeoutInSeconds == 0 {
		return DefaultTimeoutSeconds
	}
	return m.TimeoutInSeconds
}

func (m MethodOptions) simulate() bool {
	if !m.SimulateSet {
		return true
	}
	return m.Simulate
}

// ContractClient is the client factory: it binds every
// function descriptor in a ContractSpec to a builder that returns an
// AssembledTransaction. Go has no runtime mechanism to attach a method of
// a dynamic name to a value, so per-function dispatch is expressed here
// as Invoke(name, args, opts): one name/descriptor lookup and
// marshal-then-build pipeline behind a typed entry point.
type ContractClient struct {
	spec    *ContractSpec
	options ClientOptions
}

// NewClient binds options to spec, pre-computing the error-type table
// from spec.ErrorCases() if the caller did not supply one explicitly.
func NewClient(spec *ContractSpec, options ClientOptions) *ContractClient {
	if options.ErrorTypes == nil {
		options.ErrorTypes = errorTypesFromCases(spec.ErrorCases())
	}
	return &ContractClient{spec: spec, options: options}
}

// Spec returns the bound ContractSpec.
func (c *ContractClient) Spec() *ContractSpec { return c.spec }

// Invoke routes to the named function's builder: marshal args, then
// buildAssembledTransaction with the method name, marshalled args, error
// table, and a parseResultXdr bound to spec.FuncResToNative. args may be
// nil for a zero-input function.
func (c *ContractClient) Invoke(methodName string, args map[string]interface{}, methodOpts MethodOptions) (*AssembledTransaction, error) {
	fn, err := c.spec.GetFunc(methodName)
	if err != nil {
		return nil, err
	}
	if len(fn.Inputs) == 0 && len(args) != 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "%q takes no arguments", methodName)
	}
	scArgs, err := c.spec.FuncArgsToScVals(methodName, args)
	if err != nil {
		return nil, err
	}
	return buildAssembledTransaction(assembledTxOptions{
		client:           c.options,
		method:           methodName,
		args:             scArgs,
		fee:              methodOpts.Fee,
		timeoutInSeconds: methodOpts.timeout(),
		simulate:         methodOpts.simulate(),
		errorTypes:       c.options.ErrorTypes,
		parseResultXdr: func(v xdr.ScVal) (interface{}, error) {
			return c.spec.FuncResToNative(methodName, v)
		},
	})
}

// FromWasm walks the wasm module's sections (it does not compile the
// module), extracts the contractspecv0 custom section,
// parses it into a ContractSpec, and returns a bound client.
func FromWasm(options ClientOptions, wasmBytes []byte) (*ContractClient, error) {
	entries, err := specparse.Parse(wasmBytes, options.logger())
	if err != nil {
		return nil, errors.Wrap(err, "soroban: parsing contract spec from wasm")
	}
	spec, err := NewContractSpec(entries)
	if err != nil {
		return nil, err
	}
	return NewClient(spec, options), nil
}

// From fetches the contract-data ledger entry for options.ContractID,
// follows its executable reference to the wasm-hash ledger key, fetches
// the wasm ledger entry, and delegates to FromWasm. It fails with a 404
// if either lookup is empty.
func From(options ClientOptions) (*ContractClient, error) {
	rpcClient := options.rpcClient()

	contractAddr, err := addressFromStrkey(options.ContractID)
	if err != nil {
		return nil, err
	}
	instanceKey := xdr.LedgerKey{
		Type: xdr.LedgerEntryTypeContractData,
		ContractData: &xdr.LedgerKeyContractData{
			Contract:   *contractAddr,
			Key:        xdr.ScVal{Type: xdr.ScValTypeScvLedgerKeyContractInstance},
			Durability: xdr.ContractDataDurabilityPersistent,
		},
	}
	instanceKeyB64, err := instanceKey.MarshalBinaryBase64()
	if err != nil {
		return nil, err
	}
	instanceRes, err := rpcClient.GetLedgerEntries(instanceKeyB64)
	if err != nil {
		return nil, err
	}
	if len(instanceRes.Entries) == 0 {
		return nil, &notFoundError{what: "contract instance " + options.ContractID}
	}
	var instanceEntry xdr.LedgerEntryData
	if err := xdr.SafeUnmarshalBase64(instanceRes.Entries[0].Xdr, &instanceEntry); err != nil {
		return nil, err
	}
	if instanceEntry.ContractData == nil {
		return nil, errors.New("soroban: ledger entry is not contract data")
	}
	instance := instanceEntry.ContractData.Val.Instance
	if instance == nil || instance.Executable.WasmHash == nil {
		return nil, errors.New("soroban: contract instance has no wasm executable")
	}

	codeKey := xdr.LedgerKey{
		Type: xdr.LedgerEntryTypeContractCode,
		ContractCode: &xdr.LedgerKeyContractCode{
			Hash: *instance.Executable.WasmHash,
		},
	}
	codeKeyB64, err := codeKey.MarshalBinaryBase64()
	if err != nil {
		return nil, err
	}
	codeRes, err := rpcClient.GetLedgerEntries(codeKeyB64)
	if err != nil {
		return nil, err
	}
	if len(codeRes.Entries) == 0 {
		return nil, &notFoundError{what: "contract wasm code"}
	}
	var codeEntry xdr.LedgerEntryData
	if err := xdr.SafeUnmarshalBase64(codeRes.Entries[0].Xdr, &codeEntry); err != nil {
		return nil, err
	}
	if codeEntry.ContractCode == nil {
		return nil, errors.New("soroban: ledger entry is not contract code")
	}
	return FromWasm(options, codeEntry.ContractCode.Code)
}

// notFoundError implements the `{code:404}` shape callers expect
// for an absent contract-data or wasm ledger entry.
type notFoundError struct{ what string }

func (e *notFoundError) Error() string { return "soroban: not found: " + e.what }

// Code satisfies the {code:404} shape callers may inspect.
func (e *notFoundError) Code() int { return 404 }

// TxFromJSON parses the interchange form, extracts the method name, and
// delegates to assembledTransactionFromJSON with parseResultXdr freshly
// bound against the contract spec.
func (c *ContractClient) TxFromJSON(data []byte) (*AssembledTransaction, error) {
	return assembledTransactionFromJSON(data, c.options, c.options.ErrorTypes, func(methodName string) func(xdr.ScVal) (interface{}, error) {
		return func(v xdr.ScVal) (interface{}, error) {
			return c.spec.FuncResToNative(methodName, v)
		}
	})
}
