package soroban

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"

	"github.com/sorobanclient/soroban/internal/rpc"
	"github.com/sorobanclient/soroban/internal/xdrutil"
)

// assembledTxOptions is the frozen combination of ClientOptions,
// MethodOptions, method name, marshalled arguments, result parser, and
// error-type table AssembledTransaction.options carries.
type assembledTxOptions struct {
	client           ClientOptions
	method           string
	args             []xdr.ScVal
	fee              int64
	timeoutInSeconds int64
	simulate         bool
	errorTypes       map[int]ErrorType
	parseResultXdr   func(xdr.ScVal) (interface{}, error)

	// source overrides the client.PublicKey-driven account lookup, for
	// deployment flows (Deployer) that already hold the account they are
	// building against.
	source txnbuild.Account
	// op overrides the invoke-contract operation buildAssembledTransaction
	// would otherwise construct from method/args, for host functions other
	// than contract invocation (wasm upload, contract creation, footprint
	// restore).
	op txnbuild.Operation
}

// cachedSimulation is the pair of serialisable extracts of a simulation
// response (simulationResult and simulationTransactionData), plus the
// decoded return value kept alongside for convenience.
type cachedSimulation struct {
	auth            []xdr.SorobanAuthorizationEntry
	retval          xdr.ScVal
	transactionData xdr.SorobanTransactionData
}

// AssembledTransaction is the build -> simulate -> sign (envelope and/or
// auth entries) -> emit state machine.
type AssembledTransaction struct {
	opts      assembledTxOptions
	rpcClient rpcTransport
	raw       *txBuilder
	built     *txnbuild.Transaction
	simulation *rpc.SimulateTransactionResult
	cache     *cachedSimulation
	signed    *txnbuild.Transaction
}

// buildAssembledTransaction is the sole construction path: resolve the
// source account (a live lookup, or the NullAccount placeholder for
// publicKey-less read simulation), assemble the one invoke-host-function
// operation, and simulate unless the caller opted out.
func buildAssembledTransaction(o assembledTxOptions) (*AssembledTransaction, error) {
	rpcClient := o.client.rpcClient()

	source := o.source
	if source == nil {
		if o.client.PublicKey != "" {
			acc, err := fetchAccount(rpcClient, o.client.PublicKey)
			if err != nil {
				return nil, err
			}
			source = acc
		} else {
			source = NewNullAccount()
		}
	}

	fee := o.fee
	if fee == 0 {
		fee = txnbuild.MinBaseFee
	}

	op := o.op
	if op == nil {
		contractAddr, err := addressFromStrkey(o.client.ContractID)
		if err != nil {
			return nil, err
		}
		op = &txnbuild.InvokeHostFunction{
			HostFunction: xdr.HostFunction{
				Type: xdr.HostFunctionTypeHostFunctionTypeInvokeContract,
				InvokeContract: &xdr.InvokeContractArgs{
					ContractAddress: *contractAddr,
					FunctionName:    xdr.ScSymbol(o.method),
					Args:            xdr.ScVec(o.args),
				},
			},
			SourceAccount: source.GetAccountID(),
		}
	}

	raw := newTxBuilder().
		Source(source).
		Operation(op).
		BaseFee(fee).
		TimeBounds(txnbuild.NewTimeout(o.timeoutInSeconds))

	tx := &AssembledTransaction{opts: o, rpcClient: rpcClient, raw: raw}

	if o.simulate {
		if err := tx.Simulate(); err != nil {
			return nil, err
		}
	}
	return tx, nil
}

// Simulate builds `built` from the raw builder, calls simulateTransaction,
// and - if the response indicates success - rebuilds `built` by merging
// the simulated fee, resource footprint, and auth entries back in.
// ExpiredState and simulation-internal failures are not raised here; they
// surface lazily the next time SimulationData is read.
func (t *AssembledTransaction) Simulate() error {
	built, err := t.raw.Build(false)
	if err != nil {
		return err
	}
	t.built = built
	t.cache = nil

	envelopeXDR, err := built.Base64()
	if err != nil {
		return err
	}
	resp, err := t.rpcClient.SimulateTransaction(envelopeXDR)
	if err != nil {
		return err
	}
	t.simulation = resp

	if resp.Error != "" {
		return nil
	}
	if resp.RestorePreamble != nil && resp.RestorePreamble.MinResourceFee != 0 {
		return nil
	}

	data, err := t.SimulationData()
	if err != nil {
		if errors.Is(err, ErrSimulationFailed) {
			return nil
		}
		return err
	}
	t.raw.BaseFee(resp.MinResourceFee + txnbuild.MinBaseFee).
		SorobanData(data.transactionData).
		Authorization(data.auth)
	rebuilt, err := t.raw.Build(false)
	if err != nil {
		return err
	}
	t.built = rebuilt
	return nil
}

// SimulationData returns the decoded {result, transactionData} pair,
// memoising it on first live access. It fails with ErrNotYetSimulated if
// no simulation has run and no cache is present, with an
// *ExpiredStateError if the simulator reports a restore is required, and
// with ErrSimulationFailed (wrapped with the simulator's message) for any
// other simulation-internal error.
func (t *AssembledTransaction) SimulationData() (*cachedSimulation, error) {
	if t.cache != nil {
		return t.cache, nil
	}
	if t.simulation == nil {
		return nil, ErrNotYetSimulated
	}
	if t.simulation.RestorePreamble != nil && t.simulation.RestorePreamble.MinResourceFee != 0 {
		return nil, &ExpiredStateError{
			RestorePreambleTransactionData: t.simulation.RestorePreamble.TransactionData,
			RestorePreambleMinResourceFee:  t.simulation.RestorePreamble.MinResourceFee,
		}
	}
	if t.simulation.Error != "" {
		return nil, errors.Wrap(ErrSimulationFailed, t.simulation.Error)
	}
	if len(t.simulation.Results) == 0 {
		return nil, errors.Wrap(ErrSimulationFailed, "simulation returned no results")
	}

	var retval xdr.ScVal
	if err := xdr.SafeUnmarshalBase64(t.simulation.Results[0].XDR, &retval); err != nil {
		return nil, errors.Wrap(err, "soroban: decoding simulated return value")
	}
	var auth []xdr.SorobanAuthorizationEntry
	for _, a := range t.simulation.Results[0].Auth {
		var entry xdr.SorobanAuthorizationEntry
		if err := xdr.SafeUnmarshalBase64(a, &entry); err != nil {
			return nil, errors.Wrap(err, "soroban: decoding simulated auth entry")
		}
		auth = append(auth, entry)
	}
	var txData xdr.SorobanTransactionData
	if err := xdr.SafeUnmarshalBase64(t.simulation.TransactionData, &txData); err != nil {
		return nil, errors.Wrap(err, "soroban: decoding simulated transaction data")
	}

	t.cache = &cachedSimulation{auth: auth, retval: retval, transactionData: txData}
	return t.cache, nil
}

// IsReadCall is true iff the simulation reports zero auth entries and the
// transaction's resource footprint has zero read-write entries.
func (t *AssembledTransaction) IsReadCall() (bool, error) {
	data, err := t.SimulationData()
	if err != nil {
		return false, err
	}
	if len(data.auth) != 0 {
		return false, nil
	}
	return len(data.transactionData.Resources.Footprint.ReadWrite) == 0, nil
}

// Result parses SimulationData().retval via options.parseResultXdr. A
// parse error whose message matches the contract-error pattern and whose
// code is registered in options.errorTypes is returned as an Err-tagged
// Result rather than propagated as a Go error.
func (t *AssembledTransaction) Result() (Result, error) {
	data, err := t.SimulationData()
	if err != nil {
		return Result{}, err
	}
	v, err := t.opts.parseResultXdr(data.retval)
	if err != nil {
		if code, ok := xdrutil.ContractErrorCode(err.Error()); ok {
			if et, found := t.opts.errorTypes[code]; found {
				return errResult(&ContractErrorValue{Code: code, Message: et.Message}), nil
			}
		}
		return Result{}, err
	}
	return okResult(v), nil
}

// Sign refreshes the envelope's validity window to the signing time, then
// hands the envelope bytes to a signer callback.
func (t *AssembledTransaction) Sign(force bool, signTransaction SignTransactionFunc) error {
	if t.built == nil {
		return ErrBuiltRequired
	}
	if !force {
		readCall, err := t.IsReadCall()
		if err != nil {
			return err
		}
		if readCall {
			return ErrNoSignatureNeeded
		}
	}

	signFn := signTransaction
	if signFn == nil {
		signFn = t.opts.client.SignTransaction
	}
	if signFn == nil {
		return ErrNoSigner
	}

	needed, err := t.NeedsNonInvokerSigningBy(false)
	if err != nil {
		return err
	}
	if len(needed) != 0 {
		return ErrNeedsMoreSignatures
	}

	t.raw.TimeBounds(txnbuild.NewTimeout(t.opts.timeoutInSeconds))
	refreshed, err := t.raw.Build(true)
	if err != nil {
		return err
	}
	t.built = refreshed

	envelopeXDR, err := refreshed.Base64()
	if err != nil {
		return err
	}
	signedXDR, err := signFn(envelopeXDR, t.opts.client.NetworkPassphrase)
	if err != nil {
		return err
	}
	genTx, err := txnbuild.TransactionFromXDR(signedXDR)
	if err != nil {
		return errors.Wrap(err, "soroban: parsing signed envelope")
	}
	signedTx, ok := genTx.Transaction()
	if !ok {
		return errors.New("soroban: signed envelope is not a simple (non-fee-bump) transaction")
	}
	t.signed = signedTx
	return nil
}

// Send requires a signed envelope and hands it to SentTransaction's
// submit-and-poll loop.
func (t *AssembledTransaction) Send() (*SentTransaction, error) {
	if t.signed == nil {
		return nil, ErrSignedRequired
	}
	return newSentTransaction(sentTxOptions{
		client:           t.opts.client,
		timeoutInSeconds: t.opts.timeoutInSeconds,
		parseResultXdr:   t.opts.parseResultXdr,
		errorTypes:       t.opts.errorTypes,
	}, t.rpcClient, t.signed)
}

// SignAndSend signs (if not already signed) and sends in one call.
func (t *AssembledTransaction) SignAndSend(force bool, signTransaction SignTransactionFunc) (*SentTransaction, error) {
	if t.signed == nil {
		if err := t.Sign(force, signTransaction); err != nil {
			return nil, err
		}
	}
	return t.Send()
}

// assembledTxJSON is the on-wire shape of AssembledTransaction's
// interchange format.
type assembledTxJSON struct {
	Method                    string               `json:"method"`
	Tx                        string               `json:"tx"`
	SimulationResult          *simulationResultJSON `json:"simulationResult,omitempty"`
	SimulationTransactionData string               `json:"simulationTransactionData,omitempty"`
}

type simulationResultJSON struct {
	Auth   []string `json:"auth"`
	Retval string   `json:"retval"`
}

// ToJSON encodes the interchange form used for multi-party/offline
// signing workflows.
func (t *AssembledTransaction) ToJSON() ([]byte, error) {
	if t.built == nil {
		return nil, ErrBuiltRequired
	}
	txB64, err := t.built.Base64()
	if err != nil {
		return nil, err
	}
	out := assembledTxJSON{Method: t.opts.method, Tx: txB64}

	data, err := t.SimulationData()
	if err == nil {
		authB64 := make([]string, 0, len(data.auth))
		for _, a := range data.auth {
			b, err := a.MarshalBinaryBase64()
			if err != nil {
				return nil, err
			}
			authB64 = append(authB64, b)
		}
		retvalB64, err := data.retval.MarshalBinaryBase64()
		if err != nil {
			return nil, err
		}
		txDataB64, err := data.transactionData.MarshalBinaryBase64()
		if err != nil {
			return nil, err
		}
		out.SimulationResult = &simulationResultJSON{Auth: authB64, Retval: retvalB64}
		out.SimulationTransactionData = txDataB64
	}
	return json.Marshal(out)
}

// assembledTransactionFromJSON decodes the interchange form, rehydrating
// `built` and the cache fields. The live `simulation` response itself is
// not restored; subsequent reads go through SimulationData's cache path.
func assembledTransactionFromJSON(data []byte, clientOpts ClientOptions, errorTypes map[int]ErrorType, parseResultXdrFor func(method string) func(xdr.ScVal) (interface{}, error)) (*AssembledTransaction, error) {
	var in assembledTxJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, errors.Wrap(err, "soroban: decoding assembled transaction JSON")
	}

	genTx, err := txnbuild.TransactionFromXDR(in.Tx)
	if err != nil {
		return nil, errors.Wrap(err, "soroban: decoding tx field")
	}
	builtTx, ok := genTx.Transaction()
	if !ok {
		return nil, errors.New("soroban: tx field is not a simple (non-fee-bump) transaction")
	}
	ops := builtTx.Operations()
	if len(ops) != 1 {
		return nil, ErrNotSingleInvocation
	}

	raw := newTxBuilder().
		Source(builtTx.SourceAccount()).
		Operation(ops[0]).
		BaseFee(builtTx.BaseFee())

	t := &AssembledTransaction{
		opts: assembledTxOptions{
			client:           clientOpts,
			method:           in.Method,
			timeoutInSeconds: DefaultTimeoutSeconds,
			errorTypes:       errorTypes,
			parseResultXdr:   parseResultXdrFor(in.Method),
		},
		rpcClient: clientOpts.rpcClient(),
		raw:       raw,
		built:     builtTx,
	}

	if in.SimulationResult != nil {
		var auth []xdr.SorobanAuthorizationEntry
		for _, a := range in.SimulationResult.Auth {
			var entry xdr.SorobanAuthorizationEntry
			if err := xdr.SafeUnmarshalBase64(a, &entry); err != nil {
				return nil, errors.Wrap(err, "soroban: decoding cached auth entry")
			}
			auth = append(auth, entry)
		}
		var retval xdr.ScVal
		if err := xdr.SafeUnmarshalBase64(in.SimulationResult.Retval, &retval); err != nil {
			return nil, errors.Wrap(err, "soroban: decoding cached retval")
		}
		var txData xdr.SorobanTransactionData
		if in.SimulationTransactionData != "" {
			if err := xdr.SafeUnmarshalBase64(in.SimulationTransactionData, &txData); err != nil {
				return nil, errors.Wrap(err, "soroban: decoding cached transaction data")
			}
		}
		t.cache = &cachedSimulation{auth: auth, retval: retval, transactionData: txData}
	}
	return t, nil
}

// Restore submits a RestoreFootprint operation sized from the
// simulation's restore preamble, for callers who would otherwise have to
// hand-assemble one after catching an *ExpiredStateError.
func (t *AssembledTransaction) Restore(signTransaction SignTransactionFunc) (*SentTransaction, error) {
	if t.simulation == nil || t.simulation.RestorePreamble == nil || t.simulation.RestorePreamble.MinResourceFee == 0 {
		return nil, errors.New("soroban: no restore preamble present on this simulation")
	}
	var txData xdr.SorobanTransactionData
	if err := xdr.SafeUnmarshalBase64(t.simulation.RestorePreamble.TransactionData, &txData); err != nil {
		return nil, err
	}

	sourceID := t.raw.source.GetAccountID()
	restoreOp := &txnbuild.RestoreFootprint{SourceAccount: sourceID}
	rb := newTxBuilder().
		Source(t.raw.source).
		Operation(restoreOp).
		BaseFee(t.simulation.RestorePreamble.MinResourceFee + txnbuild.MinBaseFee).
		TimeBounds(txnbuild.NewTimeout(t.opts.timeoutInSeconds)).
		SorobanData(txData)

	built, err := rb.Build(true)
	if err != nil {
		return nil, err
	}

	signFn := signTransaction
	if signFn == nil {
		signFn = t.opts.client.SignTransaction
	}
	if signFn == nil {
		return nil, ErrNoSigner
	}
	envelopeXDR, err := built.Base64()
	if err != nil {
		return nil, err
	}
	signedXDR, err := signFn(envelopeXDR, t.opts.client.NetworkPassphrase)
	if err != nil {
		return nil, err
	}
	genTx, err := txnbuild.TransactionFromXDR(signedXDR)
	if err != nil {
		return nil, err
	}
	signedTx, ok := genTx.Transaction()
	if !ok {
		return nil, errors.New("soroban: signed restore envelope is not a simple transaction")
	}
	return newSentTransaction(sentTxOptions{
		client:           t.opts.client,
		timeoutInSeconds: t.opts.timeoutInSeconds,
	}, t.rpcClient, signedTx)
}
