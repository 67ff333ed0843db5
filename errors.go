package soroban

import "github.com/pkg/errors"

// Sentinel errors for the error taxonomy. Callers distinguish them with
// errors.Is; the ones that carry structured payloads are typed below
// instead.
var (
	ErrNeedsMoreSignatures            = errors.New("soroban: additional co-signer signatures are required before signing")
	ErrNoSignatureNeeded              = errors.New("soroban: attempted to sign a read call, or to sign auth entries for an account that is not a required co-signer")
	ErrNoUnsignedNonInvokerAuthEntries = errors.New("soroban: no unsigned non-invoker auth entries to sign")
	ErrNoSigner                       = errors.New("soroban: a signing callback is required but was not provided")
	ErrNotYetSimulated                = errors.New("soroban: operation requires simulation data, but no simulation has completed and no cache is present")
	ErrFakeAccount                    = errors.New("soroban: simulation was attempted with the placeholder source account against an RPC that rejects it")
	ErrSendResultOnly                 = errors.New("soroban: submission succeeded but the transaction was not polled for a result")
	ErrTransactionFailed              = errors.New("soroban: transaction reached a terminal state with no return value")
	ErrSimulationFailed               = errors.New("soroban: simulation failed")
	ErrBuiltRequired                  = errors.New("soroban: operation requires a built transaction; call build() or simulate() first")
	ErrSignedRequired                 = errors.New("soroban: operation requires a signed transaction; call sign() first")
	ErrInvalidArgument                = errors.New("soroban: invalid argument")
	ErrFunctionNotFound               = errors.New("soroban: function not found in contract spec")
	ErrNotSingleInvocation            = errors.New("soroban: transaction does not contain exactly one invoke-host-function operation")
)

// ExpiredStateError reports that the simulator requires a storage restore
// before the call can succeed. The restore payload is surfaced verbatim so
// a caller can build and submit a RestoreFootprint operation themselves.
type ExpiredStateError struct {
	RestorePreambleTransactionData string
	RestorePreambleMinResourceFee  int64
}

func (e *ExpiredStateError) Error() string {
	return "soroban: simulation requires a storage restore before this call can succeed: " + e.RestorePreambleTransactionData
}

// SendFailedError reports that sendTransaction returned a non-PENDING
// status, or that the network's error result decoded to a failure.
type SendFailedError struct {
	Status         string
	ErrorResultXdr string
}

func (e *SendFailedError) Error() string {
	if e.ErrorResultXdr != "" {
		return "soroban: sendTransaction failed: status=" + e.Status + " errorResultXdr=" + e.ErrorResultXdr
	}
	return "soroban: sendTransaction failed: status=" + e.Status
}

// TransactionStillPendingError reports that the poll budget elapsed while
// the transaction's last known status was still NOT_FOUND.
type TransactionStillPendingError struct {
	Hash     string
	Attempts int
}

func (e *TransactionStillPendingError) Error() string {
	return "soroban: transaction " + e.Hash + " still NOT_FOUND after poll budget elapsed"
}

// ContractErrorValue is the non-throwing representation of a numbered
// contract error, returned from AssembledTransaction.Result /
// SentTransaction.Result wrapped in an Err tag rather than raised as a Go
// error - ContractError kind never propagates as an `error`.
type ContractErrorValue struct {
	Code    int
	Message string
}

func (e *ContractErrorValue) Error() string {
	return e.Message
}
