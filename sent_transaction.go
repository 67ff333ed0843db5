package soroban

import (
	"time"

	"github.com/pkg/errors"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"

	"github.com/sorobanclient/soroban/internal/backoff"
	"github.com/sorobanclient/soroban/internal/rpc"
	"github.com/sorobanclient/soroban/internal/xdrutil"
)

// sentTxOptions is the slice of assembledTxOptions a SentTransaction
// needs once it owns a signed envelope: which error table and result
// parser to apply, and how long to keep polling before giving up.
type sentTxOptions struct {
	client           ClientOptions
	timeoutInSeconds int64
	parseResultXdr   func(xdr.ScVal) (interface{}, error)
	errorTypes       map[int]ErrorType
}

// SentTransaction is the submit-and-poll half of the state machine: it
// owns a signed envelope, submits it once at construction, and polls
// getTransaction with exponential backoff until a terminal status or the
// timeout budget is exhausted.
type SentTransaction struct {
	opts      sentTxOptions
	rpcClient rpcTransport

	hash string

	sendResponse            *rpc.SendTransactionResult
	getTransactionResponse  *rpc.GetTransactionResult
	responsesAll            []*rpc.GetTransactionResult
}

// Hash returns the transaction hash assigned at submission.
func (s *SentTransaction) Hash() string { return s.hash }

// SendResponse returns the raw sendTransaction response.
func (s *SentTransaction) SendResponse() *rpc.SendTransactionResult { return s.sendResponse }

// GetTransactionResponse returns the terminal getTransaction response, if
// polling reached one.
func (s *SentTransaction) GetTransactionResponse() *rpc.GetTransactionResult {
	return s.getTransactionResponse
}

// GetTransactionResponseAll returns every getTransaction response
// observed while polling, in order.
func (s *SentTransaction) GetTransactionResponseAll() []*rpc.GetTransactionResult {
	return s.responsesAll
}

// newSentTransaction submits signed immediately and polls to completion
// or timeout before returning. It returns the constructed
// *SentTransaction even when send fails (a send rejection or a
// still-pending timeout), so callers can still inspect SendResponse and
// GetTransactionResponseAll to see what happened.
func newSentTransaction(opts sentTxOptions, rpcClient rpcTransport, signed *txnbuild.Transaction) (*SentTransaction, error) {
	s := &SentTransaction{opts: opts, rpcClient: rpcClient}
	if err := s.send(signed); err != nil {
		return s, err
	}
	return s, nil
}

func (s *SentTransaction) send(signed *txnbuild.Transaction) error {
	envelopeXDR, err := signed.Base64()
	if err != nil {
		return err
	}

	resp, err := s.rpcClient.SendTransaction(envelopeXDR)
	if err != nil {
		return err
	}
	s.sendResponse = resp

	if resp.Status != "PENDING" {
		return &SendFailedError{Status: resp.Status, ErrorResultXdr: resp.ErrorResultXdr}
	}
	s.hash = resp.Hash

	timeout := s.opts.timeoutInSeconds
	if timeout == 0 {
		timeout = DefaultTimeoutSeconds
	}
	schedule := backoff.NewSchedule(time.Now().Add(time.Duration(timeout)*time.Second), time.Now)

	for {
		txResp, err := s.rpcClient.GetTransaction(s.hash)
		if err != nil {
			return err
		}
		s.responsesAll = append(s.responsesAll, txResp)

		if txResp.Status != "NOT_FOUND" {
			s.getTransactionResponse = txResp
			return nil
		}
		if schedule.Done() {
			return &TransactionStillPendingError{Hash: s.hash, Attempts: len(s.responsesAll)}
		}
		time.Sleep(schedule.Next())
	}
}

// Result parses the terminal transaction's return value. A contract
// error code registered in options.errorTypes comes back as an
// Err-tagged Result rather than a Go error, mirroring
// AssembledTransaction.Result.
func (s *SentTransaction) Result() (Result, error) {
	if s.getTransactionResponse == nil {
		if len(s.responsesAll) > 0 {
			return Result{}, &TransactionStillPendingError{Hash: s.hash, Attempts: len(s.responsesAll)}
		}
		if s.sendResponse != nil && s.sendResponse.ErrorResultXdr != "" {
			return Result{}, &SendFailedError{Status: s.sendResponse.Status, ErrorResultXdr: s.sendResponse.ErrorResultXdr}
		}
		if s.sendResponse != nil {
			return Result{}, ErrSendResultOnly
		}
		return Result{}, ErrTransactionFailed
	}
	switch s.getTransactionResponse.Status {
	case "SUCCESS":
		// fall through
	case "NOT_FOUND":
		return Result{}, &TransactionStillPendingError{Hash: s.hash, Attempts: len(s.responsesAll)}
	default:
		return Result{}, errors.Wrapf(ErrTransactionFailed, "status %s", s.getTransactionResponse.Status)
	}

	if s.opts.parseResultXdr == nil {
		return Result{}, ErrSendResultOnly
	}
	if s.getTransactionResponse.ResultMetaXdr == "" {
		return Result{}, errors.Wrap(ErrTransactionFailed, "missing result meta")
	}

	var meta xdr.TransactionMeta
	if err := xdr.SafeUnmarshalBase64(s.getTransactionResponse.ResultMetaXdr, &meta); err != nil {
		return Result{}, errors.Wrap(err, "soroban: decoding result meta")
	}
	if meta.V3 == nil || meta.V3.SorobanMeta == nil {
		return Result{}, errors.Wrap(ErrTransactionFailed, "result meta has no soroban section")
	}
	retval := meta.V3.SorobanMeta.ReturnValue

	v, err := s.opts.parseResultXdr(retval)
	if err != nil {
		if code, ok := xdrutil.ContractErrorCode(err.Error()); ok {
			if et, found := s.opts.errorTypes[code]; found {
				return errResult(&ContractErrorValue{Code: code, Message: et.Message}), nil
			}
		}
		return Result{}, err
	}
	return okResult(v), nil
}
