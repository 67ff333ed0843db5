package soroban

import (
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"
)

// txBuilder is the low-level fluent transaction builder AssembledTransaction
// drives: source, one invoke-host-function or restore-footprint operation,
// fee, time bounds, and post-simulation soroban data/auth. Simulate/Send
// live one layer up, on AssembledTransaction and SentTransaction.
type txBuilder struct {
	source     txnbuild.Account
	operation  txnbuild.Operation
	timeBounds txnbuild.TimeBounds
	baseFee    int64
}

func newTxBuilder() *txBuilder {
	return &txBuilder{baseFee: txnbuild.MinBaseFee}
}

func (t *txBuilder) Source(s txnbuild.Account) *txBuilder {
	t.source = s
	return t
}

func (t *txBuilder) Operation(op txnbuild.Operation) *txBuilder {
	t.operation = op
	return t
}

func (t *txBuilder) TimeBounds(tb txnbuild.TimeBounds) *txBuilder {
	t.timeBounds = tb
	return t
}

func (t *txBuilder) BaseFee(f int64) *txBuilder {
	t.baseFee = f
	return t
}

// SorobanData attaches post-simulation soroban transaction data to the
// one operation this builder carries. Soroban data is carried on the
// operation's Ext field (not the transaction's) until txnbuild assembles
// the envelope.
func (t *txBuilder) SorobanData(data xdr.SorobanTransactionData) *txBuilder {
	switch op := t.operation.(type) {
	case *txnbuild.InvokeHostFunction:
		op.Ext = xdr.TransactionExt{V: 1, SorobanData: &data}
	case *txnbuild.RestoreFootprint:
		op.Ext = xdr.TransactionExt{V: 1, SorobanData: &data}
	}
	return t
}

// Authorization attaches the simulated (or co-signed) auth entries to the
// one InvokeHostFunction operation this builder carries; a no-op for any
// other operation type.
func (t *txBuilder) Authorization(auth []xdr.SorobanAuthorizationEntry) *txBuilder {
	if op, ok := t.operation.(*txnbuild.InvokeHostFunction); ok {
		op.Auth = auth
	}
	return t
}

// Build constructs the txnbuild.Transaction. incrementSequenceNum is false
// for a simulation-only build (the real submission later increments it).
func (t *txBuilder) Build(incrementSequenceNum bool) (*txnbuild.Transaction, error) {
	params := txnbuild.TransactionParams{
		SourceAccount: t.source,
		Operations:    []txnbuild.Operation{t.operation},
		BaseFee:       t.baseFee,
		Preconditions: txnbuild.Preconditions{TimeBounds: t.timeBounds},
		IncrementSequenceNum: incrementSequenceNum,
	}
	return txnbuild.NewTransaction(params)
}
