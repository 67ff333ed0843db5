package soroban

import "github.com/sorobanclient/soroban/internal/rpc"

// fakeTransport is the hand-rolled rpcTransport double every core-package
// test drives instead of a live node.
type fakeTransport struct {
	simulate       func(envelopeXDR string) (*rpc.SimulateTransactionResult, error)
	send           func(signedEnvelopeXDR string) (*rpc.SendTransactionResult, error)
	getTransaction func(hash string) (*rpc.GetTransactionResult, error)
	ledgerEntries  func(keys ...string) (*rpc.GetLedgerEntriesResult, error)
}

func (f *fakeTransport) SimulateTransaction(envelopeXDR string) (*rpc.SimulateTransactionResult, error) {
	return f.simulate(envelopeXDR)
}

func (f *fakeTransport) SendTransaction(signedEnvelopeXDR string) (*rpc.SendTransactionResult, error) {
	return f.send(signedEnvelopeXDR)
}

func (f *fakeTransport) GetTransaction(hash string) (*rpc.GetTransactionResult, error) {
	return f.getTransaction(hash)
}

func (f *fakeTransport) GetLedgerEntries(keys ...string) (*rpc.GetLedgerEntriesResult, error) {
	return f.ledgerEntries(keys...)
}

var _ rpcTransport = (*fakeTransport)(nil)
