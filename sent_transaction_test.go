package soroban

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"

	"github.com/sorobanclient/soroban/internal/rpc"
)

func signedTestTransaction(t *testing.T) *txnbuild.Transaction {
	t.Helper()
	kp, err := keypair.Random()
	if err != nil {
		t.Fatal(err)
	}
	account := txnbuild.NewSimpleAccount(kp.Address(), 1)
	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount: &account,
		Operations:    []txnbuild.Operation{&txnbuild.BumpSequence{BumpTo: 2}},
		BaseFee:       txnbuild.MinBaseFee,
		Preconditions: txnbuild.Preconditions{TimeBounds: txnbuild.NewInfiniteTimeout()},
	})
	if err != nil {
		t.Fatal(err)
	}
	signed, err := tx.Sign(network.TestNetworkPassphrase, kp.(*keypair.Full))
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func TestSentTransactionPollsUntilSuccess(t *testing.T) {
	calls := 0
	fake := &fakeTransport{
		send: func(signedEnvelopeXDR string) (*rpc.SendTransactionResult, error) {
			return &rpc.SendTransactionResult{Hash: "deadbeef", Status: "PENDING"}, nil
		},
		getTransaction: func(hash string) (*rpc.GetTransactionResult, error) {
			calls++
			if calls < 2 {
				return &rpc.GetTransactionResult{Status: "NOT_FOUND"}, nil
			}
			return &rpc.GetTransactionResult{Status: "SUCCESS"}, nil
		},
	}

	sent, err := newSentTransaction(sentTxOptions{timeoutInSeconds: 30}, fake, signedTestTransaction(t))
	if err != nil {
		t.Fatal(err)
	}
	if sent.Hash() != "deadbeef" {
		t.Fatalf("expected hash deadbeef, got %q", sent.Hash())
	}
	if len(sent.GetTransactionResponseAll()) != 2 {
		t.Fatalf("expected 2 polls recorded, got %d", len(sent.GetTransactionResponseAll()))
	}
	if sent.GetTransactionResponse().Status != "SUCCESS" {
		t.Fatalf("expected terminal SUCCESS, got %q", sent.GetTransactionResponse().Status)
	}
}

func TestSentTransactionPendingTimeoutRetainsResponses(t *testing.T) {
	calls := 0
	fake := &fakeTransport{
		send: func(signedEnvelopeXDR string) (*rpc.SendTransactionResult, error) {
			return &rpc.SendTransactionResult{Hash: "deadbeef", Status: "PENDING"}, nil
		},
		getTransaction: func(hash string) (*rpc.GetTransactionResult, error) {
			calls++
			return &rpc.GetTransactionResult{Status: "NOT_FOUND"}, nil
		},
	}

	// A timeout that has already elapsed forces the poll loop to give up
	// after its first still-pending response instead of sleeping for real.
	sent, err := newSentTransaction(sentTxOptions{timeoutInSeconds: -1}, fake, signedTestTransaction(t))
	var stillPending *TransactionStillPendingError
	if !errors.As(err, &stillPending) {
		t.Fatalf("expected *TransactionStillPendingError, got %v", err)
	}
	if sent == nil {
		t.Fatal("expected newSentTransaction to return the SentTransaction alongside the error")
	}
	if sent.Hash() != "deadbeef" {
		t.Fatalf("expected hash deadbeef, got %q", sent.Hash())
	}
	if sent.SendResponse() == nil || sent.SendResponse().Status != "PENDING" {
		t.Fatalf("expected SendResponse to be retained, got %+v", sent.SendResponse())
	}
	if len(sent.GetTransactionResponseAll()) < 1 {
		t.Fatalf("expected at least 1 poll recorded after timeout, got %d", len(sent.GetTransactionResponseAll()))
	}
	if stillPending.Attempts != len(sent.GetTransactionResponseAll()) {
		t.Fatalf("expected Attempts to match recorded polls, got %d vs %d", stillPending.Attempts, len(sent.GetTransactionResponseAll()))
	}
}

func TestSentTransactionSendFailure(t *testing.T) {
	fake := &fakeTransport{
		send: func(signedEnvelopeXDR string) (*rpc.SendTransactionResult, error) {
			return &rpc.SendTransactionResult{Status: "ERROR", ErrorResultXdr: "deadbeef"}, nil
		},
	}
	_, err := newSentTransaction(sentTxOptions{timeoutInSeconds: 30}, fake, signedTestTransaction(t))
	var sendFailed *SendFailedError
	if !errors.As(err, &sendFailed) {
		t.Fatalf("expected *SendFailedError, got %v", err)
	}
}

func TestSentTransactionResultMapsContractError(t *testing.T) {
	retvalB64 := mustB64(u32ScVal(0))
	var meta xdr.TransactionMeta
	meta.V = 3
	meta.V3 = &xdr.TransactionMetaV3{
		SorobanMeta: &xdr.SorobanTransactionMeta{},
	}
	var decoded xdr.ScVal
	if err := xdr.SafeUnmarshalBase64(retvalB64, &decoded); err != nil {
		t.Fatal(err)
	}
	meta.V3.SorobanMeta.ReturnValue = decoded
	metaB64, err := meta.MarshalBinaryBase64()
	if err != nil {
		t.Fatal(err)
	}

	fake := &fakeTransport{
		send: func(signedEnvelopeXDR string) (*rpc.SendTransactionResult, error) {
			return &rpc.SendTransactionResult{Hash: "abc123", Status: "PENDING"}, nil
		},
		getTransaction: func(hash string) (*rpc.GetTransactionResult, error) {
			return &rpc.GetTransactionResult{Status: "SUCCESS", ResultMetaXdr: metaB64}, nil
		},
	}

	sent, err := newSentTransaction(sentTxOptions{
		timeoutInSeconds: 30,
		errorTypes:       map[int]ErrorType{3: {Message: "insufficient funds"}},
		parseResultXdr: func(xdr.ScVal) (interface{}, error) {
			return nil, errors.New("Error(Contract, #3)")
		},
	}, fake, signedTestTransaction(t))
	if err != nil {
		t.Fatal(err)
	}

	res, err := sent.Result()
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsErr() || res.Err.Code != 3 {
		t.Fatalf("expected contract error code 3, got %+v", res)
	}
}
