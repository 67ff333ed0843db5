package soroban

import (
	"testing"

	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"

	"github.com/sorobanclient/soroban/internal/rpc"
)

const (
	coSignerA = "GDDFXO5LE6JLE7E4HYN7EWBDJSKJ3NV7MAC4UN7LY7BUSD6JNPUAUK4K"
	coSignerB = "GBNSQJSHUJDYTT5O5VUPNPQXNPIUALMXNU7PUI6XGMYQJFHMOOWHTHJY"
)

func addrCredentialsEntry(t *testing.T, publicKey string, signed bool) xdr.SorobanAuthorizationEntry {
	t.Helper()
	addr, err := addressFromStrkey(publicKey)
	if err != nil {
		t.Fatal(err)
	}
	contract, err := addressFromStrkey(testContractID)
	if err != nil {
		t.Fatal(err)
	}
	sig := xdr.ScVal{Type: xdr.ScValTypeScvVoid}
	if signed {
		b := true
		sig = xdr.ScVal{Type: xdr.ScValTypeScvBool, B: &b}
	}
	return xdr.SorobanAuthorizationEntry{
		Credentials: xdr.SorobanCredentials{
			Type: xdr.SorobanCredentialsTypeSorobanCredentialsAddress,
			Address: &xdr.SorobanAddressCredentials{
				Address:   *addr,
				Nonce:     1,
				Signature: sig,
			},
		},
		RootInvocation: xdr.SorobanAuthorizedInvocation{
			Function: xdr.SorobanAuthorizedFunction{
				Type: xdr.SorobanAuthorizedFunctionTypeSorobanAuthorizedFunctionTypeContractFn,
				ContractFn: &xdr.InvokeContractArgs{
					ContractAddress: *contract,
					FunctionName:    "swap",
				},
			},
		},
	}
}

func sourceCredentialsEntry() xdr.SorobanAuthorizationEntry {
	return xdr.SorobanAuthorizationEntry{
		Credentials: xdr.SorobanCredentials{Type: xdr.SorobanCredentialsTypeSorobanCredentialsSourceAccount},
	}
}

func newAuthTestTx(t *testing.T, entries []xdr.SorobanAuthorizationEntry, fake *fakeTransport) *AssembledTransaction {
	t.Helper()
	op := &txnbuild.InvokeHostFunction{Auth: entries}
	return &AssembledTransaction{
		opts: assembledTxOptions{
			client: ClientOptions{ContractID: testContractID, NetworkPassphrase: "Test SDF Network ; September 2015"},
		},
		rpcClient: fake,
		raw:       newTxBuilder().Operation(op),
		built:     &txnbuild.Transaction{},
	}
}

func TestNeedsNonInvokerSigningByDedupesAndSkipsSigned(t *testing.T) {
	entries := []xdr.SorobanAuthorizationEntry{
		addrCredentialsEntry(t, coSignerA, false),
		addrCredentialsEntry(t, coSignerA, false),
		addrCredentialsEntry(t, coSignerB, true),
		sourceCredentialsEntry(),
	}
	tx := newAuthTestTx(t, entries, &fakeTransport{})

	needed, err := tx.NeedsNonInvokerSigningBy(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(needed) != 1 || needed[0] != coSignerA {
		t.Fatalf("expected only coSignerA still needed, got %v", needed)
	}

	all, err := tx.NeedsNonInvokerSigningBy(true)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("expected both signers with includeAlreadySigned, got %v", all)
	}
}

func TestSignAuthEntriesSignsOnlyMatchingUnsigned(t *testing.T) {
	entries := []xdr.SorobanAuthorizationEntry{
		addrCredentialsEntry(t, coSignerA, false),
		addrCredentialsEntry(t, coSignerB, false),
	}
	fake := &fakeTransport{
		ledgerEntries: func(keys ...string) (*rpc.GetLedgerEntriesResult, error) {
			return &rpc.GetLedgerEntriesResult{
				Entries: []rpc.LedgerEntry{{LiveUntilLedgerSeq: 12345}},
			}, nil
		},
	}
	tx := newAuthTestTx(t, entries, fake)

	var signedPreimage string
	signFn := func(preimageHashB64 string) ([]byte, error) {
		signedPreimage = preimageHashB64
		return []byte{1, 2, 3, 4}, nil
	}

	if err := tx.SignAuthEntries(SignAuthEntriesOptions{PublicKey: coSignerA, SignAuthEntry: signFn}); err != nil {
		t.Fatal(err)
	}
	if signedPreimage == "" {
		t.Fatal("expected signer callback to be invoked")
	}

	op := tx.raw.operation.(*txnbuild.InvokeHostFunction)
	if op.Auth[0].Credentials.Address.Signature.Type == xdr.ScValTypeScvVoid {
		t.Fatal("expected coSignerA's entry to now carry a signature")
	}
	if op.Auth[1].Credentials.Address.Signature.Type != xdr.ScValTypeScvVoid {
		t.Fatal("expected coSignerB's entry to remain unsigned")
	}
	if op.Auth[0].Credentials.Address.SignatureExpirationLedger != 12345 {
		t.Fatalf("expected default expiration from ledger lookup, got %d", op.Auth[0].Credentials.Address.SignatureExpirationLedger)
	}
}

func TestSignAuthEntriesNoSignatureNeeded(t *testing.T) {
	entries := []xdr.SorobanAuthorizationEntry{
		addrCredentialsEntry(t, coSignerA, false),
	}
	tx := newAuthTestTx(t, entries, &fakeTransport{})

	err := tx.SignAuthEntries(SignAuthEntriesOptions{
		PublicKey:     coSignerB,
		SignAuthEntry: func(string) ([]byte, error) { return nil, nil },
	})
	if err != ErrNoSignatureNeeded {
		t.Fatalf("expected ErrNoSignatureNeeded, got %v", err)
	}
}
