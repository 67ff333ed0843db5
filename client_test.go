package soroban

import (
	"testing"

	"github.com/stellar/go/xdr"

	"github.com/sorobanclient/soroban/internal/rpc"
)

func helloClient(t *testing.T, fake *fakeTransport) *ContractClient {
	t.Helper()
	spec, err := NewContractSpec(helloSpecEntries())
	if err != nil {
		t.Fatal(err)
	}
	opts := ClientOptions{ContractID: testContractID, rpcOverride: fake}
	return NewClient(spec, opts)
}

func TestInvokeUnknownMethod(t *testing.T) {
	client := helloClient(t, &fakeTransport{})
	if _, err := client.Invoke("nope", nil, MethodOptions{}); err == nil {
		t.Fatal("expected error for unknown method")
	}
}

func TestInvokeRejectsArgsForZeroArityFunction(t *testing.T) {
	client := helloClient(t, &fakeTransport{})
	if _, err := client.Invoke("count", map[string]interface{}{"x": 1}, MethodOptions{}); err == nil {
		t.Fatal("expected error passing arguments to a zero-arity function")
	}
}

func TestInvokeBuildsAndSimulates(t *testing.T) {
	retvalB64 := mustB64(xdr.ScVal{Type: xdr.ScValTypeScvString, Str: func() *xdr.ScString { s := xdr.ScString("hi Alice"); return &s }()})
	txDataB64 := mustB64(xdr.SorobanTransactionData{})

	fake := &fakeTransport{
		simulate: func(envelopeXDR string) (*rpc.SimulateTransactionResult, error) {
			return &rpc.SimulateTransactionResult{
				TransactionData: txDataB64,
				Results: []struct {
					Auth []string `json:"auth"`
					XDR  string   `json:"xdr"`
				}{
					{XDR: retvalB64},
				},
			}, nil
		},
	}

	client := helloClient(t, fake)
	tx, err := client.Invoke("hello", map[string]interface{}{"to": "Alice"}, MethodOptions{})
	if err != nil {
		t.Fatal(err)
	}

	res, err := tx.Result()
	if err != nil {
		t.Fatal(err)
	}
	if res.Value != "hi Alice" {
		t.Fatalf("expected \"hi Alice\", got %v", res.Value)
	}
}

func TestNewClientDerivesErrorTypesFromSpec(t *testing.T) {
	client := helloClient(t, &fakeTransport{})
	if len(client.options.ErrorTypes) != 2 {
		t.Fatalf("expected NewClient to derive 2 error types from the contract's error cases, got %d", len(client.options.ErrorTypes))
	}
}
