package soroban

import (
	"testing"

	"github.com/stellar/go/txnbuild"
)

func TestDeployerRequiresSource(t *testing.T) {
	d := NewDeployer(ClientOptions{NetworkPassphrase: "Test SDF Network ; September 2015"})
	d.Wasm([]byte{0, 1, 2, 3})
	if _, err := d.InstallTx(MethodOptions{}); err == nil {
		t.Fatal("expected error installing without a source account")
	}
}

func TestDeployerAddressIsDeterministic(t *testing.T) {
	source := txnbuild.NewSimpleAccount("GDDFXO5LE6JLE7E4HYN7EWBDJSKJ3NV7MAC4UN7LY7BUSD6JNPUAUK4K", 1)
	d := NewDeployer(ClientOptions{NetworkPassphrase: "Test SDF Network ; September 2015"}).
		Source(&source).
		Salt("my-contract")

	addr1, err := d.Address()
	if err != nil {
		t.Fatal(err)
	}
	addr2, err := d.Address()
	if err != nil {
		t.Fatal(err)
	}
	if *addr1.ContractId != *addr2.ContractId {
		t.Fatal("expected Address to be deterministic for the same source/salt")
	}

	other := NewDeployer(ClientOptions{NetworkPassphrase: "Test SDF Network ; September 2015"}).
		Source(&source).
		Salt("a-different-contract")
	addr3, err := other.Address()
	if err != nil {
		t.Fatal(err)
	}
	if *addr1.ContractId == *addr3.ContractId {
		t.Fatal("expected different salts to derive different addresses")
	}
}
