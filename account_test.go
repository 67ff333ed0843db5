package soroban

import (
	"os"
	"testing"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/xdr"

	"github.com/sorobanclient/soroban/internal/rpc"
	"github.com/sorobanclient/soroban/internal/testsupport"
)

func TestFetchAccountDecodesLedgerEntry(t *testing.T) {
	const publicKey = "GDDFXO5LE6JLE7E4HYN7EWBDJSKJ3NV7MAC4UN7LY7BUSD6JNPUAUK4K"
	accountID := xdr.MustAddress(publicKey)

	entry := xdr.LedgerEntryData{
		Type: xdr.LedgerEntryTypeAccount,
		Account: &xdr.AccountEntry{
			AccountId:     accountID,
			Balance:       1000,
			SeqNum:        xdr.SequenceNumber(5),
			NumSubEntries: 2,
			Thresholds:    xdr.Thresholds{1, 2, 3, 4},
		},
	}
	entryB64 := mustB64(entry)

	fake := &fakeTransport{
		ledgerEntries: func(keys ...string) (*rpc.GetLedgerEntriesResult, error) {
			return &rpc.GetLedgerEntriesResult{
				Entries: []rpc.LedgerEntry{{Xdr: entryB64}},
			}, nil
		},
	}

	account, err := fetchAccount(fake, publicKey)
	if err != nil {
		t.Fatal(err)
	}
	if account.AccountId != publicKey {
		t.Fatalf("expected account id %q, got %q", publicKey, account.AccountId)
	}
	seq, err := account.GetSequenceNumber()
	if err != nil {
		t.Fatal(err)
	}
	if seq != 5 {
		t.Fatalf("expected sequence 5, got %d", seq)
	}
	if account.Balance != 1000 {
		t.Fatalf("expected balance 1000, got %d", account.Balance)
	}
	if account.SubentryCount != 2 {
		t.Fatalf("expected 2 subentries, got %d", account.SubentryCount)
	}
}

func TestFetchAccountNotFound(t *testing.T) {
	fake := &fakeTransport{
		ledgerEntries: func(keys ...string) (*rpc.GetLedgerEntriesResult, error) {
			return &rpc.GetLedgerEntriesResult{}, nil
		},
	}
	if _, err := fetchAccount(fake, "GDDFXO5LE6JLE7E4HYN7EWBDJSKJ3NV7MAC4UN7LY7BUSD6JNPUAUK4K"); err == nil {
		t.Fatal("expected error for empty ledger entries result")
	}
}

// TestFundThenFetchAccount exercises testsupport.Fund against a real
// local/test network's friendbot, then confirms the funded keypair
// resolves through fetchAccount. It only runs when SOROBAN_RPC_URL and
// SOROBAN_FRIENDBOT_URL point at a live network, mirroring the harness
// env vars the rest of the integration suite reads.
func TestFundThenFetchAccount(t *testing.T) {
	rpcURL := os.Getenv("SOROBAN_RPC_URL")
	friendbotURL := os.Getenv("SOROBAN_FRIENDBOT_URL")
	if rpcURL == "" || friendbotURL == "" {
		t.Skip("SOROBAN_RPC_URL/SOROBAN_FRIENDBOT_URL not set, skipping live network test")
	}

	kp, err := keypair.Random()
	if err != nil {
		t.Fatal(err)
	}
	if err := testsupport.Fund(friendbotURL, kp.Address()); err != nil {
		t.Fatalf("funding %s: %v", kp.Address(), err)
	}

	client := &rpc.Client{URL: rpcURL}
	account, err := fetchAccount(client, kp.Address())
	if err != nil {
		t.Fatalf("fetching funded account: %v", err)
	}
	if account.AccountId != kp.Address() {
		t.Fatalf("expected account id %q, got %q", kp.Address(), account.AccountId)
	}
}

func TestIncrementSequenceNumber(t *testing.T) {
	account := &Account{AccountId: NullAccountID, Sequence: 10}
	seq, err := account.IncrementSequenceNumber()
	if err != nil {
		t.Fatal(err)
	}
	if seq != 11 || account.Sequence != 11 {
		t.Fatalf("expected sequence 11, got %d", seq)
	}
}
