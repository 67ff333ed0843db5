package soroban

import (
	"math"

	"github.com/pkg/errors"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"

	"github.com/sorobanclient/soroban/internal/rpc"
)

// NullAccountID is the fixed, documented placeholder source address used
// to simulate read calls when no real invoking account is available. It
// must never sign or submit a transaction: an RPC that actually executes
// it will reject it, and that rejection is returned as the RPC's own
// error (this package does not translate it into ErrFakeAccount).
const NullAccountID = "GAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAWHF"

// Account is the caller-visible ledger account record used to resolve a
// source account's sequence number before building a transaction. It
// implements txnbuild.Account.
type Account struct {
	AccountId            string            `json:"account_id"`
	Sequence             int64             `json:"sequence,string"`
	SubentryCount        int32             `json:"subentry_count"`
	InflationDestination string            `json:"inflation_destination,omitempty"`
	HomeDomain           string            `json:"home_domain,omitempty"`
	Thresholds           AccountThresholds `json:"thresholds"`
	Flags                AccountFlags      `json:"flags"`
	Balance              int64             `json:"balance"`
	Signers              []Signer          `json:"signers"`
}

// GetAccountID satisfies txnbuild.Account.
func (a Account) GetAccountID() string {
	return a.AccountId
}

// GetSequenceNumber satisfies txnbuild.Account.
func (a Account) GetSequenceNumber() (int64, error) {
	return a.Sequence, nil
}

// IncrementSequenceNumber satisfies txnbuild.Account.
func (a *Account) IncrementSequenceNumber() (int64, error) {
	if a.Sequence == math.MaxInt64 {
		return 0, errors.Errorf("sequence cannot be increased, it already reached MaxInt64 (%d)", int64(math.MaxInt64))
	}
	a.Sequence++
	return a.Sequence, nil
}

// NewNullAccount returns the placeholder account used to simulate read
// calls: sequence 0 at the fixed NullAccountID address.
func NewNullAccount() *Account {
	return &Account{AccountId: NullAccountID, Sequence: 0}
}

// Signer is one entry of an account's multisig signer list.
type Signer struct {
	Weight int32  `json:"weight"`
	Key    string `json:"key"`
}

// AccountThresholds mirrors the three Stellar signing-weight thresholds.
type AccountThresholds struct {
	LowThreshold  byte `json:"low_threshold"`
	MedThreshold  byte `json:"med_threshold"`
	HighThreshold byte `json:"high_threshold"`
}

// AccountFlags mirrors the account-level authorization flags.
type AccountFlags struct {
	AuthRequired        bool `json:"auth_required"`
	AuthRevocable       bool `json:"auth_revocable"`
	AuthImmutable       bool `json:"auth_immutable"`
	AuthClawbackEnabled bool `json:"auth_clawback_enabled"`
}

// rpcTransport is the seam AssembledTransaction and friends use to reach
// the node, satisfied by *rpc.Client in production and a fake in tests
// so the core state machine can be tested without a live network.
type rpcTransport interface {
	GetLedgerEntries(keys ...string) (*rpc.GetLedgerEntriesResult, error)
	SimulateTransaction(envelopeXDR string) (*rpc.SimulateTransactionResult, error)
	SendTransaction(signedEnvelopeXDR string) (*rpc.SendTransactionResult, error)
	GetTransaction(hash string) (*rpc.GetTransactionResult, error)
}

// fetchAccountEntry resolves the live ledger entry for publicKey through
// getLedgerEntries, the same lookup deploy.go's liveness checks use for
// contract-data entries, applied here to the account ledger key.
func fetchAccountEntry(rpcClient rpcTransport, publicKey string) (*xdr.AccountEntry, error) {
	accountID := xdr.MustAddress(publicKey)
	key := xdr.LedgerKey{
		Type: xdr.LedgerEntryTypeAccount,
		Account: &xdr.LedgerKeyAccount{
			AccountId: accountID,
		},
	}
	base64Key, err := key.MarshalBinaryBase64()
	if err != nil {
		return nil, err
	}
	res, err := rpcClient.GetLedgerEntries(base64Key)
	if err != nil {
		return nil, err
	}
	if len(res.Entries) < 1 {
		return nil, errors.Errorf("soroban: account %s not found", publicKey)
	}
	var entry xdr.LedgerEntryData
	if err := xdr.SafeUnmarshalBase64(res.Entries[0].Xdr, &entry); err != nil {
		return nil, err
	}
	return entry.Account, nil
}

// fetchAccount resolves the live Account (for its sequence number) used
// as the source of a transaction under construction.
func fetchAccount(rpcClient rpcTransport, publicKey string) (*Account, error) {
	entry, err := fetchAccountEntry(rpcClient, publicKey)
	if err != nil {
		return nil, err
	}
	account := &Account{
		AccountId:     publicKey,
		Sequence:      int64(entry.SeqNum),
		SubentryCount: int32(entry.NumSubEntries),
		HomeDomain:    string(entry.HomeDomain),
		Thresholds: AccountThresholds{
			LowThreshold:  entry.ThresholdLow(),
			MedThreshold:  entry.ThresholdMedium(),
			HighThreshold: entry.ThresholdHigh(),
		},
		Flags: AccountFlags{
			AuthRequired:        xdr.AccountFlags(entry.Flags).IsAuthRequired(),
			AuthRevocable:       xdr.AccountFlags(entry.Flags).IsAuthRevocable(),
			AuthImmutable:       xdr.AccountFlags(entry.Flags).IsAuthImmutable(),
			AuthClawbackEnabled: xdr.AccountFlags(entry.Flags).IsAuthClawbackEnabled(),
		},
		Balance: int64(entry.Balance),
	}
	if dest, err := entry.InflationDest.GetAddress(); err == nil {
		account.InflationDestination = dest
	}
	for _, s := range entry.Signers {
		account.Signers = append(account.Signers, Signer{Key: s.Key.Address(), Weight: int32(s.Weight)})
	}
	return account, nil
}

var _ txnbuild.Account = (*Account)(nil)
