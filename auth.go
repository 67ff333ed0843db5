package soroban

import (
	"crypto/sha256"
	"encoding/base64"

	"github.com/pkg/errors"
	"github.com/stellar/go/strkey"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"
	"golang.org/x/exp/slices"
)

// invokeOp returns the one InvokeHostFunction operation carried by the raw
// builder, failing for any other transaction shape (restore-footprint
// transactions carry no auth entries to co-sign).
func (t *AssembledTransaction) invokeOp() (*txnbuild.InvokeHostFunction, error) {
	if t.raw == nil {
		return nil, ErrBuiltRequired
	}
	op, ok := t.raw.operation.(*txnbuild.InvokeHostFunction)
	if !ok {
		return nil, ErrNotSingleInvocation
	}
	return op, nil
}

// NeedsNonInvokerSigningBy lists the distinct address-credentialed
// signers the simulated auth tree still needs, in first-seen order. With
// includeAlreadySigned it also lists addresses whose entry already
// carries a signature.
func (t *AssembledTransaction) NeedsNonInvokerSigningBy(includeAlreadySigned bool) ([]string, error) {
	if t.built == nil {
		return nil, ErrBuiltRequired
	}
	op, err := t.invokeOp()
	if err != nil {
		return nil, err
	}

	var out []string
	for _, entry := range op.Auth {
		if entry.Credentials.Type != xdr.SorobanCredentialsTypeSorobanCredentialsAddress {
			continue
		}
		addrCreds := entry.Credentials.Address
		if addrCreds == nil {
			continue
		}
		if !includeAlreadySigned && addrCreds.Signature.Type != xdr.ScValTypeScvVoid {
			continue
		}
		pk, err := addressToStrkey(&addrCreds.Address)
		if err != nil {
			return nil, err
		}
		if slices.Contains(out, pk) {
			continue
		}
		out = append(out, pk)
	}
	return out, nil
}

// SignAuthEntriesOptions configures one co-signing pass over an
// AssembledTransaction's simulated auth entries.
type SignAuthEntriesOptions struct {
	// PublicKey is the signer whose entries to sign; defaults to
	// ClientOptions.PublicKey.
	PublicKey string
	// SignAuthEntry defaults to ClientOptions.SignAuthEntry.
	SignAuthEntry SignAuthEntryFunc
	// Expiration is the ledger sequence the signature is valid through;
	// zero means "look up the contract instance's current live-until
	// ledger".
	Expiration uint32
}

// SignAuthEntries signs every unsigned address-credentialed auth entry
// addressed to opts.PublicKey, in place on the transaction's operation,
// using the Soroban authorizeEntry preimage convention: sha256 of the
// XDR-encoded HashIdPreimageSorobanAuthorization, delivered to the
// signer callback base64-encoded, and spliced back as a
// {public_key, signature} map wrapped in a one-element vector.
//
// It does not re-simulate afterwards: the fee and resource footprint from
// the original simulation are kept, which assumes the simulator already
// sized them for signed entries.
func (t *AssembledTransaction) SignAuthEntries(opts SignAuthEntriesOptions) error {
	if t.built == nil {
		return ErrBuiltRequired
	}
	op, err := t.invokeOp()
	if err != nil {
		return err
	}

	signFn := opts.SignAuthEntry
	if signFn == nil {
		signFn = t.opts.client.SignAuthEntry
	}
	if signFn == nil {
		return ErrNoSigner
	}

	publicKey := opts.PublicKey
	if publicKey == "" {
		publicKey = t.opts.client.PublicKey
	}
	if publicKey == "" {
		return ErrInvalidArgument
	}

	needed, err := t.NeedsNonInvokerSigningBy(false)
	if err != nil {
		return err
	}
	required := false
	for _, pk := range needed {
		if pk == publicKey {
			required = true
			break
		}
	}
	if !required {
		return ErrNoSignatureNeeded
	}

	expiration := opts.Expiration
	if expiration == 0 {
		expiration, err = t.defaultAuthExpiration()
		if err != nil {
			return err
		}
	}

	signedAny := false
	for i := range op.Auth {
		entry := &op.Auth[i]
		if entry.Credentials.Type != xdr.SorobanCredentialsTypeSorobanCredentialsAddress {
			continue
		}
		addrCreds := entry.Credentials.Address
		if addrCreds == nil {
			continue
		}
		pk, err := addressToStrkey(&addrCreds.Address)
		if err != nil {
			return err
		}
		if pk != publicKey || addrCreds.Signature.Type != xdr.ScValTypeScvVoid {
			continue
		}
		if err := signOneAuthEntry(entry, t.opts.client.NetworkPassphrase, expiration, publicKey, signFn); err != nil {
			return err
		}
		signedAny = true
	}
	if !signedAny {
		return ErrNoUnsignedNonInvokerAuthEntries
	}
	return nil
}

func signOneAuthEntry(entry *xdr.SorobanAuthorizationEntry, networkPassphrase string, expiration uint32, publicKey string, signFn SignAuthEntryFunc) error {
	addrCreds := entry.Credentials.Address
	addrCreds.SignatureExpirationLedger = xdr.Uint32(expiration)

	networkID := xdr.Hash(sha256.Sum256([]byte(networkPassphrase)))
	preimage := xdr.HashIdPreimage{
		Type: xdr.EnvelopeTypeEnvelopeTypeSorobanAuthorization,
		SorobanAuthorization: &xdr.HashIdPreimageSorobanAuthorization{
			NetworkId:                 networkID,
			Nonce:                     addrCreds.Nonce,
			SignatureExpirationLedger: addrCreds.SignatureExpirationLedger,
			Invocation:                entry.RootInvocation,
		},
	}
	preimageBytes, err := preimage.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "soroban: encoding auth preimage")
	}
	payloadHash := sha256.Sum256(preimageBytes)

	sig, err := signFn(base64.StdEncoding.EncodeToString(payloadHash[:]))
	if err != nil {
		return errors.Wrap(err, "soroban: signing auth entry")
	}

	sigScVal, err := classicAccountSignatureScVal(publicKey, sig)
	if err != nil {
		return err
	}
	addrCreds.Signature = sigScVal
	return nil
}

// classicAccountSignatureScVal builds the default account-contract
// signature shape: a one-element vector holding a
// {"public_key": Bytes, "signature": Bytes} map, keys in declared order.
func classicAccountSignatureScVal(publicKey string, sig []byte) (xdr.ScVal, error) {
	rawPub, err := strkey.Decode(strkey.VersionByteAccountID, publicKey)
	if err != nil {
		return xdr.ScVal{}, errors.Wrap(err, "soroban: decoding signer public key")
	}

	pubKeySym := xdr.ScSymbol("public_key")
	sigSym := xdr.ScSymbol("signature")
	pubBytes := xdr.ScBytes(rawPub)
	sigBytes := xdr.ScBytes(sig)

	entryMap := xdr.ScMap{
		{Key: xdr.ScVal{Type: xdr.ScValTypeScvSymbol, Sym: &pubKeySym}, Val: xdr.ScVal{Type: xdr.ScValTypeScvBytes, Bytes: &pubBytes}},
		{Key: xdr.ScVal{Type: xdr.ScValTypeScvSymbol, Sym: &sigSym}, Val: xdr.ScVal{Type: xdr.ScValTypeScvBytes, Bytes: &sigBytes}},
	}
	vec := xdr.ScVec{{Type: xdr.ScValTypeScvMap, Map: &entryMap}}
	return xdr.ScVal{Type: xdr.ScValTypeScvVec, Vec: &vec}, nil
}

// defaultAuthExpiration looks up the contract instance's current
// live-until ledger.
func (t *AssembledTransaction) defaultAuthExpiration() (uint32, error) {
	addr, err := addressFromStrkey(t.opts.client.ContractID)
	if err != nil {
		return 0, err
	}
	key := xdr.LedgerKey{
		Type: xdr.LedgerEntryTypeContractData,
		ContractData: &xdr.LedgerKeyContractData{
			Contract:   *addr,
			Key:        xdr.ScVal{Type: xdr.ScValTypeScvLedgerKeyContractInstance},
			Durability: xdr.ContractDataDurabilityPersistent,
		},
	}
	keyB64, err := key.MarshalBinaryBase64()
	if err != nil {
		return 0, err
	}
	res, err := t.rpcClient.GetLedgerEntries(keyB64)
	if err != nil {
		return 0, err
	}
	if len(res.Entries) == 0 {
		return 0, errors.New("soroban: contract instance not found while resolving auth expiration")
	}
	return uint32(res.Entries[0].LiveUntilLedgerSeq), nil
}
