package soroban

import (
	"crypto/sha256"

	"github.com/pkg/errors"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"
)

// Deployer assembles the two host-function invocations that precede
// ordinary contract calls: uploading a wasm blob and instantiating it at
// a salt-derived address. It carries the same wasm/wasmHash/salt/source/
// address fields a contract builder needs, built on AssembledTransaction
// and SentTransaction so install, deploy, and restore all share one
// build/simulate/sign/send pipeline with ordinary contract calls.
type Deployer struct {
	options ClientOptions

	wasm     []byte
	wasmHash [32]byte
	salt     [32]byte
	source   txnbuild.Account
}

// NewDeployer returns a Deployer bound to options (ContractID is unused
// here; it only becomes meaningful once Address is known).
func NewDeployer(options ClientOptions) *Deployer {
	return &Deployer{options: options}
}

// Wasm sets the compiled contract bytes to upload, deriving wasmHash.
func (d *Deployer) Wasm(wasm []byte) *Deployer {
	d.wasm = wasm
	d.wasmHash = sha256.Sum256(wasm)
	return d
}

// WasmHash sets the hash of an already-uploaded wasm blob, for a Deploy
// call that skips Install.
func (d *Deployer) WasmHash(hash [32]byte) *Deployer {
	d.wasmHash = hash
	return d
}

// Salt hashes salt into the value that, together with Source, determines
// the deployed contract's address.
func (d *Deployer) Salt(salt string) *Deployer {
	d.salt = sha256.Sum256([]byte(salt))
	return d
}

// Source sets the account that will submit the install/create/restore
// transactions.
func (d *Deployer) Source(source txnbuild.Account) *Deployer {
	d.source = source
	return d
}

func (d *Deployer) contractIDPreimage() (xdr.ContractIdPreimage, error) {
	sourceAccountID, err := xdr.AddressToAccountId(d.source.GetAccountID())
	if err != nil {
		return xdr.ContractIdPreimage{}, err
	}
	return xdr.ContractIdPreimage{
		Type: xdr.ContractIdPreimageTypeContractIdPreimageFromAddress,
		FromAddress: &xdr.ContractIdPreimageFromAddress{
			Address: xdr.ScAddress{
				Type:      xdr.ScAddressTypeScAddressTypeAccount,
				AccountId: &sourceAccountID,
			},
			Salt: d.salt,
		},
	}, nil
}

// Address computes the deployed contract's address from Source and Salt.
func (d *Deployer) Address() (*xdr.ScAddress, error) {
	if d.source == nil {
		return nil, ErrInvalidArgument
	}
	preimage, err := d.contractIDPreimage()
	if err != nil {
		return nil, err
	}
	idPreimage := xdr.HashIdPreimage{
		Type: xdr.EnvelopeTypeEnvelopeTypeContractId,
		ContractId: &xdr.HashIdPreimageContractId{
			NetworkId:          sha256.Sum256([]byte(d.options.NetworkPassphrase)),
			ContractIdPreimage: preimage,
		},
	}
	b, err := idPreimage.MarshalBinary()
	if err != nil {
		return nil, err
	}
	hash := xdr.Hash(sha256.Sum256(b))
	return &xdr.ScAddress{Type: xdr.ScAddressTypeScAddressTypeContract, ContractId: &hash}, nil
}

func (d *Deployer) codeKey() (xdr.LedgerKey, error) {
	return xdr.LedgerKey{
		Type:         xdr.LedgerEntryTypeContractCode,
		ContractCode: &xdr.LedgerKeyContractCode{Hash: d.wasmHash},
	}, nil
}

func (d *Deployer) footprintKey() (xdr.LedgerKey, error) {
	addr, err := d.Address()
	if err != nil {
		return xdr.LedgerKey{}, err
	}
	return xdr.LedgerKey{
		Type: xdr.LedgerEntryTypeContractData,
		ContractData: &xdr.LedgerKeyContractData{
			Contract:   *addr,
			Key:        xdr.ScVal{Type: xdr.ScValTypeScvLedgerKeyContractInstance},
			Durability: xdr.ContractDataDurabilityPersistent,
		},
	}, nil
}

// IsCodeAlive reports whether the uploaded wasm blob's time-to-live has
// not yet expired.
func (d *Deployer) IsCodeAlive() (bool, error) {
	key, err := d.codeKey()
	if err != nil {
		return false, err
	}
	return d.isKeyAlive(key)
}

// IsInstanceAlive reports whether the deployed contract instance's
// time-to-live has not yet expired.
func (d *Deployer) IsInstanceAlive() (bool, error) {
	key, err := d.footprintKey()
	if err != nil {
		return false, err
	}
	return d.isKeyAlive(key)
}

func (d *Deployer) isKeyAlive(key xdr.LedgerKey) (bool, error) {
	keyB64, err := key.MarshalBinaryBase64()
	if err != nil {
		return false, err
	}
	res, err := d.options.rpcClient().GetLedgerEntries(keyB64)
	if err != nil {
		return false, err
	}
	if len(res.Entries) == 0 {
		return false, nil
	}
	return res.Entries[0].LiveUntilLedgerSeq >= res.LatestLedger, nil
}

// InstallTx assembles the uploadContractWasm host-function invocation.
func (d *Deployer) InstallTx(methodOpts MethodOptions) (*AssembledTransaction, error) {
	if len(d.wasm) == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "deployer: Wasm is required to install")
	}
	if d.source == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "deployer: Source is required to install")
	}
	op := &txnbuild.InvokeHostFunction{
		HostFunction: xdr.HostFunction{
			Type: xdr.HostFunctionTypeHostFunctionTypeUploadContractWasm,
			Wasm: &d.wasm,
		},
		SourceAccount: d.source.GetAccountID(),
	}
	return buildAssembledTransaction(assembledTxOptions{
		client:           d.options,
		method:           "__install__",
		source:           d.source,
		op:               op,
		fee:              methodOpts.Fee,
		timeoutInSeconds: methodOpts.timeout(),
		simulate:         methodOpts.simulate(),
	})
}

// DeployTx assembles the createContract host-function invocation at the
// salt-derived address. It fails if the wasm code's time-to-live has
// already expired (use Restore first).
func (d *Deployer) DeployTx(methodOpts MethodOptions) (*AssembledTransaction, error) {
	if d.source == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "deployer: Source is required to deploy")
	}
	alive, err := d.IsCodeAlive()
	if err != nil {
		return nil, err
	}
	if !alive {
		return nil, errors.New("soroban: wasm code has no time-to-live left, requires a restore")
	}
	preimage, err := d.contractIDPreimage()
	if err != nil {
		return nil, err
	}
	wasmHash := xdr.Hash(d.wasmHash)
	op := &txnbuild.InvokeHostFunction{
		HostFunction: xdr.HostFunction{
			Type: xdr.HostFunctionTypeHostFunctionTypeCreateContract,
			CreateContract: &xdr.CreateContractArgs{
				ContractIdPreimage: preimage,
				Executable: xdr.ContractExecutable{
					Type:     xdr.ContractExecutableTypeContractExecutableWasm,
					WasmHash: &wasmHash,
				},
			},
		},
		SourceAccount: d.source.GetAccountID(),
	}
	return buildAssembledTransaction(assembledTxOptions{
		client:           d.options,
		method:           "__create__",
		source:           d.source,
		op:               op,
		fee:              methodOpts.Fee,
		timeoutInSeconds: methodOpts.timeout(),
		simulate:         methodOpts.simulate(),
	})
}

// RestoreTx assembles a restoreFootprint operation over the deployer's
// code and instance ledger keys.
func (d *Deployer) RestoreTx(methodOpts MethodOptions) (*AssembledTransaction, error) {
	if d.source == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "deployer: Source is required to restore")
	}
	codeKey, err := d.codeKey()
	if err != nil {
		return nil, err
	}
	footprintKey, err := d.footprintKey()
	if err != nil {
		return nil, err
	}

	op := &txnbuild.RestoreFootprint{SourceAccount: d.source.GetAccountID()}
	tx, err := buildAssembledTransaction(assembledTxOptions{
		client:           d.options,
		method:           "__restore__",
		source:           d.source,
		op:               op,
		fee:              methodOpts.Fee,
		timeoutInSeconds: methodOpts.timeout(),
		simulate:         false,
	})
	if err != nil {
		return nil, err
	}
	tx.raw.SorobanData(xdr.SorobanTransactionData{
		Resources: xdr.SorobanResources{
			Footprint: xdr.LedgerFootprint{ReadWrite: []xdr.LedgerKey{codeKey, footprintKey}},
		},
	})
	if methodOpts.simulate() {
		if err := tx.Simulate(); err != nil {
			return nil, err
		}
	}
	return tx, nil
}
