package rpc

import "encoding/json"

// Method name constants for the JSON-RPC operations the core consumes.
const (
	MethodSendTransaction     = "sendTransaction"
	MethodSimulateTransaction = "simulateTransaction"
	MethodGetTransaction      = "getTransaction"
	MethodGetHealth           = "getHealth"
	MethodGetNetwork          = "getNetwork"
	MethodGetLedgerEntries    = "getLedgerEntries"
)

// SendTransactionResult mirrors the sendTransaction RPC response.
type SendTransactionResult struct {
	Hash                  string   `json:"hash"`
	Status                string   `json:"status"`
	LatestLedger          int64    `json:"latestLedger"`
	LatestLedgerCloseTime string   `json:"latestLedgerCloseTime"`
	ErrorResultXdr        string   `json:"errorResultXdr,omitempty"`
	DiagnosticEventsXdr   []string `json:"diagnosticEventsXdr,omitempty"`
}

// SendTransaction submits a signed, base64-encoded transaction envelope.
func (c Client) SendTransaction(signedEnvelopeXDR string) (*SendTransactionResult, error) {
	var out SendTransactionResult
	if err := c.callResult(MethodSendTransaction, &out, struct {
		Transaction string `json:"transaction"`
	}{signedEnvelopeXDR}); err != nil {
		return nil, err
	}
	return &out, nil
}

// SimulateTransactionResult mirrors the simulateTransaction RPC response.
type SimulateTransactionResult struct {
	Error           string   `json:"error,omitempty"`
	TransactionData string   `json:"transactionData"`
	MinResourceFee  int64    `json:"minResourceFee,string"`
	LatestLedger    int64    `json:"latestLedger"`
	Events          []string `json:"events"`

	Results []struct {
		Auth []string `json:"auth"`
		XDR  string   `json:"xdr"`
	} `json:"results"`

	RestorePreamble *struct {
		MinResourceFee  int64  `json:"minResourceFee,string"`
		TransactionData string `json:"transactionData"`
	} `json:"restorePreamble,omitempty"`

	StateChanges []struct {
		Type   int    `json:"type"`
		Key    string `json:"key"`
		Before string `json:"before,omitempty"`
		After  string `json:"after,omitempty"`
	} `json:"stateChanges,omitempty"`
}

// SimulateTransaction simulates a base64-encoded, unsigned transaction
// envelope.
func (c Client) SimulateTransaction(envelopeXDR string) (*SimulateTransactionResult, error) {
	var out SimulateTransactionResult
	if err := c.callResult(MethodSimulateTransaction, &out, struct {
		Transaction string `json:"transaction"`
	}{envelopeXDR}); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTransactionResult mirrors the getTransaction RPC response.
type GetTransactionResult struct {
	Status                string `json:"status"`
	LatestLedger          int64  `json:"latestLedger"`
	LatestLedgerCloseTime string `json:"latestLedgerCloseTime"`
	OldestLedger          int64  `json:"oldestLedger"`
	OldestLedgerCloseTime string `json:"oldestLedgerCloseTime"`
	Ledger                int64  `json:"ledger"`
	CreatedAt             string `json:"createdAt"`
	ApplicationOrder      int64  `json:"applicationOrder"`
	FeeBump               bool   `json:"feeBump"`
	EnvelopeXdr           string `json:"envelopeXdr,omitempty"`
	ResultXdr             string `json:"resultXdr,omitempty"`
	ResultMetaXdr         string `json:"resultMetaXdr,omitempty"`
}

// GetTransaction fetches the status of a submitted transaction by hash.
func (c Client) GetTransaction(hash string) (*GetTransactionResult, error) {
	var out GetTransactionResult
	if err := c.callResult(MethodGetTransaction, &out, struct {
		Hash string `json:"hash"`
	}{hash}); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetHealthResult mirrors the getHealth RPC response.
type GetHealthResult struct {
	Status                string `json:"status"`
	LatestLedger          int64  `json:"latestLedger"`
	OldestLedger          int64  `json:"oldestLedger"`
	LedgerRetentionWindow int64  `json:"ledgerRetentionWindow"`
}

// GetHealth reports the health of the node.
func (c Client) GetHealth() (*GetHealthResult, error) {
	var out GetHealthResult
	if err := c.callResult(MethodGetHealth, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LedgerEntry is one entry returned by getLedgerEntries.
type LedgerEntry struct {
	Key                   string `json:"key"`
	Xdr                   string `json:"xdr"`
	LastModifiedLedgerSeq int64  `json:"lastModifiedLedgerSeq"`
	LiveUntilLedgerSeq    int64  `json:"liveUntilLedgerSeq,omitempty"`
}

// GetLedgerEntriesResult mirrors the getLedgerEntries RPC response.
type GetLedgerEntriesResult struct {
	LatestLedger int64         `json:"latestLedger"`
	Entries      []LedgerEntry `json:"entries"`
}

// GetLedgerEntries fetches the current value of a set of base64-encoded
// ledger keys.
func (c Client) GetLedgerEntries(keys ...string) (*GetLedgerEntriesResult, error) {
	var out GetLedgerEntriesResult
	if err := c.callResult(MethodGetLedgerEntries, &out, struct {
		Keys []string `json:"keys"`
	}{keys}); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetNetworkResult mirrors the getNetwork RPC response.
type GetNetworkResult struct {
	Passphrase      string `json:"passphrase"`
	FriendbotURL    string `json:"friendbotUrl,omitempty"`
	ProtocolVersion int64  `json:"protocolVersion"`
}

// GetNetwork reports the passphrase and friendbot URL of the connected
// network.
func (c Client) GetNetwork() (*GetNetworkResult, error) {
	var out GetNetworkResult
	if err := c.callResult(MethodGetNetwork, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// callResult executes a call and unmarshals its result into out.
func (c Client) callResult(method string, out interface{}, params ...interface{}) error {
	resp, err := c.Call(method, params...)
	if err != nil {
		return err
	}
	return json.Unmarshal(*resp.Result, out)
}
