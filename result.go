package soroban

// Result is the non-throwing tagged value AssembledTransaction.Result and
// SentTransaction.Result return: either the parsed native return value,
// or - when the contract itself returned a numbered error matching
// ClientOptions.ErrorTypes - an Err-tagged ContractErrorValue. Contract
// errors never surface as a Go `error` from these two call sites.
type Result struct {
	Value interface{}
	Err   *ContractErrorValue
}

// IsErr reports whether this Result carries a contract error.
func (r Result) IsErr() bool { return r.Err != nil }

func okResult(v interface{}) Result             { return Result{Value: v} }
func errResult(e *ContractErrorValue) Result    { return Result{Err: e} }
