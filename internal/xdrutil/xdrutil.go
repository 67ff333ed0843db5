// Package xdrutil holds small helpers that bridge the core state machine
// to github.com/stellar/go/xdr without pulling XDR concerns into the
// public API surface.
package xdrutil

import (
	"regexp"
	"strconv"
)

// contractErrorPattern matches the diagnostic string the simulator embeds
// when a contract call traps with a declared, numbered error, e.g.
// `Error(Contract, #3)`.
var contractErrorPattern = regexp.MustCompile(`Error\(Contract, #(\d+)\)`)

// ContractErrorCode extracts the numeric error code from a simulator
// diagnostic message. ok is false if the message does not match the
// contract-error pattern.
func ContractErrorCode(message string) (code int, ok bool) {
	m := contractErrorPattern.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
