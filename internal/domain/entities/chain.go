package entities

import (
	"math/big"
	"strings"
)

// EVMNamespace is the CAIP-2 namespace of every chain this service talks to.
const EVMNamespace = "eip155"

// CAIP2 formats an EVM chain id as "eip155:<id>".
func CAIP2(chainID *big.Int) string {
	if chainID == nil {
		return ""
	}
	return EVMNamespace + ":" + chainID.String()
}

// ParseCAIP2 accepts "eip155:<id>" or a bare decimal id.
func ParseCAIP2(value string) (*big.Int, bool) {
	value = strings.TrimSpace(value)
	if ref, ok := strings.CutPrefix(value, EVMNamespace+":"); ok {
		value = ref
	}
	if value == "" {
		return nil, false
	}
	id, ok := new(big.Int).SetString(value, 10)
	if !ok || id.Sign() <= 0 {
		return nil, false
	}
	return id, true
}
