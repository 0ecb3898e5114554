package contracts

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const (
	selectorError = "0x08c379a0" // Error(string)
	selectorPanic = "0x4e487b71" // Panic(uint256)
)

var revertHexPattern = regexp.MustCompile(`0x[0-9a-fA-F]{8,}`)

// RevertReason is decoded revert data from a failed call or estimate.
type RevertReason struct {
	RawHex   string `json:"rawHex"`
	Selector string `json:"selector,omitempty"`
	Name     string `json:"name,omitempty"`
	Message  string `json:"message,omitempty"`
}

// DecodeRevert extracts revert bytes from an RPC error, either from its
// ErrorData payload or from a hex blob in the message.
func DecodeRevert(err error) (RevertReason, bool) {
	if err == nil {
		return RevertReason{}, false
	}
	if data, ok := revertDataFromDataError(err); ok {
		return decodeRevertData(data), true
	}
	for _, candidate := range revertHexPattern.FindAllString(err.Error(), -1) {
		if data, ok := parseHexBytes(candidate); ok {
			return decodeRevertData(data), true
		}
	}
	return RevertReason{}, false
}

func revertDataFromDataError(err error) ([]byte, bool) {
	type rpcDataError interface {
		ErrorData() interface{}
	}
	dataErr, ok := err.(rpcDataError)
	if !ok {
		return nil, false
	}
	return revertBytesFromAny(dataErr.ErrorData())
}

func revertBytesFromAny(value interface{}) ([]byte, bool) {
	switch v := value.(type) {
	case string:
		return parseHexBytes(v)
	case []byte:
		if len(v) == 0 {
			return nil, false
		}
		return append([]byte(nil), v...), true
	case map[string]interface{}:
		if raw, ok := v["data"]; ok {
			return revertBytesFromAny(raw)
		}
	}
	return nil, false
}

func parseHexBytes(raw string) ([]byte, bool) {
	value := strings.TrimSpace(strings.TrimPrefix(raw, "0x"))
	if len(value) < 8 || len(value)%2 != 0 {
		return nil, false
	}
	data, err := hex.DecodeString(value)
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}

func decodeRevertData(data []byte) RevertReason {
	reason := RevertReason{RawHex: "0x" + hex.EncodeToString(data)}
	if len(data) < 4 {
		reason.Message = "execution reverted"
		return reason
	}
	reason.Selector = "0x" + hex.EncodeToString(data[:4])

	switch reason.Selector {
	case selectorError:
		stringType, _ := abi.NewType("string", "", nil)
		values, err := abi.Arguments{{Type: stringType}}.Unpack(data[4:])
		if err == nil && len(values) == 1 {
			if msg, ok := values[0].(string); ok {
				reason.Name = "Error"
				reason.Message = msg
				return reason
			}
		}
	case selectorPanic:
		if len(data) >= 36 {
			reason.Name = "Panic"
			reason.Message = fmt.Sprintf("panic code: %s", new(big.Int).SetBytes(data[4:36]))
			return reason
		}
	}
	reason.Message = "execution reverted"
	return reason
}
