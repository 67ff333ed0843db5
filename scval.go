package soroban

import (
	"github.com/pkg/errors"
	"github.com/stellar/go/strkey"
	"github.com/stellar/go/xdr"
)

// NativeToScVal converts a native Go value into the wire value type a
// declared parameter expects. It implements the common scalar/collection
// cases directly as a single type-directed converter covering
// Bool/Int32/Int64/Uint32/Uint64/String/Symbol and their vector/option
// forms.
func NativeToScVal(v interface{}, typeDef xdr.ScSpecTypeDef) (xdr.ScVal, error) {
	// A caller that already has a wire value (e.g. round-tripping a
	// struct/union field this module does not interpret) may pass it
	// straight through.
	if scv, ok := v.(xdr.ScVal); ok {
		return scv, nil
	}

	switch typeDef.Type {
	case xdr.ScSpecTypeScSpecTypeBool:
		b, ok := v.(bool)
		if !ok {
			return xdr.ScVal{}, errors.Errorf("expected bool, got %T", v)
		}
		return xdr.ScVal{Type: xdr.ScValTypeScvBool, B: &b}, nil

	case xdr.ScSpecTypeScSpecTypeU32:
		n, err := toUint32(v)
		if err != nil {
			return xdr.ScVal{}, err
		}
		u := xdr.Uint32(n)
		return xdr.ScVal{Type: xdr.ScValTypeScvU32, U32: &u}, nil

	case xdr.ScSpecTypeScSpecTypeI32:
		n, err := toInt32(v)
		if err != nil {
			return xdr.ScVal{}, err
		}
		i := xdr.Int32(n)
		return xdr.ScVal{Type: xdr.ScValTypeScvI32, I32: &i}, nil

	case xdr.ScSpecTypeScSpecTypeU64:
		n, err := toUint64(v)
		if err != nil {
			return xdr.ScVal{}, err
		}
		u := xdr.Uint64(n)
		return xdr.ScVal{Type: xdr.ScValTypeScvU64, U64: &u}, nil

	case xdr.ScSpecTypeScSpecTypeI64:
		n, err := toInt64(v)
		if err != nil {
			return xdr.ScVal{}, err
		}
		i := xdr.Int64(n)
		return xdr.ScVal{Type: xdr.ScValTypeScvI64, I64: &i}, nil

	case xdr.ScSpecTypeScSpecTypeString:
		s, ok := v.(string)
		if !ok {
			return xdr.ScVal{}, errors.Errorf("expected string, got %T", v)
		}
		scStr := xdr.ScString(s)
		return xdr.ScVal{Type: xdr.ScValTypeScvString, Str: &scStr}, nil

	case xdr.ScSpecTypeScSpecTypeSymbol:
		s, ok := v.(string)
		if !ok {
			return xdr.ScVal{}, errors.Errorf("expected string for symbol, got %T", v)
		}
		sym := xdr.ScSymbol(s)
		return xdr.ScVal{Type: xdr.ScValTypeScvSymbol, Sym: &sym}, nil

	case xdr.ScSpecTypeScSpecTypeBytes:
		b, ok := v.([]byte)
		if !ok {
			return xdr.ScVal{}, errors.Errorf("expected []byte, got %T", v)
		}
		bytes := xdr.ScBytes(b)
		return xdr.ScVal{Type: xdr.ScValTypeScvBytes, Bytes: &bytes}, nil

	case xdr.ScSpecTypeScSpecTypeAddress:
		s, ok := v.(string)
		if !ok {
			return xdr.ScVal{}, errors.Errorf("expected string address, got %T", v)
		}
		addr, err := addressFromStrkey(s)
		if err != nil {
			return xdr.ScVal{}, err
		}
		return xdr.ScVal{Type: xdr.ScValTypeScvAddress, Address: addr}, nil

	case xdr.ScSpecTypeScSpecTypeOption:
		if v == nil {
			return xdr.ScVal{Type: xdr.ScValTypeScvVoid}, nil
		}
		if typeDef.OptionType == nil || typeDef.OptionType.ValueType == nil {
			return xdr.ScVal{}, errors.New("malformed option type definition")
		}
		return NativeToScVal(v, *typeDef.OptionType.ValueType)

	case xdr.ScSpecTypeScSpecTypeVec:
		items, ok := v.([]interface{})
		if !ok {
			return xdr.ScVal{}, errors.Errorf("expected []interface{} for vec, got %T", v)
		}
		if typeDef.VecType == nil {
			return xdr.ScVal{}, errors.New("malformed vec type definition")
		}
		vec := make(xdr.ScVec, 0, len(items))
		for _, item := range items {
			scv, err := NativeToScVal(item, typeDef.VecType.ElementType)
			if err != nil {
				return xdr.ScVal{}, err
			}
			vec = append(vec, scv)
		}
		return xdr.ScVal{Type: xdr.ScValTypeScvVec, Vec: &vec}, nil

	default:
		return xdr.ScVal{}, errors.Errorf("unsupported argument type %v for native value %T", typeDef.Type, v)
	}
}

// ScValToNative is the inverse of NativeToScVal, used to parse a
// function's return value.
func ScValToNative(wireValue xdr.ScVal, typeDef xdr.ScSpecTypeDef) (interface{}, error) {
	switch wireValue.Type {
	case xdr.ScValTypeScvVoid:
		return nil, nil
	case xdr.ScValTypeScvBool:
		return bool(*wireValue.B), nil
	case xdr.ScValTypeScvU32:
		return uint32(*wireValue.U32), nil
	case xdr.ScValTypeScvI32:
		return int32(*wireValue.I32), nil
	case xdr.ScValTypeScvU64:
		return uint64(*wireValue.U64), nil
	case xdr.ScValTypeScvI64:
		return int64(*wireValue.I64), nil
	case xdr.ScValTypeScvString:
		return string(*wireValue.Str), nil
	case xdr.ScValTypeScvSymbol:
		return string(*wireValue.Sym), nil
	case xdr.ScValTypeScvBytes:
		return []byte(*wireValue.Bytes), nil
	case xdr.ScValTypeScvAddress:
		return addressToStrkey(wireValue.Address)
	case xdr.ScValTypeScvVec:
		if wireValue.Vec == nil {
			return []interface{}{}, nil
		}
		var elemType xdr.ScSpecTypeDef
		if typeDef.Type == xdr.ScSpecTypeScSpecTypeVec && typeDef.VecType != nil {
			elemType = typeDef.VecType.ElementType
		}
		out := make([]interface{}, 0, len(*wireValue.Vec))
		for _, item := range *wireValue.Vec {
			n, err := ScValToNative(item, elemType)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	default:
		// Anything this module does not interpret (maps, UDTs, ledger
		// keys) is handed back as the raw wire value so callers can
		// still inspect it.
		return wireValue, nil
	}
}

func addressFromStrkey(s string) (*xdr.ScAddress, error) {
	switch {
	case strkey.IsValidEd25519PublicKey(s):
		acc := xdr.MustAddress(s)
		return &xdr.ScAddress{Type: xdr.ScAddressTypeScAddressTypeAccount, AccountId: &acc}, nil
	case strkey.IsValidContractAddress(s):
		raw, err := strkey.Decode(strkey.VersionByteContract, s)
		if err != nil {
			return nil, errors.Wrap(err, "decoding contract address")
		}
		var hash xdr.Hash
		copy(hash[:], raw)
		return &xdr.ScAddress{Type: xdr.ScAddressTypeScAddressTypeContract, ContractId: &hash}, nil
	default:
		return nil, errors.Errorf("not a valid account or contract strkey address: %q", s)
	}
}

func addressToStrkey(addr *xdr.ScAddress) (string, error) {
	if addr == nil {
		return "", errors.New("nil address")
	}
	switch addr.Type {
	case xdr.ScAddressTypeScAddressTypeAccount:
		return addr.AccountId.Address(), nil
	case xdr.ScAddressTypeScAddressTypeContract:
		return strkey.Encode(strkey.VersionByteContract, addr.ContractId[:])
	default:
		return "", errors.Errorf("unsupported address type %v", addr.Type)
	}
}

func toUint32(v interface{}) (uint32, error) {
	switch n := v.(type) {
	case uint32:
		return n, nil
	case int:
		return uint32(n), nil
	case int32:
		return uint32(n), nil
	case uint64:
		return uint32(n), nil
	case int64:
		return uint32(n), nil
	default:
		return 0, errors.Errorf("expected integer, got %T", v)
	}
}

func toInt32(v interface{}) (int32, error) {
	switch n := v.(type) {
	case int32:
		return n, nil
	case int:
		return int32(n), nil
	case uint32:
		return int32(n), nil
	case int64:
		return int32(n), nil
	default:
		return 0, errors.Errorf("expected integer, got %T", v)
	}
}

func toUint64(v interface{}) (uint64, error) {
	switch n := v.(type) {
	case uint64:
		return n, nil
	case int64:
		return uint64(n), nil
	case int:
		return uint64(n), nil
	case uint32:
		return uint64(n), nil
	case int32:
		return uint64(n), nil
	default:
		return 0, errors.Errorf("expected integer, got %T", v)
	}
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	default:
		return 0, errors.Errorf("expected integer, got %T", v)
	}
}
