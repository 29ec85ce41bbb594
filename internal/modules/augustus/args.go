package augustus

import (
	"errors"
	"fmt"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// errMalformed marks input that decoded but cannot describe a swap. Handlers
// wrap it so the module can skip the record instead of failing the batch.
var errMalformed = errors.New("malformed input")

func missingArg(name string) error {
	return fmt.Errorf("%w: missing or invalid argument %q", errMalformed, name)
}

// args wraps decoded event or call arguments
type args map[string]interface{}

func (a args) address(name string) (common.Address, error) {
	v, ok := a[name].(common.Address)
	if !ok {
		return common.Address{}, missingArg(name)
	}
	return v, nil
}

func (a args) bigInt(name string) (*big.Int, error) {
	v, ok := a[name].(*big.Int)
	if !ok || v == nil {
		return nil, missingArg(name)
	}
	return new(big.Int).Set(v), nil
}

// optionalBigInt returns nil when the argument is absent
func (a args) optionalBigInt(name string) *big.Int {
	v, err := a.bigInt(name)
	if err != nil {
		return nil
	}
	return v
}

func (a args) str(name string) (string, bool) {
	v, ok := a[name].(string)
	return v, ok
}

// uuid renders a bytes16 argument as 0x-prefixed hex
func (a args) uuid(name string) (string, bool) {
	switch v := a[name].(type) {
	case [16]byte:
		return hexutil.Encode(v[:]), true
	case []byte:
		return hexutil.Encode(v), true
	default:
		return "", false
	}
}

func (a args) addresses(name string) ([]common.Address, error) {
	v, ok := a[name].([]common.Address)
	if !ok {
		return nil, missingArg(name)
	}
	return v, nil
}

// tuple exposes the components of a decoded struct argument by their ABI
// names
func (a args) tuple(name string) (args, error) {
	v := reflect.ValueOf(a[name])
	if v.Kind() != reflect.Struct {
		return nil, missingArg(name)
	}
	return structArgs(v), nil
}

// tuples is tuple for a struct array argument
func (a args) tuples(name string) ([]args, error) {
	v := reflect.ValueOf(a[name])
	if v.Kind() != reflect.Slice || v.Type().Elem().Kind() != reflect.Struct {
		return nil, missingArg(name)
	}
	out := make([]args, v.Len())
	for i := range out {
		out[i] = structArgs(v.Index(i))
	}
	return out, nil
}

// structArgs keys the fields of an abi-generated struct by their json tag,
// which holds the component name
func structArgs(v reflect.Value) args {
	t := v.Type()
	out := make(args, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key := field.Tag.Get("json")
		if key == "" {
			key = field.Name
		}
		out[key] = v.Field(i).Interface()
	}
	return out
}
