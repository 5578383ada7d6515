// Package wireformat defines the JSON envelope used to hand evaluated
// foreign values and bridged errors to other processes. These types must
// remain stable and backward compatible: the CLI prints them and scripts
// parse them.
package wireformat

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/reglet-dev/pybridge"
	"github.com/reglet-dev/pybridge/domain/entities"
	"github.com/reglet-dev/pybridge/domain/errors"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// ResultWire is the JSON envelope for one evaluation.
type ResultWire struct {
	Value any          `json:"value"`
	Error *ErrorDetail `json:"error,omitempty"`
	Type  string       `json:"type,omitempty"` // foreign type name of the result
	Repr  string       `json:"repr,omitempty"`
}

// ObjectWire stands in for a foreign value with no JSON form.
type ObjectWire struct {
	Type string `json:"$type"`
	Repr string `json:"repr"`
}

// BigIntWire carries an integer outside the int64 range as decimal text.
type BigIntWire struct {
	Int string `json:"$int"`
}

// FloatWire carries NaN and the infinities, which JSON numbers cannot.
type FloatWire struct {
	Float string `json:"$float"`
}

// TupleWire marks a foreign tuple so it is not confused with a list.
type TupleWire struct {
	Tuple []any `json:"$tuple"`
}

// SetWire marks a foreign set.
type SetWire struct {
	Set []any `json:"$set"`
}

// Result materializes obj and wraps it in an envelope. Values that cannot be
// materialized are reported through Error; the envelope itself never fails.
func Result(obj *pybridge.Object) ResultWire {
	var res ResultWire
	res.Type, _ = obj.TypeName()
	res.Repr, _ = obj.Repr()

	v, err := obj.Materialize()
	if err != nil {
		res.Error = errors.ToErrorDetail(err)
		return res
	}
	if res.Value, err = Value(v); err != nil {
		res.Error = errors.ToErrorDetail(err)
	}
	return res
}

// ErrorResult wraps err in an envelope.
func ErrorResult(err error) ResultWire {
	return ResultWire{Error: errors.ToErrorDetail(err)}
}

// Value converts a materialized value into a JSON-encodable one. Dicts keep
// their insertion order. Proxies that survived materialization become
// ObjectWire and are released.
func Value(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, int64, string, []byte:
		return x, nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return FloatWire{Float: fmt.Sprint(x)}, nil
		}
		return x, nil
	case *big.Int:
		return BigIntWire{Int: x.String()}, nil
	case []any:
		return values(x)
	case pybridge.Tuple:
		items, err := values(x)
		if err != nil {
			return nil, err
		}
		return TupleWire{Tuple: items}, nil
	case *pybridge.Set:
		items, err := values(x.Items())
		if err != nil {
			return nil, err
		}
		return SetWire{Set: items}, nil
	case *pybridge.Dict:
		out := orderedmap.New[string, any]()
		var err error
		x.Each(func(key, value any) bool {
			var k string
			if k, err = keyString(key); err != nil {
				return false
			}
			var val any
			if val, err = Value(value); err != nil {
				return false
			}
			out.Set(k, val)
			return true
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	case *pybridge.Object:
		defer x.Release()
		typ, err := x.TypeName()
		if err != nil {
			return nil, err
		}
		repr, err := x.Repr()
		if err != nil {
			return nil, err
		}
		return ObjectWire{Type: typ, Repr: repr}, nil
	}
	return nil, &errors.MarshalError{Value: v, Reason: "no wire representation"}
}

func values(items []any) ([]any, error) {
	out := make([]any, len(items))
	for i, item := range items {
		v, err := Value(item)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// keyString renders a dict key as a JSON object key: strings as is, other
// keys by their foreign repr.
func keyString(key any) (string, error) {
	switch k := key.(type) {
	case string:
		return k, nil
	case *pybridge.Object:
		defer k.Release()
		return k.Repr()
	case nil:
		return "None", nil
	case bool:
		if k {
			return "True", nil
		}
		return "False", nil
	}
	return fmt.Sprint(key), nil
}

// Marshal encodes an envelope, indented when pretty is set.
func Marshal(res ResultWire, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(res, "", "  ")
	}
	return json.Marshal(res)
}
