package sentio

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"time"
)

// RichStruct is the typed parameter map accepted by the SQL endpoint.
type RichStruct struct {
	Fields map[string]RichValue `json:"fields"`
}

type RichValueList struct {
	Values []RichValue `json:"values"`
}

type BigInteger struct {
	Negative bool   `json:"negative"`
	Data     string `json:"data"`
}

// RichValue holds exactly one of its fields.
type RichValue struct {
	NullValue      string         `json:"nullValue,omitempty"`
	IntValue       *int64         `json:"intValue,omitempty"`
	FloatValue     *float64       `json:"floatValue,omitempty"`
	BigintValue    *BigInteger    `json:"bigintValue,omitempty"`
	StringValue    *string        `json:"stringValue,omitempty"`
	BoolValue      *bool          `json:"boolValue,omitempty"`
	TimestampValue string         `json:"timestampValue,omitempty"`
	ListValue      *RichValueList `json:"listValue,omitempty"`
	StructValue    *RichStruct    `json:"structValue,omitempty"`
}

// ToRichStruct encodes query parameters. A nil map yields nil so the field
// is omitted from the request.
func ToRichStruct(params map[string]any) (*RichStruct, error) {
	if params == nil {
		return nil, nil
	}
	out := &RichStruct{Fields: make(map[string]RichValue, len(params))}
	for k, v := range params {
		rv, err := ToRichValue(v)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", k, err)
		}
		out.Fields[k] = rv
	}
	return out, nil
}

func ToRichValue(v any) (RichValue, error) {
	switch x := v.(type) {
	case nil:
		return RichValue{NullValue: "NULL_VALUE"}, nil
	case string:
		return RichValue{StringValue: &x}, nil
	case bool:
		return RichValue{BoolValue: &x}, nil
	case time.Time:
		return RichValue{TimestampValue: x.UTC().Format(time.RFC3339Nano)}, nil
	case *big.Int:
		if x == nil {
			return RichValue{NullValue: "NULL_VALUE"}, nil
		}
		return RichValue{BigintValue: &BigInteger{Negative: x.Sign() < 0, Data: x.Text(16)}}, nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return RichValue{IntValue: &i}, nil
		}
		f, err := x.Float64()
		if err != nil {
			return RichValue{}, fmt.Errorf("invalid number %q", x)
		}
		return RichValue{FloatValue: &f}, nil
	case float64:
		return fromFloat(x), nil
	case float32:
		return fromFloat(float64(x)), nil
	case map[string]any:
		s, err := ToRichStruct(x)
		if err != nil {
			return RichValue{}, err
		}
		return RichValue{StructValue: s}, nil
	case []any:
		list := &RichValueList{Values: make([]RichValue, 0, len(x))}
		for i, item := range x {
			rv, err := ToRichValue(item)
			if err != nil {
				return RichValue{}, fmt.Errorf("index %d: %w", i, err)
			}
			list.Values = append(list.Values, rv)
		}
		return RichValue{ListValue: list}, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := rv.Int()
		return RichValue{IntValue: &i}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return ToRichValue(new(big.Int).SetUint64(u))
		}
		i := int64(u)
		return RichValue{IntValue: &i}, nil
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return ToRichValue(items)
	}
	return RichValue{}, fmt.Errorf("unsupported value type %T", v)
}

func fromFloat(f float64) RichValue {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) <= 1<<53 {
		i := int64(f)
		return RichValue{IntValue: &i}
	}
	return RichValue{FloatValue: &f}
}
