package cyberchef

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
)

// DishType tags a Dish payload. The numeric values are the operation
// library's own Dish type enumeration and cross the engine boundary as-is.
type DishType int

const (
	DishByteArray   DishType = 0
	DishString      DishType = 1
	DishNumber      DishType = 2
	DishHTML        DishType = 3
	DishArrayBuffer DishType = 4
	DishBigNumber   DishType = 5
	DishJSON        DishType = 6
	DishFile        DishType = 7
	DishListFile    DishType = 8
)

// String returns the operation library's name for the type.
func (t DishType) String() string {
	switch t {
	case DishByteArray:
		return "byteArray"
	case DishString:
		return "string"
	case DishNumber:
		return "number"
	case DishHTML:
		return "html"
	case DishArrayBuffer:
		return "ArrayBuffer"
	case DishBigNumber:
		return "BigNumber"
	case DishJSON:
		return "JSON"
	case DishFile:
		return "File"
	case DishListFile:
		return "List<File>"
	default:
		return fmt.Sprintf("DishType(%d)", int(t))
	}
}

// Dish is the tagged value threaded through a bake: a payload plus its
// declared type. Created fresh per Bake call, replaced after each run,
// discarded at call end.
type Dish struct {
	Type  DishType
	Value any
}

// NewDish wraps a host value by type inference: byte buffers become
// ArrayBuffer dishes, text becomes a String dish, numbers a Number dish,
// big integers a BigNumber dish, and structured maps/slices a JSON dish.
func NewDish(value any) (Dish, error) {
	switch v := value.(type) {
	case Dish:
		return v, nil
	case []byte:
		return Dish{Type: DishArrayBuffer, Value: v}, nil
	case string:
		return Dish{Type: DishString, Value: v}, nil
	case int:
		return Dish{Type: DishNumber, Value: float64(v)}, nil
	case int64:
		return Dish{Type: DishNumber, Value: float64(v)}, nil
	case float64:
		return Dish{Type: DishNumber, Value: v}, nil
	case *big.Int:
		return Dish{Type: DishBigNumber, Value: v}, nil
	case map[string]any, []any:
		return Dish{Type: DishJSON, Value: v}, nil
	case nil:
		return Dish{}, fmt.Errorf("%w: cannot wrap nil input", ErrMarshal)
	default:
		return Dish{}, fmt.Errorf("%w: unsupported host type %T", ErrMarshal, value)
	}
}

// ToHost converts the dish back to a plain host value: []byte for buffer
// types, string for text, float64 for numbers, *big.Int for BigNumber, and
// the decoded structure for JSON.
func (d Dish) ToHost() (any, error) {
	switch d.Type {
	case DishByteArray, DishArrayBuffer:
		return d.Bytes()
	case DishString, DishHTML:
		s, ok := d.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s dish holds %T, not string", ErrMarshal, d.Type, d.Value)
		}
		return s, nil
	case DishNumber:
		switch v := d.Value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		default:
			return nil, fmt.Errorf("%w: number dish holds %T", ErrMarshal, d.Value)
		}
	case DishBigNumber:
		switch v := d.Value.(type) {
		case *big.Int:
			return v, nil
		case string:
			n, ok := new(big.Int).SetString(v, 10)
			if !ok {
				return nil, fmt.Errorf("%w: BigNumber dish holds non-numeric %q", ErrMarshal, v)
			}
			return n, nil
		default:
			return nil, fmt.Errorf("%w: BigNumber dish holds %T", ErrMarshal, d.Value)
		}
	case DishJSON:
		return d.Value, nil
	default:
		return nil, fmt.Errorf("%w: cannot convert %s dish to a host value", ErrMarshal, d.Type)
	}
}

// Bytes converts the dish payload to raw bytes for a native fallback step.
// Buffer dishes pass through; text is encoded as UTF-8; anything else is a
// marshal error rather than a silent reinterpretation.
func (d Dish) Bytes() ([]byte, error) {
	switch d.Type {
	case DishByteArray, DishArrayBuffer:
		switch v := d.Value.(type) {
		case []byte:
			return v, nil
		case []any:
			return byteListToBytes(v)
		default:
			return nil, fmt.Errorf("%w: %s dish holds %T", ErrMarshal, d.Type, d.Value)
		}
	case DishString, DishHTML:
		s, ok := d.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s dish holds %T", ErrMarshal, d.Type, d.Value)
		}
		return []byte(s), nil
	default:
		return nil, fmt.Errorf("%w: cannot use a %s dish as bytes", ErrMarshal, d.Type)
	}
}

// wireDish is the boundary representation: {"value": ..., "type": n}.
// Buffer payloads travel as plain number arrays, exactly the form the
// engine-side serializer emits.
//
// TODO: chunked base64 transfer for large dishes; the number-array path
// inflates the script by ~4x the payload size.
type wireDish struct {
	Value json.RawMessage `json:"value"`
	Type  DishType        `json:"type"`
}

// marshalWire renders the dish as the JSON object interpolated into the
// engine-side bake call.
func marshalWire(d Dish) (string, error) {
	var value any
	switch d.Type {
	case DishByteArray, DishArrayBuffer:
		b, err := d.Bytes()
		if err != nil {
			return "", err
		}
		ints := make([]int, len(b))
		for i, c := range b {
			ints[i] = int(c)
		}
		value = ints
	case DishBigNumber:
		n, ok := d.Value.(*big.Int)
		if !ok {
			return "", fmt.Errorf("%w: BigNumber dish holds %T", ErrMarshal, d.Value)
		}
		value = n.String()
	default:
		value = d.Value
	}
	payload, err := json.Marshal(map[string]any{"value": value, "type": int(d.Type)})
	if err != nil {
		return "", fmt.Errorf("%w: encoding dish: %v", ErrMarshal, err)
	}
	return string(payload), nil
}

// unmarshalWire parses the serializer output coming back from the engine.
func unmarshalWire(raw string) (Dish, error) {
	var w wireDish
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return Dish{}, fmt.Errorf("%w: decoding engine result: %v", ErrMarshal, err)
	}

	switch w.Type {
	case DishByteArray, DishArrayBuffer:
		var nums []float64
		if err := json.Unmarshal(w.Value, &nums); err != nil {
			return Dish{}, fmt.Errorf("%w: %s dish value is not a byte list: %v", ErrMarshal, w.Type, err)
		}
		b, err := floatListToBytes(nums)
		if err != nil {
			return Dish{}, err
		}
		return Dish{Type: w.Type, Value: b}, nil
	case DishString, DishHTML:
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return Dish{}, fmt.Errorf("%w: %s dish value is not a string: %v", ErrMarshal, w.Type, err)
		}
		return Dish{Type: w.Type, Value: s}, nil
	case DishNumber:
		var f float64
		if err := json.Unmarshal(w.Value, &f); err != nil {
			return Dish{}, fmt.Errorf("%w: number dish value is not numeric: %v", ErrMarshal, err)
		}
		return Dish{Type: w.Type, Value: f}, nil
	case DishBigNumber:
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			// Engines may emit small BigNumbers as plain numbers.
			var f float64
			if err := json.Unmarshal(w.Value, &f); err != nil {
				return Dish{}, fmt.Errorf("%w: BigNumber dish value is neither string nor number", ErrMarshal)
			}
			return Dish{Type: w.Type, Value: new(big.Int).SetInt64(int64(f))}, nil
		}
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return Dish{}, fmt.Errorf("%w: BigNumber dish value %q is not numeric", ErrMarshal, s)
		}
		return Dish{Type: w.Type, Value: n}, nil
	case DishJSON:
		var v any
		if err := json.Unmarshal(w.Value, &v); err != nil {
			return Dish{}, fmt.Errorf("%w: JSON dish value does not decode: %v", ErrMarshal, err)
		}
		return Dish{Type: w.Type, Value: v}, nil
	default:
		return Dish{}, fmt.Errorf("%w: engine returned unknown dish type %d", ErrMarshal, int(w.Type))
	}
}

// floatListToBytes rebuilds a byte slice from the number array an engine
// emits for buffer dishes. Values outside 0..255 or non-integral values
// are a marshal error, never truncated.
func floatListToBytes(nums []float64) ([]byte, error) {
	b := make([]byte, len(nums))
	for i, f := range nums {
		if f < 0 || f > 255 || f != math.Trunc(f) {
			return nil, fmt.Errorf("%w: byte list element %d is %v, not a byte", ErrMarshal, i, f)
		}
		b[i] = byte(f)
	}
	return b, nil
}

// byteListToBytes handles the []any form produced by generic JSON decoding.
func byteListToBytes(list []any) ([]byte, error) {
	nums := make([]float64, len(list))
	for i, v := range list {
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("%w: byte list element %d is %T, not a number", ErrMarshal, i, v)
		}
		nums[i] = f
	}
	return floatListToBytes(nums)
}

// coerceToDeclared aligns the final dish with the last step's declared
// output type, so a native fallback finishing a recipe still yields the
// host type the schema promises.
func coerceToDeclared(d Dish, outputType string) (Dish, error) {
	want, ok := dishTypeFromSchema(outputType)
	if !ok || want == d.Type {
		return d, nil
	}
	switch want {
	case DishString, DishHTML:
		b, err := d.Bytes()
		if err != nil {
			return Dish{}, err
		}
		return Dish{Type: want, Value: string(b)}, nil
	case DishByteArray, DishArrayBuffer:
		b, err := d.Bytes()
		if err != nil {
			return Dish{}, err
		}
		return Dish{Type: want, Value: b}, nil
	default:
		// Number/JSON/BigNumber coercions are the engine's job; leave as-is.
		return d, nil
	}
}

// dishTypeFromSchema maps a schema inputType/outputType name to a DishType.
func dishTypeFromSchema(name string) (DishType, bool) {
	switch name {
	case "byteArray":
		return DishByteArray, true
	case "string":
		return DishString, true
	case "number":
		return DishNumber, true
	case "html":
		return DishHTML, true
	case "ArrayBuffer":
		return DishArrayBuffer, true
	case "BigNumber":
		return DishBigNumber, true
	case "JSON":
		return DishJSON, true
	case "File":
		return DishFile, true
	case "List<File>":
		return DishListFile, true
	default:
		return 0, false
	}
}
