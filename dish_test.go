package cyberchef

import (
	"bytes"
	"errors"
	"math/big"
	"testing"
)

func TestNewDishInference(t *testing.T) {
	cases := []struct {
		name  string
		input any
		want  DishType
	}{
		{"bytes", []byte{1, 2, 3}, DishArrayBuffer},
		{"string", "hello", DishString},
		{"int", 42, DishNumber},
		{"float", 3.14, DishNumber},
		{"bignum", big.NewInt(1), DishBigNumber},
		{"map", map[string]any{"a": 1}, DishJSON},
		{"slice", []any{1.0, 2.0}, DishJSON},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := NewDish(tc.input)
			if err != nil {
				t.Fatalf("NewDish: %v", err)
			}
			if d.Type != tc.want {
				t.Fatalf("NewDish(%v).Type = %s, want %s", tc.input, d.Type, tc.want)
			}
		})
	}
}

func TestNewDishRejectsNil(t *testing.T) {
	_, err := NewDish(nil)
	if !errors.Is(err, ErrMarshal) {
		t.Fatalf("NewDish(nil) = %v, want ErrMarshal", err)
	}
}

func TestNewDishPassesDishThrough(t *testing.T) {
	in := Dish{Type: DishHTML, Value: "<b>x</b>"}
	d, err := NewDish(in)
	if err != nil {
		t.Fatalf("NewDish: %v", err)
	}
	if d != in {
		t.Fatalf("NewDish(Dish) = %+v, want passthrough", d)
	}
}

func TestDishBytes(t *testing.T) {
	d := Dish{Type: DishString, Value: "héllo"}
	b, err := d.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Equal(b, []byte("héllo")) {
		t.Fatalf("Bytes = %q", b)
	}

	d = Dish{Type: DishNumber, Value: 1.0}
	if _, err := d.Bytes(); !errors.Is(err, ErrMarshal) {
		t.Fatalf("Bytes on number dish = %v, want ErrMarshal", err)
	}
}

func TestWireRoundTripBuffer(t *testing.T) {
	payload := make([]byte, 256)
	for i := range payload {
		payload[i] = byte(i)
	}
	wire, err := marshalWire(Dish{Type: DishArrayBuffer, Value: payload})
	if err != nil {
		t.Fatalf("marshalWire: %v", err)
	}
	got, err := unmarshalWire(wire)
	if err != nil {
		t.Fatalf("unmarshalWire: %v", err)
	}
	if got.Type != DishArrayBuffer {
		t.Fatalf("round trip type = %s", got.Type)
	}
	if !bytes.Equal(got.Value.([]byte), payload) {
		t.Fatal("round trip lost bytes")
	}
}

func TestUnmarshalWireBigNumber(t *testing.T) {
	d, err := unmarshalWire(`{"value":"123456789012345678901234567890","type":5}`)
	if err != nil {
		t.Fatalf("unmarshalWire: %v", err)
	}
	n := d.Value.(*big.Int)
	if n.String() != "123456789012345678901234567890" {
		t.Fatalf("BigNumber = %s", n)
	}
}

func TestUnmarshalWireRejectsNonByte(t *testing.T) {
	_, err := unmarshalWire(`{"value":[0,256],"type":4}`)
	if !errors.Is(err, ErrMarshal) {
		t.Fatalf("out-of-range byte = %v, want ErrMarshal", err)
	}
	_, err = unmarshalWire(`{"value":[0,1.5],"type":0}`)
	if !errors.Is(err, ErrMarshal) {
		t.Fatalf("fractional byte = %v, want ErrMarshal", err)
	}
}

func TestUnmarshalWireUnknownType(t *testing.T) {
	_, err := unmarshalWire(`{"value":"x","type":99}`)
	if !errors.Is(err, ErrMarshal) {
		t.Fatalf("unknown type = %v, want ErrMarshal", err)
	}
}

func TestCoerceToDeclared(t *testing.T) {
	d := Dish{Type: DishByteArray, Value: []byte("abc")}
	got, err := coerceToDeclared(d, "string")
	if err != nil {
		t.Fatalf("coerceToDeclared: %v", err)
	}
	if got.Type != DishString || got.Value.(string) != "abc" {
		t.Fatalf("coerced = %+v", got)
	}

	// Matching types pass through untouched.
	same, err := coerceToDeclared(d, "byteArray")
	if err != nil {
		t.Fatalf("coerceToDeclared: %v", err)
	}
	if same.Type != DishByteArray {
		t.Fatalf("coerced = %+v", same)
	}
}

func TestToHostJSON(t *testing.T) {
	d := Dish{Type: DishJSON, Value: map[string]any{"k": "v"}}
	v, err := d.ToHost()
	if err != nil {
		t.Fatalf("ToHost: %v", err)
	}
	m := v.(map[string]any)
	if m["k"] != "v" {
		t.Fatalf("ToHost = %v", v)
	}
}
