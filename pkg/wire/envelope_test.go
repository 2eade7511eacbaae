package wire

import (
	"testing"

	"github.com/indragiek/reactivexpc/pkg/native"
)

func TestWrapSingleValue(t *testing.T) {
	obj := Wrap(Int64(42))
	dict, ok := obj.(native.Dictionary)
	if !ok {
		t.Fatalf("expected native Dictionary, got %T", obj)
	}
	if len(dict) != 1 || dict[SingleValueKey] != native.Int64(42) {
		t.Errorf("expected single entry under reserved key, got %v", dict)
	}
}

func TestWrapDictionaryVerbatim(t *testing.T) {
	obj := Wrap(Dictionary{"k": String("v")})
	dict := obj.(native.Dictionary)
	if _, wrapped := dict[SingleValueKey]; wrapped {
		t.Error("dictionary should not be wrapped")
	}
	if dict["k"] != native.String("v") {
		t.Errorf("unexpected contents %v", dict)
	}
}

func TestEnvelopeTransparency(t *testing.T) {
	for name, v := range sampleValues() {
		t.Run(name, func(t *testing.T) {
			got, ok := Unwrap(Wrap(v))
			if !ok {
				t.Fatal("Unwrap failed")
			}
			if !Equal(got, v) {
				t.Errorf("expected %s, got %s", v, got)
			}
		})
	}
}

func TestUnwrapRequiresExactlyReservedKey(t *testing.T) {
	obj := native.Dictionary{
		SingleValueKey: native.Int64(1),
		"other":        native.Int64(2),
	}
	got, ok := Unwrap(obj)
	if !ok {
		t.Fatal("Unwrap failed")
	}
	if _, isDict := got.(Dictionary); !isDict {
		t.Errorf("expected dictionary kept as-is, got %s", got)
	}
}

func TestUnwrapNestedWrappedDictionary(t *testing.T) {
	// A dictionary that itself holds only the reserved key is
	// indistinguishable from a wrapped value.
	inner := Dictionary{SingleValueKey: Bool(true)}
	got, ok := Unwrap(Wrap(inner))
	if !ok {
		t.Fatal("Unwrap failed")
	}
	if !Equal(got, Bool(true)) {
		t.Errorf("expected unwrapped Bool, got %s", got)
	}
}

func TestUnwrapUnsupported(t *testing.T) {
	if v, ok := Unwrap(native.Opaque{Tag: 0x42}); ok {
		t.Errorf("expected failure, got %s", v)
	}
	if _, ok := ParseMessage(native.String("\xff")); ok {
		t.Error("expected ParseMessage failure on invalid UTF-8")
	}
}

func TestMessage(t *testing.T) {
	m := NewMessage(String("ping"))
	if m.Kind() != "string" {
		t.Errorf("Kind() = %q", m.Kind())
	}
	parsed, ok := ParseMessage(m.Native())
	if !ok {
		t.Fatal("ParseMessage failed")
	}
	if !Equal(parsed.Value, String("ping")) {
		t.Errorf("expected ping, got %s", parsed.Value)
	}
}
