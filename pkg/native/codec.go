package native

import (
	"errors"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// Serialization errors.
var (
	// ErrNotSerializable indicates an object that cannot cross a process
	// boundary (fault sentinels, opaque objects, nil).
	ErrNotSerializable = errors.New("native: object not serializable")
)

// encMode is the CBOR encoder mode for native frames.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for native frames.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Each nesting level of an object tree costs two CBOR levels (node map
	// plus items array or entries map).
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
		MaxNestedLevels:   256,
		UTF8:              cbor.UTF8DecodeInvalid,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// node is the CBOR form of one object.
//
// CBOR encoding:
//
//	{
//	  1: type,     // uint8 native type tag
//	  2: bool,     // TypeBool
//	  3: int,      // TypeInt64, TypeDate, TypeShmem length
//	  4: uint,     // TypeUInt64, descriptor index for TypeFD/TypeShmem
//	  5: float,    // TypeDouble
//	  6: bytes,    // TypeData, TypeString, TypeUUID
//	  7: items,    // TypeArray
//	  8: entries   // TypeDictionary
//	}
type node struct {
	Type    Type            `cbor:"1,keyasint"`
	Bool    bool            `cbor:"2,keyasint,omitempty"`
	Int     int64           `cbor:"3,keyasint,omitempty"`
	Uint    uint64          `cbor:"4,keyasint,omitempty"`
	Float   float64         `cbor:"5,keyasint,omitempty"`
	Bytes   []byte          `cbor:"6,keyasint,omitempty"`
	Items   []node          `cbor:"7,keyasint,omitempty"`
	Entries map[string]node `cbor:"8,keyasint,omitempty"`
}

// Marshal encodes obj to CBOR. Descriptors referenced by obj are returned in
// index order; they are borrowed from obj and must not be closed by the
// caller on obj's behalf.
func Marshal(obj Object) ([]byte, []*os.File, error) {
	var files []*os.File
	n, err := toNode(obj, &files)
	if err != nil {
		return nil, nil, err
	}
	data, err := encMode.Marshal(n)
	if err != nil {
		return nil, nil, fmt.Errorf("native: encode: %w", err)
	}
	return data, files, nil
}

// Unmarshal decodes CBOR produced by Marshal. files are the descriptors
// received alongside the frame; the returned objects wrap them. A
// descriptor index with no matching file and an unknown tag both decode to
// Opaque.
func Unmarshal(data []byte, files []*os.File) (Object, error) {
	var n node
	if err := decMode.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("native: decode: %w", err)
	}
	return fromNode(n, files), nil
}

func toNode(obj Object, files *[]*os.File) (node, error) {
	if obj == nil {
		return node{}, fmt.Errorf("%w: nil", ErrNotSerializable)
	}

	switch o := obj.(type) {
	case Array:
		items := make([]node, 0, len(o))
		for _, item := range o {
			n, err := toNode(item, files)
			if err != nil {
				return node{}, err
			}
			items = append(items, n)
		}
		return node{Type: TypeArray, Items: items}, nil
	case Bool:
		return node{Type: TypeBool, Bool: bool(o)}, nil
	case Data:
		return node{Type: TypeData, Bytes: []byte(o)}, nil
	case Date:
		return node{Type: TypeDate, Int: int64(o)}, nil
	case Dictionary:
		entries := make(map[string]node, len(o))
		for k, v := range o {
			n, err := toNode(v, files)
			if err != nil {
				return node{}, err
			}
			entries[k] = n
		}
		return node{Type: TypeDictionary, Entries: entries}, nil
	case Double:
		return node{Type: TypeDouble, Float: float64(o)}, nil
	case *FD:
		if o.file == nil {
			return node{}, fmt.Errorf("%w: fd without file", ErrNotSerializable)
		}
		*files = append(*files, o.file)
		return node{Type: TypeFD, Uint: uint64(len(*files) - 1)}, nil
	case Int64:
		return node{Type: TypeInt64, Int: int64(o)}, nil
	case Null:
		return node{Type: TypeNull}, nil
	case *Shmem:
		if o.file == nil {
			return node{}, fmt.Errorf("%w: shmem without backing file", ErrNotSerializable)
		}
		*files = append(*files, o.file)
		return node{Type: TypeShmem, Uint: uint64(len(*files) - 1), Int: int64(o.length)}, nil
	case String:
		return node{Type: TypeString, Bytes: []byte(o)}, nil
	case UInt64:
		return node{Type: TypeUInt64, Uint: uint64(o)}, nil
	case UUID:
		return node{Type: TypeUUID, Bytes: o[:]}, nil
	default:
		return node{}, fmt.Errorf("%w: %s", ErrNotSerializable, obj.Type())
	}
}

func fromNode(n node, files []*os.File) Object {
	switch n.Type {
	case TypeArray:
		items := make(Array, 0, len(n.Items))
		for _, item := range n.Items {
			items = append(items, fromNode(item, files))
		}
		return items
	case TypeBool:
		return Bool(n.Bool)
	case TypeData:
		return Data(n.Bytes)
	case TypeDate:
		return Date(n.Int)
	case TypeDictionary:
		dict := make(Dictionary, len(n.Entries))
		for k, v := range n.Entries {
			dict[k] = fromNode(v, files)
		}
		return dict
	case TypeDouble:
		return Double(n.Float)
	case TypeFD:
		if n.Uint >= uint64(len(files)) {
			return Opaque{Tag: TypeFD}
		}
		return &FD{file: files[n.Uint]}
	case TypeInt64:
		return Int64(n.Int)
	case TypeNull:
		return Null{}
	case TypeShmem:
		if n.Uint >= uint64(len(files)) || n.Int <= 0 {
			return Opaque{Tag: TypeShmem}
		}
		return &Shmem{file: files[n.Uint], length: int(n.Int)}
	case TypeString:
		return String(n.Bytes)
	case TypeUInt64:
		return UInt64(n.Uint)
	case TypeUUID:
		var u UUID
		if len(n.Bytes) != len(u) {
			return Opaque{Tag: TypeUUID}
		}
		copy(u[:], n.Bytes)
		return u
	default:
		return Opaque{Tag: n.Type}
	}
}
