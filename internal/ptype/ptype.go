// Package ptype defines the purple-garden type system and the compile-time
// constant values the lexer/parser hand to the rest of the pipeline.
package ptype

import "fmt"

// Kind distinguishes the shapes a Type can take. Option, Array and Map carry
// one or two nested Types; everything else is a leaf.
type Kind uint8

const (
	Bool Kind = iota
	Int
	Double
	Str
	Void
	Option
	Array
	Map
)

// Type is a purple-garden type. Scalar kinds (Bool, Int, Double, Str, Void)
// ignore Elem/Key; Option and Array use Elem only; Map uses both Key and Elem
// (Elem is the value type).
type Type struct {
	Kind Kind
	Key  *Type
	Elem *Type
}

func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Double:
		return "double"
	case Str:
		return "str"
	case Void:
		return "void"
	case Option:
		return "option"
	case Array:
		return "array"
	case Map:
		return "map"
	default:
		return "<unknown>"
	}
}

func (t Type) String() string {
	switch t.Kind {
	case Option:
		return fmt.Sprintf("option(%s)", t.Elem)
	case Array:
		return fmt.Sprintf("array(%s)", t.Elem)
	case Map:
		return fmt.Sprintf("map(%s, %s)", t.Key, t.Elem)
	default:
		return t.Kind.String()
	}
}

// Equal reports whether two types describe the same shape. Composite types
// compare structurally.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case Option, Array:
		return t.Elem.Equal(*o.Elem)
	case Map:
		return t.Key.Equal(*o.Key) && t.Elem.Equal(*o.Elem)
	default:
		return true
	}
}

func BoolT() Type   { return Type{Kind: Bool} }
func IntT() Type    { return Type{Kind: Int} }
func DoubleT() Type { return Type{Kind: Double} }
func StrT() Type    { return Type{Kind: Str} }
func VoidT() Type   { return Type{Kind: Void} }

func OptionT(elem Type) Type { return Type{Kind: Option, Elem: &elem} }
func ArrayT(elem Type) Type  { return Type{Kind: Array, Elem: &elem} }
func MapT(key, elem Type) Type {
	return Type{Kind: Map, Key: &key, Elem: &elem}
}

// ConstKind tags the variant carried by a Const.
type ConstKind uint8

const (
	ConstTrue ConstKind = iota
	ConstFalse
	ConstInt
	ConstDouble
	ConstStr
)

// Const is a compile-time constant. Doubles are interned by their raw IEEE-754
// bit pattern (DoubleBits) so that NaN and signed-zero payloads key
// consistently — two constants with the same bits are the same constant, full
// stop, regardless of what float64 equality would say about them.
type Const struct {
	Kind       ConstKind
	Int        int64
	DoubleBits uint64
	Str        string
}

func True() Const  { return Const{Kind: ConstTrue} }
func False() Const { return Const{Kind: ConstFalse} }
func IntC(i int64) Const {
	return Const{Kind: ConstInt, Int: i}
}
func DoubleC(bits uint64) Const {
	return Const{Kind: ConstDouble, DoubleBits: bits}
}
func StrC(s string) Const {
	return Const{Kind: ConstStr, Str: s}
}

// Type reports the purple-garden type a constant carries, mirroring the
// original `impl From<Const> for Type`.
func (c Const) Type() Type {
	switch c.Kind {
	case ConstTrue, ConstFalse:
		return BoolT()
	case ConstInt:
		return IntT()
	case ConstDouble:
		return DoubleT()
	case ConstStr:
		return StrT()
	default:
		panic("ptype: unreachable const kind")
	}
}

// Equal implements the interning equality used by the constant pool:
// identical kind and payload, nothing more.
func (c Const) Equal(o Const) bool {
	if c.Kind != o.Kind {
		return false
	}
	switch c.Kind {
	case ConstInt:
		return c.Int == o.Int
	case ConstDouble:
		return c.DoubleBits == o.DoubleBits
	case ConstStr:
		return c.Str == o.Str
	default:
		return true
	}
}

func (c Const) String() string {
	switch c.Kind {
	case ConstTrue:
		return "true"
	case ConstFalse:
		return "false"
	case ConstInt:
		return fmt.Sprintf("%d", c.Int)
	case ConstDouble:
		return fmt.Sprintf("%v", c.DoubleBits)
	case ConstStr:
		return fmt.Sprintf("%q", c.Str)
	default:
		return "<const?>"
	}
}
