package hlsl

import (
	"fmt"
	"strconv"
	"strings"
)

// BaseKind is the component type of a value.
type BaseKind uint8

const (
	Void BaseKind = iota
	Bool
	Int
	Uint
	Float
	StructKind
)

func (k BaseKind) String() string {
	switch k {
	case Void:
		return "void"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Uint:
		return "uint"
	case Float:
		return "float"
	default:
		return "struct"
	}
}

// Type is a scalar, vector, matrix or struct type. Vectors have one row,
// scalars have one row and one column.
type Type struct {
	Base   BaseKind
	Rows   int
	Cols   int
	Struct *Struct
}

// Struct is a user defined structure.
type Struct struct {
	Name   string
	Fields []Field
	size   int
}

type Field struct {
	Name     string
	Type     Type
	Semantic string

	// offset of the field in float components
	offset int
}

var (
	typeVoid   = Type{Base: Void}
	typeBool   = Type{Base: Bool, Rows: 1, Cols: 1}
	typeInt    = Type{Base: Int, Rows: 1, Cols: 1}
	typeUint   = Type{Base: Uint, Rows: 1, Cols: 1}
	typeFloat  = Type{Base: Float, Rows: 1, Cols: 1}
	typeFloat3 = Type{Base: Float, Rows: 1, Cols: 3}
	typeFloat4 = Type{Base: Float, Rows: 1, Cols: 4}
)

func scalarType(base BaseKind) Type {
	return Type{Base: base, Rows: 1, Cols: 1}
}

func vectorType(base BaseKind, n int) Type {
	return Type{Base: base, Rows: 1, Cols: n}
}

func matrixType(base BaseKind, rows, cols int) Type {
	return Type{Base: base, Rows: rows, Cols: cols}
}

func structType(s *Struct) Type {
	return Type{Base: StructKind, Struct: s}
}

// Size returns the number of float components of a value of this type.
func (t Type) Size() int {
	switch t.Base {
	case Void:
		return 0
	case StructKind:
		return t.Struct.size
	default:
		return t.Rows * t.Cols
	}
}

func (t Type) IsScalar() bool {
	return t.isNumeric() && t.Rows == 1 && t.Cols == 1
}

// IsVector reports whether the type is a vector with at least one component.
// Scalars count as vectors of one component.
func (t Type) IsVector() bool {
	return t.isNumeric() && t.Rows == 1
}

func (t Type) IsMatrix() bool {
	return t.isNumeric() && t.Rows > 1
}

func (t Type) IsStruct() bool {
	return t.Base == StructKind
}

func (t Type) isNumeric() bool {
	return t.Base == Bool || t.Base == Int || t.Base == Uint || t.Base == Float
}

func (t Type) isIntegral() bool {
	return t.Base == Int || t.Base == Uint || t.Base == Bool
}

func (t Type) withBase(base BaseKind) Type {
	t.Base = base
	return t
}

func (t Type) String() string {
	switch {
	case t.Base == Void:
		return "void"
	case t.IsStruct():
		return t.Struct.Name
	case t.IsScalar():
		return t.Base.String()
	case t.IsVector():
		return t.Base.String() + strconv.Itoa(t.Cols)
	default:
		return fmt.Sprintf("%s%dx%d", t.Base, t.Rows, t.Cols)
	}
}

func (s *Struct) field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}

	return Field{}, false
}

// builtinType resolves the name of a builtin type like float4 or int3x3.
func builtinType(name string) (Type, bool) {
	switch name {
	case "void":
		return typeVoid, true
	case "matrix":
		return matrixType(Float, 4, 4), true
	case "vector":
		return typeFloat4, true
	}

	var base BaseKind
	var rest string

	switch {
	case strings.HasPrefix(name, "float"):
		base, rest = Float, name[len("float"):]
	case strings.HasPrefix(name, "half"):
		base, rest = Float, name[len("half"):]
	case strings.HasPrefix(name, "double"):
		base, rest = Float, name[len("double"):]
	case strings.HasPrefix(name, "uint"):
		base, rest = Uint, name[len("uint"):]
	case strings.HasPrefix(name, "dword"):
		base, rest = Uint, name[len("dword"):]
	case strings.HasPrefix(name, "int"):
		base, rest = Int, name[len("int"):]
	case strings.HasPrefix(name, "bool"):
		base, rest = Bool, name[len("bool"):]
	default:
		return Type{}, false
	}

	switch len(rest) {
	case 0:
		return scalarType(base), true

	case 1:
		n := int(rest[0] - '0')
		if n < 1 || n > 4 {
			return Type{}, false
		}

		return vectorType(base, n), true

	case 3:
		rows := int(rest[0] - '0')
		cols := int(rest[2] - '0')
		if rest[1] != 'x' || rows < 1 || rows > 4 || cols < 1 || cols > 4 {
			return Type{}, false
		}

		if rows == 1 {
			// float1xN is a matrix with one row, we treat it as a vector
			return vectorType(base, cols), true
		}

		return matrixType(base, rows, cols), true
	}

	return Type{}, false
}

// splitSemantic splits a semantic like "TEXCOORD1" into its upper case name
// and index.
func splitSemantic(semantic string) (string, uint32) {
	semantic = strings.ToUpper(semantic)

	end := len(semantic)
	for end > 0 && isDigit(semantic[end-1]) {
		end--
	}

	if end == len(semantic) {
		return semantic, 0
	}

	index, _ := strconv.Atoi(semantic[end:])
	return semantic[:end], uint32(index)
}
