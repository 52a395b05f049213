// Package dist implements the portable form of compiled minilang chunks. A
// chunk is encoded as canonical CBOR together with a format version and a
// content hash, so compiled programs can be written to disk, cached and
// loaded by another process without recompiling.
package dist

// FormatVersion is the version of the wire format produced by this package.
const FormatVersion uint8 = 1

// Chunk is the wire form of a vm.Chunk. CONSTANT instructions are not
// stored with their inline value; it is rebuilt from the constant pool on
// decode.
type Chunk struct {
	Version   uint8         `cbor:"1,keyasint"`
	Hash      [32]byte      `cbor:"2,keyasint"` // sha256 of the canonical body
	Code      []Instruction `cbor:"3,keyasint"`
	Lines     []int         `cbor:"4,keyasint"`
	Constants []Value       `cbor:"5,keyasint,omitempty"`
}

// Instruction is the wire form of a vm.Instruction.
type Instruction struct {
	Op      uint8 `cbor:"1,keyasint"`
	Operand uint8 `cbor:"2,keyasint,omitempty"`
}

// ValueType tags a wire Value. The numbering is part of the format and is
// independent of vm.ValueType.
type ValueType uint8

const (
	ValueNil    ValueType = 0
	ValueBool   ValueType = 1
	ValueNumber ValueType = 2
	ValueString ValueType = 3
)

// Value is the wire form of a vm.Value.
type Value struct {
	Type   ValueType `cbor:"1,keyasint"`
	Bool   bool      `cbor:"2,keyasint,omitempty"`
	Number float64   `cbor:"3,keyasint,omitempty"`
	Text   string    `cbor:"4,keyasint,omitempty"`
}

// body is the hashed portion of a Chunk.
type body struct {
	Code      []Instruction `cbor:"1,keyasint"`
	Lines     []int         `cbor:"2,keyasint"`
	Constants []Value       `cbor:"3,keyasint,omitempty"`
}
