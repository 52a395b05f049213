package dist

import (
	"crypto/sha256"
	"fmt"

	"github.com/chazu/minilang/vm"
	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical encoding so that equal chunks always produce
// identical bytes and hashes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("dist: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalChunk serializes a Chunk to CBOR bytes.
func MarshalChunk(c *Chunk) ([]byte, error) {
	return cborEncMode.Marshal(c)
}

// UnmarshalChunk deserializes a Chunk from CBOR bytes.
func UnmarshalChunk(data []byte) (*Chunk, error) {
	var c Chunk
	if err := cbor.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("dist: unmarshal chunk: %w", err)
	}
	return &c, nil
}

// ---------------------------------------------------------------------------
// Conversion
// ---------------------------------------------------------------------------

// FromVM converts a vm.Chunk to its wire form and stamps the version and
// content hash.
func FromVM(c *vm.Chunk) (*Chunk, error) {
	w := &Chunk{
		Version: FormatVersion,
		Code:    make([]Instruction, len(c.Code)),
		Lines:   make([]int, len(c.Lines)),
	}
	copy(w.Lines, c.Lines)
	for i, in := range c.Code {
		w.Code[i] = Instruction{Op: uint8(in.Op), Operand: in.Operand}
	}
	for _, v := range c.Constants {
		w.Constants = append(w.Constants, valueToWire(v))
	}

	h, err := w.contentHash()
	if err != nil {
		return nil, err
	}
	w.Hash = h
	return w, nil
}

// ToVM validates the wire chunk and rebuilds a vm.Chunk from it.
func (c *Chunk) ToVM() (*vm.Chunk, error) {
	if err := c.Verify(); err != nil {
		return nil, err
	}

	out := vm.NewChunk()
	for _, v := range c.Constants {
		val, err := valueFromWire(v)
		if err != nil {
			return nil, err
		}
		out.AddConstant(val)
	}

	for i, in := range c.Code {
		op := vm.Opcode(in.Op)
		if !op.Valid() {
			return nil, fmt.Errorf("dist: instruction %d: unknown opcode %d", i, in.Op)
		}
		pos := out.Write(op, in.Operand, c.Lines[i])
		if op == vm.OpConstant {
			if int(in.Operand) >= len(out.Constants) {
				return nil, fmt.Errorf("dist: instruction %d: constant %d out of range (pool size %d)",
					i, in.Operand, len(out.Constants))
			}
			out.Code[pos].Constant = out.Constants[in.Operand]
		}
	}
	return out, nil
}

// Verify checks the format version, the line table and the content hash.
func (c *Chunk) Verify() error {
	if c.Version != FormatVersion {
		return fmt.Errorf("dist: unsupported format version %d (want %d)", c.Version, FormatVersion)
	}
	if len(c.Lines) != len(c.Code) {
		return fmt.Errorf("dist: line table has %d entries for %d instructions", len(c.Lines), len(c.Code))
	}
	computed, err := c.contentHash()
	if err != nil {
		return err
	}
	if computed != c.Hash {
		return fmt.Errorf("dist: hash mismatch: declared %x, computed %x", c.Hash, computed)
	}
	return nil
}

func (c *Chunk) contentHash() ([32]byte, error) {
	data, err := cborEncMode.Marshal(body{Code: c.Code, Lines: c.Lines, Constants: c.Constants})
	if err != nil {
		return [32]byte{}, fmt.Errorf("dist: marshal chunk body: %w", err)
	}
	return sha256.Sum256(data), nil
}

func valueToWire(v vm.Value) Value {
	switch v.Type() {
	case vm.ValBool:
		return Value{Type: ValueBool, Bool: v.Bool()}
	case vm.ValNumber:
		return Value{Type: ValueNumber, Number: v.Float64()}
	case vm.ValString:
		return Value{Type: ValueString, Text: v.Text()}
	}
	return Value{Type: ValueNil}
}

func valueFromWire(v Value) (vm.Value, error) {
	switch v.Type {
	case ValueNil:
		return vm.Nil, nil
	case ValueBool:
		return vm.FromBool(v.Bool), nil
	case ValueNumber:
		return vm.FromFloat64(v.Number), nil
	case ValueString:
		return vm.FromString(v.Text), nil
	}
	return vm.Nil, fmt.Errorf("dist: unknown value type %d", v.Type)
}

// ---------------------------------------------------------------------------
// Convenience
// ---------------------------------------------------------------------------

// Encode serializes a vm.Chunk.
func Encode(c *vm.Chunk) ([]byte, error) {
	w, err := FromVM(c)
	if err != nil {
		return nil, err
	}
	return MarshalChunk(w)
}

// Decode deserializes and verifies a chunk produced by Encode.
func Decode(data []byte) (*vm.Chunk, error) {
	w, err := UnmarshalChunk(data)
	if err != nil {
		return nil, err
	}
	return w.ToVM()
}

// ContentHash returns the content hash Encode would stamp on c.
func ContentHash(c *vm.Chunk) ([32]byte, error) {
	w, err := FromVM(c)
	if err != nil {
		return [32]byte{}, err
	}
	return w.Hash, nil
}
