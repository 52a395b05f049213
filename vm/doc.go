// Package vm implements the minilang virtual machine.
//
// This package contains:
//   - Tagged-union value representation
//   - Bytecode chunks, opcode metadata and disassembly
//   - Stack-based bytecode interpreter
package vm
