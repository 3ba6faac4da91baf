package wasmbin

// Opcode is a WASM 1.0 instruction opcode. Only the subset the PEPL code
// generator actually emits is named; PEPL never needs vectors, reference
// types or the bulk-memory proposal (spec §3.2 Non-goals).
type Opcode byte

const (
	OpcodeUnreachable Opcode = 0x00
	OpcodeNop         Opcode = 0x01
	OpcodeBlock       Opcode = 0x02
	OpcodeLoop        Opcode = 0x03
	OpcodeIf          Opcode = 0x04
	OpcodeElse        Opcode = 0x05
	OpcodeEnd         Opcode = 0x0b
	OpcodeBr          Opcode = 0x0c
	OpcodeBrIf        Opcode = 0x0d
	OpcodeReturn      Opcode = 0x0f
	OpcodeCall        Opcode = 0x10

	OpcodeDrop Opcode = 0x1a

	OpcodeLocalGet  Opcode = 0x20
	OpcodeLocalSet  Opcode = 0x21
	OpcodeLocalTee  Opcode = 0x22
	OpcodeGlobalGet Opcode = 0x23
	OpcodeGlobalSet Opcode = 0x24

	OpcodeI32Load   Opcode = 0x28
	OpcodeI64Load   Opcode = 0x29
	OpcodeF64Load   Opcode = 0x2b
	OpcodeI32Load8U Opcode = 0x2d
	OpcodeI32Store  Opcode = 0x36
	OpcodeI64Store  Opcode = 0x37
	OpcodeF64Store  Opcode = 0x39
	OpcodeI32Store8 Opcode = 0x3a

	OpcodeMemorySize Opcode = 0x3f
	OpcodeMemoryGrow Opcode = 0x40

	OpcodeI32Const Opcode = 0x41
	OpcodeI64Const Opcode = 0x42
	OpcodeF64Const Opcode = 0x44

	OpcodeI32Eqz  Opcode = 0x45
	OpcodeI32Eq   Opcode = 0x46
	OpcodeI32Ne   Opcode = 0x47
	OpcodeI32LtS  Opcode = 0x48
	OpcodeI32GtS  Opcode = 0x4a
	OpcodeI32LeS  Opcode = 0x4c
	OpcodeI32GeS  Opcode = 0x4e

	OpcodeF64Eq Opcode = 0x61
	OpcodeF64Ne Opcode = 0x62
	OpcodeF64Lt Opcode = 0x63
	OpcodeF64Gt Opcode = 0x64
	OpcodeF64Le Opcode = 0x65
	OpcodeF64Ge Opcode = 0x66

	OpcodeI32Add  Opcode = 0x6a
	OpcodeI32Sub  Opcode = 0x6b
	OpcodeI32Mul  Opcode = 0x6c
	OpcodeI32DivS Opcode = 0x6d
	OpcodeI32RemS Opcode = 0x6f
	OpcodeI32And  Opcode = 0x71
	OpcodeI32Or   Opcode = 0x72

	OpcodeI64ExtendI32U Opcode = 0xad
	OpcodeI64Shl         Opcode = 0x86
	OpcodeI64Or          Opcode = 0x84
	OpcodeI32WrapI64     Opcode = 0xa7
	OpcodeI64ShrU        Opcode = 0x88

	OpcodeF64Abs  Opcode = 0x99
	OpcodeF64Neg  Opcode = 0x9a
	OpcodeF64Floor Opcode = 0x9c
	OpcodeF64Add  Opcode = 0xa0
	OpcodeF64Sub  Opcode = 0xa1
	OpcodeF64Mul  Opcode = 0xa2
	OpcodeF64Div  Opcode = 0xa3

	OpcodeI32TruncF64S   Opcode = 0xaa
	OpcodeF64ConvertI32S Opcode = 0xb7

	OpcodeI32ReinterpretF32 Opcode = 0xbc
	OpcodeI64ReinterpretF64 Opcode = 0xbd
	OpcodeF64ReinterpretI64 Opcode = 0xbf
)

// BlockType is the inline block-type byte used by block/loop/if: either the
// empty type or a single value-type result (WASM 1.0 does not support
// multi-value block signatures).
type BlockType byte

const (
	BlockTypeEmpty BlockType = 0x40
)

func BlockTypeOf(v ValueType) BlockType { return BlockType(v) }
