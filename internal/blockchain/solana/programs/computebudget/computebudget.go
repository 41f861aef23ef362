// internal/blockchain/solana/programs/computebudget/computebudget.go
package computebudget

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var ProgramID = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")

const (
	SetComputeUnitLimit uint8 = 2
	SetComputeUnitPrice uint8 = 3
)

// MaxUnits – максимальный лимит compute units на транзакцию
const MaxUnits uint32 = 1_400_000

// Config – параметры compute budget. Нулевые поля не добавляют инструкций.
type Config struct {
	Units         uint32
	MicroLamports uint64
}

// SetComputeUnitLimitInstruction устанавливает лимит compute units
type SetComputeUnitLimitInstruction struct {
	Units uint32
}

// SetComputeUnitPriceInstruction устанавливает цену compute unit (priority fee)
type SetComputeUnitPriceInstruction struct {
	MicroLamports uint64
}

// BuildInstructions создает инструкции для настройки бюджета
func BuildInstructions(cfg Config) ([]solana.Instruction, error) {
	if cfg.Units > MaxUnits {
		return nil, fmt.Errorf("compute unit limit %d exceeds %d", cfg.Units, MaxUnits)
	}

	var instructions []solana.Instruction
	if cfg.Units > 0 {
		ix, err := (&SetComputeUnitLimitInstruction{Units: cfg.Units}).Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build compute unit limit instruction: %w", err)
		}
		instructions = append(instructions, ix)
	}
	if cfg.MicroLamports > 0 {
		ix, err := (&SetComputeUnitPriceInstruction{MicroLamports: cfg.MicroLamports}).Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build compute unit price instruction: %w", err)
		}
		instructions = append(instructions, ix)
	}
	return instructions, nil
}

// Build создает инструкцию для установки лимита compute units
func (instr *SetComputeUnitLimitInstruction) Build() (solana.Instruction, error) {
	return build(SetComputeUnitLimit, instr.Units)
}

// Build создает инструкцию для установки цены compute units
func (instr *SetComputeUnitPriceInstruction) Build() (solana.Instruction, error) {
	return build(SetComputeUnitPrice, instr.MicroLamports)
}

func build(tag uint8, value interface{}) (solana.Instruction, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	if err := enc.WriteUint8(tag); err != nil {
		return nil, err
	}
	if err := enc.Encode(value); err != nil {
		return nil, err
	}
	return solana.NewInstruction(ProgramID, solana.AccountMetaSlice{}, buf.Bytes()), nil
}
