// internal/whirlpool/pda.go
package whirlpool

import (
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
)

// TickArrayAddress derives the tick array PDA. The start index is encoded as its
// decimal string, the same way the program does it.
func TickArrayAddress(pool solana.PublicKey, startTickIndex int32) (solana.PublicKey, error) {
	seeds := [][]byte{
		[]byte(tickArraySeed),
		pool.Bytes(),
		[]byte(strconv.FormatInt(int64(startTickIndex), 10)),
	}
	addr, _, err := solana.FindProgramAddress(seeds, ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive tick array %d: %w", startTickIndex, err)
	}
	return addr, nil
}

// OracleAddress derives the pool oracle PDA.
func OracleAddress(pool solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(oracleSeed), pool.Bytes()}, ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive oracle: %w", err)
	}
	return addr, nil
}

// PositionAddress derives the position PDA and its bump from the position mint.
func PositionAddress(positionMint solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress([][]byte{[]byte(positionSeed), positionMint.Bytes()}, ProgramID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive position: %w", err)
	}
	return addr, bump, nil
}
