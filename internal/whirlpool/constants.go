// internal/whirlpool/constants.go
package whirlpool

import "github.com/gagliardetto/solana-go"

// ProgramID – Orca Whirlpool (одинаковый для mainnet и devnet)
var ProgramID = solana.MustPublicKeyFromBase58("whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc")

const (
	TickArraySize = 88
	MinTickIndex  = -443636
	MaxTickIndex  = 443636
	NumRewards    = 3

	PoolAccountSize     = 653
	PositionAccountSize = 216
)

const (
	tickArraySeed = "tick_array"
	oracleSeed    = "oracle"
	positionSeed  = "position"
)

// Anchor-дискриминаторы аккаунтов и инструкций
var (
	PoolDiscriminator     = [8]byte{0x3f, 0x95, 0xd1, 0x0c, 0xe1, 0x80, 0x63, 0x09}
	PositionDiscriminator = [8]byte{0xaa, 0xbc, 0x8f, 0xe4, 0x7a, 0x40, 0xf7, 0xd0}

	InitializeTickArrayDiscriminator = [8]byte{0x0b, 0xbc, 0xc1, 0xd6, 0x8d, 0x5b, 0x95, 0xb8}
)
