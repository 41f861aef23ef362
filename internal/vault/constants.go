// internal/vault/constants.go
package vault

import (
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/nazare-vault/internal/whirlpool"
)

var (
	// ProgramID – программа управления ликвидностью
	ProgramID = solana.MustPublicKeyFromBase58("Nazareen6k6rAFXKKZrBj5PiehJsohQ8gwGFHJT77sa")
	// DaoTreasuryOwner получает LP-комиссию vault'а
	DaoTreasuryOwner = solana.MustPublicKeyFromBase58("8XhNoDjjNoLP5Rys1pBJKGdE8acEC1HJsWGkfkMt6JP1")
)

const (
	VaultAccountSeed     = "vault"
	VaultLpTokenMintSeed = "mint"

	// FeeScale – знаменатель комиссии vault'а, fee не может его превышать
	FeeScale uint64 = 100

	NumRewardSlots = whirlpool.NumRewards

	DefaultReinvestComputeUnits uint32 = 1_000_000
)

// Дискриминаторы инструкций (sha256("global:<name>")[:8])
var (
	initializeVaultDiscriminator        = [8]byte{0x30, 0xbf, 0xa3, 0x2c, 0x47, 0x81, 0x3f, 0xa4}
	initializeVaultLpMintDiscriminator  = [8]byte{0x61, 0xc2, 0x88, 0xee, 0xf6, 0xff, 0x47, 0x81}
	openPositionDiscriminator           = [8]byte{0x87, 0x80, 0x2f, 0x4d, 0x0f, 0x98, 0xf0, 0x31}
	closePositionDiscriminator          = [8]byte{0x7b, 0x86, 0x51, 0x00, 0x31, 0x44, 0x62, 0x62}
	depositDiscriminator                = [8]byte{0xf2, 0x23, 0xc6, 0x89, 0x52, 0xe1, 0xf2, 0xb6}
	withdrawDiscriminator               = [8]byte{0xb7, 0x12, 0x46, 0x9c, 0x94, 0x6d, 0xa1, 0x22}
	rebalanceDiscriminator              = [8]byte{0x6c, 0x9e, 0x4d, 0x09, 0xd2, 0x34, 0x58, 0x3e}
	reinvestDiscriminator               = [8]byte{0x6b, 0x1d, 0x5f, 0xc8, 0xd9, 0x34, 0x9b, 0x4c}
	collectFeesDiscriminator            = [8]byte{0xa4, 0x98, 0xcf, 0x63, 0x1e, 0xba, 0x13, 0xb6}
	collectRewardsDiscriminator         = [8]byte{0x3f, 0x82, 0x5a, 0xc5, 0x27, 0x10, 0x8f, 0xb0}
	swapRewardsDiscriminator            = [8]byte{0x5c, 0x29, 0xac, 0x1e, 0xbe, 0x41, 0xae, 0x5a}
	transferRewardsDiscriminator        = [8]byte{0x99, 0x8f, 0x3c, 0xd0, 0xdc, 0x05, 0xa2, 0x91}
	setMarketRewardsDiscriminator       = [8]byte{0xd1, 0x12, 0xaf, 0x10, 0x97, 0x6b, 0x5b, 0x25}
	setVaultFeeDiscriminator            = [8]byte{0x6f, 0x7f, 0xec, 0xf3, 0x26, 0x20, 0x35, 0xd9}
	setVaultPauseStatusDiscriminator    = [8]byte{0xc0, 0x44, 0x6a, 0xee, 0x3b, 0x3b, 0x9c, 0x41}
	setMinSlotsForReinvestDiscriminator = [8]byte{0x11, 0xe9, 0xb5, 0x0d, 0x5c, 0x9a, 0xb2, 0xf3}
)
