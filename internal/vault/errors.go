// internal/vault/errors.go
package vault

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/nazare-vault/internal/blockchain/solana/transaction"
	"github.com/rovshanmuradov/nazare-vault/internal/blockchain/solbc"
	"github.com/rovshanmuradov/nazare-vault/internal/whirlpool"
)

// Ошибки локальной валидации и разрешения аккаунтов
var (
	ErrAccountNotFound      = solbc.ErrAccountNotFound
	ErrExhaustedSeedSpace   = errors.New("no valid bump found for seeds")
	ErrInvalidSeed          = errors.New("invalid seed")
	ErrInvalidRange         = errors.New("invalid price range")
	ErrInvalidRewardIndex   = errors.New("invalid reward index")
	ErrMissingSwapParameter = errors.New("missing swap parameter")
	ErrRouteNotConfigured   = errors.New("reward route not configured")
	ErrInvalidFee           = errors.New("invalid vault fee")
	ErrMissingAccount       = errors.New("missing account")
	ErrCapabilityDisabled   = errors.New("capability disabled")
	ErrTransactionTooLarge  = transaction.ErrTransactionTooLarge
)

// Ошибки, возвращаемые программами on-chain. Служат целями для errors.Is.
var (
	ErrNotEnoughFees    = errors.New("not enough fees to collect")
	ErrNotEnoughRewards = errors.New("not enough rewards to collect")
	ErrNotEnoughSlots   = errors.New("not enough slots since last reinvest")
	ErrPositionInUse    = errors.New("position still holds liquidity, fees or rewards")
	ErrWrongMint        = errors.New("wrong mint")
	ErrSlippage         = errors.New("slippage limit exceeded")
	ErrStructural       = errors.New("request rejected as structurally invalid")
	ErrProgramFailure   = errors.New("program failure")
)

// ErrorKind classifies a program rejection.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotEnoughFees
	KindNotEnoughRewards
	KindNotEnoughSlots
	KindPositionInUse
	KindWrongMint
	KindSlippage
	KindStructural
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotEnoughFees:
		return "not_enough_fees"
	case KindNotEnoughRewards:
		return "not_enough_rewards"
	case KindNotEnoughSlots:
		return "not_enough_slots"
	case KindPositionInUse:
		return "position_in_use"
	case KindWrongMint:
		return "wrong_mint"
	case KindSlippage:
		return "slippage"
	case KindStructural:
		return "structural"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindNotEnoughFees:
		return ErrNotEnoughFees
	case KindNotEnoughRewards:
		return ErrNotEnoughRewards
	case KindNotEnoughSlots:
		return ErrNotEnoughSlots
	case KindPositionInUse:
		return ErrPositionInUse
	case KindWrongMint:
		return ErrWrongMint
	case KindSlippage:
		return ErrSlippage
	case KindStructural:
		return ErrStructural
	default:
		return ErrProgramFailure
	}
}

type programCode struct {
	name string
	kind ErrorKind
}

// Классификация по имени из лога AnchorError. Имена стабильны между версиями
// программы, номера – нет: они зависят от порядка variants в enum.
var anchorErrorKinds = map[string]ErrorKind{
	// vault
	"InvalidFee":                         KindStructural,
	"InvalidInputMint":                   KindWrongMint,
	"InvalidRewardMint":                  KindWrongMint,
	"InvalidDestinationAccount":          KindWrongMint,
	"InvalidMarketRewards":               KindStructural,
	"InvalidSwapProgramId":               KindStructural,
	"InvalidVaultVersion":                KindStructural,
	"InvalidLpPriceVersion":              KindStructural,
	"PositionAlreadyOpened":              KindStructural,
	"PositionLimitReached":               KindStructural,
	"PositionNotActive":                  KindStructural,
	"RebalanceIntoActivePosition":        KindStructural,
	"NotEnoughSlots":                     KindNotEnoughSlots,
	"MissingReinvest":                    KindStructural,
	"MissingIx":                          KindStructural,
	"ZeroLpAmount":                       KindStructural,
	"ExceededTokenMax":                   KindSlippage,
	"UnauthorizedUser":                   KindStructural,
	"WhirlpoolLiquidityTooHigh":          KindStructural,
	"WhirlpoolLiquidityToDeltasOverflow": KindStructural,
	"MathOverflow":                       KindStructural,
	"MathOverflowAdd":                    KindStructural,
	"MathOverflowSub":                    KindStructural,
	"MathOverflowMul":                    KindStructural,
	"MathOverflowConversion":             KindStructural,
	"MathZeroDivision":                   KindStructural,
	"InvalidRemainingAccounts":           KindStructural,
	"InvalidNumberOfAccounts":            KindStructural,
	"InvalidIxData":                      KindStructural,

	// пороги сбора: программа их не объявляет, но клиент должен отличать их от
	// структурных отказов, если деплой программы их выдает
	"NotEnoughFees":    KindNotEnoughFees,
	"NotEnoughRewards": KindNotEnoughRewards,

	// whirlpool (CPI)
	"ClosePositionNotEmpty":    KindPositionInUse,
	"TokenMaxExceeded":         KindSlippage,
	"TokenMinSubceeded":        KindSlippage,
	"LiquidityZero":            KindStructural,
	"InvalidTickArraySequence": KindStructural,

	// anchor constraints
	"ConstraintTokenMint":   KindWrongMint,
	"ConstraintHasOne":      KindStructural,
	"ConstraintRaw":         KindStructural,
	"ConstraintSeeds":       KindStructural,
	"AccountNotInitialized": KindStructural,
	"RequireViolated":       KindStructural,
}

// Коды vault'а, когда в логах нет AnchorError. Порядок enum: 6000 MathOverflow,
// 6001 InvalidRemainingAccounts; дальше номера не фиксированы.
var vaultErrorCodes = map[uint32]programCode{
	6000: {"MathOverflow", KindStructural},
	6001: {"InvalidRemainingAccounts", KindStructural},
}

// Коды Whirlpool, которые vault пробрасывает через CPI
var whirlpoolErrorCodes = map[uint32]programCode{
	6001: {"InvalidStartTick", KindStructural},
	6002: {"TickArrayExistInPool", KindStructural},
	6003: {"TickArrayIndexOutofBounds", KindStructural},
	6005: {"ClosePositionNotEmpty", KindPositionInUse},
	6012: {"LiquidityZero", KindStructural},
	6017: {"TokenMaxExceeded", KindSlippage},
	6018: {"TokenMinSubceeded", KindSlippage},
	6023: {"InvalidTickArraySequence", KindStructural},
}

// ProgramError – отказ on-chain программы, переданный вызывающему без переинтерпретации.
type ProgramError struct {
	ProgramID   solana.PublicKey
	Instruction int
	Code        uint32
	HasCode     bool
	Name        string
	Kind        ErrorKind
	Reason      string
	Logs        []string
}

func (e *ProgramError) Error() string {
	var b strings.Builder
	if e.HasCode {
		fmt.Fprintf(&b, "program %s rejected instruction %d: error %d (0x%x)", e.ProgramID, e.Instruction, e.Code, e.Code)
		if e.Name != "" {
			fmt.Fprintf(&b, " %s", e.Name)
		}
	} else {
		fmt.Fprintf(&b, "instruction %d failed: %s", e.Instruction, e.Reason)
	}
	fmt.Fprintf(&b, " [%s]", e.Kind)
	return b.String()
}

// Unwrap returns the sentinel for the error kind.
func (e *ProgramError) Unwrap() error {
	return e.Kind.sentinel()
}

// Retryable reports whether the same request may succeed later without changes,
// e.g. once enough fees have accrued.
func (e *ProgramError) Retryable() bool {
	switch e.Kind {
	case KindNotEnoughFees, KindNotEnoughRewards, KindNotEnoughSlots, KindSlippage:
		return true
	}
	return false
}

// newProgramError maps a parsed failure to a ProgramError. When the log did not name the
// failing program, instructionProgram (the top-level program of the failing instruction)
// is used. The Anchor error name wins over the numeric code.
func newProgramError(f *solbc.ProgramFailure, vaultProgram, instructionProgram solana.PublicKey) *ProgramError {
	pe := &ProgramError{
		ProgramID:   f.ProgramID,
		Instruction: f.Instruction,
		Code:        f.Code,
		HasCode:     f.HasCode,
		Reason:      f.Reason,
		Logs:        f.Logs,
	}
	if pe.ProgramID.IsZero() {
		pe.ProgramID = instructionProgram
	}
	if f.Anchor != nil {
		pe.Name = f.Anchor.Name
	}
	if !pe.HasCode {
		return pe
	}

	var table map[uint32]programCode
	switch {
	case pe.ProgramID.Equals(vaultProgram):
		table = vaultErrorCodes
	case pe.ProgramID.Equals(whirlpool.ProgramID):
		table = whirlpoolErrorCodes
	default:
		// чужая программа: имя сохраняем, но не классифицируем
		return pe
	}

	if pe.Name != "" {
		if kind, ok := anchorErrorKinds[pe.Name]; ok {
			pe.Kind = kind
		}
		return pe
	}
	if c, ok := table[pe.Code]; ok {
		pe.Kind = c.kind
		pe.Name = c.name
	}
	return pe
}
