package vault

import (
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/nazare-vault/internal/blockchain/solbc"
	"github.com/rovshanmuradov/nazare-vault/internal/whirlpool"
)

func TestNewProgramError(t *testing.T) {
	tests := []struct {
		name      string
		failure   *solbc.ProgramFailure
		fallback  solana.PublicKey
		wantKind  ErrorKind
		wantName  string
		wantErr   error
		retryable bool
	}{
		{
			name: "anchor name classifies vault failure",
			failure: &solbc.ProgramFailure{
				ProgramID: ProgramID, Code: 6011, HasCode: true,
				Anchor: &solbc.AnchorError{Code: 6011, Name: "NotEnoughRewards"},
			},
			wantKind:  KindNotEnoughRewards,
			wantName:  "NotEnoughRewards",
			wantErr:   ErrNotEnoughRewards,
			retryable: true,
		},
		{
			name: "program falls back to failing instruction",
			failure: &solbc.ProgramFailure{
				Code: 6012, HasCode: true,
				Anchor: &solbc.AnchorError{Code: 6012, Name: "NotEnoughSlots"},
			},
			fallback:  ProgramID,
			wantKind:  KindNotEnoughSlots,
			wantName:  "NotEnoughSlots",
			wantErr:   ErrNotEnoughSlots,
			retryable: true,
		},
		{
			name:     "vault code without log follows enum order",
			failure:  &solbc.ProgramFailure{ProgramID: ProgramID, Code: 6000, HasCode: true},
			wantKind: KindStructural,
			wantName: "MathOverflow",
			wantErr:  ErrStructural,
		},
		{
			name:     "remaining accounts code",
			failure:  &solbc.ProgramFailure{ProgramID: ProgramID, Code: 6001, HasCode: true},
			wantKind: KindStructural,
			wantName: "InvalidRemainingAccounts",
			wantErr:  ErrStructural,
		},
		{
			name:     "unnamed vault code is not guessed",
			failure:  &solbc.ProgramFailure{ProgramID: ProgramID, Code: 6013, HasCode: true},
			wantKind: KindUnknown,
			wantErr:  ErrProgramFailure,
		},
		{
			name:      "whirlpool slippage",
			failure:   &solbc.ProgramFailure{ProgramID: whirlpool.ProgramID, Code: 6018, HasCode: true},
			wantKind:  KindSlippage,
			wantName:  "TokenMinSubceeded",
			wantErr:   ErrSlippage,
			retryable: true,
		},
		{
			name: "wrong mint",
			failure: &solbc.ProgramFailure{
				ProgramID: ProgramID, Code: 6003, HasCode: true,
				Anchor: &solbc.AnchorError{Code: 6003, Name: "InvalidRewardMint"},
			},
			wantKind: KindWrongMint,
			wantName: "InvalidRewardMint",
			wantErr:  ErrWrongMint,
		},
		{
			name: "anchor token mint constraint",
			failure: &solbc.ProgramFailure{
				ProgramID: ProgramID, Code: 2014, HasCode: true,
				Anchor: &solbc.AnchorError{Code: 2014, Name: "ConstraintTokenMint"},
			},
			wantKind: KindWrongMint,
			wantName: "ConstraintTokenMint",
			wantErr:  ErrWrongMint,
		},
		{
			name: "unknown anchor name is not guessed from code",
			failure: &solbc.ProgramFailure{
				ProgramID: ProgramID, Code: 6000, HasCode: true,
				Anchor: &solbc.AnchorError{Code: 6000, Name: "SomethingNew"},
			},
			wantKind: KindUnknown,
			wantName: "SomethingNew",
			wantErr:  ErrProgramFailure,
		},
		{
			name:     "foreign program keeps raw code",
			failure:  &solbc.ProgramFailure{ProgramID: solana.TokenProgramID, Code: 1, HasCode: true},
			wantKind: KindUnknown,
			wantErr:  ErrProgramFailure,
		},
		{
			name:     "non custom failure",
			failure:  &solbc.ProgramFailure{Instruction: 2, Reason: "InvalidAccountData"},
			wantKind: KindUnknown,
			wantErr:  ErrProgramFailure,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := newProgramError(tt.failure, ProgramID, tt.fallback)
			assert.Equal(t, tt.wantKind, pe.Kind)
			assert.Equal(t, tt.wantName, pe.Name)
			assert.True(t, errors.Is(pe, tt.wantErr))
			assert.Equal(t, tt.retryable, pe.Retryable())
		})
	}
}

func TestProgramErrorMessage(t *testing.T) {
	pe := newProgramError(&solbc.ProgramFailure{
		ProgramID: ProgramID, Instruction: 1, Code: 6010, HasCode: true,
		Anchor: &solbc.AnchorError{Code: 6010, Name: "NotEnoughFees"},
	}, ProgramID, solana.PublicKey{})
	assert.Contains(t, pe.Error(), "6010 (0x177a) NotEnoughFees")
	assert.Contains(t, pe.Error(), "[not_enough_fees]")

	pe = newProgramError(&solbc.ProgramFailure{Instruction: 0, Reason: "BlockhashNotFound"}, ProgramID, solana.PublicKey{})
	assert.Contains(t, pe.Error(), "BlockhashNotFound")
	assert.False(t, errors.Is(pe, ErrNotEnoughFees))
}

func TestProgramErrorFromSimulationLogs(t *testing.T) {
	ea := solbc.NewErrorAnalyzer(zap.NewNop())
	custom := func(code int) map[string]interface{} {
		return map[string]interface{}{
			"InstructionError": []interface{}{json.Number("1"), map[string]interface{}{"Custom": json.Number(strconv.Itoa(code))}},
		}
	}

	tests := []struct {
		name     string
		code     int
		logs     []string
		wantKind ErrorKind
		wantName string
	}{
		{
			name: "math overflow thrown in mul_div",
			code: 6000,
			logs: []string{
				"Program " + ProgramID.String() + " invoke [1]",
				"Program log: Instruction: Deposit",
				"Program log: AnchorError thrown in programs/ggoldca/src/math/mul_div.rs:15. Error Code: MathOverflow. Error Number: 6000. Error Message: Math operation overflow.",
				"Program " + ProgramID.String() + " consumed 24121 of 200000 compute units",
				"Program " + ProgramID.String() + " failed: custom program error: 0x1770",
			},
			wantKind: KindStructural,
			wantName: "MathOverflow",
		},
		{
			name: "reinvest too early",
			code: 6012,
			logs: []string{
				"Program " + ProgramID.String() + " invoke [1]",
				"Program log: Instruction: Reinvest",
				"Program log: AnchorError thrown in programs/ggoldca/src/instructions/reinvest.rs:161. Error Code: NotEnoughSlots. Error Number: 6012. Error Message: Not enough slots since last reinvest.",
				"Program " + ProgramID.String() + " failed: custom program error: 0x177c",
			},
			wantKind: KindNotEnoughSlots,
			wantName: "NotEnoughSlots",
		},
		{
			name: "account constraint",
			code: 2014,
			logs: []string{
				"Program " + ProgramID.String() + " invoke [1]",
				"Program log: Instruction: CollectFeesAndRewards",
				"Program log: AnchorError caused by account: vault_input_token_a_account. Error Code: ConstraintTokenMint. Error Number: 2014. Error Message: A token mint constraint was violated.",
				"Program " + ProgramID.String() + " failed: custom program error: 0x7de",
			},
			wantKind: KindWrongMint,
			wantName: "ConstraintTokenMint",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := ea.AnalyzeSimulation(custom(tt.code), tt.logs)
			require.NotNil(t, f)

			pe := newProgramError(f, ProgramID, solana.PublicKey{})
			assert.Equal(t, ProgramID, pe.ProgramID)
			assert.Equal(t, 1, pe.Instruction)
			assert.Equal(t, uint32(tt.code), pe.Code)
			assert.Equal(t, tt.wantName, pe.Name)
			assert.Equal(t, tt.wantKind, pe.Kind)
		})
	}
}
