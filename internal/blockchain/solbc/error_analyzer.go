// internal/blockchain/solbc/error_analyzer.go
package solbc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"
)

// AnchorError represents an error from Anchor framework
type AnchorError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg"`
}

// ProgramFailure – сбой инструкции, извлечённый из результата симуляции или RPC ошибки.
type ProgramFailure struct {
	// ProgramID – программа, вернувшая ошибку (нулевой ключ, если неизвестна)
	ProgramID solana.PublicKey
	// Instruction – индекс инструкции в транзакции, -1 если неизвестен
	Instruction int
	// Code – custom program error, HasCode=false для системных ошибок
	Code    uint32
	HasCode bool
	Anchor  *AnchorError
	Reason  string
	Logs    []string
}

func (f *ProgramFailure) String() string {
	if f.HasCode {
		return fmt.Sprintf("program %s failed at instruction %d: custom error %d (0x%x)", f.ProgramID, f.Instruction, f.Code, f.Code)
	}
	return fmt.Sprintf("instruction %d failed: %s", f.Instruction, f.Reason)
}

// ErrorAnalyzer provides methods to analyze Solana transaction errors
type ErrorAnalyzer struct {
	logger *zap.Logger
}

// NewErrorAnalyzer creates a new ErrorAnalyzer instance
func NewErrorAnalyzer(logger *zap.Logger) *ErrorAnalyzer {
	return &ErrorAnalyzer{
		logger: logger.Named("error-analyzer"),
	}
}

// AnalyzeSimulation interprets the err value and logs of a simulation. Returns nil
// when the simulation succeeded.
func (ea *ErrorAnalyzer) AnalyzeSimulation(errValue interface{}, logs []string) *ProgramFailure {
	if errValue == nil {
		return nil
	}
	f := &ProgramFailure{Instruction: -1, Logs: logs}
	ea.parseTransactionError(errValue, f)

	for _, line := range logs {
		if program, code, ok := parseFailedProgramLog(line); ok {
			f.ProgramID = program
			if !f.HasCode {
				f.Code, f.HasCode = code, true
			}
			break
		}
	}
	for _, line := range logs {
		if strings.Contains(line, "AnchorError") {
			anchorErr := ea.parseAnchorErrorLog(line)
			f.Anchor = &anchorErr
			ea.logger.Debug("Anchor error detected",
				zap.Int("code", anchorErr.Code),
				zap.String("name", anchorErr.Name),
				zap.String("message", anchorErr.Msg))
			break
		}
	}
	return f
}

// AnalyzeRPCError extracts a program failure from a preflight rejection returned by
// sendTransaction. Returns nil for transport errors.
func (ea *ErrorAnalyzer) AnalyzeRPCError(err error) *ProgramFailure {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return nil
	}
	if !strings.Contains(rpcErr.Message, "Transaction simulation failed") {
		return nil
	}
	dataMap, ok := rpcErr.Data.(map[string]interface{})
	if !ok {
		return &ProgramFailure{Instruction: -1, Reason: rpcErr.Message}
	}

	var logs []string
	if raw, ok := dataMap["logs"].([]interface{}); ok {
		for _, entry := range raw {
			if s, ok := entry.(string); ok {
				logs = append(logs, s)
			}
		}
	}
	f := ea.AnalyzeSimulation(dataMap["err"], logs)
	if f == nil {
		f = &ProgramFailure{Instruction: -1, Reason: rpcErr.Message, Logs: logs}
	}
	return f
}

// parseTransactionError разбирает форму {"InstructionError":[idx,{"Custom":code}]}
// или строковую ошибку уровня транзакции.
func (ea *ErrorAnalyzer) parseTransactionError(errValue interface{}, f *ProgramFailure) {
	switch v := errValue.(type) {
	case string:
		f.Reason = v
		return
	case map[string]interface{}:
		ixErr, ok := v["InstructionError"].([]interface{})
		if !ok || len(ixErr) != 2 {
			f.Reason = fmt.Sprintf("%v", v)
			return
		}
		if idx, ok := toInt64(ixErr[0]); ok {
			f.Instruction = int(idx)
		}
		switch detail := ixErr[1].(type) {
		case string:
			f.Reason = detail
		case map[string]interface{}:
			if custom, ok := toInt64(detail["Custom"]); ok {
				f.Code = uint32(custom)
				f.HasCode = true
				f.Reason = "custom program error"
				return
			}
			f.Reason = fmt.Sprintf("%v", detail)
		}
	default:
		f.Reason = fmt.Sprintf("%v", v)
	}
}

// parseFailedProgramLog parses
// "Program <id> failed: custom program error: 0x177a"
func parseFailedProgramLog(line string) (solana.PublicKey, uint32, bool) {
	const marker = " failed: custom program error: "
	if !strings.HasPrefix(line, "Program ") {
		return solana.PublicKey{}, 0, false
	}
	idx := strings.Index(line, marker)
	if idx < 0 {
		return solana.PublicKey{}, 0, false
	}
	program, err := solana.PublicKeyFromBase58(strings.TrimSpace(line[len("Program "):idx]))
	if err != nil {
		return solana.PublicKey{}, 0, false
	}
	hex := strings.TrimPrefix(strings.TrimSpace(line[idx+len(marker):]), "0x")
	code, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return solana.PublicKey{}, 0, false
	}
	return program, uint32(code), true
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

// parseAnchorErrorLog parses an Anchor error log string
// Example: "Program log: AnchorError thrown in src/math/mul_div.rs:15. Error Code: MathOverflow. Error Number: 6000. Error Message: Math operation overflow."
func (ea *ErrorAnalyzer) parseAnchorErrorLog(logStr string) AnchorError {
	result := AnchorError{}

	if parts := strings.SplitN(logStr, "Error Number:", 2); len(parts) > 1 {
		numParts := strings.Split(parts[1], ".")
		if n, err := strconv.Atoi(strings.TrimSpace(numParts[0])); err == nil {
			result.Code = n
		}
	}
	if parts := strings.SplitN(logStr, "Error Code:", 2); len(parts) > 1 {
		result.Name = strings.TrimSpace(strings.Split(parts[1], ".")[0])
	}
	if parts := strings.SplitN(logStr, "Error Message:", 2); len(parts) > 1 {
		result.Msg = strings.TrimSuffix(strings.TrimSpace(parts[1]), ".")
	}
	return result
}
