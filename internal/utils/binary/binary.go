// internal/utils/binary/binary.go
package binary

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// ErrShortBuffer возвращается, когда данных аккаунта меньше, чем требует layout
var ErrShortBuffer = errors.New("account data is shorter than layout")

// Reader читает поля фиксированного layout'а аккаунта слева направо.
// Первая ошибка запоминается, последующие чтения становятся no-op.
type Reader struct {
	data   []byte
	offset int
	err    error
}

// NewReader создает Reader поверх данных аккаунта
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Err возвращает первую ошибку чтения
func (r *Reader) Err() error {
	return r.err
}

// Offset возвращает текущую позицию
func (r *Reader) Offset() int {
	return r.offset
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.offset+n > len(r.data) {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			ErrShortBuffer, n, r.offset, len(r.data))
		return nil
	}
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b
}

// Skip пропускает n байт (discriminator, padding)
func (r *Reader) Skip(n int) {
	r.take(n)
}

// Uint8 reads a single byte
func (r *Reader) Uint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// Bool reads a boolean (0 = false)
func (r *Reader) Bool() bool {
	return r.Uint8() != 0
}

// Uint16 reads a little-endian uint16
func (r *Reader) Uint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// Int32 reads a little-endian int32
func (r *Reader) Int32() int32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

// Uint64 reads a little-endian uint64
func (r *Reader) Uint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// Uint128 reads a little-endian u128
func (r *Reader) Uint128() uint128.Uint128 {
	b := r.take(16)
	if b == nil {
		return uint128.Zero
	}
	return uint128.FromBytes(b)
}

// PubKey reads a 32-byte public key
func (r *Reader) PubKey() solana.PublicKey {
	b := r.take(32)
	if b == nil {
		return solana.PublicKey{}
	}
	return solana.PublicKeyFromBytes(b)
}

// ReadUint64LittleEndian reads a uint64 from a byte slice in little-endian format
func ReadUint64LittleEndian(data []byte, offset int) uint64 {
	return binary.LittleEndian.Uint64(data[offset : offset+8])
}

// ReadPubKey reads a Solana public key from a byte slice
func ReadPubKey(data []byte, offset int) solana.PublicKey {
	return solana.PublicKeyFromBytes(data[offset : offset+32])
}
