package binary

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"
)

func TestReaderFixedLayout(t *testing.T) {
	key := solana.NewWallet().PublicKey()

	data := []byte{0xaa, 0xbb} // discriminator
	data = append(data, 1)
	data = append(data, 0x08, 0x00)
	data = append(data, 0xe8, 0xfb, 0xff, 0xff) // -1048
	data = append(data, 0x2a, 0, 0, 0, 0, 0, 0, 0)
	data = append(data, 1, 0, 0, 0, 0, 0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0)
	data = append(data, key.Bytes()...)

	r := NewReader(data)
	r.Skip(2)
	assert.True(t, r.Bool())
	assert.Equal(t, uint16(8), r.Uint16())
	assert.Equal(t, int32(-1048), r.Int32())
	assert.Equal(t, uint64(42), r.Uint64())
	assert.Equal(t, uint128.New(1, 2), r.Uint128())
	assert.Equal(t, key, r.PubKey())
	require.NoError(t, r.Err())
	assert.Equal(t, len(data), r.Offset())
}

func TestReaderShortBuffer(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	assert.Equal(t, uint16(0x0201), r.Uint16())
	assert.Equal(t, uint64(0), r.Uint64())
	assert.ErrorIs(t, r.Err(), ErrShortBuffer)

	// после ошибки чтения ничего не сдвигают
	assert.Equal(t, uint8(0), r.Uint8())
	assert.Equal(t, 2, r.Offset())
	assert.True(t, r.PubKey().IsZero())
}

func TestOffsetHelpers(t *testing.T) {
	key := solana.NewWallet().PublicKey()
	data := make([]byte, 48)
	copy(data[4:], key.Bytes())
	data[36] = 0x10

	assert.Equal(t, key, ReadPubKey(data, 4))
	assert.Equal(t, uint64(16), ReadUint64LittleEndian(data, 36))
}
