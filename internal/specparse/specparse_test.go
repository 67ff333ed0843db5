package specparse_test

import (
	"bytes"
	"testing"

	"github.com/sorobanclient/soroban/internal/specparse"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func leb128(n uint32) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if n == 0 {
			break
		}
	}
	return out
}

func customSection(name string, body []byte) []byte {
	var payload bytes.Buffer
	payload.Write(leb128(uint32(len(name))))
	payload.WriteString(name)
	payload.Write(body)

	var section bytes.Buffer
	section.WriteByte(0) // custom section id
	section.Write(leb128(uint32(payload.Len())))
	section.Write(payload.Bytes())
	return section.Bytes()
}

func wasmModule(sections ...[]byte) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x00, 0x61, 0x73, 0x6d})
	buf.Write([]byte{0x01, 0x00, 0x00, 0x00})
	for _, s := range sections {
		buf.Write(s)
	}
	return buf.Bytes()
}

func TestExtractSectionFindsNamedSection(t *testing.T) {
	body := []byte{0xde, 0xad, 0xbe, 0xef}
	wasm := wasmModule(
		customSection("producers", []byte{0x01, 0x02}),
		customSection("contractspecv0", body),
	)

	got, err := specparse.ExtractSection(wasm)
	require.NoError(t, err)
	require.Equal(t, body, got)
}

func TestExtractSectionMissing(t *testing.T) {
	wasm := wasmModule(customSection("producers", []byte{0x01}))
	_, err := specparse.ExtractSection(wasm)
	require.ErrorIs(t, err, specparse.ErrSectionNotFound)
}

func TestExtractSectionRejectsNonWasm(t *testing.T) {
	_, err := specparse.ExtractSection([]byte("not wasm"))
	require.Error(t, err)
}

func TestDecodeEntriesEmptyPayload(t *testing.T) {
	entries, err := specparse.DecodeEntries(nil, zap.NewNop())
	require.NoError(t, err)
	require.Empty(t, entries)
}
