// Package specparse extracts the contractspecv0 custom section from a
// compiled Soroban wasm module and decodes it into a sequence of
// xdr.ScSpecEntry records. Everything below the custom-section boundary
// (module header, code sections, etc.) is skipped; only the bytes needed
// to locate and read one named custom section are parsed.
package specparse

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"github.com/stellar/go/xdr"
	"go.uber.org/zap"
)

const (
	specSectionName = "contractspecv0"
	customSectionID = 0

	wasmMagic   = uint32(0x6d736100)
	wasmVersion = uint32(1)
)

// ErrSectionNotFound is returned when the wasm module carries no
// contractspecv0 custom section.
var ErrSectionNotFound = errors.New("specparse: contractspecv0 custom section not found")

// ExtractSection returns the raw payload of the contractspecv0 custom
// section from a compiled wasm module.
func ExtractSection(wasm []byte) ([]byte, error) {
	r := bytes.NewReader(wasm)

	var magic, version uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, errors.Wrap(err, "specparse: reading wasm magic")
	}
	if magic != wasmMagic {
		return nil, errors.New("specparse: not a wasm module")
	}
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, errors.Wrap(err, "specparse: reading wasm version")
	}
	if version != wasmVersion {
		return nil, errors.Errorf("specparse: unsupported wasm version %d", version)
	}

	for {
		id, err := r.ReadByte()
		if err == io.EOF {
			return nil, ErrSectionNotFound
		}
		if err != nil {
			return nil, errors.Wrap(err, "specparse: reading section id")
		}
		size, err := readLEB128(r)
		if err != nil {
			return nil, errors.Wrap(err, "specparse: reading section size")
		}
		payload := make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, errors.Wrap(err, "specparse: reading section payload")
		}
		if id != customSectionID {
			continue
		}
		pr := bytes.NewReader(payload)
		nameLen, err := readLEB128(pr)
		if err != nil {
			return nil, errors.Wrap(err, "specparse: reading custom section name length")
		}
		nameBytes := make([]byte, nameLen)
		if _, err := io.ReadFull(pr, nameBytes); err != nil {
			return nil, errors.Wrap(err, "specparse: reading custom section name")
		}
		if string(nameBytes) != specSectionName {
			continue
		}
		rest := make([]byte, pr.Len())
		if _, err := io.ReadFull(pr, rest); err != nil {
			return nil, errors.Wrap(err, "specparse: reading custom section body")
		}
		return rest, nil
	}
}

// DecodeEntries streams xdr.ScSpecEntry records out of a contractspecv0
// payload, one record per decoder iteration, advancing the cursor exactly
// past each consumed record. Any residual bytes after the last record that
// decoded cleanly are unexpected and are logged, not treated as an error -
// some encoders pad the custom section to a word boundary.
func DecodeEntries(payload []byte, log *zap.Logger) ([]xdr.ScSpecEntry, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var entries []xdr.ScSpecEntry
	residual := 0
	r := bytes.NewReader(payload)
	for r.Len() > 0 {
		before := r.Len()
		var entry xdr.ScSpecEntry
		decoder := xdr.NewDecoder(r)
		if _, err := entry.DecodeFrom(decoder); err != nil {
			if errors.Is(err, io.EOF) && before != r.Len() {
				residual = before
				break
			}
			return nil, errors.Wrap(err, "specparse: decoding spec entry")
		}
		entries = append(entries, entry)
	}
	if residual > 0 {
		log.Warn("residual bytes after final contractspecv0 entry",
			zap.Int("residualBytes", residual))
	}
	return entries, nil
}

// Parse is the convenience entry point: extract the section, then decode
// its entries.
func Parse(wasm []byte, log *zap.Logger) ([]xdr.ScSpecEntry, error) {
	section, err := ExtractSection(wasm)
	if err != nil {
		return nil, err
	}
	return DecodeEntries(section, log)
}

func readLEB128(r *bytes.Reader) (uint32, error) {
	var result uint32
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift >= 35 {
			return 0, errors.New("specparse: LEB128 value overflows uint32")
		}
	}
	return result, nil
}
