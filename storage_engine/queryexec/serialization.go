package queryexec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"daemonstore/types"
)

/*
Row wire format is a flat concatenation of column values in schema order —
no null bitmap, no row header; column boundaries are implied by each type's
fixed or length-prefixed encoding. INT and FLOAT are 4 bytes each; VARCHAR is
a uint16 length prefix followed by the raw string bytes.
*/

// SerializeRow encodes values (in schema column order) into their on-disk
// row representation.
func SerializeRow(cols []types.ColumnDef, values []any) ([]byte, error) {
	if len(cols) != len(values) {
		return nil, fmt.Errorf("column count (%d) != value count (%d)", len(cols), len(values))
	}

	buf := new(bytes.Buffer)
	for i, col := range cols {
		b, err := ValueToBytes(values[i], col.Type)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}
		buf.Write(b)
	}
	return buf.Bytes(), nil
}

// DeserializeRow is SerializeRow's inverse.
func DeserializeRow(row []byte, cols []types.ColumnDef) ([]any, error) {
	out := make([]any, len(cols))
	offset := 0

	for i, col := range cols {
		if offset >= len(row) {
			return nil, fmt.Errorf("not enough data for column %s (offset %d >= row length %d)",
				col.Name, offset, len(row))
		}
		val, read, err := BytesToValue(row[offset:], col.Type)
		if err != nil {
			return nil, fmt.Errorf("column %s at offset %d: %w", col.Name, offset, err)
		}
		out[i] = val
		offset += read
	}

	if offset != len(row) {
		return nil, fmt.Errorf("extra bytes at end of row: expected total %d bytes, got %d bytes",
			offset, len(row))
	}
	return out, nil
}

func ValueToBytes(val any, typ string) ([]byte, error) {
	buf := new(bytes.Buffer)

	switch strings.ToUpper(typ) {
	case "INT":
		i32, err := types.ToInt(val)
		if err != nil {
			return nil, err
		}
		if err := binary.Write(buf, binary.LittleEndian, i32); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case "FLOAT":
		f32, err := types.ToFloat(val)
		if err != nil {
			return nil, err
		}
		if err := binary.Write(buf, binary.LittleEndian, math.Float32bits(f32)); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case "VARCHAR":
		s, err := types.ToString(val)
		if err != nil {
			return nil, err
		}
		if len(s) > 65535 {
			return nil, fmt.Errorf("varchar too long")
		}
		if err := binary.Write(buf, binary.LittleEndian, uint16(len(s))); err != nil {
			return nil, err
		}
		buf.WriteString(s)
		return buf.Bytes(), nil
	}

	return nil, fmt.Errorf("unsupported type %s", typ)
}

func BytesToValue(b []byte, typ string) (any, int, error) {
	switch strings.ToUpper(typ) {
	case "INT":
		if len(b) < 4 {
			return nil, 0, fmt.Errorf("not enough bytes for int")
		}
		return int32(binary.LittleEndian.Uint32(b[:4])), 4, nil

	case "FLOAT":
		if len(b) < 4 {
			return nil, 0, fmt.Errorf("not enough bytes for float")
		}
		return math.Float32frombits(binary.LittleEndian.Uint32(b[:4])), 4, nil

	case "VARCHAR":
		if len(b) < 2 {
			return nil, 0, fmt.Errorf("not enough bytes for varchar length")
		}
		strlen := int(binary.LittleEndian.Uint16(b[:2]))
		if len(b) < 2+strlen {
			return nil, 0, fmt.Errorf("varchar length exceeds row size")
		}
		return string(b[2 : 2+strlen]), 2 + strlen, nil
	}

	return nil, 0, fmt.Errorf("unknown type %s", typ)
}

// packRowPointer flattens a RowPointer into the int64 value type the hash
// index stores. FileID gets the high 32 bits, PageNumber the next 16, and
// SlotIndex the low 16 — generous for an educational engine's small file and
// page counts, though a PageNumber at or above 2^16 overflows into the FileID
// bits (heapfile.InsertRow refuses such rows).
func packRowPointer(rp types.RowPointer) int64 {
	return int64(rp.FileID)<<32 | int64(rp.PageNumber)<<16 | int64(rp.SlotIndex)
}

func unpackRowPointer(v int64) types.RowPointer {
	return types.RowPointer{
		FileID:     uint32(v >> 32),
		PageNumber: uint32((v >> 16) & 0xFFFF),
		SlotIndex:  uint16(v & 0xFFFF),
	}
}

// ExtractPrimaryKey returns the encoded primary-key bytes for a row together
// with the key column's name, or a generated implicit key (based on the row
// pointer) when the table has no declared primary key.
func ExtractPrimaryKey(schema types.TableSchema, values []any, rowPtr *types.RowPointer) ([]byte, string, error) {
	for i, col := range schema.Columns {
		if col.IsPrimaryKey {
			keyBytes, err := ValueToBytes(values[i], col.Type)
			if err != nil {
				return nil, "", err
			}
			return keyBytes, col.Name, nil
		}
	}
	return generateImplicitKey(rowPtr), "__rowid__", nil
}

func generateImplicitKey(rowPtr *types.RowPointer) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], rowPtr.FileID)
	binary.BigEndian.PutUint32(buf[4:8], rowPtr.PageNumber)
	return buf
}

// primaryKeyAsInt32 narrows a primary key's encoded bytes to the int32 the
// hash index keys on. Any key whose encoding is exactly 4 bytes narrows (INT,
// and FLOAT by its bit pattern); anything else reports ok=false, which
// InsertRow treats as an error and selectByPrimaryKey as a cue to fall back
// to a full scan.
func primaryKeyAsInt32(keyBytes []byte) (int32, bool) {
	if len(keyBytes) != 4 {
		return 0, false
	}
	return int32(binary.LittleEndian.Uint32(keyBytes)), true
}
