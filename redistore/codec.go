package redistore

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/tidegate/authcore"
)

// Record layout, version 1:
//
//	[0]      version
//	[1:33]   token hash (fixed offset, read by the compare-and-delete script)
//	[33]     id length
//	[...]    id bytes
//	[..+8]   expires-at unix seconds, big endian
//	[..+8]   created-at unix seconds, big endian
const (
	recordVersion   = 1
	hashOffset      = 1
	hashEnd         = hashOffset + 32
	maxRecordIDSize = 255
)

// ErrCorruptRecord is returned when a stored blob cannot be decoded.
var ErrCorruptRecord = errors.New("corrupt refresh token record")

func encodeRecord(record authcore.RefreshTokenRecord) ([]byte, error) {
	if len(record.ID) > maxRecordIDSize {
		return nil, errors.New("record id too long")
	}

	buf := make([]byte, 0, hashEnd+1+len(record.ID)+16)
	buf = append(buf, recordVersion)
	buf = append(buf, record.TokenHash[:]...)
	buf = append(buf, byte(len(record.ID)))
	buf = append(buf, record.ID...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(record.ExpiresAt.Unix()))
	buf = binary.BigEndian.AppendUint64(buf, uint64(record.CreatedAt.Unix()))
	return buf, nil
}

func decodeRecord(accountID string, data []byte) (*authcore.RefreshTokenRecord, error) {
	if len(data) < hashEnd+1 || data[0] != recordVersion {
		return nil, ErrCorruptRecord
	}

	record := &authcore.RefreshTokenRecord{AccountID: accountID}
	copy(record.TokenHash[:], data[hashOffset:hashEnd])

	idLen := int(data[hashEnd])
	idx := hashEnd + 1
	if len(data) != idx+idLen+16 {
		return nil, ErrCorruptRecord
	}
	record.ID = string(data[idx : idx+idLen])
	idx += idLen

	record.ExpiresAt = time.Unix(int64(binary.BigEndian.Uint64(data[idx:idx+8])), 0)
	record.CreatedAt = time.Unix(int64(binary.BigEndian.Uint64(data[idx+8:idx+16])), 0)
	return record, nil
}
