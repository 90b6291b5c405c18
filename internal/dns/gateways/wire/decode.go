package wire

import (
	"encoding/binary"

	"github.com/quietloop/dnsfwd/internal/dns/domain"
)

const headerLen = 12

// Decode parses data into a domain.Message, per sec. 4.1.
func (codec) Decode(data []byte) (domain.Message, error) {
	if len(data) < headerLen {
		return domain.Message{}, domain.NewTruncatedError(0, "message shorter than a DNS header")
	}

	id := binary.BigEndian.Uint16(data[0:2])
	flags := binary.BigEndian.Uint16(data[2:4])
	qdCount := binary.BigEndian.Uint16(data[4:6])
	anCount := binary.BigEndian.Uint16(data[6:8])
	nsCount := binary.BigEndian.Uint16(data[8:10])
	arCount := binary.BigEndian.Uint16(data[10:12])

	offset := headerLen

	questions := make([]domain.Question, 0, qdCount)
	for i := 0; i < int(qdCount); i++ {
		q, next, err := decodeQuestion(data, offset)
		if err != nil {
			return domain.Message{}, err
		}
		questions = append(questions, q)
		offset = next
	}

	answers, offset, err := decodeRecords(data, offset, int(anCount))
	if err != nil {
		return domain.Message{}, err
	}
	authority, offset, err := decodeRecords(data, offset, int(nsCount))
	if err != nil {
		return domain.Message{}, err
	}
	rawAdditional, offset, err := decodeRecords(data, offset, int(arCount))
	if err != nil {
		return domain.Message{}, err
	}
	_ = offset

	additional := make([]domain.Record, 0, len(rawAdditional))
	var opt *domain.OptRecord
	for _, rr := range rawAdditional {
		if rr.Type == domain.RRTypeOPT {
			o := recordToOpt(rr)
			opt = &o
			continue
		}
		additional = append(additional, rr)
	}

	return domain.Message{
		ID:         id,
		Flags:      flags,
		Questions:  questions,
		Answers:    answers,
		Authority:  authority,
		Additional: additional,
		OPT:        opt,
	}, nil
}

func decodeQuestion(data []byte, offset int) (domain.Question, int, error) {
	name, next, err := decodeName(data, offset)
	if err != nil {
		return domain.Question{}, 0, err
	}
	if next+4 > len(data) {
		return domain.Question{}, 0, domain.NewTruncatedError(next, "truncated question type/class")
	}
	qtype := binary.BigEndian.Uint16(data[next : next+2])
	qclass := binary.BigEndian.Uint16(data[next+2 : next+4])
	return domain.Question{
		Name:  name,
		Type:  domain.RRType(qtype),
		Class: domain.RRClass(qclass),
	}, next + 4, nil
}

func decodeRecords(data []byte, offset, count int) ([]domain.Record, int, error) {
	records := make([]domain.Record, 0, count)
	for i := 0; i < count; i++ {
		rr, next, err := decodeRecord(data, offset)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rr)
		offset = next
	}
	return records, offset, nil
}

func decodeRecord(data []byte, offset int) (domain.Record, int, error) {
	name, offset, err := decodeName(data, offset)
	if err != nil {
		return domain.Record{}, 0, err
	}
	if offset+10 > len(data) {
		return domain.Record{}, 0, domain.NewTruncatedError(offset, "truncated record fixed fields")
	}
	rtype := binary.BigEndian.Uint16(data[offset : offset+2])
	rclass := binary.BigEndian.Uint16(data[offset+2 : offset+4])
	ttl := binary.BigEndian.Uint32(data[offset+4 : offset+8])
	rdlen := binary.BigEndian.Uint16(data[offset+8 : offset+10])
	offset += 10

	if offset+int(rdlen) > len(data) {
		return domain.Record{}, 0, domain.NewTruncatedError(offset, "rdata runs past end of message")
	}
	rdata := make([]byte, rdlen)
	copy(rdata, data[offset:offset+int(rdlen)])
	offset += int(rdlen)

	return domain.Record{
		Name:  name,
		Type:  domain.RRType(rtype),
		Class: domain.RRClass(rclass),
		TTL:   ttl,
		RData: rdata,
	}, offset, nil
}

// recordToOpt lifts an OPT resource record into an OptRecord, preserving
// its class/TTL fields byte-for-byte per RFC 6891.
func recordToOpt(rr domain.Record) domain.OptRecord {
	return domain.OptRecord{
		UDPPayloadSize: uint16(rr.Class),
		ExtendedRCode:  uint8(rr.TTL >> 24),
		Version:        uint8(rr.TTL >> 16),
		Flags:          uint16(rr.TTL & 0xFFFF),
		RData:          rr.RData,
	}
}
