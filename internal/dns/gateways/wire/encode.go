package wire

import (
	"encoding/binary"

	"github.com/quietloop/dnsfwd/internal/dns/domain"
)

// EncodeReply builds a reply to clientQuery carrying upstream's answer,
// authority, additional, and OPT sections, per sec. 4.1's Encode procedure.
func (codec) EncodeReply(clientQuery []byte, upstream domain.Message) ([]byte, error) {
	if len(clientQuery) < headerLen {
		return nil, domain.NewTruncatedError(0, "client query shorter than a DNS header")
	}

	qEnd, err := questionSectionEnd(clientQuery)
	if err != nil {
		return nil, err
	}

	clientFlags := binary.BigEndian.Uint16(clientQuery[2:4])
	replyFlags := clientFlags | domain.FlagQR | domain.FlagRA

	arCount := upstream.ARCount()

	out := make([]byte, headerLen, headerLen+len(clientQuery)+256)
	copy(out[0:2], clientQuery[0:2]) // ID, verbatim
	binary.BigEndian.PutUint16(out[2:4], replyFlags)
	copy(out[4:6], clientQuery[4:6]) // QDCOUNT, verbatim
	binary.BigEndian.PutUint16(out[6:8], uint16(len(upstream.Answers)))
	binary.BigEndian.PutUint16(out[8:10], uint16(len(upstream.Authority)))
	binary.BigEndian.PutUint16(out[10:12], uint16(arCount))

	out = append(out, clientQuery[headerLen:qEnd]...) // question bytes, verbatim

	for _, rr := range upstream.Answers {
		out = appendRecord(out, rr)
	}
	for _, rr := range upstream.Authority {
		out = appendRecord(out, rr)
	}
	for _, rr := range upstream.Additional {
		out = appendRecord(out, rr)
	}
	if upstream.OPT != nil {
		out = appendOpt(out, *upstream.OPT)
	}

	return out, nil
}

// questionSectionEnd walks query's question section using its own QDCOUNT
// and returns the offset immediately following it.
func questionSectionEnd(query []byte) (int, error) {
	qdCount := binary.BigEndian.Uint16(query[4:6])
	offset := headerLen
	for i := 0; i < int(qdCount); i++ {
		_, next, err := decodeQuestion(query, offset)
		if err != nil {
			return 0, err
		}
		offset = next
	}
	return offset, nil
}

func appendRecord(out []byte, rr domain.Record) []byte {
	out = append(out, encodeName(rr.Name)...)
	var fixed [10]byte
	binary.BigEndian.PutUint16(fixed[0:2], uint16(rr.Type))
	binary.BigEndian.PutUint16(fixed[2:4], uint16(rr.Class))
	binary.BigEndian.PutUint32(fixed[4:8], rr.TTL)
	binary.BigEndian.PutUint16(fixed[8:10], uint16(len(rr.RData)))
	out = append(out, fixed[:]...)
	return append(out, rr.RData...)
}

func appendOpt(out []byte, opt domain.OptRecord) []byte {
	out = append(out, 0) // root name
	var fixed [10]byte
	binary.BigEndian.PutUint16(fixed[0:2], uint16(domain.RRTypeOPT))
	binary.BigEndian.PutUint16(fixed[2:4], opt.UDPPayloadSize)
	ttl := uint32(opt.ExtendedRCode)<<24 | uint32(opt.Version)<<16 | uint32(opt.Flags)
	binary.BigEndian.PutUint32(fixed[4:8], ttl)
	binary.BigEndian.PutUint16(fixed[8:10], uint16(len(opt.RData)))
	out = append(out, fixed[:]...)
	return append(out, opt.RData...)
}
