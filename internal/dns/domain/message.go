// Package domain holds the tagged, value-based view of a DNS wire message
// that the rest of the forwarder operates on. There is deliberately no
// polymorphic per-rtype record hierarchy: rdata is carried as an opaque
// byte slice and a type tag, matching the wire format this proxy relays
// rather than interprets.
package domain

// Flag bits this proxy cares about; everything else in the 16-bit flag
// word is opaque and passed through untouched.
const (
	FlagQR uint16 = 1 << 15 // response bit
	FlagRA uint16 = 1 << 7  // recursion-available bit
)

// Question is a single entry in a message's question section.
type Question struct {
	Name  Name
	Type  RRType
	Class RRClass
}

// Record is a single resource record. RData is retained as an opaque byte
// slice; this proxy never interprets record data beyond its length.
type Record struct {
	Name  Name
	Type  RRType
	Class RRClass
	TTL   uint32
	RData []byte
}

// OptRecord is the EDNS(0) pseudo-record (RFC 6891), lifted out of the
// additional section during decode. Its class and TTL fields are preserved
// byte-for-byte, since this proxy does not generate or alter EDNS state on
// its own - it only relays what an upstream sent.
type OptRecord struct {
	UDPPayloadSize uint16 // carried in the class field on the wire
	ExtendedRCode  uint8  // high 8 bits of the TTL field
	Version        uint8  // next 8 bits of the TTL field
	Flags          uint16 // low 16 bits of the TTL field (e.g. DO bit)
	RData          []byte
}

// Message is the decoded view of a single DNS wire message.
type Message struct {
	ID         uint16
	Flags      uint16
	Questions  []Question
	Answers    []Record
	Authority  []Record
	Additional []Record
	OPT        *OptRecord
}

// ARCount returns the additional-section record count this message would
// carry on the wire, including the lifted-out OPT record if present.
func (m Message) ARCount() int {
	n := len(m.Additional)
	if m.OPT != nil {
		n++
	}
	return n
}

// IsResponse reports whether the QR bit is set.
func (m Message) IsResponse() bool {
	return m.Flags&FlagQR != 0
}

// FirstQuestion returns the message's first question and true, or the zero
// Question and false if the message carries none. Logging only ever needs
// the first question per sec. 4.4.
func (m Message) FirstQuestion() (Question, bool) {
	if len(m.Questions) == 0 {
		return Question{}, false
	}
	return m.Questions[0], true
}
