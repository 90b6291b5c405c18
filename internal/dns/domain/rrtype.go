package domain

import "fmt"

// RRType is a DNS resource record type code (IANA DNS Parameters).
type RRType uint16

// RRClass is a DNS class code, almost always IN (Internet).
type RRClass uint16

// Record type constants covered by the fixed mnemonic table (sec. 6 of the
// specification). Types outside this table still decode structurally -
// only their rendering for logging purposes is "UNKNOWN(<n>)".
const (
	RRTypeA      RRType = 1
	RRTypeNS     RRType = 2
	RRTypeCNAME  RRType = 5
	RRTypeSOA    RRType = 6
	RRTypePTR    RRType = 12
	RRTypeMX     RRType = 15
	RRTypeTXT    RRType = 16
	RRTypeAAAA   RRType = 28
	RRTypeSRV    RRType = 33
	RRTypeNAPTR  RRType = 35
	RRTypeA6     RRType = 38
	RRTypeDNAME  RRType = 39
	RRTypeOPT    RRType = 41
	RRTypeDS     RRType = 43
	RRTypeRRSIG  RRType = 46
	RRTypeNSEC   RRType = 47
	RRTypeDNSKEY RRType = 48
	RRTypeANY    RRType = 255
)

// ClassIN is the Internet class, the only class this proxy expects to see
// in practice.
const ClassIN RRClass = 1

var mnemonics = map[RRType]string{
	RRTypeA:      "A",
	RRTypeNS:     "NS",
	RRTypeCNAME:  "CNAME",
	RRTypeSOA:    "SOA",
	RRTypePTR:    "PTR",
	RRTypeMX:     "MX",
	RRTypeTXT:    "TXT",
	RRTypeAAAA:   "AAAA",
	RRTypeSRV:    "SRV",
	RRTypeNAPTR:  "NAPTR",
	RRTypeA6:     "A6",
	RRTypeDNAME:  "DNAME",
	RRTypeOPT:    "OPT",
	RRTypeDS:     "DS",
	RRTypeRRSIG:  "RRSIG",
	RRTypeNSEC:   "NSEC",
	RRTypeDNSKEY: "DNSKEY",
	RRTypeANY:    "ANY",
}

// Mnemonic returns the fixed textual mnemonic for t, and false if t falls
// outside the table. Logging is the only consumer; decoding never fails
// because of an unrecognized type.
func (t RRType) Mnemonic() (string, bool) {
	m, ok := mnemonics[t]
	return m, ok
}

// String renders the mnemonic if known, else "UNKNOWN(<n>)".
func (t RRType) String() string {
	if m, ok := t.Mnemonic(); ok {
		return m
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint16(t))
}
