package protocol

import (
	"strconv"

	"github.com/google/gopacket/layers"
)

const unknownName = "UnknownIPProtocol"

// Name returns the IANA short name of an IP protocol number, e.g. "TCP" for 6.
// Numbers gopacket has no decoder for are rendered as "IP-<n>".
func Name(proto uint8) string {
	name := layers.IPProtocol(proto).String()
	if name == "" || name == unknownName {
		return "IP-" + strconv.Itoa(int(proto))
	}
	return name
}

// IsTransport reports whether proto carries ports (TCP, UDP or SCTP).
func IsTransport(proto uint8) bool {
	switch layers.IPProtocol(proto) {
	case layers.IPProtocolTCP, layers.IPProtocolUDP, layers.IPProtocolSCTP:
		return true
	}
	return false
}
