package upstream

import "fmt"

// NewTransport builds the Transport selected by transportType against
// upstream. If doh is selected and upstream was left at its UDP-relay
// default, upstream is rewritten to DefaultDoHURL (sec. 6).
func NewTransport(transportType TransportType, upstream string) (Transport, error) {
	switch transportType {
	case TransportUDP:
		return NewUDPTransport(upstream), nil
	case TransportDoH:
		if upstream == DefaultUpstreamHost {
			upstream = DefaultDoHURL
		}
		return NewDoHTransport(upstream), nil
	default:
		return nil, fmt.Errorf("unsupported transport type: %s", transportType)
	}
}
