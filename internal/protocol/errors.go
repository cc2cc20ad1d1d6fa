package protocol

const (
	// Transport/handshake validation.
	ErrBadRequest   = "E_BAD_REQUEST"
	ErrProtoVersion = "E_PROTO_VERSION"

	// Entity construction and configuration.
	ErrBadColor     = "E_BAD_COLOR"
	ErrBadEnergy    = "E_BAD_ENERGY"
	ErrCapacity     = "E_CAPACITY"
	ErrUnknownBrain = "E_UNKNOWN_BRAIN"

	// Persistence.
	ErrBadSnapshot  = "E_BAD_SNAPSHOT"
	ErrConnEndpoint = "E_CONN_ENDPOINT"

	// Internal consistency.
	ErrInvariant = "E_INVARIANT"
)

var knownCodes = map[string]struct{}{
	ErrBadRequest:   {},
	ErrProtoVersion: {},
	ErrBadColor:     {},
	ErrBadEnergy:    {},
	ErrCapacity:     {},
	ErrUnknownBrain: {},
	ErrBadSnapshot:  {},
	ErrConnEndpoint: {},
	ErrInvariant:    {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
