package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest  = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion     = "E_PROTO_VERSION"
	ErrProtoUnknownType = "E_PROTO_UNKNOWN_TYPE"
	ErrTooLarge         = "E_TOO_LARGE"

	// Request layer.
	ErrBadRequest     = "E_BAD_REQUEST"
	ErrSchema         = "E_SCHEMA"
	ErrUnknownStyle   = "E_UNKNOWN_STYLE"
	ErrUnknownStage   = "E_UNKNOWN_STAGE"
	ErrEmptyStructure = "E_EMPTY_STRUCTURE"
	ErrRateLimit      = "E_RATE_LIMIT"
	ErrInternal       = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:  {},
	ErrProtoVersion:     {},
	ErrProtoUnknownType: {},
	ErrTooLarge:         {},
	ErrBadRequest:       {},
	ErrSchema:           {},
	ErrUnknownStyle:     {},
	ErrUnknownStage:     {},
	ErrEmptyStructure:   {},
	ErrRateLimit:        {},
	ErrInternal:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
