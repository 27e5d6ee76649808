package abi

// Int and Uint are the host's native integer types (ngx_int_t, ngx_uint_t).
type (
	Int  int
	Uint uint
)

// Result codes shared by every host routine and callback.
const (
	OK       Int = 0
	Error    Int = -1
	Again    Int = -2
	Busy     Int = -3
	Done     Int = -4
	Declined Int = -5
	Abort    Int = -6
)

// HTTP status codes as the host spells them. Handlers may return any of
// these (or any other positive code) in place of a result code.
const (
	HTTPContinue           Uint = 100
	HTTPSwitchingProtocols Uint = 101

	HTTPOK              Uint = 200
	HTTPCreated         Uint = 201
	HTTPAccepted        Uint = 202
	HTTPNoContent       Uint = 204
	HTTPPartialContent  Uint = 206
	HTTPSpecialResponse Uint = 300

	HTTPMovedPermanently  Uint = 301
	HTTPMovedTemporarily  Uint = 302
	HTTPSeeOther          Uint = 303
	HTTPNotModified       Uint = 304
	HTTPTemporaryRedirect Uint = 307
	HTTPPermanentRedirect Uint = 308

	HTTPBadRequest            Uint = 400
	HTTPUnauthorized          Uint = 401
	HTTPForbidden             Uint = 403
	HTTPNotFound              Uint = 404
	HTTPNotAllowed            Uint = 405
	HTTPRequestTimeOut        Uint = 408
	HTTPConflict              Uint = 409
	HTTPLengthRequired        Uint = 411
	HTTPPreconditionFailed    Uint = 412
	HTTPRequestEntityTooLarge Uint = 413
	HTTPRequestURITooLarge    Uint = 414
	HTTPUnsupportedMediaType  Uint = 415
	HTTPTooManyRequests       Uint = 429
	HTTPClientClosedRequest   Uint = 499

	HTTPInternalServerError Uint = 500
	HTTPNotImplemented      Uint = 501
	HTTPBadGateway          Uint = 502
	HTTPServiceUnavailable  Uint = 503
	HTTPGatewayTimeOut      Uint = 504
	HTTPInsufficientStorage Uint = 507
)

// Phase identifies a request-processing phase that accepts module handlers.
type Phase Uint

const (
	PhasePostRead Phase = iota
	PhaseAccess
	PhaseContent
	PhaseLog

	PhaseCount
)

func (p Phase) String() string {
	switch p {
	case PhasePostRead:
		return "post-read"
	case PhaseAccess:
		return "access"
	case PhaseContent:
		return "content"
	case PhaseLog:
		return "log"
	default:
		return "unknown"
	}
}

// Directive context flags: the blocks a directive may appear in.
const (
	HTTPMainConf Uint = 0x02000000
	HTTPSrvConf  Uint = 0x04000000
	HTTPLocConf  Uint = 0x08000000

	ConfContextMask Uint = HTTPMainConf | HTTPSrvConf | HTTPLocConf
	HTTPAnyConf     Uint = HTTPMainConf | HTTPSrvConf | HTTPLocConf
)

// Directive argument flags.
const (
	ConfNoArgs Uint = 0x00000001
	ConfTake1  Uint = 0x00000002
	ConfTake2  Uint = 0x00000004
	ConfTake3  Uint = 0x00000008
	ConfTake12 Uint = ConfTake1 | ConfTake2
	ConfTake13 Uint = ConfTake1 | ConfTake3
	ConfTake23 Uint = ConfTake2 | ConfTake3
	ConfFlag   Uint = 0x00000200
	Conf1More  Uint = 0x00000800
	Conf2More  Uint = 0x00001000

	ConfArgsMask Uint = 0x0000ffff
)

// ConfOffset selects which of a module's records a directive writes to.
type ConfOffset Uint

const (
	HTTPMainConfOffset ConfOffset = iota
	HTTPSrvConfOffset
	HTTPLocConfOffset
)

// MaxSubrequestDepth bounds subrequest nesting.
const MaxSubrequestDepth = 50
