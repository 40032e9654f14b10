package values

type contextKey string

const (
	Success        = "success"
	Created        = "created"
	Error          = "error"
	Failed         = "failed"
	BadRequestBody = "bad-request-body"
	Unprocessable  = "unprocessable"
	NotAllowed     = "not-allowed"
	Conflict       = "conflict"
	NotFound       = "not-found"
	NotAuthorised  = "not-authorised"
	TokenExpired   = "token-expired"
	Unavailable    = "unavailable"

	SystemErr = "something went wrong"
)

const (
	HeaderRequestSource = "X-Request-Source"
	HeaderRequestID     = "X-Request-ID"
)

const (
	ContextTracingKey contextKey = "tracing"
	ContextUserIDKey  contextKey = "user_id"
	ContextRoleKey    contextKey = "role"
)

const (
	RoleCitizen   = "citizen"
	RoleAuthority = "authority"
	RoleAdmin     = "admin"
)
