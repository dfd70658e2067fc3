package constants

const (
	ContentTypeJSON   = "application/json"
	ContentTypeHeader = "Content-Type"

	HeaderXRequestID       = "X-Request-ID"
	HeaderAppRequestID     = "X-Calliper-Request-ID"
	HeaderXForwardedFor    = "X-Forwarded-For"
	HeaderXRealIP          = "X-Real-IP"
	HeaderRateLimitLimit   = "X-RateLimit-Limit"
	HeaderRateLimitRemain  = "X-RateLimit-Remaining"
	HeaderRateLimitReset   = "X-RateLimit-Reset"
	HeaderRetryAfter       = "Retry-After"
	HeaderAuthorization    = "Authorization"
	BearerTokenPrefix      = "Bearer "
	ContextRequestIdKey    = "request_id"

	DefaultHealthCheckEndpoint = "/internal/health"
	DefaultVersionEndpoint     = "/version"
)

// Security violation types recorded by the metrics adapter
const (
	ViolationRateLimit   = "rate_limit"
	ViolationSizeLimit   = "size_limit"
	ViolationCSRF        = "csrf"
	ViolationContentType = "content_type"
	ViolationBodyParse   = "body_parse"
)
