package middlewares

// gin context keys shared by the middleware chain and the error responders.
const (
	CtxRequestID = "request_id"
	CtxUserID    = "user_id"
	CtxUser      = "user"
)
