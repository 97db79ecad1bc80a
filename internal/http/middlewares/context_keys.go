package middlewares

const (
	CtxRequestID = "requestID"
	CtxSessionID = "sessionID"
	CtxDeviceID  = "deviceID"
)
