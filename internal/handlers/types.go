package handlers

// CheckLimitRequest is the request for checking a key against the limiter.
type CheckLimitRequest struct {
	Key string `doc:"The rate limit key" example:"client-42" maxLength:"256" minLength:"1" path:"key"`
}

// CheckLimitResponse reports the decision. Status is 200 when allowed and 429 when denied.
type CheckLimitResponse struct {
	Status     int
	RetryAfter string `doc:"Seconds until the key is admitted again" header:"Retry-After"`
	Body       struct {
		Allowed          bool  `doc:"Whether the request may proceed"          json:"allowed"`
		TillNextWindowMs int64 `doc:"Milliseconds until the current window ends" json:"tillNextWindowMs"`
	}
}

// ResetLimitRequest is the request for clearing a key's state.
type ResetLimitRequest struct {
	Key string `doc:"The rate limit key" example:"client-42" maxLength:"256" minLength:"1" path:"key"`
}

// PingResponse is the response of the rate-limited ping endpoint.
type PingResponse struct {
	Body struct {
		Message string `example:"pong" json:"message"`
	}
}
