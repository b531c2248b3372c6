package ratelimit

// MetadataKey is the operation metadata key hosts read to decide whether an
// HTTP endpoint is subject to rate limiting. A value of false opts the endpoint out.
const MetadataKey = "rateLimit"
