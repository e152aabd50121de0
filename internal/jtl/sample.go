package jtl

// Sample is a single result row from a JMeter JTL log.
type Sample struct {
	Timestamp    int64  // epoch millis at request start
	Elapsed      int64  // response time in millis
	Label        string // sampler name
	ResponseCode string
	Success      bool
}

// End returns the epoch millis at which the sample finished.
func (s Sample) End() int64 {
	return s.Timestamp + s.Elapsed
}

// IsServerError reports whether the response code is in the 5xx class.
// JTL response codes are free text, so any value starting with "5" counts.
func (s Sample) IsServerError() bool {
	return len(s.ResponseCode) > 0 && s.ResponseCode[0] == '5'
}
