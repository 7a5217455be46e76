package middleware

import "testing"

func TestIPLimiterBurstThenDeny(t *testing.T) {
	limiter := NewIPLimiter(1, 3)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("10.0.0.1") {
			t.Fatalf("request %d within burst was denied", i+1)
		}
	}
	if limiter.Allow("10.0.0.1") {
		t.Error("request over burst was allowed")
	}
}

func TestIPLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewIPLimiter(1, 1)

	if !limiter.Allow("10.0.0.1") {
		t.Fatal("first key denied")
	}
	if limiter.Allow("10.0.0.1") {
		t.Error("first key allowed over burst")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Error("second key throttled by first key's bucket")
	}
}
