package webhook

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"testing"
	"time"
)

var testSecret = "whsec_" + base64.StdEncoding.EncodeToString([]byte("read-master-test-signing-key"))

func fixedVerifier(secret string, now time.Time) *Verifier {
	v := NewVerifier(secret, 0)
	v.now = func() time.Time { return now }
	return v
}

func signedHeaders(t *testing.T, v *Verifier, id string, ts time.Time, body []byte) http.Header {
	t.Helper()
	sig, err := v.Sign(id, ts, body)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	h := http.Header{}
	h.Set(HeaderID, id)
	h.Set(HeaderTimestamp, strconv.FormatInt(ts.Unix(), 10))
	h.Set(HeaderSignature, sig)
	return h
}

func TestVerifyValidSignature(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := fixedVerifier(testSecret, now)
	body := []byte(`{}`)

	h := signedHeaders(t, v, "msg_123", now, body)
	if !v.Verify(body, h) {
		t.Fatal("expected valid signature to verify")
	}
}

func TestVerifyAcceptsAnyMatchingPair(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := fixedVerifier(testSecret, now)
	body := []byte(`{"type":"user.created"}`)

	h := signedHeaders(t, v, "msg_1", now, body)
	h.Set(HeaderSignature, "v1,bm90LXRoaXMtb25l garbage "+h.Get(HeaderSignature))
	if !v.Verify(body, h) {
		t.Fatal("expected one matching v1 pair to suffice")
	}
}

func TestVerifyRejections(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := fixedVerifier(testSecret, now)
	body := []byte(`{}`)

	tests := []struct {
		name   string
		mutate func(h http.Header)
	}{
		{"missing id", func(h http.Header) { h.Del(HeaderID) }},
		{"missing timestamp", func(h http.Header) { h.Del(HeaderTimestamp) }},
		{"missing signature", func(h http.Header) { h.Del(HeaderSignature) }},
		{"non-numeric timestamp", func(h http.Header) { h.Set(HeaderTimestamp, "yesterday") }},
		{"wrong version", func(h http.Header) {
			h.Set(HeaderSignature, "v2,"+h.Get(HeaderSignature)[len("v1,"):])
		}},
		{"pair without comma", func(h http.Header) { h.Set(HeaderSignature, "v1") }},
		{"tampered signature", func(h http.Header) { h.Set(HeaderSignature, "v1,AAAA") }},
		{"different id", func(h http.Header) { h.Set(HeaderID, "msg_other") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := signedHeaders(t, v, "msg_123", now, body)
			tt.mutate(h)
			if v.Verify(body, h) {
				t.Fatal("expected verification to fail")
			}
		})
	}
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := fixedVerifier(testSecret, now)
	h := signedHeaders(t, v, "msg_123", now, []byte(`{}`))
	if v.Verify([]byte(`{"a":1}`), h) {
		t.Fatal("expected tampered body to fail")
	}
}

func TestVerifyTimestampWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := fixedVerifier(testSecret, now)
	body := []byte(`{}`)

	tests := []struct {
		offset time.Duration
		want   bool
	}{
		{0, true},
		{-300 * time.Second, true},
		{300 * time.Second, true},
		{-301 * time.Second, false},
		{301 * time.Second, false},
		{-time.Hour, false},
	}
	for _, tt := range tests {
		h := signedHeaders(t, v, "msg_123", now.Add(tt.offset), body)
		if got := v.Verify(body, h); got != tt.want {
			t.Errorf("offset %v: Verify = %v, want %v", tt.offset, got, tt.want)
		}
	}
}

func TestVerifyUnconfiguredFailsClosed(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	signer := fixedVerifier(testSecret, now)
	h := signedHeaders(t, signer, "msg_123", now, []byte(`{}`))

	v := fixedVerifier("", now)
	if v.Configured() {
		t.Fatal("expected verifier without secret to report unconfigured")
	}
	if v.Verify([]byte(`{}`), h) {
		t.Fatal("expected unconfigured verifier to reject")
	}
}

func TestVerifyRejectsUndecodableSecret(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := fixedVerifier("whsec_%%%not-base64", now)
	h := http.Header{}
	h.Set(HeaderID, "msg_123")
	h.Set(HeaderTimestamp, strconv.FormatInt(now.Unix(), 10))
	h.Set(HeaderSignature, "v1,AAAA")
	if v.Verify([]byte(`{}`), h) {
		t.Fatal("expected undecodable secret to reject")
	}
}
