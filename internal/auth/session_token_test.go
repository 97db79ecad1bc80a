package auth_test

import (
	"testing"
	"time"

	"github.com/buildhubhq/buildhub/internal/auth"
)

func TestIssueAndVerify(t *testing.T) {
	m := auth.NewManager("test-secret", time.Hour)
	sid, did := auth.NewIDs()

	token, err := m.Issue(sid, did)

	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := m.Verify(token)

	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if claims.SID != sid || claims.DID != did {
		t.Fatalf("claims mismatch: got %+v", claims)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	m := auth.NewManager("test-secret", time.Hour)
	other := auth.NewManager("other-secret", time.Hour)

	sid, did := auth.NewIDs()
	token, err := m.Issue(sid, did)

	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := other.Verify(token); err == nil {
		t.Fatalf("token signed with a different secret must not verify")
	}
}

func TestVerifyAllowExpired(t *testing.T) {
	expired := auth.NewManager("test-secret", -time.Minute)
	sid, did := auth.NewIDs()

	token, err := expired.Issue(sid, did)

	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	fresh := auth.NewManager("test-secret", time.Hour)

	if _, err := fresh.Verify(token); err == nil {
		t.Fatalf("expired token must fail plain verification")
	}

	claims, err := fresh.VerifyAllowExpired(token)

	if err != nil {
		t.Fatalf("expired-but-authentic token should parse: %v", err)
	}

	if claims.DID != did {
		t.Fatalf("device ID lost: got %q, want %q", claims.DID, did)
	}
}

func TestVerifyAllowExpiredStillRejectsTampering(t *testing.T) {
	m := auth.NewManager("test-secret", -time.Minute)
	sid, did := auth.NewIDs()

	token, err := m.Issue(sid, did)

	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other := auth.NewManager("other-secret", time.Hour)

	if _, err := other.VerifyAllowExpired(token); err == nil {
		t.Fatalf("bad signature must never pass, even past expiry")
	}
}
