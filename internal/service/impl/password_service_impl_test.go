package impl

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestPasswordHashAndVerify(t *testing.T) {
	ps := NewPasswordServiceArgon2id()

	cred, err := ps.Hash("hunter22")
	if err != nil {
		t.Fatalf("hash returned error: %v", err)
	}
	if cred.Algo != "argon2id" {
		t.Fatalf("unexpected algo: %q", cred.Algo)
	}
	if len(cred.Hash) == 0 || len(cred.Salt) == 0 {
		t.Fatalf("hash or salt empty: %+v", cred)
	}

	if rehash, ok := ps.Verify("hunter22", cred); !ok || rehash {
		t.Fatalf("expected match without rehash, got ok=%v rehash=%v", ok, rehash)
	}
	if _, ok := ps.Verify("wrong-password", cred); ok {
		t.Fatalf("expected mismatch for wrong password")
	}
}

func TestPasswordHashUniqueSalts(t *testing.T) {
	ps := NewPasswordServiceArgon2id()

	a, err := ps.Hash("same-password")
	if err != nil {
		t.Fatalf("hash returned error: %v", err)
	}
	b, err := ps.Hash("same-password")
	if err != nil {
		t.Fatalf("hash returned error: %v", err)
	}
	if bytes.Equal(a.Salt, b.Salt) {
		t.Fatalf("salts should differ between hashes")
	}
	if bytes.Equal(a.Hash, b.Hash) {
		t.Fatalf("hashes should differ with different salts")
	}
}

func TestPasswordVerifyFlagsStaleParams(t *testing.T) {
	ps := NewPasswordServiceArgon2id()

	cred, err := ps.Hash("hunter22")
	if err != nil {
		t.Fatalf("hash returned error: %v", err)
	}

	// Weaken the stored params and recompute, as if hashed under an old policy.
	old := ps.cur
	old.Time = 1
	paramsJSON, err := json.Marshal(old)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	weak := NewPasswordServiceArgon2id()
	weak.cur = old
	stale, err := weak.Hash("hunter22")
	if err != nil {
		t.Fatalf("hash returned error: %v", err)
	}
	stale.ParamsJSON = paramsJSON

	rehash, ok := ps.Verify("hunter22", stale)
	if !ok {
		t.Fatalf("expected stale credential to still verify")
	}
	if !rehash {
		t.Fatalf("expected rehash flag for stale params")
	}

	if rehash, ok := ps.Verify("hunter22", cred); !ok || rehash {
		t.Fatalf("fresh credential should not need rehash, got ok=%v rehash=%v", ok, rehash)
	}
}

func TestPasswordHashRejectsEmpty(t *testing.T) {
	ps := NewPasswordServiceArgon2id()
	if _, err := ps.Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
}

func TestPasswordVerifyRejectsCorruptCredential(t *testing.T) {
	ps := NewPasswordServiceArgon2id()
	cred, err := ps.Hash("hunter22")
	if err != nil {
		t.Fatalf("hash returned error: %v", err)
	}
	cred.ParamsJSON = []byte("{not json")
	if _, ok := ps.Verify("hunter22", cred); ok {
		t.Fatalf("expected verify to fail on corrupt params")
	}
	if _, ok := ps.Verify("hunter22", nil); ok {
		t.Fatalf("expected verify to fail on nil credential")
	}
}
