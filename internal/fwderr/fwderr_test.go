package fwderr

import (
	"errors"
	"testing"
)

func TestProtoErrUnwrapsToProtocol(t *testing.T) {
	err := NewProtocol("client", "unexpected Hello")
	if !errors.Is(err, Protocol) {
		t.Fatalf("expected errors.Is(err, Protocol), got %v", err)
	}
	var pe *ProtoErr
	if !errors.As(err, &pe) {
		t.Fatalf("expected errors.As to extract *ProtoErr, got %v", err)
	}
	if pe.Role != "client" || pe.Detail != "unexpected Hello" {
		t.Fatalf("unexpected fields: %+v", pe)
	}
}

func TestIOErrUnwrapsToUnderlyingError(t *testing.T) {
	underlying := errors.New("boom")
	err := NewIO("read frame", underlying)
	if !errors.Is(err, underlying) {
		t.Fatalf("expected errors.Is(err, underlying), got %v", err)
	}
}

func TestNewIONilIsNil(t *testing.T) {
	if NewIO("op", nil) != nil {
		t.Fatal("expected NewIO(op, nil) to return nil")
	}
}
