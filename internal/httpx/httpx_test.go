package httpx

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/brightsmile-dental/clinic-platform/internal/apperr"
)

func TestWriteErrorTagged(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, apperr.New(apperr.KindConflict, "slot already booked"))

	if rr.Code != 409 {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	var body ErrorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body.Code != "conflict" || body.Error != "slot already booked" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestWriteErrorUntaggedIsOpaque(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, errors.New("pq: connection refused"))

	if rr.Code != 500 {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var body ErrorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body.Error != "internal error" || body.Code != "internal" {
		t.Fatalf("internal detail leaked: %+v", body)
	}
}
