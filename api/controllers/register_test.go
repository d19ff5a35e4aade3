package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/dagym/contract-backend/internal/auth"
	"github.com/dagym/contract-backend/internal/users"
	"github.com/dagym/contract-backend/pkg/enums"
	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
)

type stubRegisterService struct {
	user *users.UserDTO
	err  error
	got  auth.RegisterRequest
}

func (s *stubRegisterService) Register(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	s.got = req
	return s.user, s.err
}

func TestOperatorCreateSuccess(t *testing.T) {
	user := &users.UserDTO{ID: uuid.New(), Email: "kim@example.com", Name: "김운영", Role: enums.OperatorRoleUser, IsActive: true}
	reg := &stubRegisterService{user: user}
	handler := OperatorCreate(reg, nil)

	body := []byte(`{"email":"kim@example.com","name":"김운영","password":"Secret123!","role":"user"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/operators", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if reg.got.Email != "kim@example.com" || reg.got.Role != enums.OperatorRoleUser {
		t.Fatalf("unexpected request forwarded %#v", reg.got)
	}

	var envelope struct {
		Data users.UserDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != user.ID {
		t.Fatalf("expected user id %s got %s", user.ID, envelope.Data.ID)
	}
}

func TestOperatorCreateRejectsUnknownFields(t *testing.T) {
	reg := &stubRegisterService{}
	handler := OperatorCreate(reg, nil)

	body := []byte(`{"email":"kim@example.com","name":"김운영","password":"Secret123!","store_id":"x"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/operators", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestOperatorCreatePropagatesError(t *testing.T) {
	reg := &stubRegisterService{err: pkgerrors.New(pkgerrors.CodeConflict, "email already registered")}
	handler := OperatorCreate(reg, nil)

	body := []byte(`{"email":"kim@example.com","name":"김운영","password":"Secret123!"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/operators", bytes.NewReader(body))
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}
