package backend

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func decodeBody(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("invalid JSON %q: %v", body, err)
	}
	return out
}

func TestAccountFlow(t *testing.T) {
	e := newTestServer(t)

	rec := serve(e, jsonRequest(http.MethodPost, "/register", `{"email":"ann@example.com","name":"Ann","password":"secret"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec.Body.Bytes())["message"]; got != "User registered successfully" {
		t.Errorf("register: unexpected message %v", got)
	}

	rec = serve(e, jsonRequest(http.MethodPost, "/register", `{"email":"ann@example.com","name":"Ann","password":"secret"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register: expected 400, got %d", rec.Code)
	}
	if got := decodeBody(t, rec.Body.Bytes())["error"]; got != "User already exists" {
		t.Errorf("duplicate register: unexpected error %v", got)
	}

	rec = serve(e, jsonRequest(http.MethodPost, "/login", `{"email":"ann@example.com","password":"secret"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var login loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil {
		t.Fatalf("login: invalid JSON: %v", err)
	}
	if login.SessionID == "" || login.User.Email != "ann@example.com" || login.User.Name != "Ann" {
		t.Fatalf("login: unexpected response %+v", login)
	}

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/user-info?sessionId="+login.SessionID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("user-info: expected 200, got %d", rec.Code)
	}
	var info userInfoResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("user-info: invalid JSON: %v", err)
	}
	if info.User.Name != "Ann" {
		t.Errorf("user-info: unexpected user %+v", info.User)
	}

	rec = serve(e, jsonRequest(http.MethodPost, "/logout", `{"sessionId":"`+login.SessionID+`"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rec.Code)
	}

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/user-info?sessionId="+login.SessionID, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("user-info after logout: expected 404, got %d", rec.Code)
	}
	if got := decodeBody(t, rec.Body.Bytes())["error"]; got != "User not found or session expired" {
		t.Errorf("user-info after logout: unexpected error %v", got)
	}

	rec = serve(e, jsonRequest(http.MethodPost, "/logout", `{"sessionId":"`+login.SessionID+`"}`))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("second logout: expected 400, got %d", rec.Code)
	}
}

func TestAccountValidation(t *testing.T) {
	e := newTestServer(t)

	tests := []struct {
		name      string
		req       *http.Request
		wantCode  int
		wantError string
	}{
		{"register missing fields", jsonRequest(http.MethodPost, "/register", `{"email":"a@example.com"}`), http.StatusBadRequest, "All fields are required"},
		{"register invalid email", jsonRequest(http.MethodPost, "/register", `{"email":"not-an-email","name":"A","password":"p"}`), http.StatusBadRequest, "Invalid email address"},
		{"register password too long", jsonRequest(http.MethodPost, "/register", `{"email":"b@example.com","name":"B","password":"`+strings.Repeat("p", 80)+`"}`), http.StatusBadRequest, "Password must be at most 72 bytes"},
		{"register malformed body", jsonRequest(http.MethodPost, "/register", `{"email":`), http.StatusBadRequest, "Invalid request body"},
		{"login unknown user", jsonRequest(http.MethodPost, "/login", `{"email":"x@example.com","password":"p"}`), http.StatusBadRequest, "Invalid email or password"},
		{"login missing fields", jsonRequest(http.MethodPost, "/login", `{}`), http.StatusBadRequest, "Email and password are required"},
		{"user-info without session", httptest.NewRequest(http.MethodGet, "/user-info", nil), http.StatusBadRequest, "Session ID is required"},
		{"logout without session", jsonRequest(http.MethodPost, "/logout", `{}`), http.StatusBadRequest, "Session ID is required"},
		{"forgot without email", jsonRequest(http.MethodPost, "/forgot-password", `{}`), http.StatusBadRequest, "Email is required"},
		{"reset with bad token", jsonRequest(http.MethodPost, "/reset-password", `{"token":"abc","password":"p"}`), http.StatusBadRequest, "Invalid or expired token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, tt.req)
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			if got := decodeBody(t, rec.Body.Bytes())["error"]; got != tt.wantError {
				t.Errorf("expected error %q, got %v", tt.wantError, got)
			}
		})
	}
}

func TestForgotPassword_GenericResponse(t *testing.T) {
	e := newTestServer(t)

	rec := serve(e, jsonRequest(http.MethodPost, "/forgot-password", `{"email":"nobody@example.com"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decodeBody(t, rec.Body.Bytes())["message"]; got != "If the email is registered, a reset link has been sent." {
		t.Errorf("unexpected message %v", got)
	}
}
