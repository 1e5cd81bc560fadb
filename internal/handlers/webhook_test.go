package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/chatwire/chatwire-backend/internal/logger"
)

type stubWebhookService struct {
	appSecret    string
	handleCalls  int
	handleResult string
}

func (s *stubWebhookService) VerifySubscription(mode, token, challenge string) (string, int) {
	if mode == "subscribe" && token == "verify-token" {
		return challenge, http.StatusOK
	}
	return "", http.StatusForbidden
}

func (s *stubWebhookService) VerifySignature(rawBody []byte, signatureHeader string) bool {
	mac := hmac.New(sha256.New, []byte(s.appSecret))
	mac.Write(rawBody)
	return signatureHeader == "sha256="+hex.EncodeToString(mac.Sum(nil))
}

func (s *stubWebhookService) HandleEvent(ctx context.Context, rawBody []byte) string {
	s.handleCalls++
	if s.handleResult == "" {
		return "processed"
	}
	return s.handleResult
}

func newWebhookRouter(svc *stubWebhookService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewWebhookHandler(logger.NewNop(), svc, "")
	router.GET("/webhook", handler.Verify)
	router.POST("/webhook", handler.Receive)
	return router
}

func TestVerify_EchoesChallenge(t *testing.T) {
	router := newWebhookRouter(&stubWebhookService{})

	tests := []struct {
		name  string
		query string
	}{
		{"dotted keys", "hub.mode=subscribe&hub.verify_token=verify-token&hub.challenge=12345"},
		{"underscore keys", "hub_mode=subscribe&hub_verify_token=verify-token&hub_challenge=12345"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/webhook?"+tt.query, nil)
			router.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
			}
			if w.Body.String() != "12345" {
				t.Fatalf("challenge not echoed verbatim: %q", w.Body.String())
			}
		})
	}
}

func TestVerify_WrongTokenForbidden(t *testing.T) {
	router := newWebhookRouter(&stubWebhookService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=1", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("unexpected status %d", w.Code)
	}
}

func TestReceive_ValidSignatureProcessed(t *testing.T) {
	svc := &stubWebhookService{appSecret: "secret"}
	router := newWebhookRouter(svc)

	body := []byte(`{"object":"whatsapp_business_account","entry":[]}`)
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write(body)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "processed") {
		t.Fatalf("unexpected body %q", w.Body.String())
	}
	if svc.handleCalls != 1 {
		t.Fatalf("expected 1 handled event got %d", svc.handleCalls)
	}
}

func TestReceive_BadSignatureRejectedWithoutProcessing(t *testing.T) {
	svc := &stubWebhookService{appSecret: "secret"}
	router := newWebhookRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`))
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("unexpected status %d", w.Code)
	}
	if svc.handleCalls != 0 {
		t.Fatal("rejected delivery must not be processed")
	}
}

func TestReceive_MissingSignatureRejected(t *testing.T) {
	svc := &stubWebhookService{appSecret: "secret"}
	router := newWebhookRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("unexpected status %d", w.Code)
	}
	if svc.handleCalls != 0 {
		t.Fatal("rejected delivery must not be processed")
	}
}
