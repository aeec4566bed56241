//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/smartassist/apiserver/config"
	"github.com/smartassist/apiserver/internal/db"
	"github.com/smartassist/apiserver/internal/store"
	"github.com/smartassist/apiserver/types"
)

const password = "E2e!Passw0rd"

type tokenResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	User        types.User `json:"user"`
}

func TestAccountLifecycle(t *testing.T) {
	email := fmt.Sprintf("learner_%d@example.com", time.Now().UnixNano())

	var registered tokenResponse
	status := doJSON(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "name": "E2E Learner", "password": password,
	}, &registered)
	if status != http.StatusCreated {
		t.Fatalf("register status %d", status)
	}
	if registered.User.Role != types.RoleUser {
		t.Fatalf("unexpected role: %q", registered.User.Role)
	}

	var login tokenResponse
	if status := doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": password,
	}, &login); status != http.StatusOK {
		t.Fatalf("login status %d", status)
	}

	if status := doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": "Wrong!pass1",
	}, nil); status != http.StatusUnauthorized {
		t.Fatalf("wrong password status %d", status)
	}

	var profile types.User
	if status := doJSON(t, http.MethodGet, "/api/auth/profile", login.AccessToken, nil, &profile); status != http.StatusOK {
		t.Fatalf("profile status %d", status)
	}
	if profile.ID != registered.User.ID {
		t.Fatalf("profile id %d, want %d", profile.ID, registered.User.ID)
	}

	if status := doJSON(t, http.MethodGet, "/api/admin/users", login.AccessToken, nil, nil); status != http.StatusForbidden {
		t.Fatalf("admin list as user status %d", status)
	}

	if err := promote(email); err != nil {
		t.Fatalf("promote user: %v", err)
	}

	// The stored role is authoritative, so the old token now grants admin.
	if status := doJSON(t, http.MethodGet, "/api/admin/users", login.AccessToken, nil, nil); status != http.StatusOK {
		t.Fatalf("admin list as admin status %d", status)
	}

	if status := doJSON(t, http.MethodDelete, "/api/auth/account", login.AccessToken, nil, nil); status != http.StatusOK {
		t.Fatalf("delete account status %d", status)
	}
	if status := doJSON(t, http.MethodGet, "/api/auth/profile", login.AccessToken, nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("profile after delete status %d", status)
	}
}

func TestChatbotAnswersFromFAQ(t *testing.T) {
	admin := registerAdmin(t)

	var faq types.FAQ
	if status := doJSON(t, http.MethodPost, "/api/faqs/", admin, map[string]string{
		"question": "How do I reset my password?",
		"answer":   "Use the reset link on the login page.",
		"category": "account",
	}, &faq); status != http.StatusCreated {
		t.Fatalf("create faq status %d", status)
	}

	var chat types.ChatLog
	if status := doJSON(t, http.MethodPost, "/api/chatbot/query", "", map[string]string{
		"question": "I forgot my password, how to reset it?",
	}, &chat); status != http.StatusCreated {
		t.Fatalf("chatbot query status %d", status)
	}
	if chat.UserID != nil {
		t.Fatalf("guest chat should have no user id")
	}
	if chat.Answer != faq.Answer {
		t.Fatalf("unexpected answer: %q", chat.Answer)
	}

	if status := doJSON(t, http.MethodPost, fmt.Sprintf("/api/chatbot/%d/feedback", chat.ID), "", map[string]int{
		"rating": 5,
	}, nil); status != http.StatusOK {
		t.Fatalf("feedback status %d", status)
	}

	if status := doJSON(t, http.MethodDelete, fmt.Sprintf("/api/faqs/%d", faq.ID), admin, nil, nil); status != http.StatusOK {
		t.Fatalf("delete faq status %d", status)
	}
	if status := doJSON(t, http.MethodGet, fmt.Sprintf("/api/faqs/%d", faq.ID), "", nil, nil); status != http.StatusNotFound {
		t.Fatalf("get deactivated faq status %d", status)
	}
}

func TestResumeUploadAndDownload(t *testing.T) {
	email := fmt.Sprintf("resume_%d@example.com", time.Now().UnixNano())
	var registered tokenResponse
	if status := doJSON(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "name": "Resume Owner", "password": password,
	}, &registered); status != http.StatusCreated {
		t.Fatalf("register status %d", status)
	}
	token := registered.AccessToken

	content := []byte("%PDF-1.4 e2e resume")
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("target_role", "Backend Engineer")
	part, err := writer.CreateFormFile("file", "resume.pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/resumes/", &body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("upload status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var resume types.Resume
	if err := json.NewDecoder(resp.Body).Decode(&resume); err != nil {
		t.Fatalf("decode resume: %v", err)
	}

	req, err = http.NewRequest(http.MethodGet, fmt.Sprintf("%s/api/resumes/%d/download", baseURL, resume.ID), nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	download, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer download.Body.Close()
	got, _ := io.ReadAll(download.Body)
	if download.StatusCode != http.StatusOK || !bytes.Equal(got, content) {
		t.Fatalf("download status %d, body %q", download.StatusCode, got)
	}

	if status := doJSON(t, http.MethodDelete, fmt.Sprintf("/api/resumes/%d", resume.ID), token, nil, nil); status != http.StatusOK {
		t.Fatalf("delete resume status %d", status)
	}
}

func registerAdmin(t *testing.T) string {
	t.Helper()

	email := fmt.Sprintf("admin_%d@example.com", time.Now().UnixNano())
	var registered tokenResponse
	if status := doJSON(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "name": "E2E Admin", "password": password,
	}, &registered); status != http.StatusCreated {
		t.Fatalf("register admin status %d", status)
	}
	if err := promote(email); err != nil {
		t.Fatalf("promote admin: %v", err)
	}
	return registered.AccessToken
}

func promote(email string) error {
	cfg := config.LoadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = store.NewUserRepository(conn).UpdateRoleByEmail(ctx, email, types.RoleAdmin)
	return err
}

// doJSON sends payload as JSON and decodes the response into out when the
// request succeeded. It returns the response status.
func doJSON(t *testing.T, method, path, token string, payload, out any) int {
	t.Helper()

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < http.StatusBadRequest {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}
