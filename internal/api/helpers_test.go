package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"learnhub/m/internal/auth"
	"learnhub/m/internal/config"
	"learnhub/m/internal/logging"
	"learnhub/m/internal/mail"
	"learnhub/m/internal/pdf"
	"learnhub/m/internal/seed"
	"learnhub/m/internal/service"
	"learnhub/m/internal/store"
	"learnhub/m/internal/testutil"
	"learnhub/m/internal/upload"
)

const (
	testSecret    = "test-secret"
	adminEmail    = "admin@example.com"
	adminPassword = "admin-pass"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (f *fakeSender) Send(ctx context.Context, msg mail.Message) (mail.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return mail.SendResult{}, f.err
	}
	f.sent = append(f.sent, msg)
	return mail.SendResult{MessageID: fmt.Sprintf("<%d@example.com>", len(f.sent)), Accepted: msg.To, Rejected: []string{}}, nil
}

type fakeRenderer struct {
	html string
	err  error
}

func (f *fakeRenderer) HTMLToPDF(ctx context.Context, html string, opts pdf.Options) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.html = html
	return []byte("%PDF-1.4 test"), nil
}

func (f *fakeRenderer) URLToPDF(ctx context.Context, url string, opts pdf.Options) ([]byte, error) {
	return nil, errors.New("not used")
}

type testAPI struct {
	t         *testing.T
	router    http.Handler
	mailer    *fakeSender
	renderer  *fakeRenderer
	uploadDir string
	tokens    *auth.TokenIssuer
}

// newTestAPI wires the real services over a migrated in-memory database
// with fakes for mail and PDF rendering. An ADMIN account is seeded.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db := testutil.OpenDB(t)
	log := logging.Discard()

	users := store.NewUserRepository(db)
	require.NoError(t, seed.Admin(context.Background(), users, config.SeedAdminConfig{
		Email:    adminEmail,
		Password: adminPassword,
		Name:     "Admin",
	}, log))

	tokens := auth.NewTokenIssuer(testSecret, auth.DefaultTokenTTL)
	dir := t.TempDir()
	disk, err := upload.NewDiskStorage(dir)
	require.NoError(t, err)

	a := &testAPI{
		t:         t,
		mailer:    &fakeSender{},
		renderer:  &fakeRenderer{},
		uploadDir: dir,
		tokens:    tokens,
	}
	h := New(Options{
		Auth:    service.NewAuthService(users, tokens, log),
		Courses: service.NewCourseService(store.NewCourseRepository(db), log),
		Mailer:  a.mailer,
		PDF:     a.renderer,
		Uploads: upload.NewUploader(disk, upload.Policy{
			AllowedMIMEs: []string{"image/jpeg", "image/png", "application/pdf"},
			MaxBytes:     1024,
		}),
		UploadDir: dir,
		Logger:    log,
	})
	a.router = h.Router()
	return a
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(a.t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

type testFile struct {
	field       string
	name        string
	contentType string
	body        string
}

func (a *testAPI) upload(path, token string, files ...testFile) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.field, f.name))
		header.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(header)
		require.NoError(a.t, err)
		_, err = part.Write([]byte(f.body))
		require.NoError(a.t, err)
	}
	require.NoError(a.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// register creates a user and returns its id and a fresh token.
func (a *testAPI) register(name, email, password string) (int64, string) {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/auth/register", "", map[string]any{"name": name, "email": email, "password": password})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return a.login(email, password)
}

func (a *testAPI) login(email, password string) (int64, string) {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		User struct {
			ID int64 `json:"id"`
		} `json:"user"`
		Token string `json:"token"`
	}
	decode(a.t, rec, &res)
	return res.User.ID, res.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

func messageOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	decode(t, rec, &body)
	return body.Message
}
