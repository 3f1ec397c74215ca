package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnhub/m/domain"
	"learnhub/m/internal/auth"
	"learnhub/m/internal/logging"
)

func TestHealth(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRegister_Validation(t *testing.T) {
	a := newTestAPI(t)

	tests := []struct {
		name string
		body any
		want string
	}{
		{name: "malformed json", body: `{"email":`, want: "Invalid request body"},
		{name: "unknown field", body: `{"email":"x@example.com","password":"p","admin":true}`, want: "Invalid request body"},
		{name: "missing email", body: map[string]string{"password": "secret"}, want: "email is required"},
		{name: "bad email", body: map[string]string{"email": "nope", "password": "secret"}, want: "email must be a valid email address"},
		{name: "missing password", body: map[string]string{"email": "x@example.com"}, want: "password is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(http.MethodPost, "/api/auth/register", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, messageOf(t, rec))
		})
	}
}

func TestRegister_IgnoresRequestedRole(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "eve@example.com", "password": "eve-pass", "role": "ADMIN",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	_, token := a.login("eve@example.com", "eve-pass")
	rec = a.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"STUDENT"`)
}

func TestRegister_TrimsEmail(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "  zoe@example.com ", "password": "zoe-pass",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var user domain.PublicUser
	decode(t, rec, &user)
	assert.Equal(t, "zoe@example.com", user.Email)

	id, _ := a.login(" zoe@example.com", "zoe-pass")
	assert.Equal(t, user.ID, id)
}

func TestUsers(t *testing.T) {
	a := newTestAPI(t)
	id, token := a.register("Carol", "carol@example.com", "carol-pass")

	rec := a.do(http.MethodGet, "/api/auth/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodGet, "/api/auth/users", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []domain.PublicUser
	decode(t, rec, &users)
	assert.Len(t, users, 2)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = a.do(http.MethodGet, fmt.Sprintf("/api/auth/users/%d", id), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var user domain.PublicUser
	decode(t, rec, &user)
	assert.Equal(t, "carol@example.com", user.Email)

	rec = a.do(http.MethodGet, "/api/auth/users/99999", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", messageOf(t, rec))

	rec = a.do(http.MethodGet, "/api/auth/users/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCourses_BadInput(t *testing.T) {
	a := newTestAPI(t)
	_, token := a.register("Dan", "dan@example.com", "dan-pass")

	rec := a.do(http.MethodPost, "/api/courses", token, map[string]string{"description": "no title"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "title is required", messageOf(t, rec))

	rec = a.do(http.MethodGet, "/api/courses/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid course id", messageOf(t, rec))

	rec = a.do(http.MethodGet, "/api/courses/instructor/0", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/api/courses", token, map[string]string{"title": "Go"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var c courseBody
	decode(t, rec, &c)

	rec = a.do(http.MethodPut, fmt.Sprintf("/api/courses/%d", c.ID), token, map[string]string{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthenticate(t *testing.T) {
	a := newTestAPI(t)
	id, _ := a.register("Fay", "fay@example.com", "fay-pass")

	expired, err := auth.NewTokenIssuer(testSecret, auth.DefaultTokenTTL).
		WithClock(func() time.Time { return time.Now().Add(-48 * time.Hour) }).
		Issue(id, "fay@example.com")
	require.NoError(t, err)

	foreign, err := auth.NewTokenIssuer("another-secret", auth.DefaultTokenTTL).Issue(id, "fay@example.com")
	require.NoError(t, err)

	ghost, err := a.tokens.Issue(424242, "ghost@example.com")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "missing header", header: "", want: "Authentication required"},
		{name: "wrong scheme", header: "Basic Zm9vOmJhcg==", want: "Invalid token"},
		{name: "empty bearer", header: "Bearer ", want: "Invalid token"},
		{name: "expired", header: "Bearer " + expired, want: "Invalid token"},
		{name: "wrong key", header: "Bearer " + foreign, want: "Invalid token"},
		{name: "unknown subject", header: "Bearer " + ghost, want: "Invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			a.router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.want, messageOf(t, rec))
		})
	}
}

func TestAuthorize(t *testing.T) {
	h := New(Options{Logger: logging.Discard()})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	guarded := h.authorize(domain.RoleAdmin, domain.RoleInstructor)(next)

	serve := func(identity *domain.Identity) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if identity != nil {
			req = req.WithContext(withIdentity(req.Context(), *identity))
		}
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, req)
		return rec
	}

	rec := serve(nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(&domain.Identity{ID: 1, Role: domain.RoleStudent})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden", messageOf(t, rec))

	rec = serve(&domain.Identity{ID: 1, Role: domain.RoleInstructor})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSendMail(t *testing.T) {
	a := newTestAPI(t)
	_, student := a.register("Gus", "gus@example.com", "gus-pass")
	_, admin := a.login(adminEmail, adminPassword)

	body := map[string]any{"to": "a@example.com, b@example.com", "subject": "Hi", "text": "hello"}

	rec := a.do(http.MethodPost, "/api/mail/send", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, "/api/mail/send", student, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden", messageOf(t, rec))

	rec = a.do(http.MethodPost, "/api/mail/send", admin, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		MessageID string   `json:"messageId"`
		Accepted  []string `json:"accepted"`
		Rejected  []string `json:"rejected"`
	}
	decode(t, rec, &res)
	assert.NotEmpty(t, res.MessageID)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, res.Accepted)
	assert.Empty(t, res.Rejected)

	rec = a.do(http.MethodPost, "/api/mail/send", admin, map[string]any{
		"to": []string{"c@example.com"}, "subject": "Array", "html": "<p>hi</p>",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, a.mailer.sent, 2)
	assert.Equal(t, []string{"c@example.com"}, a.mailer.sent[1].To)
	assert.Equal(t, "<p>hi</p>", a.mailer.sent[1].HTML)

	rec = a.do(http.MethodPost, "/api/mail/send", admin, map[string]any{"to": "c@example.com", "text": "no subject"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "subject is required", messageOf(t, rec))

	rec = a.do(http.MethodPost, "/api/mail/send", admin, map[string]any{"to": 42, "subject": "x", "text": "y"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	a.mailer.err = errors.New("smtp: connection refused")
	rec = a.do(http.MethodPost, "/api/mail/send", admin, body)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Something went wrong", messageOf(t, rec))
}

func TestHTMLToPDF(t *testing.T) {
	a := newTestAPI(t)
	_, token := a.register("Hal", "hal@example.com", "hal-pass")

	rec := a.do(http.MethodPost, "/api/pdf/from-html", token, map[string]string{"html": "<h1>Report</h1>", "fileName": "report.pdf"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=report.pdf`, rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
	assert.Equal(t, "<h1>Report</h1>", a.renderer.html)

	rec = a.do(http.MethodPost, "/api/pdf/from-html", token, map[string]string{"html": "<p>x</p>"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "document.pdf")

	rec = a.do(http.MethodPost, "/api/pdf/from-html", token, map[string]string{"fileName": "x.pdf"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "html is required", messageOf(t, rec))

	a.renderer.err = errors.New("chrome crashed")
	rec = a.do(http.MethodPost, "/api/pdf/from-html", token, map[string]string{"html": "<p>x</p>"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Something went wrong", messageOf(t, rec))
}

func TestPDFName(t *testing.T) {
	assert.Equal(t, "document.pdf", pdfName(""))
	assert.Equal(t, "report.pdf", pdfName("report.pdf"))
	assert.Equal(t, "passwd", pdfName("../../etc/passwd"))
	assert.Equal(t, "evil.pdf", pdfName(`C:\tmp\evil.pdf`))
}

func TestUploads(t *testing.T) {
	a := newTestAPI(t)
	_, token := a.register("Ivy", "ivy@example.com", "ivy-pass")

	rec := a.upload("/api/uploads/single", "", testFile{field: "file", name: "a.png", contentType: "image/png", body: "png"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.upload("/api/uploads/single", token, testFile{field: "file", name: "My Photo.PNG", contentType: "image/png", body: "png-bytes"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var single struct {
		File struct {
			FieldName    string `json:"fieldname"`
			OriginalName string `json:"originalname"`
			Filename     string `json:"filename"`
			Size         int64  `json:"size"`
		} `json:"file"`
		URL string `json:"url"`
	}
	decode(t, rec, &single)
	assert.Equal(t, "file", single.File.FieldName)
	assert.Equal(t, "My Photo.PNG", single.File.OriginalName)
	assert.True(t, strings.HasSuffix(single.File.Filename, "_my_photo.png"), single.File.Filename)
	assert.EqualValues(t, len("png-bytes"), single.File.Size)
	assert.Equal(t, "/uploads/"+single.File.Filename, single.URL)

	rec = a.do(http.MethodGet, single.URL, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png-bytes", rec.Body.String())

	rec = a.upload("/api/uploads/single", token, testFile{field: "file", name: "notes.txt", contentType: "text/plain", body: "hi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Unsupported file type: text/plain", messageOf(t, rec))

	rec = a.upload("/api/uploads/single", token, testFile{field: "file", name: "big.png", contentType: "image/png", body: strings.Repeat("x", 2048)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.upload("/api/uploads/single", token, testFile{field: "other", name: "a.png", contentType: "image/png", body: "png"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.upload("/api/uploads/multi", token,
		testFile{field: "files", name: "one.jpg", contentType: "image/jpeg", body: "1"},
		testFile{field: "files", name: "two.pdf", contentType: "application/pdf", body: "2"},
	)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var multi struct {
		Count int `json:"count"`
		Files []struct {
			URL string `json:"url"`
		} `json:"files"`
	}
	decode(t, rec, &multi)
	assert.Equal(t, 2, multi.Count)
	require.Len(t, multi.Files, 2)
	assert.True(t, strings.HasPrefix(multi.Files[0].URL, "/uploads/"))

	// Same name twice in one request.
	before := countFiles(t, a.uploadDir)
	rec = a.upload("/api/uploads/multi", token,
		testFile{field: "files", name: "a.png", contentType: "image/png", body: "first"},
		testFile{field: "files", name: "a.png", contentType: "image/png", body: "second"},
	)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var dup struct {
		Count int `json:"count"`
		Files []struct {
			Filename string `json:"filename"`
			URL      string `json:"url"`
		} `json:"files"`
	}
	decode(t, rec, &dup)
	require.Equal(t, 2, dup.Count)
	assert.NotEqual(t, dup.Files[0].Filename, dup.Files[1].Filename)
	assert.Equal(t, before+2, countFiles(t, a.uploadDir))

	rec = a.do(http.MethodGet, dup.Files[1].URL, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "second", rec.Body.String())

	// One bad file rejects the whole request and stores nothing.
	before = countFiles(t, a.uploadDir)
	rec = a.upload("/api/uploads/multi", token,
		testFile{field: "files", name: "b.png", contentType: "image/png", body: "png"},
		testFile{field: "files", name: "c.exe", contentType: "application/x-msdownload", body: "MZ"},
	)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Unsupported file type: application/x-msdownload", messageOf(t, rec))
	assert.Equal(t, before, countFiles(t, a.uploadDir))

	many := make([]testFile, 11)
	for i := range many {
		many[i] = testFile{field: "files", name: fmt.Sprintf("f%d.png", i), contentType: "image/png", body: "x"}
	}
	rec = a.upload("/api/uploads/multi", token, many...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Too many files: at most 10 allowed", messageOf(t, rec))
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}
