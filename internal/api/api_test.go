package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/vhnguyen/libra/internal/auth"
	"github.com/vhnguyen/libra/internal/db"
	"github.com/vhnguyen/libra/internal/model"
	"github.com/vhnguyen/libra/internal/store"
)

const testJWTSecret = "test-secret"

func setupTestServer(t *testing.T) (*httptest.Server, *sql.DB) {
	t.Helper()
	database := db.NewTestDB(t)
	router := NewRouter(database, testJWTSecret, nil)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, database
}

// createUserToken creates an account with the given role and returns a valid
// token for it.
func createUserToken(t *testing.T, database *sql.DB, username, role string) string {
	t.Helper()
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	user, err := store.CreateUser(ctx, database, username, string(hash), username, role, "")
	if err != nil {
		t.Fatalf("creating %s user: %v", role, err)
	}
	token, err := auth.GenerateToken(testJWTSecret, user.ID, username, role)
	if err != nil {
		t.Fatalf("generating token: %v", err)
	}
	return token
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func doJSON(t *testing.T, req *http.Request, wantStatus int, target any) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: expected %d, got %d", req.Method, req.URL.Path, wantStatus, resp.StatusCode)
	}
	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
}

func TestLoginEndpoint(t *testing.T) {
	server, database := setupTestServer(t)
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	store.CreateUser(ctx, database, "admin", string(hash), "Admin", model.RoleAdmin, "")

	// Valid credentials.
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "password"})
	resp, err := http.Post(server.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}
	var login struct {
		Token string      `json:"token"`
		User  *model.User `json:"user"`
	}
	json.NewDecoder(resp.Body).Decode(&login)
	resp.Body.Close()
	if login.Token == "" {
		t.Fatal("empty token from login")
	}

	// Wrong password.
	body, _ = json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ = http.Post(server.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLoginLockedAccount(t *testing.T) {
	server, database := setupTestServer(t)
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	store.CreateUser(ctx, database, "locked", string(hash), "Locked", model.RoleReader, model.UserStatusLocked)

	body, _ := json.Marshal(map[string]string{"username": "locked", "password": "password"})
	resp, _ := http.Post(server.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for locked account, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLogoutRevokesToken(t *testing.T) {
	server, database := setupTestServer(t)
	token := createUserToken(t, database, "staff", model.RoleLibrarian)

	req, _ := authRequest("POST", server.URL+"/api/v1/auth/logout", token, nil)
	doJSON(t, req, http.StatusOK, nil)

	// The same token no longer works.
	req, _ = authRequest("GET", server.URL+"/api/v1/books", token, nil)
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUnauthenticatedAccess(t *testing.T) {
	server, _ := setupTestServer(t)

	resp, _ := http.Get(server.URL + "/api/v1/books")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRoleBasedAccess(t *testing.T) {
	server, database := setupTestServer(t)
	readerToken := createUserToken(t, database, "member", model.RoleReader)

	// Readers can browse the catalog.
	req, _ := authRequest("GET", server.URL+"/api/v1/books", readerToken, nil)
	doJSON(t, req, http.StatusOK, nil)

	// But cannot create books (librarian+ required).
	req, _ = authRequest("POST", server.URL+"/api/v1/books", readerToken, map[string]string{
		"title": "Nope", "isbn": "x",
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for reader creating book, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// And cannot list accounts (admin only).
	req, _ = authRequest("GET", server.URL+"/api/v1/users", readerToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for reader listing users, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestBooksAPIFlow(t *testing.T) {
	server, database := setupTestServer(t)
	token := createUserToken(t, database, "staff", model.RoleLibrarian)

	// Create book.
	var book model.Book
	req, _ := authRequest("POST", server.URL+"/api/v1/books", token, map[string]any{
		"title":    "The Go Programming Language",
		"isbn":     "978-0134190440",
		"authors":  []string{"Alan Donovan"},
		"max_days": 21,
	})
	doJSON(t, req, http.StatusCreated, &book)
	if book.ID == 0 {
		t.Fatal("expected book id")
	}

	// Missing title is rejected by validation.
	req, _ = authRequest("POST", server.URL+"/api/v1/books", token, map[string]string{"isbn": "no-title"})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for missing title, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// List wraps results with pagination.
	var list struct {
		Data       []model.Book `json:"data"`
		Pagination Pagination   `json:"pagination"`
	}
	req, _ = authRequest("GET", server.URL+"/api/v1/books", token, nil)
	doJSON(t, req, http.StatusOK, &list)
	if len(list.Data) != 1 || list.Pagination.TotalItems != 1 {
		t.Errorf("expected 1 book, got %+v", list.Pagination)
	}

	// Malformed id reads as not found.
	req, _ = authRequest("GET", server.URL+"/api/v1/books/not-a-number", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for malformed id, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLoanAPIFlow(t *testing.T) {
	server, database := setupTestServer(t)
	ctx := context.Background()
	token := createUserToken(t, database, "staff", model.RoleLibrarian)

	book, _ := store.CreateBook(ctx, database, store.BookInput{Title: "Loanable", ISBN: "l-1"})
	c, _ := store.AddCopy(ctx, database, book.ID, store.CopyInput{Barcode: "L-1-A"})
	reader, _ := store.CreateReader(ctx, database, store.ReaderInput{
		FullName: "Member", Email: "member@example.com",
	}, nil)

	// Borrow.
	var l model.Loan
	req, _ := authRequest("POST", server.URL+"/api/v1/loans", token, map[string]any{
		"reader_id": reader.ID,
		"items":     []int64{c.ID},
	})
	doJSON(t, req, http.StatusCreated, &l)
	if l.Status != model.LoanStatusOngoing || len(l.Items) != 1 {
		t.Fatalf("unexpected loan %+v", l)
	}

	// The copy can't be borrowed twice.
	req, _ = authRequest("POST", server.URL+"/api/v1/loans", token, map[string]any{
		"reader_id": reader.ID,
		"items":     []int64{c.ID},
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unavailable copy, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Return.
	var returned model.Loan
	req, _ = authRequest("POST", fmt.Sprintf("%s/api/v1/loans/%d/return", server.URL, l.ID), token, map[string]any{
		"return_details": []map[string]any{{"book_copy_id": c.ID, "condition": model.ConditionGood}},
	})
	doJSON(t, req, http.StatusOK, &returned)
	if returned.Status != model.LoanStatusReturned {
		t.Errorf("expected RETURNED, got %q", returned.Status)
	}

	// Loan history for the reader.
	var history struct {
		Data []model.Loan `json:"data"`
	}
	req, _ = authRequest("GET", fmt.Sprintf("%s/api/v1/loans/readers/%d", server.URL, reader.ID), token, nil)
	doJSON(t, req, http.StatusOK, &history)
	if len(history.Data) != 1 {
		t.Errorf("expected 1 loan in history, got %d", len(history.Data))
	}

	// Unknown reader on loan creation maps to 404.
	req, _ = authRequest("POST", server.URL+"/api/v1/loans", token, map[string]any{
		"reader_id": 999,
		"items":     []int64{c.ID},
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown reader, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRegisterReaderEndpoint(t *testing.T) {
	server, database := setupTestServer(t)
	token := createUserToken(t, database, "staff", model.RoleLibrarian)

	var reg store.Registration
	req, _ := authRequest("POST", server.URL+"/api/v1/users/register-reader", token, map[string]string{
		"username":  "newmember",
		"password":  "password123",
		"full_name": "New Member",
		"email":     "new@example.com",
	})
	doJSON(t, req, http.StatusCreated, &reg)
	if reg.Account == nil || reg.Account.Role != model.RoleReader {
		t.Fatalf("expected READER account, got %+v", reg.Account)
	}
	if reg.Reader == nil || reg.Reader.Card.Number == "" {
		t.Fatalf("expected reader profile with card, got %+v", reg.Reader)
	}

	// Short password is rejected.
	req, _ = authRequest("POST", server.URL+"/api/v1/users/register-reader", token, map[string]string{
		"username":  "other",
		"password":  "short",
		"full_name": "Other",
		"email":     "other@example.com",
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for short password, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Duplicate username conflicts.
	req, _ = authRequest("POST", server.URL+"/api/v1/users/register-reader", token, map[string]string{
		"username":  "newmember",
		"password":  "password123",
		"full_name": "Clone",
		"email":     "clone@example.com",
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for duplicate username, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRegisterUserEndpoint(t *testing.T) {
	server, database := setupTestServer(t)
	admin := createUserToken(t, database, "boss", model.RoleAdmin)

	// Bare account, no profile, role defaults to READER.
	var user model.User
	req, _ := authRequest("POST", server.URL+"/api/v1/users/register", admin, map[string]string{
		"username":  "plain",
		"password":  "password123",
		"full_name": "Plain Account",
	})
	doJSON(t, req, http.StatusCreated, &user)
	if user.Role != model.RoleReader {
		t.Errorf("expected READER default, got %q", user.Role)
	}

	// Explicit role.
	req, _ = authRequest("POST", server.URL+"/api/v1/users/register", admin, map[string]string{
		"username":  "deskstaff",
		"password":  "password123",
		"full_name": "Desk Staff",
		"role":      model.RoleLibrarian,
	})
	doJSON(t, req, http.StatusCreated, &user)
	if user.Role != model.RoleLibrarian {
		t.Errorf("expected LIBRARIAN, got %q", user.Role)
	}

	// Admin only.
	staff := createUserToken(t, database, "staff", model.RoleLibrarian)
	req, _ = authRequest("POST", server.URL+"/api/v1/users/register", staff, map[string]string{
		"username":  "sneaky",
		"password":  "password123",
		"full_name": "Sneaky",
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for non-admin, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Duplicate username conflicts.
	req, _ = authRequest("POST", server.URL+"/api/v1/users/register", admin, map[string]string{
		"username":  "plain",
		"password":  "password123",
		"full_name": "Clone",
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for duplicate username, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCopiesAPIFlow(t *testing.T) {
	server, database := setupTestServer(t)
	ctx := context.Background()
	token := createUserToken(t, database, "staff", model.RoleLibrarian)

	book, _ := store.CreateBook(ctx, database, store.BookInput{Title: "Copied", ISBN: "cp-1"})

	var c model.Copy
	req, _ := authRequest("POST", fmt.Sprintf("%s/api/v1/book-copies/books/%d", server.URL, book.ID), token,
		map[string]string{"barcode": "CP-1-A", "location": "Shelf 3"})
	doJSON(t, req, http.StatusCreated, &c)
	if c.Status != model.CopyStatusAvailable {
		t.Errorf("expected AVAILABLE, got %q", c.Status)
	}

	// Status change.
	var updated model.Copy
	req, _ = authRequest("PATCH", fmt.Sprintf("%s/api/v1/book-copies/%d/status", server.URL, c.ID), token,
		map[string]string{"status": model.CopyStatusDamaged, "note": "water damage"})
	doJSON(t, req, http.StatusOK, &updated)
	if updated.Status != model.CopyStatusDamaged {
		t.Errorf("expected DAMAGED, got %q", updated.Status)
	}

	// Bad status rejected.
	req, _ = authRequest("PATCH", fmt.Sprintf("%s/api/v1/book-copies/%d/status", server.URL, c.ID), token,
		map[string]string{"status": "SOGGY"})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for bad status, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
