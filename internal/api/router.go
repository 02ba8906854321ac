package api

import (
	"database/sql"
	"net/http"

	"github.com/vhnguyen/libra/internal/events"
	"github.com/vhnguyen/libra/internal/model"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, pub *events.Publisher) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	booksHandler := &BooksHandler{DB: db}
	copiesHandler := &CopiesHandler{DB: db}
	readersHandler := &ReadersHandler{DB: db}
	librariansHandler := &LibrariansHandler{DB: db}
	loansHandler := &LoansHandler{DB: db, Events: pub}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireLibrarian := RequireRole(model.RoleLibrarian)

	// Public: login.
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("PUT /api/v1/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/v1/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Accounts (admin only). Registration is open to staff so the front desk
	// can sign up walk-in readers.
	mux.Handle("GET /api/v1/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("GET /api/v1/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/v1/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("DELETE /api/v1/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))
	mux.Handle("POST /api/v1/users/register", authMW(requireAdmin(http.HandlerFunc(usersHandler.Register))))
	mux.Handle("POST /api/v1/users/register-reader", authMW(requireLibrarian(http.HandlerFunc(usersHandler.RegisterReader))))
	mux.Handle("POST /api/v1/users/register-staff", authMW(requireAdmin(http.HandlerFunc(usersHandler.RegisterStaff))))

	// Catalog: read (all roles), write (librarian+).
	mux.Handle("GET /api/v1/books", authMW(http.HandlerFunc(booksHandler.List)))
	mux.Handle("POST /api/v1/books", authMW(requireLibrarian(http.HandlerFunc(booksHandler.Create))))
	mux.Handle("GET /api/v1/books/{id}", authMW(http.HandlerFunc(booksHandler.Get)))
	mux.Handle("PUT /api/v1/books/{id}", authMW(requireLibrarian(http.HandlerFunc(booksHandler.Update))))
	mux.Handle("DELETE /api/v1/books/{id}", authMW(requireLibrarian(http.HandlerFunc(booksHandler.Delete))))
	mux.Handle("POST /api/v1/books/{id}/cover", authMW(requireLibrarian(http.HandlerFunc(booksHandler.UploadCover))))
	mux.Handle("GET /api/v1/books/{id}/cover", authMW(http.HandlerFunc(booksHandler.GetCover)))

	// Copies: read (all roles), write (librarian+).
	mux.Handle("POST /api/v1/book-copies/books/{bookId}", authMW(requireLibrarian(http.HandlerFunc(copiesHandler.Create))))
	mux.Handle("GET /api/v1/book-copies/books/{bookId}", authMW(http.HandlerFunc(copiesHandler.ListByBook)))
	mux.Handle("GET /api/v1/book-copies/{id}", authMW(http.HandlerFunc(copiesHandler.Get)))
	mux.Handle("PATCH /api/v1/book-copies/{id}/status", authMW(requireLibrarian(http.HandlerFunc(copiesHandler.UpdateStatus))))
	mux.Handle("DELETE /api/v1/book-copies/{id}", authMW(requireLibrarian(http.HandlerFunc(copiesHandler.Delete))))

	// Readers (librarian+).
	mux.Handle("GET /api/v1/readers", authMW(requireLibrarian(http.HandlerFunc(readersHandler.List))))
	mux.Handle("POST /api/v1/readers", authMW(requireLibrarian(http.HandlerFunc(readersHandler.Create))))
	mux.Handle("GET /api/v1/readers/{id}", authMW(requireLibrarian(http.HandlerFunc(readersHandler.Get))))
	mux.Handle("PUT /api/v1/readers/{id}", authMW(requireLibrarian(http.HandlerFunc(readersHandler.Update))))
	mux.Handle("DELETE /api/v1/readers/{id}", authMW(requireLibrarian(http.HandlerFunc(readersHandler.Delete))))

	// Staff profiles (admin only).
	mux.Handle("GET /api/v1/librarians", authMW(requireAdmin(http.HandlerFunc(librariansHandler.List))))
	mux.Handle("GET /api/v1/librarians/{id}", authMW(requireAdmin(http.HandlerFunc(librariansHandler.Get))))
	mux.Handle("PUT /api/v1/librarians/{id}", authMW(requireAdmin(http.HandlerFunc(librariansHandler.Update))))
	mux.Handle("DELETE /api/v1/librarians/{id}", authMW(requireAdmin(http.HandlerFunc(librariansHandler.Delete))))

	// Loans (librarian+).
	mux.Handle("POST /api/v1/loans", authMW(requireLibrarian(http.HandlerFunc(loansHandler.Create))))
	mux.Handle("GET /api/v1/loans/{id}", authMW(requireLibrarian(http.HandlerFunc(loansHandler.Get))))
	mux.Handle("POST /api/v1/loans/{id}/return", authMW(requireLibrarian(http.HandlerFunc(loansHandler.Return))))
	mux.Handle("GET /api/v1/loans/readers/{readerId}", authMW(http.HandlerFunc(loansHandler.ListByReader)))

	return mux
}
