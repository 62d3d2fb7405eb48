package handler

import (
	"context"
	"net/http"

	"github.com/Pedroca011/finflow-dashboard/internal/service"
)

// UserIDHeader carries the caller's id, set by the authenticating gateway.
const UserIDHeader = "X-User-ID"

type userKey struct{}

// requireUser rejects requests without a well-formed user id and stores the
// id in the request context.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(UserIDHeader)
		if id == "" {
			WriteError(w, http.StatusUnauthorized, "unauthorized", UserIDHeader+" header is required")
			return
		}
		if err := service.ValidateUserID(id); err != nil {
			WriteError(w, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, id)))
	})
}

// userID returns the id stored by requireUser.
func userID(r *http.Request) string {
	id, _ := r.Context().Value(userKey{}).(string)
	return id
}
