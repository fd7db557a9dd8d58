package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// VisitorCookie identifies one browser across requests.
const VisitorCookie = "binaural_visitor"

// Visitor ensures every request carries a visitor id, issuing a cookie on
// first contact. Ids that do not parse as uuids are replaced.
func Visitor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(VisitorCookie); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil {
				id = c.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     VisitorCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx := context.WithValue(r.Context(), visitorKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetVisitor returns the id set by Visitor, or "".
func GetVisitor(ctx context.Context) string {
	id, _ := ctx.Value(visitorKey).(string)
	return id
}
