package middleware

import (
	"net/http"
	"strings"
)

// operatorPrefixes lists the paths reserved for a logged-in operator. The
// kiosk screen and its API stay public.
var operatorPrefixes = []string{
	"/api/purchases",
	"/logs/",
	"/operator",
}

// AuthMiddleware sprawdza, czy operator jest zalogowany (ma cookie 'authenticated=true')
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isOperatorPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie("authenticated")
		if err != nil || cookie.Value != "true" {
			// Zapytania AJAX/API dostają 401
			if r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
				r.Header.Get("Content-Type") == "application/json" ||
				strings.HasPrefix(r.URL.Path, "/api/") {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			// Dla zwykłych żądań przekieruj na login
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isOperatorPath(path string) bool {
	for _, prefix := range operatorPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
