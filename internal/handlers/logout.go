package handlers

import (
	"net/http"
)

// LogoutHandler clears the authentication cookie and redirects to the login page.
func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   "authenticated",
		Value:  "",
		Path:   "/",
		MaxAge: -1, // usuwa cookie
	})

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
