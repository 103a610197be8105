package accounts

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// onForgotPassword handles GET (form render) and POST (reset request).
// Only a user reference goes into the pending store, never account data.
func (a *Accounts) onForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<form method="POST">
	<label>Email: <input type="email" name="email" required></label>
	<button type="submit">Send Reset Link</button>
</form>`)
		return
	}

	form, err := BindForgotPasswordForm(r)
	if err != nil {
		writeFieldErrors(w, FieldErrors{NewAuthError("parse_error", err.Error(), "")})
		return
	}
	if !form.Validate(a.UserStore) {
		writeFieldErrors(w, form.Errors)
		return
	}

	if _, err := form.SendMail(a.UserStore, a.Pending, a.EmailSender, a.BaseURL, a.nextURL(r)); err != nil {
		log.Println("error sending reset email: ", err)
		http.Error(w, `{"error": "Could not send reset email"}`, http.StatusInternalServerError)
		return
	}

	writeSuccess(w, "A reset link has been sent to your email.", nil)
}

// onChangePassword serves the set-new-password step behind an emailed
// token.  GET only peeks at the token so the form can be rendered and
// reloaded; POST consumes it.
func (a *Accounts) onChangePassword(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	if r.Method == http.MethodGet {
		if _, err := a.Pending.Peek(token, FlowForgotPassword); err != nil {
			log.Println("change password token rejected: ", err)
			a.softFail(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<form method="POST">
	<label>New password: <input type="password" name="password1" autocomplete="new-password" required></label>
	<label>Confirm password: <input type="password" name="password2" autocomplete="new-password" required></label>
	<button type="submit">Set Password</button>
</form>`)
		return
	}

	form, err := BindChangePasswordForm(r)
	if err != nil {
		writeFieldErrors(w, FieldErrors{NewAuthError("parse_error", err.Error(), "")})
		return
	}
	if !form.Validate() {
		writeFieldErrors(w, form.Errors)
		return
	}

	action, err := a.Pending.Consume(token, FlowForgotPassword)
	if err != nil {
		log.Println("change password token rejected: ", err)
		a.softFail(w, r)
		return
	}

	account, err := a.UserStore.GetAccountById(action.UserID)
	if err != nil {
		log.Println("error loading account for reset: ", err)
		a.softFail(w, r)
		return
	}

	passwordHash, err := hashPassword(form.Password1)
	if err != nil {
		log.Println("error hashing password: ", err)
		a.softFail(w, r)
		return
	}
	account.PasswordHash = passwordHash
	account.UpdatedAt = time.Now()
	if err := a.UserStore.SaveAccount(account); err != nil {
		log.Println("error saving account: ", err)
		a.softFail(w, r)
		return
	}
	log.Printf("Password updated for user %s", account.Username)

	// The reset link doubles as proof of mailbox ownership, so log the
	// caller straight in
	a.setLoggedInUser(account, 0, w, r)

	http.Redirect(w, r, a.safeNext(action.Next), http.StatusFound)
}
