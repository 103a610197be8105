package accounts

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// onSignup handles GET (form render) and POST (registration submission).
// A valid submission does NOT create the user: the cleaned field set is
// parked in the pending store and a confirmation link is emailed.
func (a *Accounts) onSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<form method="POST">
	<label>Username: <input type="text" name="username" required></label>
	<label>Last name: <input type="text" name="last_name" required></label>
	<label>First name: <input type="text" name="first_name" required></label>
	<label>Email: <input type="email" name="email" required></label>
	<label>Password: <input type="password" name="password1" autocomplete="new-password" required></label>
	<label>Confirm password: <input type="password" name="password2" autocomplete="new-password" required></label>
	<button type="submit">Sign up</button>
</form>`)
		return
	}

	form, err := BindSignupForm(r)
	if err != nil {
		writeFieldErrors(w, FieldErrors{NewAuthError("parse_error", err.Error(), "")})
		return
	}
	if !form.Validate(a.UserStore) {
		writeFieldErrors(w, form.Errors)
		return
	}

	if _, err := form.Confirmation(a.Pending, a.EmailSender, a.BaseURL, a.nextURL(r)); err != nil {
		log.Println("error starting signup confirmation: ", err)
		http.Error(w, `{"error": "Could not send confirmation email"}`, http.StatusInternalServerError)
		return
	}

	a.Flash(r, "Please check your email to confirm your account.")
	http.Redirect(w, r, a.LoginURL, http.StatusFound)
}

// onConfirmEmail finalizes a pending signup.  The token is single-use: the
// consume below atomically removes it, so replaying the link lands on the
// login surface.
func (a *Accounts) onConfirmEmail(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	action, err := a.Pending.Consume(token, FlowSignup)
	if err != nil {
		log.Println("confirm email token rejected: ", err)
		a.softFail(w, r)
		return
	}

	username, _ := action.Data["username"].(string)
	firstName, _ := action.Data["first_name"].(string)
	lastName, _ := action.Data["last_name"].(string)
	email, _ := action.Data["email"].(string)
	password, _ := action.Data["password"].(string)

	// The pending window is long enough for someone else to have claimed
	// the username or email in the meantime
	if err := CheckUsernameAvailable(a.UserStore, username); err != nil {
		a.Flash(r, err.Message)
		a.softFail(w, r)
		return
	}
	if err := CheckEmailAvailable(a.UserStore, email); err != nil {
		a.Flash(r, err.Message)
		a.softFail(w, r)
		return
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		log.Println("error hashing password: ", err)
		a.softFail(w, r)
		return
	}

	account := &Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	profile := &Profile{
		UserID:   account.ID,
		Language: a.DefaultLanguage(),
	}
	if err := a.UserStore.CreateAccount(account, profile); err != nil {
		log.Println("error creating account: ", err)
		a.softFail(w, r)
		return
	}
	log.Printf("Created account %s (%s)", account.Username, account.ID)

	a.setLoggedInUser(account, 0, w, r)
	a.attachGeolocation(r, profile)

	http.Redirect(w, r, a.safeNext(action.Next), http.StatusFound)
}

// attachGeolocation resolves the caller's address and stores the location
// on the profile.  Best effort only: failures are logged and swallowed.
func (a *Accounts) attachGeolocation(r *http.Request, profile *Profile) {
	if a.Geobase == nil || a.GeobaseStore == nil {
		return
	}
	loc, err := a.Geobase.DetectByIP(r.Context(), clientIP(r))
	if err != nil {
		log.Println("geolocation lookup failed: ", err)
		return
	}
	loc, err = a.GeobaseStore.Ensure(loc)
	if err != nil {
		log.Println("error saving geobase entry: ", err)
		return
	}
	profile.GeobaseID = loc.ID
	if err := a.UserStore.SaveProfile(profile); err != nil {
		log.Println("error saving profile geolocation: ", err)
	}
}
