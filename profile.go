package accounts

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// onProfile serves the logged-in user's profile.  GET returns the account
// and profile as JSON; POST applies a ProfileForm update.
func (a *Accounts) onProfile(w http.ResponseWriter, r *http.Request) {
	userId := a.Middleware.GetLoggedInUserId(r)
	account, err := a.UserStore.GetAccountById(userId)
	if err != nil {
		http.Error(w, `{"error": "User not found"}`, http.StatusUnauthorized)
		return
	}
	profile, err := a.UserStore.GetProfile(userId)
	if err != nil {
		log.Println("error loading profile: ", err)
		http.Error(w, `{"error": "Profile unavailable"}`, http.StatusInternalServerError)
		return
	}

	if r.Method == http.MethodGet {
		payload := map[string]any{
			"account": account,
			"profile": profile,
		}
		if a.GeobaseStore != nil && profile.GeobaseID != 0 {
			if loc, err := a.GeobaseStore.GetById(profile.GeobaseID); err == nil {
				payload["location"] = loc
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(payload)
		return
	}

	form, err := BindProfileForm(r)
	if err != nil {
		writeFieldErrors(w, FieldErrors{NewAuthError("parse_error", err.Error(), "")})
		return
	}
	if !form.Validate(a.Languages) {
		writeFieldErrors(w, form.Errors)
		return
	}

	if form.Language != "" {
		profile.Language = form.Language
	}
	if form.ParsedGender != 0 {
		profile.Gender = form.ParsedGender
	}
	if form.ParsedBirthDate != nil {
		profile.BirthDate = form.ParsedBirthDate
	}
	if form.ParsedPhone != "" {
		profile.Phone = form.ParsedPhone
	}

	// Location updates resolve through the geocoder, best effort
	if form.Location != "" && a.Geobase != nil && a.GeobaseStore != nil {
		loc, err := a.Geobase.Geocode(r.Context(), form.Location)
		if err != nil {
			log.Println("geocoding failed: ", err)
		} else if loc, err = a.GeobaseStore.Ensure(loc); err != nil {
			log.Println("error saving geobase entry: ", err)
		} else {
			profile.GeobaseID = loc.ID
		}
	}

	profile.UpdatedAt = time.Now()
	if err := a.UserStore.SaveProfile(profile); err != nil {
		log.Println("error saving profile: ", err)
		http.Error(w, `{"error": "Could not save profile"}`, http.StatusInternalServerError)
		return
	}

	writeSuccess(w, "Profile updated", nil)
}

// onProfileChangePassword changes the password of a logged-in user.  Unlike
// the emailed reset flow this one demands the current password.
func (a *Accounts) onProfileChangePassword(w http.ResponseWriter, r *http.Request) {
	userId := a.Middleware.GetLoggedInUserId(r)
	account, err := a.UserStore.GetAccountById(userId)
	if err != nil {
		http.Error(w, `{"error": "User not found"}`, http.StatusUnauthorized)
		return
	}

	fields, err := parseFields(r, "current_password", "password1", "password2")
	if err != nil {
		writeFieldErrors(w, FieldErrors{NewAuthError("parse_error", err.Error(), "")})
		return
	}

	current := strings.TrimSpace(fields["current_password"])
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(current)) != nil {
		writeFieldErrors(w, FieldErrors{
			NewAuthError(ErrCodeInvalidCreds, "Current password is incorrect.", "current_password"),
		})
		return
	}

	form := &ChangePasswordForm{
		Password1: strings.TrimSpace(fields["password1"]),
		Password2: strings.TrimSpace(fields["password2"]),
	}
	if !form.Validate() {
		writeFieldErrors(w, form.Errors)
		return
	}

	passwordHash, err := hashPassword(form.Password1)
	if err != nil {
		log.Println("error hashing password: ", err)
		http.Error(w, `{"error": "Could not update password"}`, http.StatusInternalServerError)
		return
	}
	account.PasswordHash = passwordHash
	account.UpdatedAt = time.Now()
	if err := a.UserStore.SaveAccount(account); err != nil {
		log.Println("error saving account: ", err)
		http.Error(w, `{"error": "Could not update password"}`, http.StatusInternalServerError)
		return
	}
	log.Printf("Password changed for user %s", account.Username)

	writeSuccess(w, "Password updated", nil)
}
