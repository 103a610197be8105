package accounts

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// parseFields reads the named fields from either a urlencoded/multipart form
// body or a JSON body, depending on Content-Type
func parseFields(r *http.Request, names ...string) (map[string]string, error) {
	out := map[string]string{}
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "application/json") {
		var data map[string]any
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil || data == nil {
			return nil, fmt.Errorf("invalid post body")
		}
		for _, name := range names {
			if v, ok := data[name].(string); ok {
				out[name] = v
			} else if b, ok := data[name].(bool); ok && b {
				out[name] = "on"
			}
		}
		return out, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("error parsing form")
	}
	for _, name := range names {
		out[name] = r.FormValue(name)
	}
	return out, nil
}

// SignupForm binds and validates the registration field set
type SignupForm struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
	Password1 string
	Password2 string

	Errors FieldErrors
}

// BindSignupForm parses the request body into a SignupForm
func BindSignupForm(r *http.Request) (*SignupForm, error) {
	fields, err := parseFields(r, "username", "first_name", "last_name", "email", "password1", "password2")
	if err != nil {
		return nil, err
	}
	return &SignupForm{
		Username:  fields["username"],
		FirstName: strings.TrimSpace(fields["first_name"]),
		LastName:  strings.TrimSpace(fields["last_name"]),
		Email:     fields["email"],
		Password1: strings.TrimSpace(fields["password1"]),
		Password2: strings.TrimSpace(fields["password2"]),
	}, nil
}

// Validate normalizes all fields and accumulates per-field errors.  The
// duplicate checks hit the user store; everything else is pure.
func (f *SignupForm) Validate(store UserStore) bool {
	f.Errors = nil

	if f.Username == "" {
		f.Errors.add(ErrCodeMissingField, "Username is required", "username")
	} else if username, err := NormalizeUsername(f.Username); err != nil {
		f.Errors = append(f.Errors, err)
	} else {
		f.Username = username
		if err := CheckUsernameAvailable(store, username); err != nil {
			f.Errors = append(f.Errors, err)
		}
	}

	if f.LastName == "" {
		f.Errors.add(ErrCodeMissingField, "Last name is required", "last_name")
	}
	if f.FirstName == "" {
		f.Errors.add(ErrCodeMissingField, "First name is required", "first_name")
	}

	if f.Email == "" {
		f.Errors.add(ErrCodeMissingField, "Email is required", "email")
	} else if email, err := NormalizeEmail(f.Email); err != nil {
		f.Errors = append(f.Errors, err)
	} else {
		f.Email = email
		if err := CheckEmailAvailable(store, email); err != nil {
			f.Errors = append(f.Errors, err)
		}
	}

	if err := ValidatePassword(f.Password1); err != nil {
		err.Field = "password1"
		f.Errors = append(f.Errors, err)
	} else if f.Password2 == "" {
		f.Errors.add(ErrCodeMissingField, "Confirm password is required", "password2")
	} else if f.Password1 != f.Password2 {
		f.Errors.add(ErrCodePasswordMismatch, "The two password fields didn't match.", "password2")
	}

	return f.Errors.Empty()
}

// Confirmation stashes the cleaned field set as a pending signup and emails
// the confirmation link.  Returns the minted token.
func (f *SignupForm) Confirmation(pending PendingStore, sender EmailSender, baseURL, next string) (string, error) {
	if next == "" {
		next = "/"
	}
	action := &PendingAction{
		Flow:  FlowSignup,
		Email: f.Email,
		Next:  next,
		Data: map[string]any{
			"username":   f.Username,
			"first_name": f.FirstName,
			"last_name":  f.LastName,
			"email":      f.Email,
			"password":   f.Password1,
		},
	}

	token, err := pending.Create(action, PendingExpirySignup)
	if err != nil {
		return "", fmt.Errorf("error creating pending signup: %w", err)
	}

	confirmationLink := fmt.Sprintf("%s/confirm/email/%s/", strings.TrimSuffix(baseURL, "/"), token)
	if err := sender.SendConfirmationEmail(f.Email, confirmationLink); err != nil {
		return "", fmt.Errorf("error sending confirmation email: %w", err)
	}

	return token, nil
}

// LoginForm binds the login field set
type LoginForm struct {
	Username string
	Password string
	Remember bool

	Errors FieldErrors
}

// BindLoginForm parses the request body into a LoginForm.  A username
// containing "@" is treated as an email and resolved to the account's
// username when such an account exists.
func BindLoginForm(r *http.Request, store UserStore) (*LoginForm, error) {
	fields, err := parseFields(r, "username", "password", "remember")
	if err != nil {
		return nil, err
	}

	form := &LoginForm{
		Username: strings.ToLower(strings.TrimSpace(fields["username"])),
		Password: strings.TrimSpace(fields["password"]),
		Remember: fields["remember"] == "on" || fields["remember"] == "true",
	}

	if strings.Contains(form.Username, "@") {
		if account, err := store.GetAccountByEmail(form.Username); err == nil {
			form.Username = account.Username
		}
	}

	return form, nil
}

// Validate checks that both fields are present
func (f *LoginForm) Validate() bool {
	f.Errors = nil
	if f.Username == "" {
		f.Errors.add(ErrCodeMissingField, "Username is required", "username")
	}
	if f.Password == "" {
		f.Errors.add(ErrCodeMissingField, "Password is required", "password")
	}
	return f.Errors.Empty()
}

// ForgotPasswordForm binds the forgot-password field set
type ForgotPasswordForm struct {
	Email string

	Errors FieldErrors
}

func BindForgotPasswordForm(r *http.Request) (*ForgotPasswordForm, error) {
	fields, err := parseFields(r, "email")
	if err != nil {
		return nil, err
	}
	return &ForgotPasswordForm{Email: fields["email"]}, nil
}

// Validate requires a syntactically valid email belonging to a known account
func (f *ForgotPasswordForm) Validate(store UserStore) bool {
	f.Errors = nil
	if f.Email == "" {
		f.Errors.add(ErrCodeMissingField, "Email is required", "email")
		return false
	}
	email, err := NormalizeEmail(f.Email)
	if err != nil {
		f.Errors = append(f.Errors, err)
		return false
	}
	f.Email = email
	if err := CheckEmailExists(store, email); err != nil {
		f.Errors = append(f.Errors, err)
	}
	return f.Errors.Empty()
}

// SendMail stashes a reset reference for the account and emails the link.
// Only the user reference goes into the pending store, never the field set.
func (f *ForgotPasswordForm) SendMail(store UserStore, pending PendingStore, sender EmailSender, baseURL, next string) (string, error) {
	account, err := store.GetAccountByEmail(f.Email)
	if err != nil {
		return "", fmt.Errorf("account not found for %s: %w", f.Email, err)
	}
	if next == "" {
		next = "/"
	}

	action := &PendingAction{
		Flow:   FlowForgotPassword,
		UserID: account.ID,
		Email:  account.Email,
		Next:   next,
	}
	token, err := pending.Create(action, PendingExpiryForgotPassword)
	if err != nil {
		return "", fmt.Errorf("error creating pending reset: %w", err)
	}

	resetLink := fmt.Sprintf("%s/change/password/%s/", strings.TrimSuffix(baseURL, "/"), token)
	if err := sender.SendPasswordResetEmail(account.Email, resetLink); err != nil {
		return "", fmt.Errorf("error sending reset email: %w", err)
	}

	return token, nil
}

// ChangePasswordForm binds the set-new-password field set
type ChangePasswordForm struct {
	Password1 string
	Password2 string

	Errors FieldErrors
}

func BindChangePasswordForm(r *http.Request) (*ChangePasswordForm, error) {
	fields, err := parseFields(r, "password1", "password2")
	if err != nil {
		return nil, err
	}
	return &ChangePasswordForm{
		Password1: strings.TrimSpace(fields["password1"]),
		Password2: strings.TrimSpace(fields["password2"]),
	}, nil
}

func (f *ChangePasswordForm) Validate() bool {
	f.Errors = nil
	if err := ValidatePassword(f.Password1); err != nil {
		err.Field = "password1"
		f.Errors = append(f.Errors, err)
	} else if f.Password1 != f.Password2 {
		f.Errors.add(ErrCodePasswordMismatch, "The two password fields didn't match.", "password2")
	}
	return f.Errors.Empty()
}

// ProfileForm binds the profile update field set.  All fields are optional;
// empty values leave the stored value untouched.
type ProfileForm struct {
	Language  string
	Gender    string
	BirthDate string
	Phone     string
	Location  string // free-form place name, resolved via the geocoder

	// Parsed values, populated by Validate
	ParsedGender    int
	ParsedBirthDate *time.Time
	ParsedPhone     string

	Errors FieldErrors
}

func BindProfileForm(r *http.Request) (*ProfileForm, error) {
	fields, err := parseFields(r, "language", "gender", "birth_date", "phone", "location")
	if err != nil {
		return nil, err
	}
	return &ProfileForm{
		Language:  strings.TrimSpace(fields["language"]),
		Gender:    strings.TrimSpace(fields["gender"]),
		BirthDate: strings.TrimSpace(fields["birth_date"]),
		Phone:     strings.TrimSpace(fields["phone"]),
		Location:  strings.TrimSpace(fields["location"]),
	}, nil
}

// Validate checks each supplied field against the configured language list
// and the shared validators
func (f *ProfileForm) Validate(languages []string) bool {
	f.Errors = nil

	if f.Language != "" {
		found := false
		for _, lang := range languages {
			if lang == f.Language {
				found = true
				break
			}
		}
		if !found {
			f.Errors.add(ErrCodeInvalidLanguage, "Unsupported language", "language")
		}
	}

	switch f.Gender {
	case "":
	case "1":
		f.ParsedGender = GenderMale
	case "2":
		f.ParsedGender = GenderFemale
	default:
		f.Errors.add(ErrCodeInvalidGender, "Invalid gender", "gender")
	}

	if f.BirthDate != "" {
		t, err := time.Parse("2006-01-02", f.BirthDate)
		if err != nil {
			f.Errors.add(ErrCodeInvalidDate, "Enter a valid date (YYYY-MM-DD).", "birth_date")
		} else {
			f.ParsedBirthDate = &t
		}
	}

	if f.Phone != "" {
		phone, err := NormalizeMobileNumber(strings.TrimPrefix(f.Phone, "+"))
		if err != nil {
			f.Errors = append(f.Errors, err)
		} else {
			f.ParsedPhone = phone
		}
	}

	return f.Errors.Empty()
}
