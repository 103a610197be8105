// Package accounts is a pluggable user-account module for Go web applications.
//
// It covers local registration with email confirmation, login and logout,
// password reset, profile management, and OAuth sign-in (Google, Yandex, VK,
// Facebook, Mail.ru), plus optional IP geolocation and address geocoding for
// enriching profiles.
//
// # Architecture
//
// Account: a unique user in your system, identified by id, with a username,
// an email address and a password hash.
//
// Profile: per-account settings (language, gender, birth date, phone,
// location).  Every account has exactly one profile; CreateAccount writes
// both atomically and GetProfile backfills a default one for legacy rows.
//
// Channel: a link between an account and an external OAuth identity, keyed
// by (provider, external id).  One account can carry several channels.
//
// PendingAction: a single-use, expiring record behind emailed confirmation
// and password-reset links and the OAuth completion handoff.  Each action
// is tagged with the flow that created it, and consuming it with the wrong
// flow fails the same way as an unknown token.
//
// # Basic Usage
//
// Set up stores and a session manager, then mount the handler:
//
//	import (
//	    "github.com/alexedwards/scs/v2"
//	    accounts "github.com/panyam/accounts"
//	    "github.com/panyam/accounts/stores"
//	)
//
//	session := scs.New()
//	auth := accounts.New("MyApp")
//	auth.Session = session
//	auth.UserStore = stores.NewMemUserStore()
//	auth.ChannelStore = stores.NewMemChannelStore()
//	auth.Pending = stores.NewMemPendingStore()
//	auth.EmailSender = &accounts.ConsoleEmailSender{}
//	auth.BaseURL = "https://yourapp.com/accounts"
//
//	mux := http.NewServeMux()
//	auth.AddAuth("/accounts", mux)
//	http.ListenAndServe(":8080", session.LoadAndSave(mux))
//
// OAuth providers are registered explicitly and read their credentials from
// arguments or OAUTH2_<PROVIDER>_* environment variables:
//
//	auth.AddProvider(oauth2.NewGoogle("", "", ""))
//	auth.AddProvider(oauth2.NewYandex("", "", ""))
//
// A provider with missing credentials stays mounted but disabled: hitting
// its URL redirects home with a flash message instead of erroring.
//
// # Storage
//
// The package ships in-memory and Redis pending-store backends and
// in-memory and GORM account-store backends.  Production deployments should
// use stores/gorm for accounts and stores/redis for pending actions; the
// in-memory stores exist for tests and demos.
package accounts
