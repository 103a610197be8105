// Command accountsdemo runs a minimal host app with the accounts module
// mounted under /accounts, backed entirely by in-memory stores.  Useful
// for poking at the flows locally:
//
//	ACCOUNTS_JWT_SECRET_KEY=devsecret go run ./cmd/accountsdemo
//
// OAuth providers are wired from the OAUTH2_<PROVIDER>_* environment
// variables and stay disabled (redirecting home with a flash message)
// until both client id and secret are set.
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"

	accounts "github.com/panyam/accounts"
	"github.com/panyam/accounts/geobase"
	aoauth "github.com/panyam/accounts/oauth2"
	"github.com/panyam/accounts/stores"
)

func main() {
	addr := os.Getenv("ACCOUNTS_DEMO_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	session := scs.New()
	session.Store = memstore.New()
	session.Lifetime = 24 * time.Hour

	auth := accounts.New("Demo")
	auth.Session = session
	auth.UserStore = stores.NewMemUserStore()
	auth.ChannelStore = stores.NewMemChannelStore()
	auth.Pending = stores.NewMemPendingStore()
	auth.GeobaseStore = stores.NewMemGeobaseStore()
	auth.EmailSender = &accounts.ConsoleEmailSender{}
	auth.BaseURL = fmt.Sprintf("http://localhost%s/accounts", addr)
	auth.LoginURL = "/accounts/login/"
	auth.LoginRedirectURL = "/"

	if apiKey := os.Getenv("GEOBASE_API_KEY"); apiKey != "" {
		auth.Geobase = geobase.NewClient(
			os.Getenv("GEOBASE_GEOCODER_URL"),
			os.Getenv("GEOBASE_IP_URL"),
			apiKey)
	}

	auth.AddProvider(aoauth.NewGoogle("", "", ""))
	auth.AddProvider(aoauth.NewYandex("", "", ""))
	auth.AddProvider(aoauth.NewVK("", "", ""))
	auth.AddProvider(aoauth.NewFacebook("", "", ""))
	auth.AddProvider(aoauth.NewMailru("", "", ""))

	root := http.NewServeMux()
	auth.AddAuth("/accounts", root)
	root.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		userId := auth.Middleware.GetLoggedInUserId(r)
		if userId == "" {
			fmt.Fprint(w, `<html><body>Not logged in.  <a href="/accounts/login/">Login</a> or <a href="/accounts/signup/">Signup</a></body></html>`)
			return
		}
		fmt.Fprintf(w, `<html><body>Logged in as %s.  <a href="/accounts/profile/">Profile</a> | <a href="/accounts/logout/">Logout</a></body></html>`, userId)
	})

	log.Println("accountsdemo listening on", addr)
	log.Fatal(http.ListenAndServe(addr, session.LoadAndSave(root)))
}
