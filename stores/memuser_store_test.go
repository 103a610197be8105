package stores_test

import (
	"testing"

	oa "github.com/panyam/accounts"
	"github.com/panyam/accounts/stores"
)

func TestMemUserStoreCreateAndLookup(t *testing.T) {
	store := stores.NewMemUserStore()

	account := &oa.Account{
		ID:       "u1",
		Username: "kazerogova",
		Email:    "lilo@yandex.ru",
	}
	profile := &oa.Profile{Language: "ru-RU"}
	if err := store.CreateAccount(account, profile); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	for _, lookup := range []struct {
		name string
		get  func() (*oa.Account, error)
	}{
		{"by id", func() (*oa.Account, error) { return store.GetAccountById("u1") }},
		{"by username", func() (*oa.Account, error) { return store.GetAccountByUsername("kazerogova") }},
		{"by username case-insensitive", func() (*oa.Account, error) { return store.GetAccountByUsername("KAZEROGOVA") }},
		{"by email", func() (*oa.Account, error) { return store.GetAccountByEmail("lilo@yandex.ru") }},
		{"by email case-insensitive", func() (*oa.Account, error) { return store.GetAccountByEmail("LILO@YANDEX.RU") }},
	} {
		t.Run(lookup.name, func(t *testing.T) {
			got, err := lookup.get()
			if err != nil {
				t.Fatalf("lookup failed: %v", err)
			}
			if got.ID != "u1" {
				t.Errorf("got account %q", got.ID)
			}
		})
	}

	got, err := store.GetProfile("u1")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if got.Language != "ru-RU" || got.UserID != "u1" {
		t.Errorf("profile = %+v", got)
	}
}

func TestMemUserStoreDuplicates(t *testing.T) {
	store := stores.NewMemUserStore()
	if err := store.CreateAccount(&oa.Account{
		ID: "u1", Username: "kazerogova", Email: "lilo@yandex.ru",
	}, nil); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	if err := store.CreateAccount(&oa.Account{
		ID: "u2", Username: "KAZEROGOVA", Email: "other@yandex.ru",
	}, nil); err == nil {
		t.Error("duplicate username accepted")
	}
	if err := store.CreateAccount(&oa.Account{
		ID: "u3", Username: "other", Email: "LILO@yandex.ru",
	}, nil); err == nil {
		t.Error("duplicate email accepted")
	}
}

func TestMemUserStoreProfileBackfill(t *testing.T) {
	store := stores.NewMemUserStore()

	if _, err := store.GetProfile("nobody"); err == nil {
		t.Error("profile returned for an unknown account")
	}

	// CreateAccount with a nil profile still yields one
	if err := store.CreateAccount(&oa.Account{
		ID: "u1", Username: "kazerogova", Email: "lilo@yandex.ru",
	}, nil); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	profile, err := store.GetProfile("u1")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile.Language != store.DefaultLanguage {
		t.Errorf("backfilled language = %q, want %q", profile.Language, store.DefaultLanguage)
	}
}

func TestMemUserStoreSaveAccountRename(t *testing.T) {
	store := stores.NewMemUserStore()
	if err := store.CreateAccount(&oa.Account{
		ID: "u1", Username: "kazerogova", Email: "lilo@yandex.ru",
	}, nil); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if err := store.CreateAccount(&oa.Account{
		ID: "u2", Username: "other", Email: "other@yandex.ru",
	}, nil); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	account, _ := store.GetAccountById("u1")
	account.Username = "renamed"
	if err := store.SaveAccount(account); err != nil {
		t.Fatalf("SaveAccount failed: %v", err)
	}

	if _, err := store.GetAccountByUsername("renamed"); err != nil {
		t.Errorf("new username not resolvable: %v", err)
	}
	if _, err := store.GetAccountByUsername("kazerogova"); err == nil {
		t.Error("old username still resolvable")
	}

	// Renaming onto a taken username fails
	account.Username = "other"
	if err := store.SaveAccount(account); err == nil {
		t.Error("rename onto a taken username accepted")
	}
}

func TestMemUserStoreCopySemantics(t *testing.T) {
	store := stores.NewMemUserStore()
	if err := store.CreateAccount(&oa.Account{
		ID: "u1", Username: "kazerogova", Email: "lilo@yandex.ru", FirstName: "Lilo",
	}, nil); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	// Mutating a returned account must not leak into the store
	account, _ := store.GetAccountById("u1")
	account.FirstName = "Mutated"
	fresh, _ := store.GetAccountById("u1")
	if fresh.FirstName != "Lilo" {
		t.Error("store handed out its internal account pointer")
	}
}

func TestMemChannelStore(t *testing.T) {
	store := stores.NewMemChannelStore()

	if _, err := store.GetChannel("google", "g-1"); err == nil {
		t.Error("unknown channel returned")
	}

	if err := store.SaveChannel(&oa.Channel{
		Provider: "google", ExternalID: "g-1", UserID: "u1", AccessToken: "at-1",
	}); err != nil {
		t.Fatalf("SaveChannel failed: %v", err)
	}
	if err := store.SaveChannel(&oa.Channel{
		Provider: "yandex", ExternalID: "y-1", UserID: "u1", AccessToken: "at-2",
	}); err != nil {
		t.Fatalf("SaveChannel failed: %v", err)
	}
	if err := store.SaveChannel(&oa.Channel{
		Provider: "google", ExternalID: "g-2", UserID: "u2", AccessToken: "at-3",
	}); err != nil {
		t.Fatalf("SaveChannel failed: %v", err)
	}

	channel, err := store.GetChannel("google", "g-1")
	if err != nil {
		t.Fatalf("GetChannel failed: %v", err)
	}
	if channel.UserID != "u1" || channel.AccessToken != "at-1" {
		t.Errorf("channel = %+v", channel)
	}

	channels, err := store.GetUserChannels("u1")
	if err != nil {
		t.Fatalf("GetUserChannels failed: %v", err)
	}
	if len(channels) != 2 {
		t.Errorf("GetUserChannels returned %d channels, want 2", len(channels))
	}

	// Save is an upsert on (provider, externalID)
	if err := store.SaveChannel(&oa.Channel{
		Provider: "google", ExternalID: "g-1", UserID: "u1", AccessToken: "refreshed",
	}); err != nil {
		t.Fatalf("SaveChannel failed: %v", err)
	}
	channel, _ = store.GetChannel("google", "g-1")
	if channel.AccessToken != "refreshed" {
		t.Errorf("upsert did not refresh the token: %+v", channel)
	}
}
