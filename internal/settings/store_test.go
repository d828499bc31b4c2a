package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStoreRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	store, err := NewStore(path, Values{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if err := store.Update(func(v *Values) {
		v.GeminiAPIKey = "gk"
		v.TraktClientID = "cid"
		v.TraktClientSecret = "sec"
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	reloaded, err := NewStore(path, Values{})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got := reloaded.Values()
	if got.GeminiAPIKey != "gk" || got.TraktClientID != "cid" || got.TraktClientSecret != "sec" {
		t.Errorf("roundtrip mismatch: %+v", got)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("settings file mode %v, want 0600", info.Mode().Perm())
	}
}

func TestStoreFallbacks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	store, err := NewStore(path, Values{
		GeminiAPIKey:  "config-key",
		TraktClientID: "config-id",
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if got := store.GeminiAPIKey(); got != "config-key" {
		t.Errorf("fallback not applied: %q", got)
	}

	if err := store.Update(func(v *Values) { v.GeminiAPIKey = "stored-key" }); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := store.GeminiAPIKey(); got != "stored-key" {
		t.Errorf("stored value should win: %q", got)
	}
	if got := store.TraktClientID(); got != "config-id" {
		t.Errorf("unset field should fall back: %q", got)
	}
	if got := store.TraktClientSecret(); got != "" {
		t.Errorf("no fallback, no value: %q", got)
	}
}

func TestStoreMissingFileIsEmpty(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "absent.json"), Values{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if v := store.Values(); v != (Values{}) {
		t.Errorf("expected empty values, got %+v", v)
	}
}

func TestStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	os.WriteFile(path, []byte("{not json"), 0o600)
	if _, err := NewStore(path, Values{}); err == nil {
		t.Fatal("expected error for corrupt file")
	}
}

func TestMask(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{"abc", "***"},
		{"abcd", "****"},
		{"abcdefgh", "****efgh"},
	}
	for _, tc := range cases {
		if got := Mask(tc.in); got != tc.want {
			t.Errorf("Mask(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
