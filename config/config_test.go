package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadEnvDefaultsAndValidate(t *testing.T) {
	t.Setenv("SHOPIFY_STORE", "")
	t.Setenv("SHOPIFY_ACCESS_TOKEN", "")
	t.Setenv("NOTIFY_WEBHOOK_URL", "")
	cfg := LoadEnv()
	if cfg.Shopify.PageSize != 25 || cfg.Ledger.Driver != "sqlite" || cfg.Cache.Backend != "memory" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "SHOPIFY_ACCESS_TOKEN") || !strings.Contains(err.Error(), "NOTIFY_WEBHOOK_URL") {
		t.Fatalf("expected missing config error, got %v", err)
	}

	t.Setenv("SHOPIFY_STORE", "demo.myshopify.com")
	t.Setenv("SHOPIFY_ACCESS_TOKEN", "tok")
	t.Setenv("NOTIFY_WEBHOOK_URL", "https://hooks.example/notify")
	t.Setenv("SHOPIFY_PAGE_SIZE", "not-a-number")
	cfg = LoadEnv()
	if cfg.Shopify.PageSize != 25 {
		t.Fatalf("bad int should fall back, got %d", cfg.Shopify.PageSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	cfg.Ledger.Driver = "mysql"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected driver error")
	}
}

func TestBuiltinTenantsAreValid(t *testing.T) {
	for _, name := range BuiltinTenants() {
		tenant, err := LoadTenant(name, "")
		if err != nil {
			t.Fatalf("tenant %s: %v", name, err)
		}
		if tenant.ID != name {
			t.Fatalf("tenant id %q for %q", tenant.ID, name)
		}
		if !tenant.Rules.ZeroStock() {
			t.Fatalf("tenant %s: zero stock should default on", name)
		}
	}
	in, _ := LoadTenant("in", "")
	if in.Rules.CosmeticsCollection == "" || in.Rules.MainItemHandshake {
		t.Fatalf("in tenant rules %+v", in.Rules)
	}
	global, _ := LoadTenant("global", "")
	if !global.Rules.MainItemHandshake {
		t.Fatal("global tenant must use the main item handshake")
	}
	if got := in.TaxCollection("5"); got != "Tax Rate 5%" {
		t.Fatalf("tax collection %q", got)
	}
	if in.TaxCodes["18"] != "GST18" {
		t.Fatalf("tax codes %v", in.TaxCodes)
	}
}

func TestLoadTenantFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tenant.yml")
	profile := strings.Replace(globalTenantYAML, "main_item_handshake: true", "main_item_handshake: true\n  zero_stock_on_check: false", 1)
	if err := os.WriteFile(path, []byte(profile), 0o600); err != nil {
		t.Fatal(err)
	}
	tenant, err := LoadTenant("ignored", path)
	if err != nil {
		t.Fatal(err)
	}
	if tenant.Rules.ZeroStock() {
		t.Fatal("zero_stock_on_check: false should disable the stock policy")
	}
}

func TestTenantValidation(t *testing.T) {
	cases := map[string]string{
		"unknown tenant": "",
		"bad metafield":  strings.Replace(inTenantYAML, "custom.pre_order", "preorder", 1),
		"dup label":      strings.Replace(inTenantYAML, "price_updated: Price Updated", "price_updated: Title Updated", 1),
		"no percent":     strings.Replace(inTenantYAML, "Tax Rate {percent}%", "Tax Rate", 1),
	}
	for name, raw := range cases {
		var err error
		if raw == "" {
			_, err = LoadTenant("nope", "")
		} else {
			_, err = TenantFromYAML([]byte(raw))
		}
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
