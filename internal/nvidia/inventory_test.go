package nvidia

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCheckAvailability_Normalizes(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.String()
		w.Write([]byte(`{"listMap":[
			{"fe_sku":"PRO5090FE_FR","is_active":"true","price":"2329.0"},
			{"fe_sku":"PRO5080FE_FR","is_active":"false","price":"Price not available"},
			{"fe_sku":"PRO5070FE_FR","is_active":true}
		]}`))
	}))
	defer srv.Close()

	c := &InventoryClient{BaseURL: srv.URL + "/feinventory?skus=", HTTP: testHTTP()}
	entries, err := c.CheckAvailability(context.Background(), "PRO5090FE")
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if !strings.HasSuffix(gotPath, "skus=PRO5090FE") {
		t.Fatalf("expected sku appended to base URL, got %q", gotPath)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	if !entries[0].Active || entries[0].Price != "2329.0" {
		t.Fatalf("entry 0 normalized wrong: %+v", entries[0])
	}
	if entries[1].Active {
		t.Fatalf("is_active \"false\" must not be active")
	}
	// boolean true is the wrong type and must not count as active
	if entries[2].Active {
		t.Fatalf("non-string is_active must not be active")
	}
	if entries[2].Price != PriceUnavailable {
		t.Fatalf("missing price must normalize to sentinel, got %q", entries[2].Price)
	}
}

func TestCheckAvailability_EmptyListIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"listMap":[]}`))
	}))
	defer srv.Close()

	c := &InventoryClient{BaseURL: srv.URL + "?skus=", HTTP: testHTTP()}
	entries, err := c.CheckAvailability(context.Background(), "X")
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected zero entries, got %v", entries)
	}
}

func TestCheckAvailability_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := &InventoryClient{BaseURL: srv.URL + "?skus=", HTTP: testHTTP()}
	if _, err := c.CheckAvailability(context.Background(), "X"); err == nil {
		t.Fatalf("expected status error")
	}

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"listMap":`))
	}))
	defer bad.Close()

	c = &InventoryClient{BaseURL: bad.URL + "?skus=", HTTP: testHTTP()}
	if _, err := c.CheckAvailability(context.Background(), "X"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestSKUPrice(t *testing.T) {
	entries := []InventoryEntry{
		{SKU: "A", Price: PriceUnavailable},
		{SKU: "B", Price: "1999.0"},
		{SKU: "C", Price: "2099.0"},
	}
	if got := SKUPrice(entries); got != "1999.0" {
		t.Fatalf("expected first usable price, got %q", got)
	}

	none := []InventoryEntry{{Price: PriceUnavailable}, {Price: ""}}
	if got := SKUPrice(none); got != PriceUnavailable {
		t.Fatalf("expected sentinel, got %q", got)
	}
	if got := SKUPrice(nil); got != PriceUnavailable {
		t.Fatalf("expected sentinel for no entries, got %q", got)
	}
}
