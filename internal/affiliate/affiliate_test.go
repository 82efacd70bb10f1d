package affiliate

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dealbot/pkg/logx"
)

func TestExtractProductID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "item path", url: "https://www.aliexpress.com/item/1005006123456789.html", want: "1005006123456789"},
		{name: "item path with query", url: "https://aliexpress.com/item/123456.html?spm=a2g0o", want: "123456"},
		{name: "bare id path", url: "https://ar.aliexpress.com/987654.html", want: "987654"},
		{name: "query param", url: "https://aliexpress.com/gcp/deal?item_id=555444", want: "555444"},
		{name: "no id", url: "https://aliexpress.com/category/phones", want: ""},
		{name: "not a url", url: "hello", want: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractProductID(tt.url); got != tt.want {
				t.Fatalf("ExtractProductID(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestSign(t *testing.T) {
	t.Parallel()
	params := map[string]string{"b": "2", "a": "1", "c": "3"}
	got := Sign(params, "secret")

	// Keys sorted, key+value concatenation, secret on both sides.
	sum := md5.Sum([]byte("secreta1b2c3secret"))
	want := strings.ToUpper(hex.EncodeToString(sum[:]))
	if got != want {
		t.Fatalf("Sign = %s, want %s", got, want)
	}
}

func TestSignIsOrderIndependent(t *testing.T) {
	t.Parallel()
	a := Sign(map[string]string{"x": "1", "y": "2"}, "s")
	b := Sign(map[string]string{"y": "2", "x": "1"}, "s")
	if a != b {
		t.Fatalf("signature differs for identical params: %s vs %s", a, b)
	}
}

func TestConvertLinkUsesPromotionURL(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("method") != "aliexpress.affiliate.link.generate" {
			t.Errorf("unexpected method param %q", r.URL.Query().Get("method"))
		}
		if r.URL.Query().Get("sign") == "" {
			t.Error("request is unsigned")
		}
		w.Write([]byte(`{
			"aliexpress_affiliate_link_generate_response": {
				"resp_result": {
					"result": {
						"commission_rate": 7.5,
						"promotion_links": {
							"promotion_link": [{"promotion_url": "https://s.click.aliexpress.com/e/_abc"}]
						}
					}
				}
			}
		}`))
	}))
	defer srv.Close()

	s := New(Config{AppKey: "k", AppSecret: "s", TrackingID: "tg", BaseURL: srv.URL}, logx.Nop())
	link, err := s.ConvertLink(context.Background(), "https://aliexpress.com/item/123.html", 42)
	if err != nil {
		t.Fatalf("ConvertLink: %v", err)
	}
	if !strings.HasPrefix(link.AffiliateURL, "https://s.click.aliexpress.com/e/_abc") {
		t.Fatalf("AffiliateURL = %q, want the promotion url", link.AffiliateURL)
	}
	if !strings.Contains(link.AffiliateURL, "utm_campaign=user_42") {
		t.Fatalf("AffiliateURL = %q, missing user UTM tag", link.AffiliateURL)
	}
	if link.Commission != 7.5 {
		t.Fatalf("Commission = %v, want 7.5", link.Commission)
	}
	if link.OriginalURL != "https://aliexpress.com/item/123.html" {
		t.Fatalf("OriginalURL = %q", link.OriginalURL)
	}
}

func TestConvertLinkFallsBackToOriginal(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := New(Config{AppKey: "k", AppSecret: "s", BaseURL: srv.URL}, logx.Nop())
	link, err := s.ConvertLink(context.Background(), "https://aliexpress.com/item/123.html", 7)
	if err != nil {
		t.Fatalf("ConvertLink should absorb provider failures, got %v", err)
	}
	if !strings.HasPrefix(link.AffiliateURL, "https://aliexpress.com/item/123.html?") {
		t.Fatalf("AffiliateURL = %q, want original url with tracking", link.AffiliateURL)
	}
	if !strings.Contains(link.AffiliateURL, "utm_source=telegram") {
		t.Fatalf("AffiliateURL = %q, missing UTM parameters", link.AffiliateURL)
	}
}

func TestConvertLinkRejectsUnknownURL(t *testing.T) {
	t.Parallel()
	s := New(Config{AppKey: "k", AppSecret: "s"}, logx.Nop())
	if _, err := s.ConvertLink(context.Background(), "https://example.com/page", 1); !errors.Is(err, ErrInvalidProductURL) {
		t.Fatalf("err = %v, want ErrInvalidProductURL", err)
	}
}

func TestGetProductDetails(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("product_ids") != "123" {
			t.Errorf("product_ids = %q, want 123", r.URL.Query().Get("product_ids"))
		}
		w.Write([]byte(`{
			"aliexpress_affiliate_productdetail_get_response": {
				"resp_result": {
					"result": {
						"products": {
							"product": [{
								"product_title": "USB-C Cable",
								"sale_price": "3.99",
								"product_main_image_url": "https://img.example/p.jpg"
							}]
						}
					}
				}
			}
		}`))
	}))
	defer srv.Close()

	s := New(Config{AppKey: "k", AppSecret: "s", BaseURL: srv.URL}, logx.Nop())
	p, err := s.GetProductDetails(context.Background(), "https://aliexpress.com/item/123.html")
	if err != nil {
		t.Fatalf("GetProductDetails: %v", err)
	}
	if p.ID != "123" || p.Title != "USB-C Cable" || p.Price != 3.99 {
		t.Fatalf("unexpected product: %+v", p)
	}
}

func TestGetProductDetailsNotFound(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"aliexpress_affiliate_productdetail_get_response":{"resp_result":{"result":{"products":{"product":[]}}}}}`))
	}))
	defer srv.Close()

	s := New(Config{AppKey: "k", AppSecret: "s", BaseURL: srv.URL}, logx.Nop())
	if _, err := s.GetProductDetails(context.Background(), "https://aliexpress.com/item/9.html"); err == nil {
		t.Fatal("expected error for unknown product")
	}
}
