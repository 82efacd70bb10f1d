// Package affiliate converts AliExpress product links into tracked
// affiliate links and fetches product details for price checks.
package affiliate

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"dealbot/pkg/logx"
)

const defaultBaseURL = "https://api-sg.aliexpress.com/sync"

var ErrInvalidProductURL = errors.New("affiliate: not a recognizable product URL")

type Config struct {
	AppKey     string
	AppSecret  string
	TrackingID string
	BaseURL    string // empty means the production endpoint
	Timeout    time.Duration
}

// Link is a converted affiliate link.
type Link struct {
	AffiliateURL string
	OriginalURL  string
	Commission   float64
}

// Product holds the detail fields the bot cares about.
type Product struct {
	ID       string
	Title    string
	Price    float64
	ImageURL string
}

type Service struct {
	cfg  Config
	http *http.Client
	log  logx.Logger
}

func New(cfg Config, log logx.Logger) *Service {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, http: &http.Client{Timeout: timeout}, log: log}
}

var productIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/item/(\d+)\.html`),
	regexp.MustCompile(`/(\d+)\.html`),
	regexp.MustCompile(`item_id=(\d+)`),
}

// ExtractProductID pulls the numeric product id out of an AliExpress
// URL, or returns "" when none of the known URL shapes match.
func ExtractProductID(rawURL string) string {
	for _, p := range productIDPatterns {
		if m := p.FindStringSubmatch(rawURL); m != nil {
			return m[1]
		}
	}
	return ""
}

// ConvertLink turns productURL into an affiliate link for userID.
// When the provider declines, the original URL (with UTM tracking
// appended) is returned instead of an error.
func (s *Service) ConvertLink(ctx context.Context, productURL string, userID int64) (Link, error) {
	if ExtractProductID(productURL) == "" {
		return Link{}, ErrInvalidProductURL
	}

	utm := "utm_source=telegram&utm_medium=bot&utm_campaign=user_" + strconv.FormatInt(userID, 10)

	params := map[string]string{
		"app_key":             s.cfg.AppKey,
		"method":              "aliexpress.affiliate.link.generate",
		"timestamp":           strconv.FormatInt(time.Now().UnixMilli(), 10),
		"format":              "json",
		"v":                   "2.0",
		"sign_method":         "md5",
		"promotion_link_type": "0",
		"source_values":       productURL,
		"tracking_id":         s.cfg.TrackingID,
	}
	params["sign"] = Sign(params, s.cfg.AppSecret)

	var resp struct {
		Generate struct {
			RespResult struct {
				Result struct {
					CommissionRate float64 `json:"commission_rate"`
					PromotionLinks struct {
						PromotionLink []struct {
							PromotionURL string `json:"promotion_url"`
						} `json:"promotion_link"`
					} `json:"promotion_links"`
				} `json:"result"`
			} `json:"resp_result"`
		} `json:"aliexpress_affiliate_link_generate_response"`
	}
	if err := s.call(ctx, params, &resp); err != nil {
		s.log.Warn("affiliate link generation failed, using original", logx.String("url", productURL), logx.Err(err))
		return Link{AffiliateURL: appendQuery(productURL, utm), OriginalURL: productURL}, nil
	}

	links := resp.Generate.RespResult.Result.PromotionLinks.PromotionLink
	if len(links) == 0 || links[0].PromotionURL == "" {
		s.log.Warn("no promotion link in response, using original", logx.String("url", productURL))
		return Link{AffiliateURL: appendQuery(productURL, utm), OriginalURL: productURL}, nil
	}

	return Link{
		AffiliateURL: appendQuery(links[0].PromotionURL, utm),
		OriginalURL:  productURL,
		Commission:   resp.Generate.RespResult.Result.CommissionRate,
	}, nil
}

// GetProductDetails fetches title, current price and image for the
// product behind productURL.
func (s *Service) GetProductDetails(ctx context.Context, productURL string) (Product, error) {
	id := ExtractProductID(productURL)
	if id == "" {
		return Product{}, ErrInvalidProductURL
	}

	params := map[string]string{
		"app_key":     s.cfg.AppKey,
		"method":      "aliexpress.affiliate.productdetail.get",
		"timestamp":   strconv.FormatInt(time.Now().UnixMilli(), 10),
		"format":      "json",
		"v":           "2.0",
		"sign_method": "md5",
		"product_ids": id,
		"tracking_id": s.cfg.TrackingID,
	}
	params["sign"] = Sign(params, s.cfg.AppSecret)

	var resp struct {
		Detail struct {
			RespResult struct {
				Result struct {
					Products struct {
						Product []struct {
							Title           string `json:"product_title"`
							SalePrice       string `json:"sale_price"`
							TargetSalePrice string `json:"target_sale_price"`
							ImageURL        string `json:"product_main_image_url"`
						} `json:"product"`
					} `json:"products"`
				} `json:"result"`
			} `json:"resp_result"`
		} `json:"aliexpress_affiliate_productdetail_get_response"`
	}
	if err := s.call(ctx, params, &resp); err != nil {
		return Product{}, err
	}

	products := resp.Detail.RespResult.Result.Products.Product
	if len(products) == 0 {
		return Product{}, fmt.Errorf("affiliate: product %s not found", id)
	}
	p := products[0]
	price := p.SalePrice
	if price == "" {
		price = p.TargetSalePrice
	}
	value, _ := strconv.ParseFloat(strings.TrimSpace(price), 64)
	title := p.Title
	if title == "" {
		title = "Unknown Product"
	}
	return Product{ID: id, Title: title, Price: value, ImageURL: p.ImageURL}, nil
}

func (s *Service) call(ctx context.Context, params map[string]string, out any) error {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("affiliate: provider returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

// Sign computes the MD5 request signature: keys sorted, concatenated as
// key+value, wrapped with the secret on both sides, uppercase hex.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(secret)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params[k])
	}
	b.WriteString(secret)

	sum := md5.Sum([]byte(b.String()))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func appendQuery(rawURL, query string) string {
	if strings.Contains(rawURL, "?") {
		return rawURL + "&" + query
	}
	return rawURL + "?" + query
}
