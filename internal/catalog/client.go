// Package catalog はバーコードから商品情報を取得する機能を提供する。
// 外部の商品カタログ（OpenFoodFacts）の呼び出しと、共有の商品キャッシュを含む。
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/foodwallet/internal/model"
)

// DefaultBaseURL はOpenFoodFactsのベースURL。
const DefaultBaseURL = "https://world.openfoodfacts.org"

// Lookup は外部カタログで商品を検索するインターフェース。
type Lookup interface {
	// LookupByCode はバーコードで商品を検索する。見つからない場合はnilを返す。
	LookupByCode(ctx context.Context, code string) (*model.Product, error)
}

// Client はOpenFoodFacts APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
}

// NewClient はClientの新しいインスタンスを生成する。
// httpClient には security.OutboundGuard が生成したクライアントを渡す。
func NewClient(httpClient *http.Client, baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// offResponse はOpenFoodFacts v0 APIのレスポンス。
type offResponse struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Product struct {
		ProductName string `json:"product_name"`
		Brands      string `json:"brands"`
		Categories  string `json:"categories"`
	} `json:"product"`
}

// LookupByCode は GET {base}/api/v0/product/{code}.json を呼び出す。
// status が0の場合は未登録としてnilを返す。
func (c *Client) LookupByCode(ctx context.Context, code string) (*model.Product, error) {
	reqURL := fmt.Sprintf("%s/api/v0/product/%s.json", c.baseURL, url.PathEscape(code))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", "FoodWallet/1.0 (household inventory)")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("商品カタログの呼び出しに失敗しました",
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	defer resp.Body.Close()

	// OpenFoodFactsは未登録のバーコードにも404を返すことがある
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("商品カタログがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("code", code),
		)
		return nil, fmt.Errorf("商品カタログがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var result offResponse
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Error("商品カタログのレスポンスのパースに失敗しました",
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	if result.Status == 0 {
		return nil, nil
	}

	return &model.Product{
		Code:     code,
		Name:     orUnknown(result.Product.ProductName),
		Brand:    orUnknown(result.Product.Brands),
		Category: orUnknown(firstCategory(result.Product.Categories)),
	}, nil
}

// firstCategory はカンマ区切りのカテゴリ一覧の先頭を返す。
func firstCategory(categories string) string {
	first, _, _ := strings.Cut(categories, ",")
	return strings.TrimSpace(first)
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return model.UnknownProductField
	}
	return s
}
