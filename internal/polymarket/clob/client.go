// Package clob is used to call clob polymarket endpoints.
package clob

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/daszybak/fastbet/internal/config"
	"github.com/daszybak/fastbet/internal/order"
	"github.com/daszybak/fastbet/pkg/httpclient"
)

const (
	DefaultBaseURL = "https://clob.polymarket.com"
	requestTimeout = 10 * time.Second

	orderPath = "/order"
	signPath  = "/sign"
)

// L2 authentication headers.
const (
	headerAddress    = "POLY_ADDRESS"
	headerSignature  = "POLY_SIGNATURE"
	headerTimestamp  = "POLY_TIMESTAMP"
	headerAPIKey     = "POLY_API_KEY"
	headerPassphrase = "POLY_PASSPHRASE"
)

var ErrRejected = errors.New("order rejected")

// Credentials are the L2 API credentials derived for the funder wallet.
type Credentials struct {
	Address    string
	APIKey     string
	Secret     config.Secret
	Passphrase string
}

// OrderClient places orders on the CLOB. Orders are signed by an external
// signer service that holds the wallet key; this client only adds the L2
// request authentication.
type OrderClient struct {
	httpClient *http.Client
	baseURL    string
	signerURL  string
	creds      Credentials
	now        func() time.Time
}

func NewOrderClient(baseURL, signerURL string, creds Credentials) *OrderClient {
	return &OrderClient{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    baseURL,
		signerURL:  signerURL,
		creds:      creds,
		now:        time.Now,
	}
}

type SignRequest struct {
	TokenID   string `json:"token_id"`
	Side      string `json:"side"`
	OrderType string `json:"order_type"`
	// Amount is the USD to spend on a market order.
	Amount string `json:"amount,omitempty"`
	Price  string `json:"price,omitempty"`
	Size   string `json:"size,omitempty"`
}

type SignResponse struct {
	Order json.RawMessage `json:"order"`
}

type PostOrderRequest struct {
	Order     json.RawMessage `json:"order"`
	Owner     string          `json:"owner"`
	OrderType string          `json:"orderType"`
}

type PostOrderResponse struct {
	Success  bool   `json:"success"`
	ErrorMsg string `json:"errorMsg"`
	OrderID  string `json:"orderID"`
	Status   string `json:"status"`
}

// PlaceOrder signs o and posts it.
func (c *OrderClient) PlaceOrder(ctx context.Context, o order.Order) (order.Placement, error) {
	signReq := SignRequest{
		TokenID:   o.TokenID,
		Side:      o.Side,
		OrderType: string(o.Type),
	}
	if o.IsLimit() {
		signReq.Price = o.Price.String()
		signReq.Size = o.Size.String()
	} else {
		signReq.Amount = o.AmountUSD.String()
	}

	signed, err := httpclient.PostResource[SignResponse](ctx, c.httpClient, c.signerURL, signPath, signReq, nil, []int{http.StatusOK})
	if err != nil {
		return order.Placement{}, fmt.Errorf("couldn't sign order: %w", err)
	}
	if len(signed.Order) == 0 {
		return order.Placement{}, fmt.Errorf("couldn't sign order: empty signer response")
	}

	body, err := json.Marshal(PostOrderRequest{
		Order:     signed.Order,
		Owner:     c.creds.APIKey,
		OrderType: string(o.Type),
	})
	if err != nil {
		return order.Placement{}, fmt.Errorf("couldn't encode order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+orderPath, bytes.NewReader(body))
	if err != nil {
		return order.Placement{}, fmt.Errorf("couldn't create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.authenticate(req.Header, http.MethodPost, orderPath, body)

	resp, err := httpclient.Do[PostOrderResponse](c.httpClient, req, []int{http.StatusOK})
	if err != nil {
		return order.Placement{}, fmt.Errorf("couldn't post order: %w", err)
	}
	if !resp.Success {
		return order.Placement{}, fmt.Errorf("%w: %s", ErrRejected, resp.ErrorMsg)
	}
	return order.Placement{OrderID: resp.OrderID, Status: resp.Status}, nil
}

func (c *OrderClient) authenticate(h http.Header, method, path string, body []byte) {
	ts := strconv.FormatInt(c.now().Unix(), 10)
	h.Set(headerAddress, c.creds.Address)
	h.Set(headerSignature, Sign(c.creds.Secret.Bytes(), ts, method, path, body))
	h.Set(headerTimestamp, ts)
	h.Set(headerAPIKey, c.creds.APIKey)
	h.Set(headerPassphrase, c.creds.Passphrase)
}

// Sign computes the L2 signature: URL-safe base64 of the HMAC-SHA256 of
// timestamp, method, path and body concatenated.
func Sign(secret []byte, timestamp, method, path string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(timestamp + method + path))
	mac.Write(body)
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}
