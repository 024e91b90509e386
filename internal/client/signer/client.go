package signer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
)

type coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

type swapRoute struct {
	PoolID        string `json:"pool_id"`
	TokenOutDenom string `json:"token_out_denom"`
}

type swapExactAmountIn struct {
	Sender            string      `json:"sender"`
	Routes            []swapRoute `json:"routes"`
	TokenIn           coin        `json:"token_in"`
	TokenOutMinAmount string      `json:"token_out_min_amount"`
}

type anyMessage struct {
	TypeURL string          `json:"type_url"`
	Value   json.RawMessage `json:"value"`
}

type signRequest struct {
	Sender   string       `json:"sender"`
	Messages []anyMessage `json:"messages"`
}

type signResponse struct {
	TxBytes string `json:"tx_bytes"`
	Error   string `json:"error"`
}

// Client calls the external signing service. It builds no transactions and
// holds no keys; it only ships the messages and returns the signed bytes.
type Client struct {
	url        string
	httpClient *http.Client
}

func New(url string, timeout time.Duration) *Client {
	return &Client{
		url:        strings.TrimRight(url, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Sign(ctx context.Context, sender string, messages []models.Message) ([]byte, error) {
	const op = "signer.Client.Sign"

	encoded := make([]anyMessage, 0, len(messages))
	for _, message := range messages {
		value, err := encodeMessage(message)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		encoded = append(encoded, anyMessage{TypeURL: message.TypeURL(), Value: value})
	}

	payload, err := json.Marshal(signRequest{Sender: sender, Messages: encoded})
	if err != nil {
		return nil, fmt.Errorf("%s: marshal: %w", op, err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/v1/sign", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}

	var result signResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%s: HTTP %d: unmarshal: %w", op, response.StatusCode, err)
	}
	if response.StatusCode != http.StatusOK || result.Error != "" {
		return nil, fmt.Errorf("%s: HTTP %d: %s", op, response.StatusCode, result.Error)
	}

	txBytes, err := base64.StdEncoding.DecodeString(result.TxBytes)
	if err != nil {
		return nil, fmt.Errorf("%s: decode tx bytes: %w", op, err)
	}
	if len(txBytes) == 0 {
		return nil, fmt.Errorf("%s: empty tx bytes", op)
	}

	return txBytes, nil
}

func encodeMessage(message models.Message) (json.RawMessage, error) {
	switch msg := message.(type) {
	case models.MsgSwapExactAmountIn:
		routes := make([]swapRoute, 0, len(msg.Routes))
		for _, route := range msg.Routes {
			routes = append(routes, swapRoute{
				PoolID:        strconv.FormatUint(route.PoolID, 10),
				TokenOutDenom: route.TokenOutDenom,
			})
		}

		return json.Marshal(swapExactAmountIn{
			Sender:            msg.Sender,
			Routes:            routes,
			TokenIn:           coin{Denom: msg.TokenIn.Denom, Amount: msg.TokenIn.Amount.String()},
			TokenOutMinAmount: msg.TokenOutMinAmount.String(),
		})
	default:
		return nil, fmt.Errorf("unsupported message %s", message.TypeURL())
	}
}
