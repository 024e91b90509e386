package signer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
)

type unknownMessage struct{}

func (unknownMessage) TypeURL() string { return "/cosmos.bank.v1beta1.MsgSend" }

var swap = models.MsgSwapExactAmountIn{
	Sender:            "osmo1sender",
	Routes:            []models.SwapRoute{{PoolID: 678, TokenOutDenom: "uatom"}},
	TokenIn:           models.Coin{Denom: "uosmo", Amount: decimal.NewFromInt(1000)},
	TokenOutMinAmount: decimal.NewFromInt(42),
}

func TestClient_Sign(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/sign", r.URL.Path)

		var request signRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		require.Len(t, request.Messages, 1)
		assert.Equal(t, "osmo1sender", request.Sender)
		assert.Equal(t, models.TypeURLSwapExactAmountIn, request.Messages[0].TypeURL)

		var msg swapExactAmountIn
		require.NoError(t, json.Unmarshal(request.Messages[0].Value, &msg))
		assert.Equal(t, "678", msg.Routes[0].PoolID)
		assert.Equal(t, "1000", msg.TokenIn.Amount)
		assert.Equal(t, "42", msg.TokenOutMinAmount)

		fmt.Fprintf(w, `{"tx_bytes":%q}`, base64.StdEncoding.EncodeToString([]byte("tx")))
	}))
	defer server.Close()

	txBytes, err := New(server.URL, time.Second).Sign(context.Background(), "osmo1sender", []models.Message{swap})
	require.NoError(t, err)
	assert.Equal(t, []byte("tx"), txBytes)
}

func TestClient_SignErrors(t *testing.T) {
	tests := []struct {
		name     string
		messages []models.Message
		handler  http.HandlerFunc
		errMsg   string
	}{
		{
			name:     "неподдерживаемое сообщение",
			messages: []models.Message{unknownMessage{}},
			handler:  func(w http.ResponseWriter, r *http.Request) {},
			errMsg:   "unsupported message",
		},
		{
			name:     "ошибка сервиса подписи",
			messages: []models.Message{swap},
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
				fmt.Fprint(w, `{"error":"unknown sender"}`)
			},
			errMsg: "unknown sender",
		},
		{
			name:     "пустая подпись",
			messages: []models.Message{swap},
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"tx_bytes":""}`)
			},
			errMsg: "empty tx bytes",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			server := httptest.NewServer(test.handler)
			defer server.Close()

			_, err := New(server.URL, time.Second).Sign(context.Background(), "osmo1sender", test.messages)
			require.Error(t, err)
			assert.ErrorContains(t, err, test.errMsg)
		})
	}
}
