package ledger

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
	"github.com/nastyazhadan/limit-order-executor/shared/config"
	clientErrors "github.com/nastyazhadan/limit-order-executor/shared/errors/client"
)

type fakeSigner struct {
	txBytes []byte
	err     error
}

func (f fakeSigner) Sign(context.Context, string, []models.Message) ([]byte, error) {
	return f.txBytes, f.err
}

var testMessages = []models.Message{
	models.MsgSwapExactAmountIn{
		Sender:            "osmo1sender",
		Routes:            []models.SwapRoute{{PoolID: 1, TokenOutDenom: "uatom"}},
		TokenIn:           models.Coin{Denom: "uosmo", Amount: decimal.NewFromInt(1000)},
		TokenOutMinAmount: decimal.NewFromInt(1980),
	},
}

func newTestBroadcaster(endpoint EndpointSource, signer Signer) *Broadcaster {
	return NewBroadcaster(endpoint, signer,
		config.BroadcastConfig{Timeout: time.Second, Mode: "BROADCAST_MODE_SYNC"},
		testBreakerConfig)
}

func TestBroadcaster_Submit(t *testing.T) {
	tests := []struct {
		name         string
		signer       fakeSigner
		handler      http.HandlerFunc
		expectedHash string
		expectedCode uint32
		expectedErr  error
	}{
		{
			name:   "успешная отправка",
			signer: fakeSigner{txBytes: []byte("signed")},
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/cosmos/tx/v1beta1/txs", r.URL.Path)

				var request broadcastRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&request))
				assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("signed")), request.TxBytes)
				assert.Equal(t, "BROADCAST_MODE_SYNC", request.Mode)

				fmt.Fprint(w, `{"tx_response":{"txhash":"ABC123","code":0}}`)
			},
			expectedHash: "ABC123",
		},
		{
			name:   "транзакция отклонена",
			signer: fakeSigner{txBytes: []byte("signed")},
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"tx_response":{"txhash":"ABC123","code":7,"raw_log":"token amount calculated is lesser than min amount"}}`)
			},
			expectedCode: 7,
			expectedErr:  clientErrors.ErrBroadcastFailed,
		},
		{
			name:   "ошибка узла",
			signer: fakeSigner{txBytes: []byte("signed")},
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			expectedErr: clientErrors.ErrBroadcastFailed,
		},
		{
			name:   "ошибка подписи",
			signer: fakeSigner{err: errors.New("signer offline")},
			handler: func(w http.ResponseWriter, r *http.Request) {
				t.Error("broadcast must not be called without a signature")
			},
			expectedErr: clientErrors.ErrBroadcastFailed,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			server := httptest.NewServer(test.handler)
			defer server.Close()

			broadcaster := newTestBroadcaster(restEndpoint(server.URL), test.signer)
			txHash, err := broadcaster.Submit(context.Background(), "osmo1sender", testMessages)

			if test.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, test.expectedErr)

				var broadcastErr *clientErrors.BroadcastError
				require.True(t, errors.As(err, &broadcastErr))
				assert.Equal(t, test.expectedCode, broadcastErr.Code)
				assert.Equal(t, server.URL, broadcastErr.Endpoint)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.expectedHash, txHash)
		})
	}
}

func TestBroadcaster_SubmitUnsupportedEndpoint(t *testing.T) {
	broadcaster := newTestBroadcaster(
		staticEndpoint{URL: "grpc.example:9090", Kind: models.EndpointKindGRPC},
		fakeSigner{txBytes: []byte("signed")},
	)

	_, err := broadcaster.Submit(context.Background(), "osmo1sender", testMessages)

	assert.ErrorIs(t, err, clientErrors.ErrBroadcastFailed)
	assert.ErrorIs(t, err, clientErrors.ErrUnsupportedEndpoint)
}

func TestBroadcaster_SubmitNoMessages(t *testing.T) {
	broadcaster := newTestBroadcaster(restEndpoint("http://127.0.0.1:1"), fakeSigner{txBytes: []byte("signed")})

	_, err := broadcaster.Submit(context.Background(), "osmo1sender", nil)

	assert.ErrorIs(t, err, clientErrors.ErrBroadcastFailed)
}
