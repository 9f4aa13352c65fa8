package infrastructure

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/draftea/order-saga/shared/models"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStageWorker_Invoke(t *testing.T) {
	tests := []struct {
		name           string
		status         int
		body           string
		delay          time.Duration
		expectedError  bool
		validateResult func(t *testing.T, reply domain.StageReply)
	}{
		{
			name:   "accepted with payload",
			status: http.StatusOK,
			body:   `{"payload":{"authorization_id":"auth-1"}}`,
			validateResult: func(t *testing.T, reply domain.StageReply) {
				assert.True(t, reply.Accepted)
				assert.Equal(t, "auth-1", reply.Payload["authorization_id"])
			},
		},
		{
			name:   "accepted without body",
			status: http.StatusNoContent,
			validateResult: func(t *testing.T, reply domain.StageReply) {
				assert.True(t, reply.Accepted)
			},
		},
		{
			name:   "business rejection",
			status: http.StatusUnprocessableEntity,
			body:   `{"reason":"insufficient funds"}`,
			validateResult: func(t *testing.T, reply domain.StageReply) {
				assert.False(t, reply.Accepted)
				assert.Equal(t, "insufficient funds", reply.Reason)
			},
		},
		{
			name:   "conflict without reason",
			status: http.StatusConflict,
			body:   `not json`,
			validateResult: func(t *testing.T, reply domain.StageReply) {
				assert.False(t, reply.Accepted)
				assert.Equal(t, "rejected with 409 Conflict", reply.Reason)
			},
		},
		{
			name:          "server error means unavailable",
			status:        http.StatusServiceUnavailable,
			expectedError: true,
		},
		{
			name:          "deadline exceeded",
			status:        http.StatusOK,
			delay:         200 * time.Millisecond,
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := domain.StageRequest{
				Operation:     domain.OperationAuthorizePayment,
				OrderID:       models.GenerateUUID(),
				CorrelationID: models.GenerateUUID(),
				CustomerRef:   "cust-1",
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/authorize_payment", r.URL.Path)
				assert.Equal(t, req.CorrelationID.String(), r.Header.Get("X-Correlation-ID"))

				var got domain.StageRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				assert.Equal(t, req.OrderID, got.OrderID)

				if tt.delay > 0 {
					select {
					case <-time.After(tt.delay):
					case <-r.Context().Done():
						return
					}
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			reply, err := NewHTTPStageWorker(server.URL+"/", nil).Invoke(ctx, req)

			if tt.expectedError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateResult(t, reply)
		})
	}
}
