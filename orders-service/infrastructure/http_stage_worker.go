package infrastructure

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/draftea/order-saga/orders-service/domain"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxWorkerResponse = 1 << 20

// HTTPStageWorker calls POST {baseURL}/{operation}. A 2xx answer accepts, 409 and 422 reject,
// and anything else means the worker is unavailable.
type HTTPStageWorker struct {
	baseURL string
	client  *http.Client
}

// NewHTTPStageWorker creates a worker over an instrumented client. Deadlines come from the caller's context.
func NewHTTPStageWorker(baseURL string, client *http.Client) *HTTPStageWorker {
	if client == nil {
		client = &http.Client{}
	}
	instrumented := *client
	instrumented.Transport = otelhttp.NewTransport(transportOrDefault(client.Transport))

	return &HTTPStageWorker{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &instrumented,
	}
}

func (w *HTTPStageWorker) Invoke(ctx context.Context, req domain.StageRequest) (domain.StageReply, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return domain.StageReply{}, errors.Wrap(err, "failed to encode stage request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/"+string(req.Operation), bytes.NewReader(body))
	if err != nil {
		return domain.StageReply{}, errors.Wrap(err, "failed to build stage request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Correlation-ID", req.CorrelationID.String())

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return domain.StageReply{}, errors.Wrap(err, "stage worker request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxWorkerResponse))
	if err != nil {
		return domain.StageReply{}, errors.Wrap(err, "failed to read stage worker response")
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		reply := domain.StageReply{Accepted: true}
		if len(bytes.TrimSpace(raw)) > 0 {
			if err := json.Unmarshal(raw, &reply); err != nil {
				return domain.StageReply{}, errors.Wrap(err, "failed to decode stage worker response")
			}
			reply.Accepted = true
		}
		return reply, nil

	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity:
		return domain.StageReply{Accepted: false, Reason: rejectionReason(raw, resp.Status)}, nil
	}

	return domain.StageReply{}, errors.Errorf("stage worker answered %s", resp.Status)
}

func rejectionReason(raw []byte, status string) string {
	var body struct {
		Reason string `json:"reason"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Reason != "" {
			return body.Reason
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return "rejected with " + status
}

func transportOrDefault(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		return http.DefaultTransport
	}
	return rt
}
