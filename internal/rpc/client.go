package rpc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Client implements remote calls to a JSON-RPC HTTP server.
type Client struct {
	HTTP HTTP
	URL  string

	// AllowHTTP permits a non-TLS endpoint. Defaults to false: a plain
	// "http://" URL is rejected unless this is set, matching
	// ClientOptions.allowHttp.
	AllowHTTP bool

	// Logger receives one Debug line per completed call (method,
	// correlation id) and a Warn line per failed HTTP request or JSON-RPC
	// error response. Defaults to a no-op logger.
	Logger *zap.Logger

	id uint64
}

func (c Client) http() HTTP {
	if c.HTTP == nil {
		return http.DefaultClient
	}
	return c.HTTP
}

func (c Client) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// Call remote server with given method and arguments. params is always
// encoded as a single JSON object, never a positional array - passing more
// than one argument is a caller error reflected back as an error here
// rather than silently degrading the wire shape.
func (c Client) Call(method string, args ...interface{}) (*Response, error) {
	if !c.AllowHTTP && strings.HasPrefix(c.URL, "http://") {
		return nil, errors.Errorf("rpc: refusing non-TLS endpoint %q (set AllowHTTP to override)", c.URL)
	}
	if len(args) > 1 {
		return nil, errors.Errorf("rpc: %s: params must be a single object, got %d arguments", method, len(args))
	}

	reqID := atomic.AddUint64(&c.id, 1)
	correlationID := uuid.NewString()
	log := c.logger().With(zap.String("method", method), zap.String("correlationId", correlationID))

	var params interface{}
	if len(args) == 1 {
		params = args[0]
	}
	b, err := json.Marshal(Request{Version: "2.0", Method: method, Params: params, ID: reqID})
	if err != nil {
		return nil, errors.Wrap(err, "rpc: encoding request")
	}

	req, err := http.NewRequest("POST", c.URL, bytes.NewBuffer(b))
	if err != nil {
		return nil, errors.Wrap(err, "rpc: request creation")
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.http().Do(req)
	if err != nil {
		log.Warn("rpc request failed", zap.Error(err))
		return nil, errors.Wrap(err, "rpc: request execution")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("rpc: %s: bad status %s", method, resp.Status)
	}

	r := Response{}
	if err = json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, errors.Wrap(err, "rpc: decoding response")
	}
	if r.Error != nil {
		log.Warn("rpc error response", zap.Int("code", r.Error.Code), zap.String("message", r.Error.Message))
		return nil, r.Error
	}
	log.Debug("rpc call completed")
	return &r, nil
}
