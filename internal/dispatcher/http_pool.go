package dispatcher

import (
	"crypto/tls"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
)

// HTTPPool round-robins a fixed set of fasthttp clients so concurrent
// workers never serialize on a single connection pool.
type HTTPPool struct {
	clients []*fasthttp.Client
	size    uint32
	index   uint32
}

func NewHTTPPool(size int) *HTTPPool {
	if size < 1 {
		size = 1
	}

	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ClientSessionCache: tls.NewLRUClientSessionCache(128),
	}

	clients := make([]*fasthttp.Client, size)
	for i := range clients {
		clients[i] = &fasthttp.Client{
			MaxConnsPerHost:           512,
			MaxIdleConnDuration:       180 * time.Second,
			ReadTimeout:               2 * time.Second,
			WriteTimeout:              2 * time.Second,
			MaxConnWaitTimeout:        500 * time.Millisecond,
			ReadBufferSize:            16384,
			WriteBufferSize:           16384,
			MaxResponseBodySize:       4 * 1024 * 1024,
			MaxIdemponentCallAttempts: 1,
			DialDualStack:             true,
			NoDefaultUserAgentHeader:  true,
			TLSConfig:                 tlsConfig,
		}
	}

	return &HTTPPool{clients: clients, size: uint32(size)}
}

func (hp *HTTPPool) GetClient() *fasthttp.Client {
	i := atomic.AddUint32(&hp.index, 1)
	return hp.clients[i%hp.size]
}

// Warmup primes TLS sessions against the API gateway so the first real
// moderation call does not pay the handshake cost.
func (hp *HTTPPool) Warmup(baseURL string) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(baseURL + "/gateway")
	req.Header.SetMethod(fasthttp.MethodGet)

	for _, c := range hp.clients {
		if err := c.DoTimeout(req, resp, 2*time.Second); err != nil {
			return
		}
	}
}
