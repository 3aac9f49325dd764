package dispatcher

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/valyala/fasthttp"

	"github.com/AunuHost/GLX-Protection-Free-Version/internal/logging"
)

const requestTimeout = 2 * time.Second

// RestClient performs the hot moderation calls (timeouts, bans, kicks)
// directly over fasthttp instead of going through the gateway session.
type RestClient struct {
	pool    *HTTPPool
	token   string
	baseURL string
}

func NewRestClient(pool *HTTPPool, token, baseURL string) *RestClient {
	return &RestClient{pool: pool, token: token, baseURL: baseURL}
}

// ExecuteTimeout sets communication_disabled_until on a guild member. The
// member stays visible but cannot send until the deadline passes.
func (rc *RestClient) ExecuteTimeout(guildID, userID uint64, d time.Duration, reason string) error {
	until := time.Now().UTC().Add(d).Format(time.RFC3339)
	body, err := json.Marshal(map[string]any{"communication_disabled_until": until})
	if err != nil {
		return err
	}
	return rc.patchMember(guildID, userID, body, reason, "TIMEOUT")
}

// ExecuteClearTimeout lifts an active timeout early.
func (rc *RestClient) ExecuteClearTimeout(guildID, userID uint64, reason string) error {
	body := []byte(`{"communication_disabled_until":null}`)
	return rc.patchMember(guildID, userID, body, reason, "UNMUTE")
}

func (rc *RestClient) patchMember(guildID, userID uint64, body []byte, reason, action string) error {
	start := time.Now()
	url := fmt.Sprintf("%s/guilds/%d/members/%d", rc.baseURL, guildID, userID)

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodPatch)
	req.Header.Set("Authorization", "Bot "+rc.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Audit-Log-Reason", reason)
	req.SetBody(body)

	if err := rc.pool.GetClient().DoTimeout(req, resp, requestTimeout); err != nil {
		return err
	}

	status := resp.StatusCode()
	if status >= 200 && status < 300 {
		logging.Info("[%s] user %d guild %d in %d µs", action, userID, guildID, time.Since(start).Microseconds())
		return nil
	}
	return fmt.Errorf("%s failed for user %d: status %d", action, userID, status)
}

func (rc *RestClient) ExecuteBan(guildID, userID uint64, reason string) error {
	url := fmt.Sprintf("%s/guilds/%d/bans/%d", rc.baseURL, guildID, userID)
	body := []byte(`{"delete_message_seconds":0}`)

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodPut)
	req.Header.Set("Authorization", "Bot "+rc.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Audit-Log-Reason", reason)
	req.SetBody(body)

	if err := rc.pool.GetClient().DoTimeout(req, resp, requestTimeout); err != nil {
		return err
	}
	if status := resp.StatusCode(); status < 200 || status >= 300 {
		return fmt.Errorf("ban failed for user %d: status %d", userID, status)
	}
	return nil
}

func (rc *RestClient) ExecuteKick(guildID, userID uint64, reason string) error {
	url := fmt.Sprintf("%s/guilds/%d/members/%d", rc.baseURL, guildID, userID)

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodDelete)
	req.Header.Set("Authorization", "Bot "+rc.token)
	req.Header.Set("X-Audit-Log-Reason", reason)

	if err := rc.pool.GetClient().DoTimeout(req, resp, requestTimeout); err != nil {
		return err
	}
	if status := resp.StatusCode(); status < 200 || status >= 300 {
		return fmt.Errorf("kick failed for user %d: status %d", userID, status)
	}
	return nil
}
