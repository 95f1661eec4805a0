package lookup

import (
	"cmp"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/qsolog/internal/common"
	"github.com/dmitrijs2005/qsolog/internal/logging"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"
)

const (
	programName  = "QSOLOG"
	cacheSize    = 4096
	cacheTTL     = 24 * time.Hour
	sessionTTL   = time.Hour
	maxRetries   = 3
	minBackoff   = time.Second
	maxBackoff   = 10 * time.Second
	maxReplySize = 1 << 20
)

var errSessionExpired = errors.New("hamqth session expired")

type hamqthReply struct {
	XMLName xml.Name `xml:"HamQTH"`
	Session struct {
		ID    string `xml:"session_id"`
		Error string `xml:"error"`
	} `xml:"session"`
	Search *struct {
		Callsign string `xml:"callsign"`
		Nick     string `xml:"nick"`
		AdrName  string `xml:"adr_name"`
		AdrCity  string `xml:"adr_city"`
		Grid     string `xml:"grid"`
		Country  string `xml:"country"`
	} `xml:"search"`
}

// HamQTH queries the hamqth.com XML interface. Found stations are cached for
// a day; misses are not cached. Concurrent lookups of one callsign share a
// single upstream request.
type HamQTH struct {
	baseURL  string
	user     string
	password string
	client   *http.Client
	log      logging.Logger
	cache    *expirable.LRU[string, *Result]
	flight   singleflight.Group
	backoff  func() retry.Backoff
	now      func() time.Time

	mu        sync.Mutex
	sessionID string
	expires   time.Time
}

func NewHamQTH(baseURL, user, password string, l logging.Logger) *HamQTH {
	return &HamQTH{
		baseURL:  strings.TrimRight(baseURL, "/"),
		user:     user,
		password: password,
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      l.With("module", "hamqth"),
		cache:    expirable.NewLRU[string, *Result](cacheSize, nil, cacheTTL),
		backoff:  defaultBackoff,
		now:      time.Now,
	}
}

func defaultBackoff() retry.Backoff {
	b := retry.NewExponential(minBackoff)
	b = retry.WithCappedDuration(maxBackoff, b)
	return retry.WithMaxRetries(maxRetries, b)
}

// Lookup returns the directory entry for callsign. Upstream failures are
// logged and reported as a miss.
func (h *HamQTH) Lookup(ctx context.Context, callsign string) (*Result, error) {
	call := Normalize(callsign)
	if call == "" {
		return nil, common.ErrorNotFound
	}
	if r, ok := h.cache.Get(call); ok {
		h.log.Debug(ctx, "lookup cache hit", "callsign", call)
		return r, nil
	}

	v, err, _ := h.flight.Do(call, func() (any, error) {
		return h.fetch(ctx, call)
	})
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			h.log.Warn(ctx, "callsign lookup failed", "callsign", call, "error", err)
		}
		return nil, common.ErrorNotFound
	}

	r := v.(*Result)
	h.cache.Add(call, r)
	return r, nil
}

func (h *HamQTH) fetch(ctx context.Context, call string) (*Result, error) {
	var res *Result
	err := retry.Do(ctx, h.backoff(), func(ctx context.Context) error {
		sid, err := h.session(ctx)
		if err != nil {
			return err
		}

		r, err := h.search(ctx, sid, call)
		if errors.Is(err, errSessionExpired) {
			h.dropSession(sid)
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	return res, err
}

// session returns a live session id, logging in when there is none.
func (h *HamQTH) session(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sessionID != "" && h.now().Before(h.expires) {
		return h.sessionID, nil
	}

	reply, err := h.get(ctx, url.Values{"u": {h.user}, "p": {h.password}})
	if err != nil {
		return "", err
	}
	if reply.Session.ID == "" {
		return "", fmt.Errorf("hamqth login: %s", cmp.Or(reply.Session.Error, "no session id"))
	}

	h.sessionID = strings.TrimSpace(reply.Session.ID)
	h.expires = h.now().Add(sessionTTL)
	h.log.Debug(ctx, "hamqth session established")
	return h.sessionID, nil
}

func (h *HamQTH) dropSession(sid string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessionID == sid {
		h.sessionID = ""
	}
}

func (h *HamQTH) search(ctx context.Context, sid, call string) (*Result, error) {
	reply, err := h.get(ctx, url.Values{"id": {sid}, "callsign": {call}, "prg": {programName}})
	if err != nil {
		return nil, err
	}

	if reply.Search == nil {
		msg := reply.Session.Error
		if strings.Contains(strings.ToLower(msg), "session") {
			return nil, errSessionExpired
		}
		return nil, fmt.Errorf("%w: %s", common.ErrorNotFound, cmp.Or(msg, "empty reply"))
	}

	s := reply.Search
	r := &Result{
		Callsign: call,
		Name:     cmp.Or(strings.TrimSpace(s.Nick), strings.TrimSpace(s.AdrName)),
		Qth:      strings.TrimSpace(s.AdrCity),
		Grid:     strings.TrimSpace(s.Grid),
		Country:  strings.TrimSpace(s.Country),
	}
	if r.empty() {
		return nil, common.ErrorNotFound
	}
	return r, nil
}

// get calls xml.php with q. Transport failures, 5xx and 429 replies and
// unreadable bodies are retryable.
func (h *HamQTH) get(ctx context.Context, q url.Values) (*hamqthReply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/xml.php?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		// url.Error carries the query string, credentials included.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, retry.RetryableError(fmt.Errorf("hamqth request: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError, resp.StatusCode == http.StatusTooManyRequests:
		return nil, retry.RetryableError(fmt.Errorf("hamqth: status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("hamqth: status %d", resp.StatusCode)
	}

	var reply hamqthReply
	if err := xml.NewDecoder(io.LimitReader(resp.Body, maxReplySize)).Decode(&reply); err != nil {
		return nil, retry.RetryableError(fmt.Errorf("hamqth decode: %w", err))
	}
	return &reply, nil
}
