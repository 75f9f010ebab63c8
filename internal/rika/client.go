package rika

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html"
)

const (
	loginPath     = "/web/login"
	stovePath     = "/web/stove/"
	clientAPIPath = "/api/client/"

	// Main states the stove reports while actually burning pellets.
	stateBurning        = 4
	stateBurningControl = 5
)

// ErrNoStove indicates the login succeeded but no stove was listed for the
// account.
var ErrNoStove = errors.New("rika: no stove found for account")

// Options parameterise the Firenet client.
type Options struct {
	BaseURL   string
	Email     string
	Password  string
	Timeout   time.Duration
	UserAgent string
}

// Client talks to the Rika Firenet portal. Authentication is cookie based:
// a form login establishes a session, and the stove id is discovered from
// the stove list on the landing page.
type Client struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	baseURL string

	stoveID string
}

// NewClient constructs a Firenet client with a cookie-jar session.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://www.rika-firenet.com"
	}

	jar, _ := cookiejar.New(nil)

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "rika_client").Logger(),
		client:  &http.Client{Timeout: timeout, Jar: jar},
		baseURL: baseURL,
	}
}

// EnsureSession logs in when no session is established yet and returns the
// stove id. The id is cached; a failed status fetch should be followed by
// Reset and a fresh EnsureSession.
func (c *Client) EnsureSession(ctx context.Context) (string, error) {
	if c.stoveID != "" {
		return c.stoveID, nil
	}

	stoveID, err := c.login(ctx)
	if err != nil {
		return "", err
	}

	c.stoveID = stoveID
	c.logger.Debug().Str("stove_id", stoveID).Msg("firenet session established")
	return stoveID, nil
}

// Reset drops the cached session so the next call logs in again.
func (c *Client) Reset() {
	c.stoveID = ""
}

func (c *Client) login(ctx context.Context) (string, error) {
	if c.opts.Email == "" || c.opts.Password == "" {
		return "", errors.New("rika: email and password required")
	}

	form := url.Values{}
	form.Set("email", c.opts.Email)
	form.Set("password", c.opts.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.setUserAgent(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send login request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read login response: %w", err)
	}

	// The portal answers 200 for both outcomes; only a logged-in page
	// carries the logout link.
	if !strings.Contains(string(body), "Log out") {
		return "", errors.New("rika: login rejected, check credentials")
	}

	stoveID, err := extractStoveID(body)
	if err != nil {
		return "", err
	}
	return stoveID, nil
}

// extractStoveID pulls the first stove link out of the ul#stoveList element
// of the landing page.
func extractStoveID(page []byte) (string, error) {
	doc, err := html.Parse(strings.NewReader(string(page)))
	if err != nil {
		return "", fmt.Errorf("parse stove list page: %w", err)
	}

	list := findElement(doc, "ul", "id", "stoveList")
	if list == nil {
		return "", ErrNoStove
	}

	anchor := findElement(list, "a", "", "")
	if anchor == nil {
		return "", ErrNoStove
	}

	for _, attr := range anchor.Attr {
		if attr.Key == "href" && attr.Val != "" {
			return strings.TrimPrefix(attr.Val, stovePath), nil
		}
	}
	return "", ErrNoStove
}

func findElement(node *html.Node, tag, attrKey, attrVal string) *html.Node {
	if node.Type == html.ElementNode && node.Data == tag {
		if attrKey == "" {
			return node
		}
		for _, attr := range node.Attr {
			if attr.Key == attrKey && attr.Val == attrVal {
				return node
			}
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, tag, attrKey, attrVal); found != nil {
			return found
		}
	}
	return nil
}

// FetchStatus reads the live status document of the given stove.
func (c *Client) FetchStatus(ctx context.Context, stoveID string) (StoveStatus, error) {
	if stoveID == "" {
		return StoveStatus{}, errors.New("rika: stove id required")
	}

	endpoint := fmt.Sprintf("%s%s%s/status?nocache=%d", c.baseURL, clientAPIPath, stoveID, time.Now().Unix())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return StoveStatus{}, fmt.Errorf("create status request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.setUserAgent(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return StoveStatus{}, fmt.Errorf("send status request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return StoveStatus{}, fmt.Errorf("read status response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return StoveStatus{}, fmt.Errorf("firenet status returned %d", resp.StatusCode)
	}

	var doc statusDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return StoveStatus{}, fmt.Errorf("decode status payload: %w", err)
	}

	return doc.toStatus()
}

func (c *Client) setUserAgent(req *http.Request) {
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}
}

type statusDocument struct {
	Sensors struct {
		InputRoomTemperature    flexNumber `json:"inputRoomTemperature"`
		ParameterFeedRateTotal  flexNumber `json:"parameterFeedRateTotal"`
		ParameterRuntimePellets flexNumber `json:"parameterRuntimePellets"`
		StatusMainState         int        `json:"statusMainState"`
	} `json:"sensors"`
	Controls struct {
		TargetTemperature flexNumber `json:"targetTemperature"`
	} `json:"controls"`
}

func (d statusDocument) toStatus() (StoveStatus, error) {
	room, err := d.Sensors.InputRoomTemperature.Float64()
	if err != nil {
		return StoveStatus{}, fmt.Errorf("parse room temperature: %w", err)
	}
	target, err := d.Controls.TargetTemperature.Float64()
	if err != nil {
		return StoveStatus{}, fmt.Errorf("parse thermostat target: %w", err)
	}
	fuel, err := d.Sensors.ParameterFeedRateTotal.Decimal()
	if err != nil {
		return StoveStatus{}, fmt.Errorf("parse fuel counter: %w", err)
	}
	hours, err := d.Sensors.ParameterRuntimePellets.Decimal()
	if err != nil {
		return StoveStatus{}, fmt.Errorf("parse runtime counter: %w", err)
	}

	state := d.Sensors.StatusMainState
	return StoveStatus{
		RoomTemperature:     room,
		ThermostatTarget:    target,
		IsBurning:           state == stateBurning || state == stateBurningControl,
		FuelCounterKg:       fuel,
		RuntimeCounterHours: hours,
	}, nil
}

// flexNumber accepts both JSON numbers and numeric strings; the Firenet API
// quotes some sensor values.
type flexNumber string

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	trimmed := strings.Trim(string(data), `"`)
	*f = flexNumber(trimmed)
	return nil
}

func (f flexNumber) Float64() (float64, error) {
	if f == "" || f == "null" {
		return 0, errors.New("value missing")
	}
	return strconv.ParseFloat(string(f), 64)
}

func (f flexNumber) Decimal() (decimal.Decimal, error) {
	if f == "" || f == "null" {
		return decimal.Decimal{}, errors.New("value missing")
	}
	return decimal.NewFromString(string(f))
}

var _ StatusFetcher = (*Client)(nil)
