package sdk

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/absmach/fldash/pkg/fl"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const CTJSON string = "application/json"

const (
	clientEndpoint       = "/client"
	clientsEndpoint      = "/clients"
	serverStatusEndpoint = "/server/status"
	logsEndpoint         = "/logs"
)

// SDK reads coordinator state over its REST API.
type SDK interface {
	// Client gets one client's detailed state.
	//
	// example:
	//  c, _ := sdk.Client(ctx, "1")
	//  fmt.Println(c.Trust)
	Client(ctx context.Context, id string) (fl.ClientRecord, error)

	// ServerStatus gets the latest aggregate round snapshot.
	//
	// example:
	//  r, _ := sdk.ServerStatus(ctx)
	//  fmt.Println(r.Round)
	ServerStatus(ctx context.Context) (fl.RoundSnapshot, error)

	// Clients gets the current roster.
	//
	// example:
	//  roster, _ := sdk.Clients(ctx)
	//  fmt.Println(len(roster))
	Clients(ctx context.Context) (fl.Roster, error)

	// Logs gets the recent aggregation log window.
	//
	// example:
	//  logs, _ := sdk.Logs(ctx)
	//  fmt.Println(logs)
	Logs(ctx context.Context) (fl.Logs, error)
}

type flSDK struct {
	coordinatorURL string
	client         *http.Client
}

type Config struct {
	CoordinatorURL  string
	TLSVerification bool
	// Timeout bounds one request; zero means no limit beyond the caller's
	// context.
	Timeout time.Duration
}

func NewSDK(cfg Config) SDK {
	return &flSDK{
		coordinatorURL: strings.TrimSuffix(cfg.CoordinatorURL, "/"),
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: otelhttp.NewTransport(&http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			}),
		},
	}
}

func (sdk *flSDK) Client(ctx context.Context, id string) (fl.ClientRecord, error) {
	u := sdk.coordinatorURL + clientEndpoint + "/" + url.PathEscape(id)

	body, err := sdk.processRequest(ctx, http.MethodGet, u, http.StatusOK)
	if err != nil {
		return fl.ClientRecord{}, err
	}

	return fl.DecodeClient(body, id)
}

func (sdk *flSDK) ServerStatus(ctx context.Context) (fl.RoundSnapshot, error) {
	body, err := sdk.processRequest(ctx, http.MethodGet, sdk.coordinatorURL+serverStatusEndpoint, http.StatusOK)
	if err != nil {
		return fl.RoundSnapshot{}, err
	}

	return fl.DecodeRound(body)
}

func (sdk *flSDK) Clients(ctx context.Context) (fl.Roster, error) {
	body, err := sdk.processRequest(ctx, http.MethodGet, sdk.coordinatorURL+clientsEndpoint, http.StatusOK)
	if err != nil {
		return nil, err
	}

	return fl.DecodeRoster(body)
}

func (sdk *flSDK) Logs(ctx context.Context) (fl.Logs, error) {
	body, err := sdk.processRequest(ctx, http.MethodGet, sdk.coordinatorURL+logsEndpoint, http.StatusOK)
	if err != nil {
		return nil, err
	}

	return fl.DecodeLogs(body)
}

func (sdk *flSDK) processRequest(ctx context.Context, method, reqURL string, expectedRespCode int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, http.NoBody)
	if err != nil {
		return []byte{}, err
	}

	req.Header.Add("Accept", CTJSON)

	resp, err := sdk.client.Do(req)
	if err != nil {
		return []byte{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, err
	}

	if resp.StatusCode != expectedRespCode {
		return []byte{}, fmt.Errorf("unexpected response code: %d", resp.StatusCode)
	}

	return body, nil
}
