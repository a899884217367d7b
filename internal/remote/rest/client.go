// Package rest implements the remote ports against the business backend's
// JSON API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"paperdesk/internal/core"
	"paperdesk/internal/log"
	"paperdesk/internal/remote"
)

const maxErrorBody = 64 << 10

// Client talks to the backend. It is safe for concurrent use and holds no
// per-user state; the bearer token is supplied on every call.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(log.ComponentRemote) }
}

// New creates a client for baseURL with a per-request timeout.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ remote.Backend = (*Client)(nil)

type (
	loginRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	loginResponse struct {
		JWT string `json:"jwt"`
	}

	accountRequest struct {
		VendorName string `json:"vendorName"`
		StartMonth string `json:"startMonth"`
		EndMonth   string `json:"endMonth"`
	}

	accountRow struct {
		ID          int64                `json:"id"`
		Date        string               `json:"date"`
		DisplayType core.TransactionKind `json:"displayType"`
		Type        core.Direction       `json:"type"`
		Amount      number               `json:"amount"`
		Note        string               `json:"note"`
		Balance     number               `json:"balance"`
	}

	accountResponse struct {
		OpeningBalance number       `json:"openingBalance"`
		Transactions   []accountRow `json:"transactions"`
		FinalBalance   number       `json:"finalBalance"`
		TotalTrade     number       `json:"totalTrade"`
	}

	transactionRequest struct {
		ID         int64       `json:"id,omitempty"`
		VendorName string      `json:"vendorName"`
		Date       string      `json:"date"`
		Type       string      `json:"type"`
		Amount     json.Number `json:"amount"`
		Note       string      `json:"note"`
	}

	errorResponse struct {
		Errors  []remote.FieldError `json:"errors"`
		Message string              `json:"message"`
	}
)

func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	const op = "login"
	var out loginResponse
	if err := c.do(ctx, op, http.MethodPost, "/api/login", "", loginRequest{username, password}, &out); err != nil {
		return "", err
	}
	if out.JWT == "" {
		return "", &remote.Error{Kind: remote.KindDecode, Op: op, Status: http.StatusOK, Err: errors.New("response carries no token")}
	}
	return out.JWT, nil
}

func (c *Client) Me(ctx context.Context, token string) (remote.Profile, error) {
	var p remote.Profile
	err := c.do(ctx, "current user", http.MethodGet, "/api/users/me", token, nil, &p)
	return p, err
}

func (c *Client) ListVendors(ctx context.Context, token string) ([]core.Vendor, error) {
	var vs []core.Vendor
	if err := c.do(ctx, "list vendors", http.MethodGet, "/api/vendors", token, nil, &vs); err != nil {
		return nil, err
	}
	return vs, nil
}

// Account posts the ledger query with the month range expanded to the
// first day of From and the last day of To, both as dd-MM-yyyy.
func (c *Client) Account(ctx context.Context, token string, q core.LedgerQuery) (core.LedgerResult, error) {
	body := accountRequest{
		VendorName: q.VendorName,
		StartMonth: core.QueryDate(q.From.First()),
		EndMonth:   core.QueryDate(q.To.Last()),
	}
	var out accountResponse
	if err := c.do(ctx, "vendor account", http.MethodPost, "/api/vendor-transactions/account", token, body, &out); err != nil {
		return core.LedgerResult{}, err
	}

	res := core.LedgerResult{
		OpeningBalance: out.OpeningBalance.Decimal,
		FinalBalance:   out.FinalBalance.Decimal,
		TotalTrade:     out.TotalTrade.Decimal,
		Transactions:   make([]core.LedgerTransaction, 0, len(out.Transactions)),
	}
	for _, row := range out.Transactions {
		tx := core.LedgerTransaction{
			ID:        row.ID,
			RawDate:   row.Date,
			Kind:      row.DisplayType,
			Direction: row.Type,
			Amount:    row.Amount.Decimal,
			Note:      row.Note,
			Balance:   row.Balance.Decimal,
		}
		if d, err := core.ParseLedgerDate(row.Date); err == nil {
			tx.Date = d
		} else {
			c.logger.WarnContext(ctx, "Unreadable transaction date", log.FieldTxID, row.ID, "date", row.Date)
		}
		res.Transactions = append(res.Transactions, tx)
	}
	return res, nil
}

func (c *Client) CreateTransaction(ctx context.Context, token string, d core.TransactionDraft) error {
	return c.do(ctx, "create transaction", http.MethodPost, "/api/vendor-transactions", token, newTransactionRequest(d, false), nil)
}

func (c *Client) UpdateTransaction(ctx context.Context, token string, d core.TransactionDraft) error {
	return c.do(ctx, "update transaction", http.MethodPut, "/api/vendor-transactions", token, newTransactionRequest(d, true), nil)
}

func newTransactionRequest(d core.TransactionDraft, withID bool) transactionRequest {
	req := transactionRequest{
		VendorName: d.VendorName,
		Date:       d.Date.ISO(),
		Type:       d.Kind.Code,
		Amount:     json.Number(d.Amount.String()),
		Note:       d.Note,
	}
	if withID {
		req.ID = d.ID
	}
	return req
}

func (c *Client) do(ctx context.Context, op, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &remote.Error{Kind: remote.KindTransport, Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "Backend call",
		log.FieldOperation, op,
		log.FieldMethod, method,
		log.FieldPath, path,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(op, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &remote.Error{Kind: remote.KindDecode, Op: op, Status: resp.StatusCode, Err: err}
	}
	return nil
}

// decodeError classifies a non-2xx response. Bodies are either
// {"errors":[{field,message}]}, {"message":...} or plain text.
func decodeError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	e := &remote.Error{Kind: remote.KindStatus, Op: op, Status: resp.StatusCode}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		e.Kind = remote.KindUnauthorized
	}

	var parsed errorResponse
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if len(parsed.Errors) > 0 {
			e.Kind = remote.KindRejected
			e.Fields = parsed.Errors
			return e
		}
		e.Message = parsed.Message
		return e
	}
	e.Message = strings.TrimSpace(string(raw))
	return e
}
