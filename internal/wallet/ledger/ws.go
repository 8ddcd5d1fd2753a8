package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/xrpkeeper/internal/logging"
	"github.com/dmitrijs2005/xrpkeeper/internal/wallet/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait     = 10 * time.Second
	handshakeWait = 15 * time.Second
)

// rpcError is an error reply from the node.
type rpcError struct {
	Code    string
	Message string
}

func (e *rpcError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

type response struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Status       string          `json:"status"`
	Result       json.RawMessage `json:"result"`
	Error        string          `json:"error"`
	ErrorMessage string          `json:"error_message"`
}

// WSClient talks to a node's websocket JSON API. Requests may be issued
// concurrently; replies are matched by id.
type WSClient struct {
	conn *websocket.Conn
	log  logging.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan response
	readErr error

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to url (ws:// or wss://).
func Dial(ctx context.Context, url string, log logging.Logger) (*WSClient, error) {
	d := websocket.Dialer{HandshakeTimeout: handshakeWait}
	conn, _, err := d.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	c := &WSClient{
		conn:    conn,
		log:     log.With("module", "ledger", "node", url),
		pending: make(map[string]chan response),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// NewDialer returns a Dialer for url.
func NewDialer(url string, log logging.Logger) Dialer {
	return func(ctx context.Context) (Client, error) {
		return Dial(ctx, url, log)
	}
}

func (c *WSClient) readLoop() {
	var err error
	for {
		var r response
		if err = c.conn.ReadJSON(&r); err != nil {
			break
		}
		if r.Type != "" && r.Type != "response" {
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[r.ID]
		delete(c.pending, r.ID)
		c.mu.Unlock()

		if ok {
			ch <- r
		}
	}

	c.mu.Lock()
	c.readErr = err
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()
	c.shutdown()
}

func (c *WSClient) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Close sends a close frame and releases the connection.
func (c *WSClient) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	c.shutdown()
	return nil
}

// request sends command with params and decodes the result into out.
func (c *WSClient) request(ctx context.Context, command string, params map[string]any, out any) error {
	id := uuid.NewString()
	msg := map[string]any{"id": id, "command": command}
	for k, v := range params {
		msg[k] = v
	}

	ch := make(chan response, 1)
	c.mu.Lock()
	if c.readErr != nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrUnavailable, c.readErr)
	}
	c.pending[id] = ch
	c.mu.Unlock()

	c.writeMu.Lock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.conn.WriteJSON(msg)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(id)
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, command, err)
	}

	select {
	case <-ctx.Done():
		c.forget(id)
		return ctx.Err()
	case r, ok := <-ch:
		if !ok {
			return fmt.Errorf("%w: connection closed during %s", ErrUnavailable, command)
		}
		if r.Status == "error" || r.Error != "" {
			return &rpcError{Code: r.Error, Message: r.ErrorMessage}
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(r.Result, out); err != nil {
			return fmt.Errorf("%s: decode result: %w", command, err)
		}
		return nil
	}
}

func (c *WSClient) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *WSClient) Ping(ctx context.Context) error {
	return c.request(ctx, "ping", nil, nil)
}

func (c *WSClient) Fee(ctx context.Context) (Fee, error) {
	var res struct {
		Drops struct {
			BaseFee       string `json:"base_fee"`
			OpenLedgerFee string `json:"open_ledger_fee"`
		} `json:"drops"`
	}
	if err := c.request(ctx, "fee", nil, &res); err != nil {
		return Fee{}, err
	}

	base := parseUintOr(res.Drops.BaseFee, DefaultBaseFee)
	return Fee{
		BaseFee:       base,
		OpenLedgerFee: parseUintOr(res.Drops.OpenLedgerFee, base),
	}, nil
}

func (c *WSClient) CurrentLedgerIndex(ctx context.Context) (uint32, error) {
	var res struct {
		LedgerCurrentIndex uint32 `json:"ledger_current_index"`
	}
	if err := c.request(ctx, "ledger_current", nil, &res); err != nil {
		return 0, err
	}
	if res.LedgerCurrentIndex == 0 {
		return 0, errors.New("ledger_current: no ledger index in reply")
	}
	return res.LedgerCurrentIndex, nil
}

func (c *WSClient) ValidatedLedgerIndex(ctx context.Context) (uint32, error) {
	var res struct {
		LedgerIndex uint32 `json:"ledger_index"`
		Validated   bool   `json:"validated"`
	}
	if err := c.request(ctx, "ledger", map[string]any{"ledger_index": "validated"}, &res); err != nil {
		return 0, err
	}
	if res.LedgerIndex == 0 || !res.Validated {
		return 0, errors.New("ledger: no validated ledger in reply")
	}
	return res.LedgerIndex, nil
}

func (c *WSClient) AccountInfo(ctx context.Context, address string, validated bool) (AccountInfo, error) {
	ledgerIndex := "current"
	if validated {
		ledgerIndex = "validated"
	}

	var res struct {
		AccountData struct {
			Balance  string `json:"Balance"`
			Sequence uint32 `json:"Sequence"`
		} `json:"account_data"`
	}
	err := c.request(ctx, "account_info", map[string]any{"account": address, "ledger_index": ledgerIndex}, &res)
	if err != nil {
		return AccountInfo{}, mapRPCError(err, "actNotFound", ErrAccountNotFound)
	}
	if res.AccountData.Sequence == 0 {
		return AccountInfo{}, ErrAccountNotFound
	}

	balance, err := models.ParseDrops(res.AccountData.Balance)
	if err != nil {
		return AccountInfo{}, fmt.Errorf("account_info: %w", err)
	}
	return AccountInfo{Balance: balance, Sequence: res.AccountData.Sequence}, nil
}

func (c *WSClient) Submit(ctx context.Context, blobHex string) (SubmitResult, error) {
	var res struct {
		EngineResult        string `json:"engine_result"`
		EngineResultMessage string `json:"engine_result_message"`
		TxJSON              struct {
			Hash string `json:"hash"`
		} `json:"tx_json"`
	}
	if err := c.request(ctx, "submit", map[string]any{"tx_blob": blobHex}, &res); err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{
		EngineResult:        res.EngineResult,
		EngineResultMessage: res.EngineResultMessage,
		Hash:                res.TxJSON.Hash,
	}, nil
}

func (c *WSClient) TransactionStatus(ctx context.Context, hash string) (TxStatus, error) {
	var res struct {
		Hash        string `json:"hash"`
		Validated   bool   `json:"validated"`
		LedgerIndex uint32 `json:"ledger_index"`
		Meta        struct {
			TransactionResult string `json:"TransactionResult"`
		} `json:"meta"`
	}
	if err := c.request(ctx, "tx", map[string]any{"transaction": hash}, &res); err != nil {
		return TxStatus{}, mapRPCError(err, "txnNotFound", ErrTxNotFound)
	}
	return TxStatus{
		Hash:        hash,
		Validated:   res.Validated,
		ResultCode:  res.Meta.TransactionResult,
		LedgerIndex: res.LedgerIndex,
	}, nil
}

func (c *WSClient) AccountTransactions(ctx context.Context, address string, limit int) ([]models.ActivityRecord, error) {
	var res struct {
		Transactions []accountTxEntry `json:"transactions"`
	}
	params := map[string]any{
		"account":          address,
		"ledger_index_min": -1,
		"ledger_index_max": -1,
		"limit":            limit,
	}
	if err := c.request(ctx, "account_tx", params, &res); err != nil {
		return nil, mapRPCError(err, "actNotFound", ErrAccountNotFound)
	}

	out := make([]models.ActivityRecord, 0, len(res.Transactions))
	for _, e := range res.Transactions {
		rec, err := e.record(address)
		if err != nil {
			c.log.Warn(ctx, "skipping unreadable history entry", "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *WSClient) AccountLines(ctx context.Context, address string) ([]models.TrustLine, error) {
	var res struct {
		Lines []struct {
			Account      string `json:"account"`
			Currency     string `json:"currency"`
			Balance      string `json:"balance"`
			Limit        string `json:"limit"`
			LimitPeer    string `json:"limit_peer"`
			NoRipple     bool   `json:"no_ripple"`
			NoRipplePeer bool   `json:"no_ripple_peer"`
			Freeze       bool   `json:"freeze"`
			FreezePeer   bool   `json:"freeze_peer"`
		} `json:"lines"`
	}
	if err := c.request(ctx, "account_lines", map[string]any{"account": address}, &res); err != nil {
		return nil, mapRPCError(err, "actNotFound", ErrAccountNotFound)
	}

	out := make([]models.TrustLine, len(res.Lines))
	for i, l := range res.Lines {
		out[i] = models.TrustLine{
			Peer:         l.Account,
			Currency:     l.Currency,
			Balance:      l.Balance,
			Limit:        l.Limit,
			LimitPeer:    l.LimitPeer,
			NoRipple:     l.NoRipple,
			NoRipplePeer: l.NoRipplePeer,
			Freeze:       l.Freeze,
			FreezePeer:   l.FreezePeer,
		}
	}
	return out, nil
}

func mapRPCError(err error, code string, sentinel error) error {
	var re *rpcError
	if errors.As(err, &re) && re.Code == code {
		return fmt.Errorf("%w: %s", sentinel, re.Error())
	}
	return err
}

func parseUintOr(s string, def uint64) uint64 {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return def
	}
	return n
}
