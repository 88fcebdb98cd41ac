package fiscal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/pantry-manager/internal/pantry"
)

// DefaultLookupTimeout bounds a single lookup request
const DefaultLookupTimeout = 30 * time.Second

// brazilTime is used for emission dates sent without an offset
var brazilTime = time.FixedZone("BRT", -3*60*60)

// HTTPLookupConfig configures the fiscal lookup service client
type HTTPLookupConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// HTTPLookup implements Lookup against a JSON lookup service that answers
// with a status/message/data envelope
type HTTPLookup struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPLookup creates a lookup client
func NewHTTPLookup(cfg HTTPLookupConfig) (*HTTPLookup, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("fiscal lookup base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultLookupTimeout
	}
	return &HTTPLookup{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// ByAccessKey looks up an NFC-e by its 44-digit access key
func (l *HTTPLookup) ByAccessKey(ctx context.Context, key string) (*pantry.FiscalReceipt, error) {
	receipt, err := l.post(ctx, "/nfce/chave", map[string]string{"chave": key})
	if err != nil {
		return nil, err
	}
	if receipt.AccessKey == "" {
		receipt.AccessKey = key
	}
	return receipt, nil
}

// ByURL looks up an NFC-e by the URL encoded in its QR code
func (l *HTTPLookup) ByURL(ctx context.Context, rawURL string) (*pantry.FiscalReceipt, error) {
	return l.post(ctx, "/nfce/url", map[string]string{"url": rawURL})
}

// BySatCode looks up a CF-e SAT coupon by its QR payload
func (l *HTTPLookup) BySatCode(ctx context.Context, code string) (*pantry.FiscalReceipt, error) {
	return l.post(ctx, "/cfe/sat", map[string]string{"codigo": code})
}

type lookupEnvelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    *lookupData `json:"data"`
}

type lookupData struct {
	Emitente struct {
		RazaoSocial  string `json:"razao_social"`
		NomeFantasia string `json:"nome_fantasia"`
		CNPJ         string `json:"cnpj"`
	} `json:"emitente"`
	NFCe struct {
		Numero      flexString `json:"numero"`
		Serie       flexString `json:"serie"`
		Chave       string     `json:"chave"`
		ValorTotal  brNumber   `json:"valor_total"`
		DataEmissao string     `json:"data_emissao"`
	} `json:"nfce"`
	Itens []lookupItem `json:"itens"`
}

type lookupItem struct {
	Codigo        flexString `json:"codigo"`
	Descricao     string     `json:"descricao"`
	Quantidade    brNumber   `json:"quantidade"`
	Unidade       string     `json:"unidade"`
	ValorUnitario brNumber   `json:"valor_unitario"`
	ValorTotal    brNumber   `json:"valor_total"`
}

func (l *HTTPLookup) post(ctx context.Context, path string, payload any) (*pantry.FiscalReceipt, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if l.token != "" {
		req.Header.Set("Authorization", "Bearer "+l.token)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling fiscal lookup: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var env lookupEnvelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode >= 300 {
		if decodeErr == nil && env.Message != "" {
			return nil, &RemoteError{Message: env.Message}
		}
		return nil, fmt.Errorf("fiscal lookup returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decoding response: %w", decodeErr)
	}
	if strings.EqualFold(env.Status, "error") || env.Data == nil {
		msg := env.Message
		if msg == "" {
			msg = "empty response"
		}
		return nil, &RemoteError{Message: msg}
	}
	return env.Data.receipt(), nil
}

func (d *lookupData) receipt() *pantry.FiscalReceipt {
	r := &pantry.FiscalReceipt{
		StoreName:   strings.TrimSpace(d.Emitente.NomeFantasia),
		StoreTaxID:  FormatCNPJ(d.Emitente.CNPJ),
		Number:      string(d.NFCe.Numero),
		AccessKey:   digitsOnly(d.NFCe.Chave),
		TotalAmount: d.NFCe.ValorTotal.Decimal,
		PurchasedAt: parseEmission(d.NFCe.DataEmissao),
		Items:       make([]pantry.FiscalReceiptItem, 0, len(d.Itens)),
	}
	if r.StoreName == "" {
		r.StoreName = strings.TrimSpace(d.Emitente.RazaoSocial)
	}
	if d.NFCe.Serie != "" && r.Number != "" {
		r.Number = string(d.NFCe.Serie) + "/" + r.Number
	}

	sum := decimal.Zero
	for _, it := range d.Itens {
		item := pantry.FiscalReceiptItem{
			Code:       strings.TrimSpace(string(it.Codigo)),
			Name:       strings.TrimSpace(it.Descricao),
			Quantity:   it.Quantidade.Decimal,
			Unit:       strings.TrimSpace(it.Unidade),
			UnitPrice:  it.ValorUnitario.Decimal,
			TotalPrice: it.ValorTotal.Decimal,
		}
		if item.Quantity.IsZero() {
			item.Quantity = decimal.NewFromInt(1)
		}
		if item.TotalPrice.IsZero() {
			item.TotalPrice = item.UnitPrice.Mul(item.Quantity).Round(2)
		}
		sum = sum.Add(item.TotalPrice)
		r.Items = append(r.Items, item)
	}
	if r.TotalAmount.IsZero() {
		r.TotalAmount = sum
	}
	return r
}

var emissionLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"2006-01-02",
}

// parseEmission reads the emission date in any of the formats seen from
// lookup services. Unparseable dates yield the zero time.
func parseEmission(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range emissionLayouts {
		if t, err := time.ParseInLocation(layout, s, brazilTime); err == nil {
			return t
		}
	}
	return time.Time{}
}

// flexString accepts a JSON string or number
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}

// brNumber accepts a JSON number or a string written either as "1234.56" or
// in Brazilian notation "1.234,56"
type brNumber struct {
	decimal.Decimal
}

func (n *brNumber) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var num json.Number
		if err := json.Unmarshal(b, &num); err != nil {
			return fmt.Errorf("expected number, got %s", b)
		}
		s = num.String()
	}
	d, err := ParseBRNumber(s)
	if err != nil {
		return err
	}
	n.Decimal = d
	return nil
}

// ParseBRNumber parses a decimal written with a comma decimal separator and
// optional dot thousands separators. Plain dot decimals are accepted too.
// An empty string is zero.
func ParseBRNumber(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing number %q: %w", s, err)
	}
	return d, nil
}
