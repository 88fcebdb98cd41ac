package address

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the public ViaCEP endpoint
const DefaultBaseURL = "https://viacep.com.br/ws"

var (
	// ErrInvalidCEP is returned for postal codes that are not 8 digits
	ErrInvalidCEP = errors.New("invalid CEP")
	// ErrNotFound is returned when the service does not know the postal code
	ErrNotFound = errors.New("CEP not found")
)

// Address is the street information behind a postal code
type Address struct {
	CEP          string `json:"cep"`
	Street       string `json:"street"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
}

// Client looks up postal codes
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a Client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type viaCEPResponse struct {
	CEP         string `json:"cep"`
	Logradouro  string `json:"logradouro"`
	Complemento string `json:"complemento"`
	Bairro      string `json:"bairro"`
	Localidade  string `json:"localidade"`
	UF          string `json:"uf"`
	// erro is sent as true or "true" for unknown codes
	Erro any `json:"erro"`
}

// Lookup returns the address of a postal code written with or without its
// separator
func (c *Client) Lookup(ctx context.Context, cep string) (*Address, error) {
	digits, ok := NormalizeCEP(cep)
	if !ok {
		return nil, fmt.Errorf("%q: %w", cep, ErrInvalidCEP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s/json/", c.baseURL, digits), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling CEP service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", digits, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("CEP service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out viaCEPResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if out.Erro != nil && fmt.Sprint(out.Erro) == "true" {
		return nil, fmt.Errorf("%s: %w", digits, ErrNotFound)
	}

	return &Address{
		CEP:          FormatCEP(digits),
		Street:       out.Logradouro,
		Complement:   out.Complemento,
		Neighborhood: out.Bairro,
		City:         out.Localidade,
		State:        out.UF,
	}, nil
}

// NormalizeCEP strips separators and reports whether 8 digits remain
func NormalizeCEP(cep string) (string, bool) {
	var b strings.Builder
	for _, r := range cep {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '.' || r == ' ':
		default:
			return "", false
		}
	}
	if b.Len() != 8 {
		return "", false
	}
	return b.String(), true
}

// FormatCEP writes a postal code as 00000-000. Invalid input is returned
// unchanged.
func FormatCEP(cep string) string {
	digits, ok := NormalizeCEP(cep)
	if !ok {
		return cep
	}
	return digits[:5] + "-" + digits[5:]
}
