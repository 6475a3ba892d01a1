package sifen

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/jhoicas/facturacion-sifen/internal/domain"
	"github.com/jhoicas/facturacion-sifen/pkg/sifen"
)

// ── Ambientes ─────────────────────────────────────────────────────────────────

// Environment ambiente de SIFEN.
type Environment string

const (
	EnvCertification Environment = "certificacion"
	EnvProduction    Environment = "produccion"
)

// ParseEnvironment cualquier valor distinto de "produccion" es certificación.
func ParseEnvironment(s string) Environment {
	if strings.EqualFold(strings.TrimSpace(s), string(EnvProduction)) {
		return EnvProduction
	}
	return EnvCertification
}

// IsProduction indica si es el ambiente productivo.
func (e Environment) IsProduction() bool { return e == EnvProduction }

// Endpoints URLs de un ambiente.
type Endpoints struct {
	Reception string // recepción síncrona de DE
	Query     string // consulta de DE por CDC
}

// URLs publicadas por la SET.
var DefaultEndpoints = map[Environment]Endpoints{
	EnvCertification: {
		Reception: "https://sifen-test.set.gov.py/de/ws/sync/recibe.wsdl",
		Query:     "https://sifen-test.set.gov.py/de/ws/consultas/consulta.wsdl",
	},
	EnvProduction: {
		Reception: "https://sifen.set.gov.py/de/ws/sync/recibe.wsdl",
		Query:     "https://sifen.set.gov.py/de/ws/consultas/consulta.wsdl",
	},
}

const (
	contentTypeXML       = "application/xml; charset=utf-8"
	soapNS               = "http://www.w3.org/2003/05/soap-envelope"
	maxResponseBytes     = 1 << 20
	defaultStoredBody    = 4000
	defaultClientTimeout = 30 * time.Second
)

// ── Puerto ────────────────────────────────────────────────────────────────────

// Result respuesta cruda de SIFEN. OK es true solo con HTTP 2xx; el contenido
// del cuerpo no se interpreta.
type Result struct {
	OK         bool
	HTTPStatus int
	RawBody    string
	Truncated  bool
}

// Transport puerto de salida hacia SIFEN.
type Transport interface {
	Submit(ctx context.Context, signedXML []byte, env Environment) (*Result, error)
	QueryStatus(ctx context.Context, cdc string, env Environment) (*Result, error)
}

// ── Implementación HTTP ───────────────────────────────────────────────────────

// ClientConfig parámetros del cliente.
type ClientConfig struct {
	Endpoints    map[Environment]Endpoints
	Timeout      time.Duration
	MaxStoreBody int     // bytes de respuesta que se guardan
	RPS          float64 // solicitudes por segundo hacia SIFEN; 0 = sin límite
	Burst        int
}

// Client entrega el DE firmado por POST. No reintenta: los reintentos los
// decide quien llama volviendo a emitir.
type Client struct {
	httpClient *http.Client
	endpoints  map[Environment]Endpoints
	maxStore   int
	limiter    *rate.Limiter
}

// NewClient construye el cliente con timeout acotado.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	endpoints := make(map[Environment]Endpoints, len(DefaultEndpoints))
	for env, ep := range DefaultEndpoints {
		endpoints[env] = ep
	}
	for env, ep := range cfg.Endpoints {
		cur := endpoints[env]
		if ep.Reception != "" {
			cur.Reception = ep.Reception
		}
		if ep.Query != "" {
			cur.Query = ep.Query
		}
		endpoints[env] = cur
	}
	maxStore := cfg.MaxStoreBody
	if maxStore <= 0 {
		maxStore = defaultStoredBody
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoints:  endpoints,
		maxStore:   maxStore,
		limiter:    limiter,
	}
}

var _ Transport = (*Client)(nil)

// Submit envía el rDE firmado a la recepción síncrona del ambiente.
func (c *Client) Submit(ctx context.Context, signedXML []byte, env Environment) (*Result, error) {
	if len(signedXML) == 0 {
		return nil, fmt.Errorf("sifen: XML firmado vacío")
	}
	return c.post(ctx, "recepcion", c.endpoints[ParseEnvironment(string(env))].Reception, signedXML)
}

// ── Estructuras SOAP de consulta ──────────────────────────────────────────────

type soapEnvelope struct {
	XMLName xml.Name `xml:"soap:Envelope"`
	XmlnsS  string   `xml:"xmlns:soap,attr"`
	Header  struct{} `xml:"soap:Header"`
	Body    soapBody `xml:"soap:Body"`
}

type soapBody struct {
	Query consultaDE `xml:"rEnviConsDeRequest"`
}

type consultaDE struct {
	Xmlns string `xml:"xmlns,attr"`
	ID    string `xml:"dId"`
	CDC   string `xml:"dCDC"`
}

// QueryStatus consulta el DE por CDC en el ambiente indicado.
func (c *Client) QueryStatus(ctx context.Context, cdc string, env Environment) (*Result, error) {
	if err := sifen.ValidateCDC(cdc); err != nil {
		return nil, err
	}
	envelope := soapEnvelope{
		XmlnsS: soapNS,
		Body: soapBody{Query: consultaDE{
			Xmlns: sifen.NamespaceSIFEN,
			ID:    strconv.FormatInt(time.Now().UnixNano()%1_000_000_000_000, 10),
			CDC:   cdc,
		}},
	}
	payload, err := xml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("sifen: serializar consulta: %w", err)
	}
	return c.post(ctx, "consulta", c.endpoints[ParseEnvironment(string(env))].Query, payload)
}

func (c *Client) post(ctx context.Context, op, endpoint string, body []byte) (*Result, error) {
	if endpoint == "" {
		return nil, &domain.TransportError{Op: op, Endpoint: endpoint, Err: errors.New("endpoint no configurado")}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &domain.TransportError{Op: op, Endpoint: endpoint, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &domain.TransportError{Op: op, Endpoint: endpoint, Err: fmt.Errorf("crear request: %w", err)}
	}
	req.Header.Set("Content-Type", contentTypeXML)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &domain.TransportError{Op: op, Endpoint: endpoint, Err: fmt.Errorf("timeout o cancelación: %w", ctx.Err())}
		}
		return nil, &domain.TransportError{Op: op, Endpoint: endpoint, Err: fmt.Errorf("llamada HTTP fallida: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &domain.TransportError{Op: op, Endpoint: endpoint, Err: fmt.Errorf("leer respuesta: %w", err)}
	}

	res := &Result{
		OK:         resp.StatusCode >= 200 && resp.StatusCode < 300,
		HTTPStatus: resp.StatusCode,
		RawBody:    string(raw),
	}
	if len(raw) > c.maxStore {
		res.RawBody = truncateUTF8(string(raw), c.maxStore)
		res.Truncated = true
	}
	return res, nil
}

// FailedResult resultado sintético para un envío que no llegó a SIFEN.
func FailedResult(err error) *Result {
	return &Result{OK: false, HTTPStatus: 0, RawBody: err.Error()}
}

// truncateUTF8 corta en n bytes sin partir una runa.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
