package signer

import (
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jhoicas/facturacion-sifen/internal/domain"
)

// SigningContext dueño del material de firma del proceso. El almacén se lee
// una sola vez, en el primer uso; un error de carga también queda fijado y
// no se reintenta.
type SigningContext struct {
	path     string
	password string

	once     sync.Once
	material *KeyMaterial
	err      error
}

// NewSigningContext prepara la carga diferida desde path (.p12/.pfx, o .pem
// con certificado y llave en el mismo archivo).
func NewSigningContext(path, password string) *SigningContext {
	return &SigningContext{path: path, password: password}
}

// NewStaticSigningContext usa una llave y certificados ya cargados.
func NewStaticSigningContext(key *rsa.PrivateKey, certs ...*x509.Certificate) *SigningContext {
	sc := &SigningContext{}
	sc.once.Do(func() {
		sc.material, sc.err = NewKeyMaterial(key, certs)
		if sc.err != nil {
			sc.err = &domain.SigningError{Op: "cargar certificado", Err: sc.err}
		}
	})
	return sc
}

// Material devuelve el material de firma, cargándolo si hace falta.
func (c *SigningContext) Material() (*KeyMaterial, error) {
	c.once.Do(c.load)
	return c.material, c.err
}

func (c *SigningContext) load() {
	if strings.TrimSpace(c.path) == "" {
		c.err = &domain.SigningError{Op: "cargar certificado", Err: errors.New("SIFEN_CERT_PATH no configurado")}
		return
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		c.err = &domain.SigningError{Op: "leer certificado", Err: err}
		return
	}
	var m *KeyMaterial
	switch strings.ToLower(filepath.Ext(c.path)) {
	case ".pem", ".crt":
		m, err = LoadPEM(data)
	default:
		m, err = LoadPKCS12(data, c.password)
	}
	if err != nil {
		c.err = &domain.SigningError{Op: "cargar certificado", Err: err}
		return
	}
	c.material = m
}
