// Carga del certificado de firma desde PKCS#12 (.p12/.pfx) o PEM.

package signer

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"

	"golang.org/x/crypto/pkcs12"

	"github.com/jhoicas/facturacion-sifen/pkg/sifen"
)

// KeyMaterial llave privada, certificado hoja y cadena listos para firmar.
type KeyMaterial struct {
	PrivateKey  *rsa.PrivateKey
	Certificate *x509.Certificate
	Chain       []*x509.Certificate
	Metadata    sifen.CertificateMetadata
}

// LoadPKCS12 decodifica un almacén PKCS#12. Se usa ToPEM (y no Decode) para
// aceptar archivos que traen la cadena de la CA además del certificado hoja.
func LoadPKCS12(data []byte, password string) (*KeyMaterial, error) {
	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		return nil, fmt.Errorf("decodificar p12: %w", err)
	}
	return fromPEMBlocks(blocks)
}

// LoadPEM lee certificado(s) y llave desde PEM (pueden venir en el mismo archivo).
func LoadPEM(data []byte) (*KeyMaterial, error) {
	var blocks []*pem.Block
	for {
		var b *pem.Block
		b, data = pem.Decode(data)
		if b == nil {
			break
		}
		blocks = append(blocks, b)
	}
	if len(blocks) == 0 {
		return nil, errors.New("el archivo no contiene bloques PEM")
	}
	return fromPEMBlocks(blocks)
}

func fromPEMBlocks(blocks []*pem.Block) (*KeyMaterial, error) {
	var key crypto.PrivateKey
	var certs []*x509.Certificate
	for _, b := range blocks {
		switch b.Type {
		case "CERTIFICATE":
			c, err := x509.ParseCertificate(b.Bytes)
			if err != nil {
				return nil, fmt.Errorf("parsear certificado: %w", err)
			}
			certs = append(certs, c)
		case "PRIVATE KEY", "RSA PRIVATE KEY", "EC PRIVATE KEY":
			k, err := parsePrivateKey(b.Bytes)
			if err != nil {
				return nil, err
			}
			key = k
		}
	}
	if key == nil {
		return nil, errors.New("el almacén no contiene llave privada")
	}
	if len(certs) == 0 {
		return nil, errors.New("el almacén no contiene certificados")
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("la llave privada es %T; SIFEN requiere RSA", key)
	}
	return NewKeyMaterial(rsaKey, certs)
}

// NewKeyMaterial elige como hoja el certificado cuya llave pública corresponde
// a la llave privada; el resto queda como cadena.
func NewKeyMaterial(key *rsa.PrivateKey, certs []*x509.Certificate) (*KeyMaterial, error) {
	if key == nil || len(certs) == 0 {
		return nil, errors.New("llave y certificado son obligatorios")
	}
	var leaf *x509.Certificate
	var chain []*x509.Certificate
	for _, c := range certs {
		if pub, ok := c.PublicKey.(*rsa.PublicKey); ok && leaf == nil && pub.Equal(&key.PublicKey) {
			leaf = c
			continue
		}
		chain = append(chain, c)
	}
	if leaf == nil {
		return nil, errors.New("ningún certificado corresponde a la llave privada")
	}
	return &KeyMaterial{
		PrivateKey:  key,
		Certificate: leaf,
		Chain:       chain,
		Metadata:    Metadata(leaf),
	}, nil
}

// Metadata datos del certificado. El serial va en decimal, como lo exige
// X509SerialNumber.
func Metadata(c *x509.Certificate) sifen.CertificateMetadata {
	return sifen.CertificateMetadata{
		Serial:    c.SerialNumber.String(),
		SerialHex: c.SerialNumber.Text(16),
		Subject:   c.Subject.String(),
		Issuer:    c.Issuer.String(),
		NotBefore: c.NotBefore,
		NotAfter:  c.NotAfter,
	}
}

// CertDigest SHA-256 del DER del certificado, en base64.
func CertDigest(c *x509.Certificate) string {
	h := sha256.Sum256(c.Raw)
	return base64.StdEncoding.EncodeToString(h[:])
}

func parsePrivateKey(der []byte) (crypto.PrivateKey, error) {
	if k, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return k, nil
	}
	if k, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		return k, nil
	}
	if k, err := x509.ParseECPrivateKey(der); err == nil {
		return k, nil
	}
	return nil, errors.New("formato de llave privada no reconocido")
}
