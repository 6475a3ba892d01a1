package signer

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

var (
	ErrNoSignature      = errors.New("el documento no tiene ds:Signature")
	ErrDigestMismatch   = errors.New("el digest de una referencia no coincide")
	ErrInvalidSignature = errors.New("SignatureValue inválido")
)

func errReferenceNotFound(uri string) error {
	return fmt.Errorf("referencia %q no encontrada en el documento", uri)
}

// Verify comprueba la firma XAdES de un rDE: recalcula el digest de cada
// Reference y valida SignatureValue con el certificado de KeyInfo. Devuelve
// el certificado firmante.
func Verify(signedXML []byte) (*x509.Certificate, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(signedXML); err != nil {
		return nil, fmt.Errorf("parsear XML: %w", err)
	}
	if doc.Root() == nil {
		return nil, ErrNoSignature
	}
	sig := findSignature(doc.Root())
	if sig == nil {
		return nil, ErrNoSignature
	}
	sigID := sig.SelectAttrValue("Id", "")

	si := sig.SelectElement("SignedInfo")
	if si == nil {
		return nil, errors.New("ds:SignedInfo ausente")
	}
	if m := si.SelectElement("SignatureMethod"); m == nil || m.SelectAttrValue("Algorithm", "") != AlgRSASHA256 {
		return nil, errors.New("SignatureMethod no soportado")
	}

	refs := si.SelectElements("Reference")
	if len(refs) == 0 {
		return nil, errors.New("ds:SignedInfo sin referencias")
	}
	hasProps := false
	for _, ref := range refs {
		uri := ref.SelectAttrValue("URI", "")
		if ref.SelectAttrValue("Type", "") == TypeSignedProperties {
			hasProps = true
		}
		enveloped := false
		if tr := ref.SelectElement("Transforms"); tr != nil {
			for _, t := range tr.SelectElements("Transform") {
				if t.SelectAttrValue("Algorithm", "") == TransformEnveloped {
					enveloped = true
				}
			}
		}
		if dm := ref.SelectElement("DigestMethod"); dm == nil || dm.SelectAttrValue("Algorithm", "") != AlgSHA256 {
			return nil, fmt.Errorf("DigestMethod no soportado en %q", uri)
		}
		dvEl := ref.SelectElement("DigestValue")
		if dvEl == nil {
			return nil, fmt.Errorf("DigestValue ausente en %q", uri)
		}
		got, err := referenceDigest(doc, uri, enveloped, sigID)
		if err != nil {
			return nil, err
		}
		if got != strings.TrimSpace(dvEl.Text()) {
			return nil, fmt.Errorf("%w: %q", ErrDigestMismatch, uri)
		}
	}
	if !hasProps {
		return nil, errors.New("falta la referencia a xades:SignedProperties")
	}

	certEl := sig.FindElement("KeyInfo/X509Data/X509Certificate")
	if certEl == nil {
		return nil, errors.New("KeyInfo sin X509Certificate")
	}
	der, err := base64.StdEncoding.DecodeString(compact(certEl.Text()))
	if err != nil {
		return nil, fmt.Errorf("decodificar certificado: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parsear certificado: %w", err)
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("el certificado no tiene llave RSA")
	}

	svEl := sig.SelectElement("SignatureValue")
	if svEl == nil {
		return nil, errors.New("ds:SignatureValue ausente")
	}
	sv, err := base64.StdEncoding.DecodeString(compact(svEl.Text()))
	if err != nil {
		return nil, fmt.Errorf("decodificar SignatureValue: %w", err)
	}
	canonical, err := excC14N(si)
	if err != nil {
		return nil, fmt.Errorf("canonicalizar SignedInfo: %w", err)
	}
	hash := sha256.Sum256(canonical)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, hash[:], sv); err != nil {
		return nil, ErrInvalidSignature
	}
	return cert, nil
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}
