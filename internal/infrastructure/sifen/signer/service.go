package signer

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/beevik/etree"

	"github.com/jhoicas/facturacion-sifen/internal/domain"
	"github.com/jhoicas/facturacion-sifen/pkg/sifen"
)

// Service firma el rDE con XAdES-BES:
//   - Reference al DE (o al documento completo si no hay DE con Id) con
//     transformaciones enveloped-signature y Exclusive C14N.
//   - Reference a xades:SignedProperties con Type SignedProperties.
//   - SignedInfo canonicalizado con Exclusive C14N y firmado con RSA-SHA256.
//
// SignedProperties se arma completo (emisor y serial reales) antes de firmar.
type Service struct {
	ctx *SigningContext
	now func() time.Time
}

// NewService crea el firmador sobre un SigningContext.
func NewService(ctx *SigningContext) *Service {
	return &Service{ctx: ctx, now: time.Now}
}

// WithClock reemplaza el reloj usado para SigningTime.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

var _ sifen.Signer = (*Service)(nil)

// Sign implementa sifen.Signer. No es idempotente: cada firma lleva su propia
// hora.
func (s *Service) Sign(canonicalXML []byte) (*sifen.SignedDocument, error) {
	m, err := s.ctx.Material()
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(canonicalXML); err != nil {
		return nil, &domain.SigningError{Op: "parsear XML", Err: err}
	}
	root := doc.Root()
	if root == nil {
		return nil, &domain.SigningError{Op: "parsear XML", Err: fmt.Errorf("documento sin raíz")}
	}
	if findSignature(root) != nil {
		return nil, &domain.SigningError{Op: "firmar", Err: fmt.Errorf("el documento ya está firmado")}
	}

	// ── 1. Elemento a firmar ─────────────────────────────────────────────────
	uri, baseID := "", "doc"
	if de := root.SelectElement(DocumentElement); de != nil {
		if id := de.SelectAttrValue("Id", ""); id != "" {
			uri, baseID = "#"+id, id
		}
	}
	sigID := "Signature-" + baseID
	propsID := sigID + "-SignedProperties"

	// ── 2. Árbol ds:Signature con SignedProperties completo ─────────────────
	sig := etree.NewElement("ds:Signature")
	sig.CreateAttr("xmlns:ds", NamespaceDS)
	sig.CreateAttr("Id", sigID)

	si := sig.CreateElement("ds:SignedInfo")
	si.CreateElement("ds:CanonicalizationMethod").CreateAttr("Algorithm", AlgExcC14N)
	si.CreateElement("ds:SignatureMethod").CreateAttr("Algorithm", AlgRSASHA256)

	docRef := si.CreateElement("ds:Reference")
	docRef.CreateAttr("URI", uri)
	transforms := docRef.CreateElement("ds:Transforms")
	transforms.CreateElement("ds:Transform").CreateAttr("Algorithm", TransformEnveloped)
	transforms.CreateElement("ds:Transform").CreateAttr("Algorithm", AlgExcC14N)
	docRef.CreateElement("ds:DigestMethod").CreateAttr("Algorithm", AlgSHA256)
	docDigest := docRef.CreateElement("ds:DigestValue")

	propsRef := si.CreateElement("ds:Reference")
	propsRef.CreateAttr("Type", TypeSignedProperties)
	propsRef.CreateAttr("URI", "#"+propsID)
	propsRef.CreateElement("ds:Transforms").CreateElement("ds:Transform").CreateAttr("Algorithm", AlgExcC14N)
	propsRef.CreateElement("ds:DigestMethod").CreateAttr("Algorithm", AlgSHA256)
	propsDigest := propsRef.CreateElement("ds:DigestValue")

	sigValue := sig.CreateElement("ds:SignatureValue")

	x509Data := sig.CreateElement("ds:KeyInfo").CreateElement("ds:X509Data")
	x509Data.CreateElement("ds:X509Certificate").SetText(base64.StdEncoding.EncodeToString(m.Certificate.Raw))

	qp := sig.CreateElement("ds:Object").CreateElement("xades:QualifyingProperties")
	qp.CreateAttr("xmlns:xades", NamespaceXAdES)
	qp.CreateAttr("Target", "#"+sigID)
	props := qp.CreateElement("xades:SignedProperties")
	props.CreateAttr("Id", propsID)
	ssp := props.CreateElement("xades:SignedSignatureProperties")
	ssp.CreateElement("xades:SigningTime").SetText(s.now().Format(time.RFC3339))
	cert := ssp.CreateElement("xades:SigningCertificate").CreateElement("xades:Cert")
	certDigest := cert.CreateElement("xades:CertDigest")
	certDigest.CreateElement("ds:DigestMethod").CreateAttr("Algorithm", AlgSHA256)
	certDigest.CreateElement("ds:DigestValue").SetText(CertDigest(m.Certificate))
	issuerSerial := cert.CreateElement("xades:IssuerSerial")
	issuerSerial.CreateElement("ds:X509IssuerName").SetText(m.Metadata.Issuer)
	issuerSerial.CreateElement("ds:X509SerialNumber").SetText(m.Metadata.Serial)

	root.AddChild(sig)

	// ── 3. Digests de ambas referencias ──────────────────────────────────────
	dv, err := referenceDigest(doc, uri, true, sigID)
	if err != nil {
		return nil, &domain.SigningError{Op: "digest del documento", Err: err}
	}
	docDigest.SetText(dv)

	propsCanonical, err := excC14N(props)
	if err != nil {
		return nil, &domain.SigningError{Op: "canonicalizar SignedProperties", Err: err}
	}
	propsDigest.SetText(digestB64(propsCanonical))

	// ── 4. Firma de SignedInfo ───────────────────────────────────────────────
	siCanonical, err := excC14N(si)
	if err != nil {
		return nil, &domain.SigningError{Op: "canonicalizar SignedInfo", Err: err}
	}
	hash := sha256.Sum256(siCanonical)
	signature, err := rsa.SignPKCS1v15(rand.Reader, m.PrivateKey, crypto.SHA256, hash[:])
	if err != nil {
		return nil, &domain.SigningError{Op: "firmar SignedInfo", Err: err}
	}
	sigValue.SetText(base64.StdEncoding.EncodeToString(signature))

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, &domain.SigningError{Op: "serializar XML", Err: err}
	}
	return &sifen.SignedDocument{
		XML:         out,
		DigestValue: dv,
		Certificate: m.Metadata,
	}, nil
}
