package signer_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sifen/internal/domain"
	"github.com/jhoicas/facturacion-sifen/internal/infrastructure/sifen/signer"
)

const cdc = "01800695631002003000001512024011010006543215"

const unsignedRDE = `<rDE xmlns="http://ekuatia.set.gov.py/sifen/xsd" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:schemaLocation="http://ekuatia.set.gov.py/sifen/xsd siRecepDE_v150.xsd">` +
	`<dVerFor>150</dVerFor>` +
	`<DE Id="` + cdc + `"><dDVId>5</dDVId><gTimb><dNumTim>12560693</dNumTim></gTimb>` +
	`<gTotSub><dTotGralOpe>121000</dTotGralOpe></gTotSub></DE></rDE>`

// ── helpers ───────────────────────────────────────────────────────────────────

var caSerial = big.NewInt(7001)

// leafSerial mayor a 64 bits para que decimal y hexadecimal difieran claramente.
var leafSerial, _ = new(big.Int).SetString("123456789012345678901234567890", 10)

type testPKI struct {
	caCert   *x509.Certificate
	leafKey  *rsa.PrivateKey
	leafCert *x509.Certificate
}

var (
	pkiOnce sync.Once
	pki     testPKI
)

func newPKI(t *testing.T) testPKI {
	t.Helper()
	pkiOnce.Do(func() {
		caKey, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		caTmpl := &x509.Certificate{
			SerialNumber:          caSerial,
			Subject:               pkix.Name{CommonName: "CA DE PRUEBA", Organization: []string{"Autoridad Certificadora"}, Country: []string{"PY"}},
			NotBefore:             time.Now().Add(-time.Hour),
			NotAfter:              time.Now().Add(24 * time.Hour),
			IsCA:                  true,
			BasicConstraintsValid: true,
			KeyUsage:              x509.KeyUsageCertSign,
		}
		caDER, err := x509.CreateCertificate(rand.Reader, caTmpl, caTmpl, &caKey.PublicKey, caKey)
		require.NoError(t, err)
		caCert, err := x509.ParseCertificate(caDER)
		require.NoError(t, err)

		leafKey, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		leafTmpl := &x509.Certificate{
			SerialNumber: leafSerial,
			Subject:      pkix.Name{CommonName: "EMPRESA DE PRUEBA S.A.", SerialNumber: "RUC80069563-1"},
			NotBefore:    time.Now().Add(-time.Hour),
			NotAfter:     time.Now().Add(24 * time.Hour),
			KeyUsage:     x509.KeyUsageDigitalSignature,
		}
		leafDER, err := x509.CreateCertificate(rand.Reader, leafTmpl, caCert, &leafKey.PublicKey, caKey)
		require.NoError(t, err)
		leafCert, err := x509.ParseCertificate(leafDER)
		require.NoError(t, err)

		pki = testPKI{caCert: caCert, leafKey: leafKey, leafCert: leafCert}
	})
	return pki
}

func newService(t *testing.T) *signer.Service {
	p := newPKI(t)
	ctx := signer.NewStaticSigningContext(p.leafKey, p.caCert, p.leafCert)
	return signer.NewService(ctx).WithClock(func() time.Time {
		return time.Date(2024, 1, 10, 9, 30, 0, 0, time.FixedZone("PYT", -3*3600))
	})
}

func parse(t *testing.T, b []byte) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(b))
	return doc
}

// ── Sign / Verify ─────────────────────────────────────────────────────────────

func TestSign_FirmaVerificable(t *testing.T) {
	res, err := newService(t).Sign([]byte(unsignedRDE))
	require.NoError(t, err)

	cert, err := signer.Verify(res.XML)
	require.NoError(t, err)
	assert.Equal(t, newPKI(t).leafCert.Raw, cert.Raw)
	assert.NotEmpty(t, res.DigestValue)
}

func TestSign_EstructuraXAdES(t *testing.T) {
	res, err := newService(t).Sign([]byte(unsignedRDE))
	require.NoError(t, err)
	root := parse(t, res.XML).Root()

	children := root.ChildElements()
	require.Len(t, children, 3)
	assert.Equal(t, "DE", children[1].Tag)
	assert.Equal(t, "Signature", children[2].Tag, "la firma va a continuación del DE")

	refs := root.FindElements("Signature/SignedInfo/Reference")
	require.Len(t, refs, 2)
	assert.Equal(t, "#"+cdc, refs[0].SelectAttrValue("URI", ""))
	transforms := refs[0].FindElements("Transforms/Transform")
	require.Len(t, transforms, 2)
	assert.Equal(t, signer.TransformEnveloped, transforms[0].SelectAttrValue("Algorithm", ""))
	assert.Equal(t, signer.AlgExcC14N, transforms[1].SelectAttrValue("Algorithm", ""))
	assert.Equal(t, signer.TypeSignedProperties, refs[1].SelectAttrValue("Type", ""))

	props := root.FindElement("Signature/Object/QualifyingProperties/SignedProperties")
	require.NotNil(t, props)
	assert.Equal(t, strings.TrimPrefix(refs[1].SelectAttrValue("URI", ""), "#"), props.SelectAttrValue("Id", ""))
	assert.Equal(t, "2024-01-10T09:30:00-03:00", props.FindElement(".//SigningTime").Text())
}

func TestSign_IssuerSerialRealAntesDeFirmar(t *testing.T) {
	p := newPKI(t)
	res, err := newService(t).Sign([]byte(unsignedRDE))
	require.NoError(t, err)
	root := parse(t, res.XML).Root()

	serial := root.FindElement(".//IssuerSerial/X509SerialNumber")
	require.NotNil(t, serial)
	assert.Equal(t, "123456789012345678901234567890", serial.Text(), "serial en decimal")
	issuer := root.FindElement(".//IssuerSerial/X509IssuerName")
	require.NotNil(t, issuer)
	assert.Equal(t, p.caCert.Subject.String(), issuer.Text())

	assert.Equal(t, "123456789012345678901234567890", res.Certificate.Serial)
	assert.Equal(t, leafSerial.Text(16), res.Certificate.SerialHex)
	assert.Equal(t, p.caCert.Subject.String(), res.Certificate.Issuer)
	assert.Contains(t, res.Certificate.Subject, "EMPRESA DE PRUEBA S.A.")
}

func TestVerify_DetectaDEAlterado(t *testing.T) {
	res, err := newService(t).Sign([]byte(unsignedRDE))
	require.NoError(t, err)
	tampered := strings.Replace(string(res.XML), "<dTotGralOpe>121000<", "<dTotGralOpe>1000<", 1)
	require.NotEqual(t, string(res.XML), tampered)

	_, err = signer.Verify([]byte(tampered))
	assert.True(t, errors.Is(err, signer.ErrDigestMismatch), "err = %v", err)
}

func TestVerify_DetectaSignedPropertiesAlterado(t *testing.T) {
	res, err := newService(t).Sign([]byte(unsignedRDE))
	require.NoError(t, err)
	tampered := strings.Replace(string(res.XML), "123456789012345678901234567890", "1", 1)

	_, err = signer.Verify([]byte(tampered))
	assert.True(t, errors.Is(err, signer.ErrDigestMismatch), "err = %v", err)
}

func TestVerify_AgregarQRDespuesDeFirmarNoRompeLaFirma(t *testing.T) {
	res, err := newService(t).Sign([]byte(unsignedRDE))
	require.NoError(t, err)

	doc := parse(t, res.XML)
	doc.Root().CreateElement("gCamFuFD").CreateElement("dCarQR").SetText("https://ekuatia.set.gov.py/consultas-test/qr?nVersion=150&Id=" + cdc)
	out, err := doc.WriteToBytes()
	require.NoError(t, err)

	_, err = signer.Verify(out)
	assert.NoError(t, err)
}

func TestSign_DocumentoSinDEFirmaTodoElDocumento(t *testing.T) {
	res, err := newService(t).Sign([]byte(`<factura xmlns="urn:test"><total>10</total></factura>`))
	require.NoError(t, err)

	root := parse(t, res.XML).Root()
	ref := root.FindElement("Signature/SignedInfo/Reference")
	require.NotNil(t, ref)
	assert.Equal(t, "", ref.SelectAttrValue("URI", "x"))

	_, err = signer.Verify(res.XML)
	require.NoError(t, err)

	tampered := strings.Replace(string(res.XML), "<total>10</total>", "<total>11</total>", 1)
	_, err = signer.Verify([]byte(tampered))
	assert.True(t, errors.Is(err, signer.ErrDigestMismatch))
}

func TestSign_NoEsIdempotentePeroSiempreVerifica(t *testing.T) {
	p := newPKI(t)
	n := 0
	s := signer.NewService(signer.NewStaticSigningContext(p.leafKey, p.leafCert)).WithClock(func() time.Time {
		n++
		return time.Date(2024, 1, 10, 9, 30, n, 0, time.UTC)
	})
	a, err := s.Sign([]byte(unsignedRDE))
	require.NoError(t, err)
	b, err := s.Sign([]byte(unsignedRDE))
	require.NoError(t, err)
	assert.NotEqual(t, a.XML, b.XML)
	assert.Equal(t, a.DigestValue, b.DigestValue, "el digest del DE no depende de la hora")
	_, err = signer.Verify(b.XML)
	assert.NoError(t, err)
}

func TestSign_DocumentoYaFirmado(t *testing.T) {
	s := newService(t)
	res, err := s.Sign([]byte(unsignedRDE))
	require.NoError(t, err)
	_, err = s.Sign(res.XML)
	var se *domain.SigningError
	assert.True(t, errors.As(err, &se))
}

func TestSign_XMLInvalido(t *testing.T) {
	_, err := newService(t).Sign([]byte("esto no es XML"))
	var se *domain.SigningError
	assert.True(t, errors.As(err, &se))
}

func TestVerify_SinFirma(t *testing.T) {
	_, err := signer.Verify([]byte(unsignedRDE))
	assert.ErrorIs(t, err, signer.ErrNoSignature)
}

// ── SigningContext ────────────────────────────────────────────────────────────

func TestSigningContext_ArchivoInexistente(t *testing.T) {
	sc := signer.NewSigningContext(filepath.Join(t.TempDir(), "no-existe.p12"), "x")
	_, err := sc.Material()
	var se *domain.SigningError
	require.True(t, errors.As(err, &se))

	_, err = signer.NewService(sc).Sign([]byte(unsignedRDE))
	assert.True(t, errors.As(err, &se), "el error de carga queda fijado")
}

func TestSigningContext_P12Corrupto(t *testing.T) {
	path := filepath.Join(t.TempDir(), "firma.p12")
	require.NoError(t, os.WriteFile(path, []byte("no es un pkcs12"), 0o600))
	_, err := signer.NewSigningContext(path, "clave").Material()
	var se *domain.SigningError
	assert.True(t, errors.As(err, &se))
}

func TestSigningContext_SinRuta(t *testing.T) {
	_, err := signer.NewSigningContext("", "").Material()
	var se *domain.SigningError
	assert.True(t, errors.As(err, &se))
}

func writePEM(t *testing.T, p testPKI) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, pem.Encode(&b, &pem.Block{Type: "CERTIFICATE", Bytes: p.leafCert.Raw}))
	require.NoError(t, pem.Encode(&b, &pem.Block{Type: "CERTIFICATE", Bytes: p.caCert.Raw}))
	require.NoError(t, pem.Encode(&b, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(p.leafKey)}))
	path := filepath.Join(t.TempDir(), "firma.pem")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func TestSigningContext_PEMCargaUnaSolaVez(t *testing.T) {
	p := newPKI(t)
	sc := signer.NewSigningContext(writePEM(t, p), "")

	var wg sync.WaitGroup
	got := make([]*signer.KeyMaterial, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := sc.Material()
			assert.NoError(t, err)
			got[i] = m
		}(i)
	}
	wg.Wait()
	for _, m := range got {
		assert.Same(t, got[0], m)
	}
	assert.Equal(t, p.leafCert.Raw, got[0].Certificate.Raw, "la hoja es la que corresponde a la llave")
	require.Len(t, got[0].Chain, 1)
	assert.Equal(t, p.caCert.Raw, got[0].Chain[0].Raw)
}

func TestNewKeyMaterial_LlaveQueNoCorresponde(t *testing.T) {
	p := newPKI(t)
	other, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	_, err = signer.NewKeyMaterial(other, []*x509.Certificate{p.leafCert})
	assert.Error(t, err)

	_, err = signer.NewStaticSigningContext(other, p.leafCert).Material()
	var se *domain.SigningError
	assert.True(t, errors.As(err, &se))
}

func TestLoadPEM_SinLlave(t *testing.T) {
	p := newPKI(t)
	data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: p.leafCert.Raw})
	_, err := signer.LoadPEM(data)
	assert.Error(t, err)
}
