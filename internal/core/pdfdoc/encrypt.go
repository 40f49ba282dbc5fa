package pdfdoc

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
)

// securityHandler is the part of a /Encrypt dictionary needed to check a
// password against the AES-256 standard security handler (R5, R6).
type securityHandler struct {
	Filter string
	V, R   int64
	Length int64
	O, U   []byte
}

// findEncrypt reads the trailer's /Encrypt dictionary. It returns nil, nil
// when the document is not encrypted.
func findEncrypt(data []byte) (*securityHandler, error) {
	pos := lastKey(data, "/Encrypt")
	if pos < 0 {
		return nil, nil
	}
	s := &scanner{b: data, i: pos}
	v, err := s.value(0)
	if err != nil {
		return nil, fmt.Errorf("encrypt entry: %w", err)
	}
	if ref, ok := v.(pdfRef); ok {
		if v, err = indirectObject(data, ref); err != nil {
			return nil, fmt.Errorf("encrypt dictionary: %w", err)
		}
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("encrypt entry is %T, not a dictionary", v)
	}

	h := &securityHandler{Length: 40}
	if f, ok := m["Filter"].(pdfName); ok {
		h.Filter = string(f)
	}
	h.V, _ = m["V"].(int64)
	h.R, _ = m["R"].(int64)
	if l, ok := m["Length"].(int64); ok {
		h.Length = l
	}
	h.O, _ = m["O"].([]byte)
	h.U, _ = m["U"].([]byte)
	return h, nil
}

// aes256 reports whether the handler uses the SHA-2 based password check.
func (h *securityHandler) aes256() bool {
	return h.Filter == "Standard" && (h.R == 5 || h.R == 6) && len(h.U) >= 48 && len(h.O) >= 48
}

// authenticate checks password as the user password, then as the owner
// password. It returns the poppler flag that carries the password that matched.
func (h *securityHandler) authenticate(password string) (flag string, ok bool) {
	pw := []byte(password)
	if len(pw) > 127 {
		pw = pw[:127]
	}
	if bytes.Equal(h.hash(pw, h.U[32:40], nil), h.U[:32]) {
		return "-upw", true
	}
	if bytes.Equal(h.hash(pw, h.O[32:40], h.U[:48]), h.O[:32]) {
		return "-opw", true
	}
	return "", false
}

func (h *securityHandler) hash(pw, salt, udata []byte) []byte {
	if h.R == 5 {
		d := sha256.New()
		d.Write(pw)
		d.Write(salt)
		d.Write(udata)
		return d.Sum(nil)
	}
	return hardenedHash(pw, salt, udata)
}

// hardenedHash is the revision 6 password hash (ISO 32000-2, 7.6.4.3.4).
func hardenedHash(pw, salt, udata []byte) []byte {
	d := sha256.New()
	d.Write(pw)
	d.Write(salt)
	d.Write(udata)
	k := d.Sum(nil)

	for round := 0; ; round++ {
		seq := make([]byte, 0, len(pw)+len(k)+len(udata))
		seq = append(seq, pw...)
		seq = append(seq, k...)
		seq = append(seq, udata...)
		k1 := bytes.Repeat(seq, 64)

		block, err := aes.NewCipher(k[:16])
		if err != nil {
			panic(err) // key is always 16 bytes
		}
		e := make([]byte, len(k1))
		cipher.NewCBCEncrypter(block, k[16:32]).CryptBlocks(e, k1)

		var sum int
		for _, b := range e[:16] {
			sum += int(b)
		}
		switch sum % 3 {
		case 0:
			s := sha256.Sum256(e)
			k = s[:]
		case 1:
			s := sha512.Sum384(e)
			k = s[:]
		default:
			s := sha512.Sum512(e)
			k = s[:]
		}

		if round >= 63 && int(e[len(e)-1]) <= round-31 {
			return k[:32]
		}
	}
}
