package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
)

// Just enough of the PDF object syntax to read the trailer's /Encrypt entry
// when the pdf package refuses the document. Security handler dictionaries
// never live in object streams and their strings are never encrypted, so the
// raw file bytes are sufficient.

type pdfName string

type pdfKeyword string

type pdfRef struct {
	num, gen int64
}

const maxDepth = 32

type scanner struct {
	b []byte
	i int
}

func isSpace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (s *scanner) skip() {
	for s.i < len(s.b) {
		c := s.b[s.i]
		if isSpace(c) {
			s.i++
			continue
		}
		if c == '%' {
			for s.i < len(s.b) && s.b[s.i] != '\n' && s.b[s.i] != '\r' {
				s.i++
			}
			continue
		}
		return
	}
}

func (s *scanner) value(depth int) (any, error) {
	if depth > maxDepth {
		return nil, errors.New("objects nested too deeply")
	}
	s.skip()
	if s.i >= len(s.b) {
		return nil, io.ErrUnexpectedEOF
	}
	switch c := s.b[s.i]; {
	case c == '/':
		return s.name(), nil
	case c == '(':
		return s.literal()
	case c == '<':
		if s.i+1 < len(s.b) && s.b[s.i+1] == '<' {
			return s.dict(depth)
		}
		return s.hex()
	case c == '[':
		return s.array(depth)
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return s.number()
	default:
		return s.keyword()
	}
}

func (s *scanner) token() []byte {
	start := s.i
	for s.i < len(s.b) && !isSpace(s.b[s.i]) && !isDelim(s.b[s.i]) {
		s.i++
	}
	return s.b[start:s.i]
}

func (s *scanner) name() pdfName {
	s.i++
	raw := s.token()
	if bytes.IndexByte(raw, '#') < 0 {
		return pdfName(raw)
	}
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] == '#' && i+2 < len(raw) {
			if v, err := strconv.ParseUint(string(raw[i+1:i+3]), 16, 8); err == nil {
				out = append(out, byte(v))
				i += 2
				continue
			}
		}
		out = append(out, raw[i])
	}
	return pdfName(out)
}

func (s *scanner) literal() ([]byte, error) {
	s.i++
	var out []byte
	depth := 1
	for s.i < len(s.b) {
		c := s.b[s.i]
		s.i++
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return out, nil
			}
		case '\\':
			if s.i >= len(s.b) {
				return nil, io.ErrUnexpectedEOF
			}
			e := s.b[s.i]
			s.i++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if s.i < len(s.b) && s.b[s.i] == '\n' {
					s.i++
				}
			case '\n':
			case '0', '1', '2', '3', '4', '5', '6', '7':
				v := int(e - '0')
				for k := 0; k < 2 && s.i < len(s.b) && s.b[s.i] >= '0' && s.b[s.i] <= '7'; k++ {
					v = v*8 + int(s.b[s.i]-'0')
					s.i++
				}
				out = append(out, byte(v))
			default:
				out = append(out, e)
			}
			continue
		}
		out = append(out, c)
	}
	return nil, io.ErrUnexpectedEOF
}

func (s *scanner) hex() ([]byte, error) {
	s.i++
	var digits []byte
	for s.i < len(s.b) {
		c := s.b[s.i]
		s.i++
		if c == '>' {
			if len(digits)%2 == 1 {
				digits = append(digits, '0')
			}
			out := make([]byte, len(digits)/2)
			for k := range out {
				v, err := strconv.ParseUint(string(digits[2*k:2*k+2]), 16, 8)
				if err != nil {
					return nil, fmt.Errorf("hex string: %w", err)
				}
				out[k] = byte(v)
			}
			return out, nil
		}
		if !isSpace(c) {
			digits = append(digits, c)
		}
	}
	return nil, io.ErrUnexpectedEOF
}

func (s *scanner) dict(depth int) (map[string]any, error) {
	s.i += 2
	out := map[string]any{}
	for {
		s.skip()
		if s.i+1 < len(s.b) && s.b[s.i] == '>' && s.b[s.i+1] == '>' {
			s.i += 2
			return out, nil
		}
		k, err := s.value(depth + 1)
		if err != nil {
			return nil, err
		}
		key, ok := k.(pdfName)
		if !ok {
			return nil, fmt.Errorf("dictionary key %v is not a name", k)
		}
		v, err := s.value(depth + 1)
		if err != nil {
			return nil, err
		}
		out[string(key)] = v
	}
}

func (s *scanner) array(depth int) ([]any, error) {
	s.i++
	var out []any
	for {
		s.skip()
		if s.i < len(s.b) && s.b[s.i] == ']' {
			s.i++
			return out, nil
		}
		v, err := s.value(depth + 1)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

// number also folds "num gen R" into a pdfRef.
func (s *scanner) number() (any, error) {
	raw := string(s.token())
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n >= 0 {
			save := s.i
			s.skip()
			gen := s.token()
			if g, err := strconv.ParseInt(string(gen), 10, 64); err == nil && len(gen) > 0 && gen[0] != '+' && gen[0] != '-' {
				s.skip()
				if kw := s.token(); string(kw) == "R" {
					return pdfRef{num: n, gen: g}, nil
				}
			}
			s.i = save
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("bad number %q", raw)
	}
	return f, nil
}

func (s *scanner) keyword() (pdfKeyword, error) {
	kw := s.token()
	if len(kw) == 0 {
		return "", fmt.Errorf("unexpected %q at offset %d", s.b[s.i], s.i)
	}
	return pdfKeyword(kw), nil
}

// lastKey returns the offset just past the last occurrence of the name key,
// ignoring longer names that share its prefix (/EncryptMetadata).
func lastKey(data []byte, key string) int {
	end := len(data)
	for {
		i := bytes.LastIndex(data[:end], []byte(key))
		if i < 0 {
			return -1
		}
		next := i + len(key)
		if next >= len(data) || isSpace(data[next]) || isDelim(data[next]) {
			return next
		}
		end = i
	}
}

// indirectObject parses the body of the last definition of ref.
func indirectObject(data []byte, ref pdfRef) (any, error) {
	re := regexp.MustCompile(fmt.Sprintf(`(?:^|[^0-9])%d\s+%d\s+obj`, ref.num, ref.gen))
	locs := re.FindAllIndex(data, -1)
	if len(locs) == 0 {
		return nil, fmt.Errorf("object %d %d not found", ref.num, ref.gen)
	}
	s := &scanner{b: data, i: locs[len(locs)-1][1]}
	return s.value(0)
}
