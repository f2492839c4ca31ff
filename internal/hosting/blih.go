package hosting

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

const blihUserAgent = "blih-1.7"

type blihBackend struct {
	baseURL    string
	host       string
	httpClient *http.Client
}

type blihSession struct {
	backend *blihBackend
	user    string
	// token is the hex SHA-512 of the password; the password itself is not kept.
	token string
}

func (b *blihBackend) authenticate(username, password string) (session, error) {
	if _, err := url.Parse(b.baseURL); err != nil {
		return nil, fmt.Errorf("invalid BLIH base URL %q: %w", b.baseURL, err)
	}
	sum := sha512.Sum512([]byte(password))
	return &blihSession{backend: b, user: username, token: hex.EncodeToString(sum[:])}, nil
}

func (s *blihSession) create(ctx context.Context, name string, opts CreateOptions) (string, error) {
	data := map[string]any{"name": name, "type": "git"}
	if opts.Description != "" {
		data["description"] = opts.Description
	}
	if _, err := s.do(ctx, "create", http.MethodPost, "repositories/create", data); err != nil {
		return "", err
	}

	owner := s.user
	if opts.LegacyUsername != "" {
		owner = opts.LegacyUsername
	}
	return fmt.Sprintf("git@%s:/%s/%s", s.backend.host, owner, name), nil
}

func (s *blihSession) delete(ctx context.Context, name string) error {
	_, err := s.do(ctx, "delete", http.MethodDelete, "repository/"+url.PathEscape(name), nil)
	return err
}

func (s *blihSession) addCollaborator(ctx context.Context, name, collaborator, rights string) error {
	data := map[string]any{"user": collaborator, "acl": rights}
	_, err := s.do(ctx, "add collaborator", http.MethodPost, "repository/"+url.PathEscape(name)+"/acls", data)
	return err
}

// sign computes the request signature: HMAC-SHA512 keyed by the password
// hash over the user name followed by the canonical JSON of data.
func (s *blihSession) sign(data map[string]any) (string, error) {
	mac := hmac.New(sha512.New, []byte(s.token))
	mac.Write([]byte(s.user))
	if data != nil {
		canonical, err := canonicalJSON(data)
		if err != nil {
			return "", err
		}
		mac.Write(canonical)
	}
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// canonicalJSON renders data with sorted keys, a four space indent and
// non-ASCII characters escaped as \uXXXX, the form the server hashes when
// checking signatures.
func canonicalJSON(data map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(data); err != nil {
		return nil, fmt.Errorf("failed to encode request data: %w", err)
	}
	return escapeNonASCII(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// escapeNonASCII replaces every rune above 0x7F with its \uXXXX escape,
// using a surrogate pair outside the basic multilingual plane.
func escapeNonASCII(b []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(b))
	for _, r := range string(b) {
		switch {
		case r < utf8.RuneSelf:
			out.WriteByte(byte(r))
		case r > 0xFFFF:
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&out, `\u%04x\u%04x`, hi, lo)
		default:
			fmt.Fprintf(&out, `\u%04x`, r)
		}
	}
	return out.Bytes()
}

type blihResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (s *blihSession) do(ctx context.Context, op, method, path string, data map[string]any) (string, error) {
	signature, err := s.sign(data)
	if err != nil {
		return "", err
	}

	body := map[string]any{"user": s.user, "signature": signature}
	if data != nil {
		body["data"] = data
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := strings.TrimRight(s.backend.baseURL, "/") + "/" + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", blihUserAgent)

	resp, err := s.backend.httpClient.Do(req)
	if err != nil {
		return "", &RemoteAPIError{Backend: BLIH, Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &RemoteAPIError{Backend: BLIH, Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	var parsed blihResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		// plain-text bodies come from proxies in front of the API
		text := strings.TrimSpace(string(raw))
		if resp.StatusCode >= 300 {
			parsed.Error = text
		} else {
			parsed.Message = text
		}
	}

	if resp.StatusCode >= 300 || parsed.Error != "" {
		msg := parsed.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", &RemoteAPIError{Backend: BLIH, Op: op, StatusCode: resp.StatusCode, Message: msg}
	}
	return parsed.Message, nil
}
