package session

import "encoding/json"

// Flash is a one-shot notification rendered on the next page view.
// Level is one of "info", "success" or "error".
type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Well-known session keys.
const (
	keyFlash    = "flash"
	keyFormData = "form_data"
	keyErrors   = "errors"
)

// Session is a mutable key-value map scoped to a single request. It travels
// to the browser inside a signed cookie, so values must stay JSON-encodable
// and small.
type Session struct {
	data map[string]any
	orig string // canonical encoding at decode time, for change detection
}

// NewSession returns an empty session. An untouched empty session counts as
// unchanged, so absent cookies stay absent.
func NewSession() *Session {
	return &Session{data: make(map[string]any), orig: "{}"}
}

// decode builds a session from a JSON payload. Malformed payloads yield an
// empty session; the caller treats the cookie as absent.
func decode(payload []byte) *Session {
	s := NewSession()
	if json.Unmarshal(payload, &s.data) != nil || s.data == nil {
		return NewSession()
	}
	s.orig = s.encode()
	return s
}

// encode returns the canonical JSON form. Go object keys marshal sorted, so
// equal sessions always encode identically.
func (s *Session) encode() string {
	b, err := json.Marshal(s.data)
	if err != nil {
		// Session values are plain JSON types; a failure here is a
		// programming error upstream.
		panic("session: unencodable value: " + err.Error())
	}
	return string(b)
}

// Changed reports whether the session differs from its decoded snapshot.
func (s *Session) Changed() bool {
	return s.encode() != s.orig
}

// Set stores an arbitrary JSON-encodable value.
func (s *Session) Set(key string, value any) {
	s.data[key] = value
}

// Get returns the raw value for key.
func (s *Session) Get(key string) (any, bool) {
	v, ok := s.data[key]
	return v, ok
}

// GetString returns the value for key if it is a string.
func (s *Session) GetString(key string) (string, bool) {
	v, ok := s.data[key].(string)
	return v, ok
}

// Delete removes key.
func (s *Session) Delete(key string) {
	delete(s.data, key)
}

// Clear drops every key.
func (s *Session) Clear() {
	s.data = make(map[string]any)
}

// Len returns the number of stored keys.
func (s *Session) Len() int {
	return len(s.data)
}

// SetFlash queues a one-shot notification for the next rendered page.
func (s *Session) SetFlash(level, message string) {
	s.data[keyFlash] = map[string]any{"level": level, "message": message}
}

// PopFlash removes and returns the queued flash, if any.
func (s *Session) PopFlash() (Flash, bool) {
	raw, ok := s.data[keyFlash].(map[string]any)
	if !ok {
		return Flash{}, false
	}
	delete(s.data, keyFlash)

	f := Flash{}
	f.Level, _ = raw["level"].(string)
	f.Message, _ = raw["message"].(string)
	return f, true
}

// SetFormData stashes submitted form values for redisplay after a redirect.
func (s *Session) SetFormData(form map[string]string) {
	m := make(map[string]any, len(form))
	for k, v := range form {
		m[k] = v
	}
	s.data[keyFormData] = m
}

// PopFormData removes and returns stashed form values.
func (s *Session) PopFormData() map[string]string {
	return s.popStringMap(keyFormData)
}

// SetErrors stashes the set of invalid field names for redisplay.
func (s *Session) SetErrors(fields map[string]bool) {
	m := make(map[string]any, len(fields))
	for k, v := range fields {
		m[k] = v
	}
	s.data[keyErrors] = m
}

// PopErrors removes and returns the stashed invalid field names.
func (s *Session) PopErrors() map[string]bool {
	raw, ok := s.data[keyErrors].(map[string]any)
	if !ok {
		return map[string]bool{}
	}
	delete(s.data, keyErrors)

	out := make(map[string]bool, len(raw))
	for k, v := range raw {
		if b, ok := v.(bool); ok && b {
			out[k] = true
		}
	}
	return out
}

func (s *Session) popStringMap(key string) map[string]string {
	raw, ok := s.data[key].(map[string]any)
	if !ok {
		return map[string]string{}
	}
	delete(s.data, key)

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if str, ok := v.(string); ok {
			out[k] = str
		}
	}
	return out
}
